package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeltaReflectsIncrements(t *testing.T) {
	c := &Counters{}
	before := c.Sample()

	c.IncBloomProbe()
	c.IncBloomProbe()
	c.IncLeafBloomProbe()
	c.IncSSTScan()

	after := c.Sample()
	delta := after.Delta(before)

	assert.Equal(t, uint64(2), delta.BloomProbes)
	assert.Equal(t, uint64(1), delta.LeafBloomProbes)
	assert.Equal(t, uint64(1), delta.SSTScans)
}

func TestConcurrentIncrementsAreRaceFree(t *testing.T) {
	c := &Counters{}
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncBloomProbe()
			c.IncSSTScan()
		}()
	}
	wg.Wait()

	s := c.Sample()
	assert.Equal(t, uint64(100), s.BloomProbes)
	assert.Equal(t, uint64(100), s.SSTScans)
}
