package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTimingStatsEmptyIsZeroValue(t *testing.T) {
	assert.Equal(t, TimingStatistics{}, TimingStats(nil))
}

func TestTimingStatsOddCount(t *testing.T) {
	stats := TimingStats([]int64{30, 10, 20})
	assert.Equal(t, int64(10), stats.Min)
	assert.Equal(t, int64(30), stats.Max)
	assert.Equal(t, 20.0, stats.Median)
	assert.InDelta(t, 20.0, stats.Average, 0.0001)
}

func TestTimingStatsEvenCount(t *testing.T) {
	stats := TimingStats([]int64{10, 20, 30, 40})
	assert.Equal(t, int64(10), stats.Min)
	assert.Equal(t, int64(40), stats.Max)
	assert.Equal(t, 25.0, stats.Median)
	assert.InDelta(t, 25.0, stats.Average, 0.0001)
}

func TestCountStatsEmptyIsZeroValue(t *testing.T) {
	assert.Equal(t, CountStatistics{}, CountStats(nil))
}

func TestCountStatsBasic(t *testing.T) {
	stats := CountStats([]uint64{5, 1, 3})
	assert.Equal(t, uint64(1), stats.Min)
	assert.Equal(t, uint64(5), stats.Max)
	assert.Equal(t, 3.0, stats.Median)
	assert.InDelta(t, 3.0, stats.Average, 0.0001)
}
