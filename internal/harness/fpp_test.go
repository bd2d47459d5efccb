package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpectedFalsePositiveRateZeroBitsIsCertain(t *testing.T) {
	assert.Equal(t, 1.0, ExpectedFalsePositiveRate(0, 4, 1000))
}

func TestExpectedFalsePositiveRateDecreasesAsBitsGrow(t *testing.T) {
	small := ExpectedFalsePositiveRate(1<<10, 4, 1000)
	large := ExpectedFalsePositiveRate(1<<20, 4, 1000)
	assert.Less(t, large, small)
}

func TestExpectedFalsePositiveRateIsWithinUnitInterval(t *testing.T) {
	fpp := ExpectedFalsePositiveRate(1<<16, 4, 5000)
	assert.GreaterOrEqual(t, fpp, 0.0)
	assert.LessOrEqual(t, fpp, 1.0)
}
