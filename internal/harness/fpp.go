package harness

import "math"

// ExpectedFalsePositiveRate returns the theoretical false-positive
// probability of a Bloom filter with m bits, k hash functions and n
// inserted items: (1 - e^(-k*n/m))^k. Grounded on
// bloom_fpp_calculator.cpp's calculate_bloom_fpp, logged by the CLI's
// sweep command next to each sweep point as a theoretical baseline.
func ExpectedFalsePositiveRate(m uint64, k uint, n int) float64 {
	if m == 0 {
		return 1
	}
	exponent := -(float64(k) * float64(n)) / float64(m)
	base := 1 - math.Exp(exponent)
	return math.Pow(base, float64(k))
}
