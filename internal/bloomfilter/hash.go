package bloomfilter

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"
)

// splitmixConst is the odd constant from SplittableRandom's splitmix64,
// used here only for its mixing properties, not as an RNG.
const splitmixConst = 0x9e3779b97f4a7c15

// splitmix64 is the standard splitmix64 output mixing function.
func splitmix64(x uint64) uint64 {
	x += splitmixConst
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// baseHash is the single base hash of value, folding in the filter's seed
// so that two filters built with different seeds never agree on bit
// positions for the same value — this is what makes merge on
// seed-mismatched filters a meaningful rejection rather than a silent
// wrong answer.
func baseHash(value []byte, seed uint32) uint64 {
	d := xxhash.New()
	var seedBuf [4]byte
	binary.LittleEndian.PutUint32(seedBuf[:], seed)
	d.Write(seedBuf[:])
	d.Write(value)
	return d.Sum64()
}

// indicesFor returns the k bit indices value maps to in a filter of m
// bits: the i-th hash is splitmix64(base ^ (i * C)) mod m, as specified.
func indicesFor(value []byte, m uint64, k uint, seed uint32) []uint64 {
	base := baseHash(value, seed)
	idx := make([]uint64, k)
	for i := uint(0); i < k; i++ {
		idx[i] = splitmix64(base^(uint64(i)*splitmixConst)) % m
	}
	return idx
}
