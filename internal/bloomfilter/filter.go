// Package bloomfilter implements the fixed-size bit-array Bloom filter
// that sits on the value side of every hierarchy leaf and internal node,
// adapted from the teacher's merge-aware LSMBloom (m/k/seed header,
// bitwise-OR merge with a parameter-mismatch guard) and generalized to an
// arbitrary hash count k instead of the teacher's implicit fixed k.
package bloomfilter

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrParamMismatch is returned by Merge when the two filters were not
// built with the same (m, k, seed) — merging them would OR together bits
// that don't mean the same thing, silently corrupting both false-positive
// rate and set semantics.
var ErrParamMismatch = errors.New("bloomfilter: merge requires identical m, k and seed")

// Filter is a fixed-size bit array plus k deterministic hash functions.
// It has no automatic sizing: callers supply m and k directly. Zero value
// is not usable; construct with New.
type Filter struct {
	m    uint64
	k    uint
	seed uint32
	bits []byte
}

// New allocates a filter of m bits (rounded up to a byte boundary) with k
// hash functions and the given seed.
func New(m uint64, k uint, seed uint32) *Filter {
	if m == 0 {
		m = 1
	}
	if k == 0 {
		k = 1
	}
	return &Filter{
		m:    m,
		k:    k,
		seed: seed,
		bits: make([]byte, (m+7)/8),
	}
}

func (f *Filter) M() uint64   { return f.m }
func (f *Filter) K() uint     { return f.k }
func (f *Filter) Seed() uint32 { return f.seed }

// Insert sets the k bits value maps to.
func (f *Filter) Insert(value []byte) {
	for _, idx := range indicesFor(value, f.m, f.k, f.seed) {
		f.setBit(idx)
	}
}

// Contains reports whether all k bits value maps to are set. A true
// result may be a false positive; a false result is never a false
// negative for any value previously Inserted into f or into a filter
// later Merged into f.
func (f *Filter) Contains(value []byte) bool {
	for _, idx := range indicesFor(value, f.m, f.k, f.seed) {
		if !f.getBit(idx) {
			return false
		}
	}
	return true
}

// Merge bitwise-ORs other's bits into f. Requires identical m, k and
// seed; a mismatch is a programmer error, reported via ErrParamMismatch
// rather than silently producing a meaningless union.
func (f *Filter) Merge(other *Filter) error {
	if f.m != other.m || f.k != other.k || f.seed != other.seed {
		return ErrParamMismatch
	}
	for i := range f.bits {
		f.bits[i] |= other.bits[i]
	}
	return nil
}

// Clone returns an independent copy of f.
func (f *Filter) Clone() *Filter {
	out := &Filter{m: f.m, k: f.k, seed: f.seed, bits: make([]byte, len(f.bits))}
	copy(out.bits, f.bits)
	return out
}

func (f *Filter) setBit(idx uint64) {
	f.bits[idx/8] |= 1 << (idx % 8)
}

func (f *Filter) getBit(idx uint64) bool {
	return f.bits[idx/8]&(1<<(idx%8)) != 0
}

// Serialize encodes the filter as m (8 bytes LE), k (4 bytes LE), seed
// (4 bytes LE), then the packed bit array, matching the on-disk layout
// of the teacher's SerializeMeta header extended with the bit payload.
func (f *Filter) Serialize() []byte {
	out := make([]byte, 16+len(f.bits))
	binary.LittleEndian.PutUint64(out[0:8], f.m)
	binary.LittleEndian.PutUint32(out[8:12], uint32(f.k))
	binary.LittleEndian.PutUint32(out[12:16], f.seed)
	copy(out[16:], f.bits)
	return out
}

// Deserialize parses the layout Serialize produces.
func Deserialize(data []byte) (*Filter, error) {
	if len(data) < 16 {
		return nil, errors.New("bloomfilter: truncated header")
	}
	m := binary.LittleEndian.Uint64(data[0:8])
	k := uint(binary.LittleEndian.Uint32(data[8:12]))
	seed := binary.LittleEndian.Uint32(data[12:16])

	want := int((m + 7) / 8)
	body := data[16:]
	if len(body) < want {
		return nil, errors.New("bloomfilter: truncated bit array")
	}

	f := &Filter{m: m, k: k, seed: seed, bits: make([]byte, want)}
	copy(f.bits, body[:want])
	return f, nil
}
