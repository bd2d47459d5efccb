package bloomfilter

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInsertThenContains(t *testing.T) {
	f := New(1<<12, 4, 7)
	values := [][]byte{[]byte("phone:555-0100"), []byte("mail:a@b.com"), []byte("addr:42 Main St")}
	for _, v := range values {
		f.Insert(v)
	}
	for _, v := range values {
		assert.True(t, f.Contains(v), "inserted value must never be reported absent")
	}
}

func TestContainsNoFalseNegativesAcrossManyValues(t *testing.T) {
	f := New(1<<16, 5, 42)
	inserted := make([][]byte, 0, 2000)
	for i := 0; i < 2000; i++ {
		v := []byte(fmt.Sprintf("value-%d", i))
		f.Insert(v)
		inserted = append(inserted, v)
	}
	for _, v := range inserted {
		require.True(t, f.Contains(v))
	}
}

func TestMergeRejectsMismatchedParams(t *testing.T) {
	a := New(1024, 4, 1)
	b := New(2048, 4, 1)
	require.ErrorIs(t, a.Merge(b), ErrParamMismatch)

	c := New(1024, 5, 1)
	require.ErrorIs(t, a.Merge(c), ErrParamMismatch)

	d := New(1024, 4, 2)
	require.ErrorIs(t, a.Merge(d), ErrParamMismatch)
}

func TestMergeIsBitwiseOR(t *testing.T) {
	a := New(4096, 4, 9)
	b := New(4096, 4, 9)
	a.Insert([]byte("only-in-a"))
	b.Insert([]byte("only-in-b"))

	require.NoError(t, a.Merge(b))

	assert.True(t, a.Contains([]byte("only-in-a")))
	assert.True(t, a.Contains([]byte("only-in-b")))
}

func TestMergeCommutative(t *testing.T) {
	build := func(vals ...string) *Filter {
		f := New(4096, 4, 3)
		for _, v := range vals {
			f.Insert([]byte(v))
		}
		return f
	}

	ab := build()
	ba := build()
	a := build("x")
	b := build("y")

	require.NoError(t, ab.Merge(a))
	require.NoError(t, ab.Merge(b))
	require.NoError(t, ba.Merge(b))
	require.NoError(t, ba.Merge(a))

	assert.Equal(t, ab.bits, ba.bits)
}

func TestMergeAssociative(t *testing.T) {
	newWith := func(v string) *Filter {
		f := New(4096, 4, 11)
		f.Insert([]byte(v))
		return f
	}

	a, b, c := newWith("a"), newWith("b"), newWith("c")

	left := a.Clone()
	require.NoError(t, left.Merge(b))
	require.NoError(t, left.Merge(c))

	bc := b.Clone()
	require.NoError(t, bc.Merge(c))
	right := a.Clone()
	require.NoError(t, right.Merge(bc))

	assert.Equal(t, left.bits, right.bits)
}

func TestSerializeRoundTrip(t *testing.T) {
	f := New(1<<13, 6, 99)
	f.Insert([]byte("roundtrip"))

	data := f.Serialize()
	out, err := Deserialize(data)
	require.NoError(t, err)

	assert.Equal(t, f.m, out.m)
	assert.Equal(t, f.k, out.k)
	assert.Equal(t, f.seed, out.seed)
	assert.Equal(t, f.bits, out.bits)
	assert.True(t, out.Contains([]byte("roundtrip")))
}

func TestDeserializeTruncated(t *testing.T) {
	_, err := Deserialize([]byte{1, 2, 3})
	require.Error(t, err)
}
