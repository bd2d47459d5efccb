package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordKeyIsZeroPaddedAndSortsNumerically(t *testing.T) {
	assert.Equal(t, "key00000000000000000001", RecordKey(1))
	assert.Equal(t, "key00000000000000000010", RecordKey(10))
	assert.Less(t, RecordKey(1), RecordKey(10))
	assert.Less(t, RecordKey(99), RecordKey(100))
}

func TestColumnValueVariesByColumnAndIndex(t *testing.T) {
	a := ColumnValue("phone", 1)
	b := ColumnValue("phone", 2)
	c := ColumnValue("mail", 1)
	assert.NotEqual(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, string(a), "phone_value1")
}

func TestTargetValueIsIndependentOfRecordIndex(t *testing.T) {
	v := TargetValue("phone", "needle")
	assert.Equal(t, []byte("phone_needle"), v)
}

func TestInsertWithTargetsMarksEveryKthRecord(t *testing.T) {
	st := newFakeStoreForInject()
	cols := []string{"phone", "mail"}

	indices, err := InsertWithTargets(st, cols, 10, 3, "needle")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 6, 9}, indices)

	val, found, err := st.PointGet("phone", RecordKey(3))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, TargetValue("phone", "needle"), val)

	val, found, err = st.PointGet("mail", RecordKey(1))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ColumnValue("mail", 1), val)
}

func TestInsertWithTargetsZeroKthInsertsNoTargets(t *testing.T) {
	st := newFakeStoreForInject()
	indices, err := InsertWithTargets(st, []string{"phone"}, 5, 0, "needle")
	require.NoError(t, err)
	assert.Empty(t, indices)
}
