package harness

import (
	"fmt"
	"strconv"
	"strings"

	"bloomjoin/internal/store"
)

// keyWidth is the zero-padding width spec.md §6 fixes for record keys so
// they sort lexicographically in record-index order.
const keyWidth = 20

// fillerLen is the filler length spec.md §6 fixes to make SST files large
// enough for LSM levels to matter; must be reproduced exactly.
const fillerLen = 1000

var filler = strings.Repeat("a", fillerLen)

// RecordKey builds the fixed-width, lexicographically-ordered key for
// record index i, per spec.md §6.
func RecordKey(i int) string {
	idx := strconv.Itoa(i)
	return "key" + strings.Repeat("0", keyWidth-len(idx)) + idx
}

// ColumnValue builds the ordinary (non-target) value column c holds at
// record index i: c + "_value" + decimal(i) + the 1000-byte 'a' filler.
func ColumnValue(column string, i int) []byte {
	return []byte(fmt.Sprintf("%s_value%d%s", column, i, filler))
}

// TargetValue builds the value substituted at every k-th record of the
// "target" variant: the caller-supplied pattern in place of the normal
// value, in every queried column.
func TargetValue(column, pattern string) []byte {
	return []byte(column + "_" + pattern)
}

// InsertWithTargets bulk-inserts numRecords records across columns, every
// targetEveryKth-th record (1-indexed) getting TargetValue(column,
// pattern) in every column instead of ColumnValue, so a sweep run always
// has a known, non-zero number of true matches. Returns the record
// indices that received the target pattern. Grounded on
// DBManager::insertRecordsWithSearchTargets.
func InsertWithTargets(st store.Store, columns []string, numRecords, targetEveryKth int, pattern string) ([]int, error) {
	var targetIndices []int

	for i := 1; i <= numRecords; i++ {
		isTarget := targetEveryKth > 0 && i%targetEveryKth == 0
		key := RecordKey(i)

		for _, col := range columns {
			var val []byte
			if isTarget {
				val = TargetValue(col, pattern)
			} else {
				val = ColumnValue(col, i)
			}
			if err := st.Put(col, key, val); err != nil {
				return nil, err
			}
		}
		if isTarget {
			targetIndices = append(targetIndices, i)
		}
	}

	return targetIndices, nil
}
