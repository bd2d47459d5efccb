package harness

import (
	"context"
	"testing"

	"bloomjoin/internal/hierarchy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParamsForCompare() hierarchy.Params {
	return hierarchy.Params{M: 1 << 12, K: 4, Seed: 1, BranchingFactor: 2, PartitionSize: 2}
}

func buildCompareFixture(t *testing.T) (*fakeStoreForInject, []string, []*hierarchy.Hierarchy, [][]byte) {
	t.Helper()
	st := newFakeStoreForInject()
	cols := []string{"phone", "mail"}

	_, err := InsertWithTargets(st, cols, 12, 4, "needle")
	require.NoError(t, err)

	params := testParamsForCompare()
	trees := make([]*hierarchy.Hierarchy, len(cols))
	for i, col := range cols {
		h, err := hierarchy.BuildColumn(context.Background(), st, col, params, params.PartitionSize)
		require.NoError(t, err)
		trees[i] = h
	}

	values := [][]byte{TargetValue("phone", "needle"), TargetValue("mail", "needle")}
	return st, cols, trees, values
}

func TestCompareAgreesOnMatchingQuery(t *testing.T) {
	st, cols, trees, values := buildCompareFixture(t)

	res, err := Compare(context.Background(), st, cols, trees, values, 0)
	require.NoError(t, err)

	assert.True(t, res.Agree)
	assert.NotEmpty(t, res.NaiveKeys)
	assert.ElementsMatch(t, res.NaiveKeys, res.JoinKeys)
	assert.ElementsMatch(t, res.NaiveKeys, res.FallbackKeys)
}

func TestCompareAgreesOnNoMatchQuery(t *testing.T) {
	st, cols, trees, _ := buildCompareFixture(t)

	values := [][]byte{TargetValue("phone", "nonexistent"), TargetValue("mail", "nonexistent")}
	res, err := Compare(context.Background(), st, cols, trees, values, 0)
	require.NoError(t, err)

	assert.True(t, res.Agree)
	assert.Empty(t, res.NaiveKeys)
	assert.Empty(t, res.JoinKeys)
	assert.Empty(t, res.FallbackKeys)
}
