package harness

import (
	"context"
	"testing"

	"bloomjoin/internal/hierarchy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeasureFootprintNilHierarchyIsZero(t *testing.T) {
	assert.Equal(t, FilterFootprint{}, MeasureFootprint(nil))
	assert.Equal(t, FilterFootprint{}, MeasureFootprint(&hierarchy.Hierarchy{}))
}

func TestMeasureFootprintCountsEveryNodeAndCompresses(t *testing.T) {
	st := newFakeStoreForInject()
	_, err := InsertWithTargets(st, []string{"phone"}, 20, 5, "needle")
	require.NoError(t, err)

	params := hierarchy.Params{M: 1 << 12, K: 4, Seed: 1, BranchingFactor: 2, PartitionSize: 2}
	h, err := hierarchy.BuildColumn(context.Background(), st, "phone", params, params.PartitionSize)
	require.NoError(t, err)

	fp := MeasureFootprint(h)
	assert.Greater(t, fp.NodeCount, 1)
	assert.Greater(t, fp.UncompressedLen, int64(0))
	assert.Greater(t, fp.CompressedLen, int64(0))
}
