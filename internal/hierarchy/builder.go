package hierarchy

import (
	"context"

	"bloomjoin/internal/bloomfilter"
	"bloomjoin/internal/logging"
	"bloomjoin/internal/store"

	"golang.org/x/sync/errgroup"
)

// KVSource is the slice of the store adapter the builder needs: list the
// SST files of one column family and iterate one of them in key order.
// internal/store.Store satisfies this directly; it is narrowed here so the
// builder depends on the operations it actually calls, not the full
// adapter surface.
type KVSource interface {
	EnumerateSSTs(cf string) ([]string, error)
	IterateSST(cf, sstFileID string) ([]store.KV, error)
}

// BuildColumn walks every SST file of one column family, one goroutine
// per file, partitioning each file's entries into runs of partitionSize and
// turning each run into a leaf, then hands the concatenated leaf list to
// BuildTree. A file that fails to open or iterate is logged and
// contributes no leaves; the rest of the column still builds.
func BuildColumn(ctx context.Context, src KVSource, cf string, params Params, partitionSize int) (*Hierarchy, error) {
	fileIDs, err := src.EnumerateSSTs(cf)
	if err != nil {
		return nil, err
	}
	if len(fileIDs) == 0 {
		return BuildTree(nil, params)
	}

	perFileLeaves := make([][]Leaf, len(fileIDs))

	g, _ := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		i, fileID := i, fileID
		g.Go(func() error {
			kvs, err := src.IterateSST(cf, fileID)
			if err != nil {
				logging.L().Warn("hierarchy: skipping unreadable sst", "cf", cf, "sst", fileID, "err", err)
				return nil
			}
			perFileLeaves[i] = partitionIntoLeaves(kvs, fileID, params, partitionSize)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []Leaf
	for _, leaves := range perFileLeaves {
		all = append(all, leaves...)
	}
	return BuildTree(all, params)
}

// partitionIntoLeaves accumulates kvs (already in key order) into runs of
// partitionSize, finalizing a leaf each time the running count reaches
// partitionSize and a trailing leaf for any remainder.
func partitionIntoLeaves(kvs []store.KV, sstFileID string, params Params, partitionSize int) []Leaf {
	if partitionSize <= 0 {
		partitionSize = 1
	}

	var leaves []Leaf
	var bloom *bloomfilter.Filter
	var firstKey, lastKey string
	count := 0

	flush := func() {
		if count == 0 {
			return
		}
		leaves = append(leaves, Leaf{
			Bloom:     bloom,
			SSTFileID: sstFileID,
			StartKey:  firstKey,
			EndKey:    lastKey,
		})
		bloom = nil
		count = 0
	}

	for _, kv := range kvs {
		if bloom == nil {
			bloom = bloomfilter.New(params.M, params.K, params.Seed)
			firstKey = kv.Key
		}
		bloom.Insert(kv.Value)
		lastKey = kv.Key
		count++

		if count == partitionSize {
			flush()
		}
	}
	flush()

	return leaves
}
