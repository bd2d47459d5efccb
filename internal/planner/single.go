package planner

import (
	"bytes"
	"context"
	"runtime"
	"sync"

	"bloomjoin/internal/hierarchy"
	"bloomjoin/internal/metrics"
	"bloomjoin/internal/store"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// FallbackPlanner is the single-hierarchy comparison planner (component
// F): descend only the first column's hierarchy to find candidates, then
// verify each candidate by point-probing every other column family.
type FallbackPlanner struct {
	store    store.Store
	counters *metrics.Counters
	limit    int
}

// NewFallbackPlanner builds a fallback planner over st; workerLimit bounds
// the per-candidate verification fan-out the same way JoinPlanner bounds
// its final-scan fan-out.
func NewFallbackPlanner(st store.Store, workerLimit int) *FallbackPlanner {
	if workerLimit <= 0 {
		workerLimit = runtime.NumCPU()
	}
	return &FallbackPlanner{store: st, counters: metrics.Global, limit: workerLimit}
}

// WithCounters overrides the counters instance, for tests.
func (p *FallbackPlanner) WithCounters(c *metrics.Counters) *FallbackPlanner {
	p.counters = c
	return p
}

// Scan descends trees[0] for values[0], scans every surviving leaf for
// candidate keys, then verifies each candidate against every other column
// by point lookup — the variant spec.md recommends over the source's
// full-CF-scan verifier.
func (p *FallbackPlanner) Scan(ctx context.Context, cols []string, tree *hierarchy.Hierarchy, values [][]byte) ([]string, error) {
	if len(cols) != len(values) {
		return nil, errors.Wrapf(ErrArityMismatch, "columns=%d values=%d", len(cols), len(values))
	}
	if len(cols) == 0 {
		return nil, nil
	}
	if tree == nil || tree.Root == nil {
		return nil, nil
	}

	candidates := tree.QueryNodes(values[0], "", "", p.counters)

	var allKeys []string
	for _, leaf := range candidates {
		p.counters.IncSSTScan()
		keys, err := p.store.ScanSSTForValue(cols[0], leaf.Leaf.SSTFileID, values[0], leaf.StartKey, leaf.EndKey)
		if err != nil {
			return nil, errors.Wrapf(err, "planner: fallback scan cf %q sst %q", cols[0], leaf.Leaf.SSTFileID)
		}
		allKeys = append(allKeys, keys...)
	}
	if len(allKeys) == 0 || len(cols) == 1 {
		return allKeys, nil
	}

	var (
		mu       sync.Mutex
		verified []string
	)
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)

	for _, key := range allKeys {
		key := key
		g.Go(func() error {
			ok, err := p.verify(key, cols, values)
			if err != nil {
				return err
			}
			if ok {
				mu.Lock()
				verified = append(verified, key)
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return verified, nil
}

// verify reports whether key holds values[i] in every column family
// cols[1:], stopping at the first mismatch.
func (p *FallbackPlanner) verify(key string, cols []string, values [][]byte) (bool, error) {
	for i := 1; i < len(cols); i++ {
		val, found, err := p.store.PointGet(cols[i], key)
		if err != nil {
			return false, errors.Wrapf(err, "planner: verify cf %q key %q", cols[i], key)
		}
		if !found || !bytes.Equal(val, values[i]) {
			return false, nil
		}
	}
	return true, nil
}
