package planner

import (
	"context"
	"runtime"

	"bloomjoin/internal/hierarchy"
	"bloomjoin/internal/metrics"
	"bloomjoin/internal/store"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// ErrArityMismatch is returned when columns, trees and values at a join
// entry point do not all have the same length — a config error per the
// error handling design, not something a caller should retry against.
var ErrArityMismatch = errors.New("planner: columns/trees/values arity mismatch")

// JoinPlanner drives the multi-column DFS join (component E): Cartesian
// descent of n hierarchies in lock-step with Bloom and range pruning,
// followed by parallel final SST scans and an n-way key-set intersection.
type JoinPlanner struct {
	store    store.Store
	counters *metrics.Counters
	limit    int
}

// NewJoinPlanner builds a join planner over st. workerLimit bounds the
// concurrency of the final-scan fan-out; 0 defaults to runtime.NumCPU(),
// mirroring the single process-wide pool the concurrency model describes.
func NewJoinPlanner(st store.Store, workerLimit int) *JoinPlanner {
	if workerLimit <= 0 {
		workerLimit = runtime.NumCPU()
	}
	return &JoinPlanner{store: st, counters: metrics.Global, limit: workerLimit}
}

// WithCounters overrides the counters instance used for this planner,
// for tests that want an isolated Counters rather than the global one.
func (p *JoinPlanner) WithCounters(c *metrics.Counters) *JoinPlanner {
	p.counters = c
	return p
}

// Join runs the multi-column join over one hierarchy per column, returning
// every matching key. Per §5's resolved Open Question, the result is a
// per-invocation buffer assembled by the calling goroutine after the
// final-scan fan-out completes, never a shared global slice.
func (p *JoinPlanner) Join(ctx context.Context, cols []string, trees []*hierarchy.Hierarchy, values [][]byte, globalStart, globalEnd string) ([]string, error) {
	if len(cols) != len(trees) || len(cols) != len(values) {
		return nil, errors.Wrapf(ErrArityMismatch, "columns=%d trees=%d values=%d", len(cols), len(trees), len(values))
	}
	n := len(cols)
	if n == 0 {
		return nil, nil
	}

	nodes := make([]*hierarchy.Node, n)
	rangeStart, rangeEnd := globalStart, globalEnd
	for i, h := range trees {
		if h == nil || h.Root == nil {
			return nil, nil
		}
		nodes[i] = h.Root
		rangeStart = maxKey(rangeStart, h.Root.StartKey)
		rangeEnd = minKey(rangeEnd, h.Root.EndKey)
	}
	if !rangeValid(rangeStart, rangeEnd) {
		return nil, nil
	}

	var out []string
	err := p.descend(ctx, Combo{Nodes: nodes, RangeStart: rangeStart, RangeEnd: rangeEnd}, cols, values, &out)
	return out, err
}

func (p *JoinPlanner) descend(ctx context.Context, combo Combo, cols []string, values [][]byte, out *[]string) error {
	for i, node := range combo.Nodes {
		p.probe(node)
		if !node.Bloom.Contains(values[i]) {
			return nil
		}
	}

	if !rangeValid(combo.RangeStart, combo.RangeEnd) {
		return nil
	}

	if combo.allLeaves() {
		keys, err := p.finalScan(ctx, combo, cols, values)
		if err != nil {
			return err
		}
		*out = append(*out, keys...)
		return nil
	}

	candidateOptions := make([][]*hierarchy.Node, len(combo.Nodes))
	for i, node := range combo.Nodes {
		if node.IsLeaf() {
			candidateOptions[i] = []*hierarchy.Node{node}
			continue
		}
		var opts []*hierarchy.Node
		for c := range node.Children {
			child := &node.Children[c]
			p.probe(child)
			if child.Bloom.Contains(values[i]) {
				opts = append(opts, child)
			}
		}
		if len(opts) == 0 {
			return nil
		}
		candidateOptions[i] = opts
	}

	return cartesian(candidateOptions, func(chosen []*hierarchy.Node, rangeStart, rangeEnd string) error {
		return p.descend(ctx, Combo{Nodes: chosen, RangeStart: rangeStart, RangeEnd: rangeEnd}, cols, values, out)
	})
}

func (p *JoinPlanner) probe(n *hierarchy.Node) {
	p.counters.IncBloomProbe()
	if n.IsLeaf() {
		p.counters.IncLeafBloomProbe()
	}
}

// finalScan runs one SST scan per joined column in parallel and intersects
// the resulting key sets, per §4.E's final-scan routine.
func (p *JoinPlanner) finalScan(ctx context.Context, combo Combo, cols []string, values [][]byte) ([]string, error) {
	n := len(combo.Nodes)
	results := make([][]string, n)

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			node := combo.Nodes[i]
			start := maxKey(combo.RangeStart, node.StartKey)
			end := minKey(combo.RangeEnd, node.EndKey)

			p.counters.IncSSTScan()
			keys, err := p.store.ScanSSTForValue(cols[i], node.Leaf.SSTFileID, values[i], start, end)
			if err != nil {
				return errors.Wrapf(err, "planner: final scan cf %q sst %q", cols[i], node.Leaf.SSTFileID)
			}
			results[i] = keys
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return intersectKeySets(results), nil
}
