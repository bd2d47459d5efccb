package hierarchy

import (
	"sort"

	"bloomjoin/internal/bloomfilter"
	"bloomjoin/internal/metrics"
)

// Params are the parameters a hierarchy was built with: m/k/seed for
// every node's Bloom filter, the branching factor r and the partition
// size N used to cut SST runs into leaves.
type Params struct {
	M               uint64
	K               uint
	Seed            uint32
	BranchingFactor int
	PartitionSize   int
}

// Hierarchy is one column's Bloom filter tree: a root plus the ordered
// leaf list it was built from. Built once, read-only thereafter; its
// lifetime spans a query batch and it is released by the caller dropping
// the reference.
type Hierarchy struct {
	Root   *Node
	Leaves []Node
	Params Params
}

// Leaf is the input to BuildTree: one run's Bloom filter plus the SST
// file id and key range it summarizes.
type Leaf struct {
	Bloom     *bloomfilter.Filter
	SSTFileID string
	StartKey  string
	EndKey    string
}

// BuildTree sorts leaves by StartKey once and repeatedly groups the
// current level into chunks of branchingFactor, merging each chunk's
// Bloom filters into a fresh parent filter of the same (m,k,seed), until
// one node remains. An empty leaf list yields a Hierarchy with a nil
// Root; every query against it returns the empty set.
func BuildTree(leaves []Leaf, params Params) (*Hierarchy, error) {
	if len(leaves) == 0 {
		return &Hierarchy{Params: params}, nil
	}

	sorted := make([]Leaf, len(leaves))
	copy(sorted, leaves)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].StartKey < sorted[j].StartKey })

	level := make([]Node, len(sorted))
	for i, l := range sorted {
		level[i] = Node{
			Bloom:    l.Bloom,
			StartKey: l.StartKey,
			EndKey:   l.EndKey,
			Leaf:     &LeafTag{SSTFileID: l.SSTFileID},
		}
	}
	leafLevel := append([]Node(nil), level...)

	r := params.BranchingFactor
	if r < 2 {
		r = 2
	}

	for len(level) > 1 {
		next := make([]Node, 0, (len(level)+r-1)/r)
		for start := 0; start < len(level); start += r {
			end := start + r
			if end > len(level) {
				end = len(level)
			}
			chunk := level[start:end]

			parent := Node{
				Bloom:    bloomfilter.New(params.M, params.K, params.Seed),
				StartKey: chunk[0].StartKey,
				EndKey:   chunk[0].EndKey,
				Children: append([]Node(nil), chunk...),
			}
			for _, c := range chunk {
				if c.StartKey < parent.StartKey {
					parent.StartKey = c.StartKey
				}
				if c.EndKey > parent.EndKey {
					parent.EndKey = c.EndKey
				}
				if err := parent.Bloom.Merge(c.Bloom); err != nil {
					return nil, err
				}
			}
			next = append(next, parent)
		}
		level = next
	}

	root := level[0]
	return &Hierarchy{Root: &root, Leaves: leafLevel, Params: params}, nil
}

// Query descends the hierarchy from the root, returning the SST file ids
// of every leaf whose key range overlaps [qStart, qEnd] and whose Bloom
// filter admits value. There is no early stop: the whole surviving
// frontier is returned.
func (h *Hierarchy) Query(value []byte, qStart, qEnd string, counters *metrics.Counters) []string {
	nodes := h.QueryNodes(value, qStart, qEnd, counters)
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.Leaf.SSTFileID
	}
	return ids
}

// QueryNodes is Query but returns the leaf Node references themselves,
// needed by callers (the single-hierarchy planner) that also want each
// leaf's key range.
func (h *Hierarchy) QueryNodes(value []byte, qStart, qEnd string, counters *metrics.Counters) []*Node {
	if h.Root == nil {
		return nil
	}
	if counters == nil {
		counters = metrics.Global
	}
	var out []*Node
	descend(h.Root, value, qStart, qEnd, counters, &out)
	return out
}

func descend(n *Node, value []byte, qStart, qEnd string, counters *metrics.Counters, out *[]*Node) {
	if !overlaps(n, qStart, qEnd) {
		return
	}

	counters.IncBloomProbe()
	if n.IsLeaf() {
		counters.IncLeafBloomProbe()
	}
	if !n.Bloom.Contains(value) {
		return
	}

	if n.IsLeaf() {
		*out = append(*out, n)
		return
	}
	for i := range n.Children {
		descend(&n.Children[i], value, qStart, qEnd, counters, out)
	}
}
