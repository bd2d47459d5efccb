package harness

import (
	"github.com/golang/snappy"

	"bloomjoin/internal/hierarchy"
)

// FilterFootprint is the serialized and snappy-compressed size of one
// hierarchy's Bloom filters, used only for the disk-footprint
// measurement SPEC_FULL.md's domain stack reserves snappy for — it plays
// no role in the build/query paths themselves.
type FilterFootprint struct {
	NodeCount       int
	UncompressedLen int64
	CompressedLen   int64
}

// MeasureFootprint walks every node of h (root down through every leaf)
// and sums the on-disk size of each node's serialized filter both
// before and after snappy compression, so a sweep can report the
// effective disk cost of carrying the hierarchy alongside the SSTs it
// summarizes.
func MeasureFootprint(h *hierarchy.Hierarchy) FilterFootprint {
	var fp FilterFootprint
	if h == nil || h.Root == nil {
		return fp
	}
	measureNode(h.Root, &fp)
	return fp
}

func measureNode(n *hierarchy.Node, fp *FilterFootprint) {
	if n == nil || n.Bloom == nil {
		return
	}
	raw := n.Bloom.Serialize()
	compressed := snappy.Encode(nil, raw)

	fp.NodeCount++
	fp.UncompressedLen += int64(len(raw))
	fp.CompressedLen += int64(len(compressed))

	for i := range n.Children {
		measureNode(&n.Children[i], fp)
	}
}
