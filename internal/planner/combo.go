// Package planner implements the two query planners the store adapter and
// the Bloom hierarchies are built for: JoinPlanner, the multi-column DFS
// join (component E), and FallbackPlanner, the single-hierarchy descend-
// then-verify planner (component F).
package planner

import "bloomjoin/internal/hierarchy"

// Combo is one frontier of the Cartesian descent: one node per joined
// column, plus the running intersection of every node's key range.
// rangeStart/rangeEnd use the same empty-string-means-unbounded
// convention as hierarchy.Node.
type Combo struct {
	Nodes      []*hierarchy.Node
	RangeStart string
	RangeEnd   string
}

func (c Combo) allLeaves() bool {
	for _, n := range c.Nodes {
		if !n.IsLeaf() {
			return false
		}
	}
	return true
}

// maxKey returns the later of a, b, treating "" as -infinity.
func maxKey(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a > b {
		return a
	}
	return b
}

// minKey returns the earlier of a, b, treating "" as +infinity.
func minKey(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	if a < b {
		return a
	}
	return b
}

// rangeValid reports whether start <= end, where either side being ""
// (unbounded) always keeps the range valid.
func rangeValid(start, end string) bool {
	if start == "" || end == "" {
		return true
	}
	return start <= end
}

// cartesian enumerates every tuple in the Cartesian product of options
// (one []*hierarchy.Node per column), computing each tuple's pairwise
// range intersection and invoking next on every tuple whose range stays
// valid. Uses an explicit index vector rather than building the full
// product up front, so a branch with one empty candidate column never
// materializes any tuples at all.
func cartesian(options [][]*hierarchy.Node, next func(chosen []*hierarchy.Node, rangeStart, rangeEnd string) error) error {
	n := len(options)
	chosen := make([]*hierarchy.Node, n)

	var rec func(i int) error
	rec = func(i int) error {
		if i == n {
			rangeStart, rangeEnd := chosen[0].StartKey, chosen[0].EndKey
			for j := 1; j < n; j++ {
				rangeStart = maxKey(rangeStart, chosen[j].StartKey)
				rangeEnd = minKey(rangeEnd, chosen[j].EndKey)
			}
			if !rangeValid(rangeStart, rangeEnd) {
				return nil
			}
			return next(append([]*hierarchy.Node(nil), chosen...), rangeStart, rangeEnd)
		}
		for _, opt := range options[i] {
			chosen[i] = opt
			if err := rec(i + 1); err != nil {
				return err
			}
		}
		return nil
	}
	return rec(0)
}

// intersectKeySets computes the n-way intersection of sets, starting from
// the smallest (early-exiting if it is empty) the way the final-scan step
// of the multi-column join does.
func intersectKeySets(sets [][]string) []string {
	if len(sets) == 0 {
		return nil
	}

	smallest := 0
	for i := 1; i < len(sets); i++ {
		if len(sets[i]) < len(sets[smallest]) {
			smallest = i
		}
	}
	if len(sets[smallest]) == 0 {
		return nil
	}

	memberships := make([]map[string]struct{}, len(sets))
	for i, s := range sets {
		if i == smallest {
			continue
		}
		m := make(map[string]struct{}, len(s))
		for _, k := range s {
			m[k] = struct{}{}
		}
		memberships[i] = m
	}

	var out []string
	for _, k := range sets[smallest] {
		in := true
		for i := range sets {
			if i == smallest {
				continue
			}
			if _, ok := memberships[i][k]; !ok {
				in = false
				break
			}
		}
		if in {
			out = append(out, k)
		}
	}
	return out
}
