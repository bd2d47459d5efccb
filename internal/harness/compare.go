package harness

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"bloomjoin/internal/hierarchy"
	"bloomjoin/internal/logging"
	"bloomjoin/internal/planner"
	"bloomjoin/internal/store"
)

// CompareResult holds the three answer sets Compare produced plus whether
// they agreed, the harness-side expression of §8 testable property 7.
type CompareResult struct {
	JoinKeys     []string
	FallbackKeys []string
	NaiveKeys    []string
	Agree        bool
}

// Compare runs the multi-column join (E), the single-hierarchy planner
// (F), and a naive whole-DB scan over the same (columns, values) query,
// and checks all three return the same set of keys. Grounded on
// main.cpp's runSingleTest, which runs the hierarchy-with-concurrency,
// hierarchy-without-concurrency and plain-DB-scan checks back to back for
// one value. A mismatch is logged at Error with the offending key diff
// rather than returned as an error, mirroring the source's behavior of
// reporting and continuing rather than aborting the sweep.
func Compare(ctx context.Context, st store.Store, cols []string, trees []*hierarchy.Hierarchy, values [][]byte, workerLimit int) (CompareResult, error) {
	jp := planner.NewJoinPlanner(st, workerLimit)
	joinKeys, err := jp.Join(ctx, cols, trees, values, "", "")
	if err != nil {
		return CompareResult{}, fmt.Errorf("harness: join: %w", err)
	}

	fp := planner.NewFallbackPlanner(st, workerLimit)
	fallbackKeys, err := fp.Scan(ctx, cols, trees[0], values)
	if err != nil {
		return CompareResult{}, fmt.Errorf("harness: fallback scan: %w", err)
	}

	naiveKeys, err := naiveWholeDBScan(st, cols, values)
	if err != nil {
		return CompareResult{}, fmt.Errorf("harness: naive scan: %w", err)
	}

	joinSet := uniqueSet(joinKeys)
	fallbackSet := uniqueSet(fallbackKeys)
	naiveSet := uniqueSet(naiveKeys)

	agree := setsEqual(joinSet, naiveSet) && setsEqual(fallbackSet, naiveSet)
	if !agree {
		logging.L().Error("harness: compare mode found a mismatch",
			"join_only", setDiff(joinSet, naiveSet),
			"naive_only", setDiff(naiveSet, joinSet),
			"fallback_only", setDiff(fallbackSet, naiveSet),
		)
	}

	return CompareResult{
		JoinKeys:     joinKeys,
		FallbackKeys: fallbackKeys,
		NaiveKeys:    naiveKeys,
		Agree:        agree,
	}, nil
}

// naiveWholeDBScan scans cols[0] in full for values[0], then verifies
// each candidate against every other column by point lookup — the
// baseline "global scan" §4.G describes.
func naiveWholeDBScan(st store.Store, cols []string, values [][]byte) ([]string, error) {
	candidates, err := st.FullScanCF(cols[0], func(_ string, v []byte) bool {
		return bytes.Equal(v, values[0])
	})
	if err != nil {
		return nil, err
	}

	var out []string
	for _, key := range candidates {
		match := true
		for i := 1; i < len(cols); i++ {
			val, found, err := st.PointGet(cols[i], key)
			if err != nil {
				return nil, err
			}
			if !found || !bytes.Equal(val, values[i]) {
				match = false
				break
			}
		}
		if match {
			out = append(out, key)
		}
	}
	return out, nil
}

func uniqueSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func setDiff(a, b map[string]struct{}) []string {
	var out []string
	for k := range a {
		if _, ok := b[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
