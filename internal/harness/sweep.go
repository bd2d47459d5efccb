package harness

import (
	"context"
	"fmt"

	"bloomjoin/internal/config"
	"bloomjoin/internal/hierarchy"
	"bloomjoin/internal/logging"
	"bloomjoin/internal/metrics"
	"bloomjoin/internal/planner"
	"bloomjoin/internal/store"
	"bloomjoin/internal/timing"
)

// SweepPoint is one point of the parameter matrix: the hierarchy
// parameters a run builds with, plus how many repeated queries to time
// and average at that point.
type SweepPoint struct {
	NumColumns    int
	PartitionSize int
	Branching     int
	NumRuns       int
}

// SweepResult bundles one point's parameters with its aggregated timing
// and counter statistics, ready to be written as one CSV row.
type SweepResult struct {
	Point   SweepPoint
	Timings AggregatedQueryTimings
}

// RunSweep builds one hierarchy per queried column from st's current
// contents, then repeats the three-way query (naive global scan,
// multi-column join, single-hierarchy fallback) point.NumRuns times,
// recording elapsed time and metrics counter deltas for each path.
// targetIndices is only checked for non-emptiness: it is the caller's
// proof (from InsertWithTargets) that at least one record actually
// matches the query values queried, so a sweep point is never silently
// timing a guaranteed-empty query. Grounded on main.cpp's sweep loop,
// which rebuilds hierarchies per parameter combination and times the
// same three code paths back to back.
func RunSweep(ctx context.Context, cfg config.Config, st store.Store, columns []string, targetIndices []int, point SweepPoint, workerLimit int) (SweepResult, error) {
	if len(targetIndices) == 0 {
		return SweepResult{}, fmt.Errorf("harness: sweep needs at least one known target record")
	}
	cols := columns
	if point.NumColumns > 0 && point.NumColumns < len(cols) {
		cols = cols[:point.NumColumns]
	}

	params := hierarchy.Params{
		M:               cfg.BloomBits,
		K:               cfg.BloomHashes,
		Seed:            cfg.BloomSeed,
		BranchingFactor: point.Branching,
		PartitionSize:   point.PartitionSize,
	}

	trees := make([]*hierarchy.Hierarchy, len(cols))
	for i, col := range cols {
		h, err := hierarchy.BuildColumn(ctx, st, col, params, point.PartitionSize)
		if err != nil {
			return SweepResult{}, fmt.Errorf("harness: building hierarchy for %q: %w", col, err)
		}
		trees[i] = h
	}

	jp := planner.NewJoinPlanner(st, workerLimit)
	fallback := planner.NewFallbackPlanner(st, workerLimit)

	var (
		globalScan, multiTime, singleTime  []int64
		multiBloom, multiLeaf, multiSST    []uint64
		singleBloom, singleLeaf, singleSST []uint64
	)

	numRuns := point.NumRuns
	if numRuns <= 0 {
		numRuns = 1
	}

	values := make([][]byte, len(cols))
	for i, col := range cols {
		values[i] = TargetValue(col, cfg.TargetPattern)
	}

	for run := 0; run < numRuns; run++ {
		var naiveKeys []string
		elapsed := timing.Time(func() {
			naiveKeys, _ = naiveWholeDBScan(st, cols, values)
		})
		globalScan = append(globalScan, elapsed)
		_ = naiveKeys

		before := metrics.Global.Sample()
		elapsed = timing.Time(func() {
			_, _ = jp.Join(ctx, cols, trees, values, "", "")
		})
		multiTime = append(multiTime, elapsed)
		d := metrics.Global.Sample().Delta(before)
		multiBloom = append(multiBloom, d.BloomProbes)
		multiLeaf = append(multiLeaf, d.LeafBloomProbes)
		multiSST = append(multiSST, d.SSTScans)

		before = metrics.Global.Sample()
		elapsed = timing.Time(func() {
			_, _ = fallback.Scan(ctx, cols, trees[0], values)
		})
		singleTime = append(singleTime, elapsed)
		d = metrics.Global.Sample().Delta(before)
		singleBloom = append(singleBloom, d.BloomProbes)
		singleLeaf = append(singleLeaf, d.LeafBloomProbes)
		singleSST = append(singleSST, d.SSTScans)
	}

	result := SweepResult{
		Point: point,
		Timings: AggregatedQueryTimings{
			GlobalScanTime:           TimingStats(globalScan),
			HierarchicalMultiTime:    TimingStats(multiTime),
			HierarchicalSingleTime:   TimingStats(singleTime),
			MultiColBloomChecks:      CountStats(multiBloom),
			MultiColLeafBloomChecks:  CountStats(multiLeaf),
			MultiColSSTChecks:        CountStats(multiSST),
			SingleColBloomChecks:     CountStats(singleBloom),
			SingleColLeafBloomChecks: CountStats(singleLeaf),
			SingleColSSTChecks:       CountStats(singleSST),
		},
	}

	for i, col := range cols {
		fp := MeasureFootprint(trees[i])
		logging.L().Info("harness: hierarchy footprint",
			"column", col, "nodes", fp.NodeCount,
			"uncompressed_bytes", fp.UncompressedLen, "compressed_bytes", fp.CompressedLen,
		)
	}

	return result, nil
}

// SweepRowHeader is the CSV header RunSweep's rows are written under.
var SweepRowHeader = []string{
	"num_columns", "partition_size", "branching_factor", "num_runs",
	"global_scan_min_us", "global_scan_avg_us",
	"multi_join_min_us", "multi_join_avg_us",
	"single_fallback_min_us", "single_fallback_avg_us",
	"multi_bloom_probes_avg", "multi_sst_scans_avg",
	"single_bloom_probes_avg", "single_sst_scans_avg",
}

// SweepRow flattens a SweepResult into one CSV row matching SweepRowHeader.
func SweepRow(r SweepResult) []string {
	return []string{
		fmt.Sprint(r.Point.NumColumns),
		fmt.Sprint(r.Point.PartitionSize),
		fmt.Sprint(r.Point.Branching),
		fmt.Sprint(r.Point.NumRuns),
		fmt.Sprint(r.Timings.GlobalScanTime.Min),
		fmt.Sprintf("%.2f", r.Timings.GlobalScanTime.Average),
		fmt.Sprint(r.Timings.HierarchicalMultiTime.Min),
		fmt.Sprintf("%.2f", r.Timings.HierarchicalMultiTime.Average),
		fmt.Sprint(r.Timings.HierarchicalSingleTime.Min),
		fmt.Sprintf("%.2f", r.Timings.HierarchicalSingleTime.Average),
		fmt.Sprintf("%.2f", r.Timings.MultiColBloomChecks.Average),
		fmt.Sprintf("%.2f", r.Timings.MultiColSSTChecks.Average),
		fmt.Sprintf("%.2f", r.Timings.SingleColBloomChecks.Average),
		fmt.Sprintf("%.2f", r.Timings.SingleColSSTChecks.Average),
	}
}
