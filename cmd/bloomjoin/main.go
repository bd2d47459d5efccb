// Command bloomjoin opens the shared experiment database described by
// config.json (columns, Bloom hierarchy parameters, store tuning), runs
// either first-time initialisation, an interactive query REPL, or the
// instrumentation sweep, and exits 0 on success, 1 on any unhandled error.
package main

import (
	"context"
	"fmt"
	"os"

	"bloomjoin/internal/cli"
	"bloomjoin/internal/config"
	"bloomjoin/internal/harness"
	"bloomjoin/internal/hierarchy"
	"bloomjoin/internal/logging"
	"bloomjoin/internal/planner"
	"bloomjoin/internal/store"

	urfavecli "github.com/urfave/cli/v2"
)

func main() {
	app := &urfavecli.App{
		Name:  "bloomjoin",
		Usage: "Bloom filter hierarchy join experiment database",
		Flags: []urfavecli.Flag{
			&urfavecli.StringFlag{
				Name:  "config",
				Value: "config.json",
				Usage: "path to the experiment config JSON file",
			},
			&urfavecli.BoolFlag{
				Name:  "db",
				Usage: "first-time initialise the shared experiment database (bulk-insert, flush, compact) before exiting",
			},
		},
		Action: runDefault,
		Commands: []*urfavecli.Command{
			{
				Name:   "repl",
				Usage:  "open an interactive JOIN/SCAN/COMPARE session against the existing database",
				Action: runREPL,
			},
			{
				Name:   "sweep",
				Usage:  "run the (numColumns, partitionSize, branchingFactor) sweep against the existing database and append CSV rows under the config's results_dir",
				Action: runSweep,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logging.L().Error("bloomjoin: unhandled error", "err", err)
		os.Exit(1)
	}
}

func loadConfig(c *urfavecli.Context) (config.Config, error) {
	return config.Load(c.String("config"))
}

// runDefault implements the CLI surface §6 fixes: with --db, initialise
// the database (create every configured column family, bulk-insert
// DefaultNumRecords records with a target pattern seeded every
// TargetEveryKth record, flush and fully compact each CF) and exit;
// without it, assume the database already exists and do nothing further.
func runDefault(c *urfavecli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("bloomjoin: loading config: %w", err)
	}

	if !c.Bool("db") {
		logging.L().Info("bloomjoin: --db not set, assuming database already exists")
		return nil
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("bloomjoin: opening store: %w", err)
	}
	defer st.Close()

	logging.L().Info("bloomjoin: initialising database",
		"records", cfg.DefaultNumRecords, "columns", cfg.Columns, "target_every_kth", cfg.TargetEveryKth)

	targets, err := harness.InsertWithTargets(st, cfg.Columns, cfg.DefaultNumRecords, cfg.TargetEveryKth, cfg.TargetPattern)
	if err != nil {
		return fmt.Errorf("bloomjoin: bulk insert: %w", err)
	}
	logging.L().Info("bloomjoin: bulk insert complete", "target_records", len(targets))

	for _, col := range cfg.Columns {
		if err := st.Flush(col); err != nil {
			return fmt.Errorf("bloomjoin: flushing %q: %w", col, err)
		}
		if err := st.Compact(col); err != nil {
			return fmt.Errorf("bloomjoin: compacting %q: %w", col, err)
		}
	}

	logging.L().Info("bloomjoin: database initialised")
	return nil
}

// runREPL opens the existing database, builds one hierarchy per
// configured column, and hands control to the interactive REPL.
func runREPL(c *urfavecli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("bloomjoin: loading config: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("bloomjoin: opening store: %w", err)
	}
	defer st.Close()

	params := hierarchy.Params{
		M:               cfg.BloomBits,
		K:               cfg.BloomHashes,
		Seed:            cfg.BloomSeed,
		BranchingFactor: cfg.BranchingFactor,
		PartitionSize:   cfg.PartitionSize,
	}

	ctx := context.Background()
	trees := make(map[string]*hierarchy.Hierarchy, len(cfg.Columns))
	for _, col := range cfg.Columns {
		h, err := hierarchy.BuildColumn(ctx, st, col, params, cfg.PartitionSize)
		if err != nil {
			return fmt.Errorf("bloomjoin: building hierarchy for %q: %w", col, err)
		}
		trees[col] = h
	}

	repl := &cli.REPL{
		Store:    st,
		Trees:    trees,
		Join:     planner.NewJoinPlanner(st, cfg.WorkerPoolSize),
		Fallback: planner.NewFallbackPlanner(st, cfg.WorkerPoolSize),
		Limit:    cfg.WorkerPoolSize,
		In:       os.Stdin,
		Out:      os.Stdout,
	}
	return repl.Run()
}

// runSweep drives harness.RunSweep across a small (numColumns,
// partitionSize, branchingFactor) matrix built from the config's own
// values and their doubles, appending one CSV row per point under
// cfg.ResultsDir and logging the theoretical false-positive baseline
// alongside each point's observed counters.
func runSweep(c *urfavecli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("bloomjoin: loading config: %w", err)
	}

	st, err := store.Open(cfg)
	if err != nil {
		return fmt.Errorf("bloomjoin: opening store: %w", err)
	}
	defer st.Close()

	csvw, err := harness.NewCSVWriter(cfg.ResultsDir, "sweep.csv", harness.SweepRowHeader)
	if err != nil {
		return fmt.Errorf("bloomjoin: opening sweep results csv: %w", err)
	}
	defer csvw.Close()

	// targetIndices is only checked for non-emptiness by RunSweep; its
	// contents are never read. --db seeds the target pattern in every
	// column at each TargetEveryKth-th record (1-indexed), so the slice here
	// is a non-empty placeholder rather than a real target index.
	targetIndices := []int{0}

	partitionSizes := []int{cfg.PartitionSize, cfg.PartitionSize * 2}
	branchingFactors := []int{cfg.BranchingFactor, cfg.BranchingFactor * 2}

	ctx := context.Background()
	for numCols := 1; numCols <= len(cfg.Columns); numCols++ {
		for _, partSize := range partitionSizes {
			for _, branch := range branchingFactors {
				point := harness.SweepPoint{
					NumColumns:    numCols,
					PartitionSize: partSize,
					Branching:     branch,
					NumRuns:       3,
				}

				result, err := harness.RunSweep(ctx, cfg, st, cfg.Columns, targetIndices, point, cfg.WorkerPoolSize)
				if err != nil {
					return fmt.Errorf("bloomjoin: sweep point %+v: %w", point, err)
				}

				fpp := harness.ExpectedFalsePositiveRate(cfg.BloomBits, cfg.BloomHashes, partSize)
				logging.L().Info("bloomjoin: sweep point complete",
					"num_columns", numCols, "partition_size", partSize, "branching_factor", branch,
					"expected_fpp", fpp)

				if err := csvw.WriteRow(harness.SweepRow(result)); err != nil {
					return fmt.Errorf("bloomjoin: writing sweep row: %w", err)
				}
			}
		}
	}

	logging.L().Info("bloomjoin: sweep complete", "results_file", cfg.ResultsDir+"/sweep.csv")
	return nil
}
