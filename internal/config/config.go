// Package config loads and normalizes the experiment configuration: the
// column layout, Bloom hierarchy parameters and store tuning knobs shared
// by the harness and the CLI entrypoint.
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config is the experiment-wide configuration. A field absent from the
// JSON document on disk keeps its Default() value rather than erroring —
// Normalize fills in anything left at an invalid value.
type Config struct {
	DataDir string   `json:"data_dir"`
	Columns []string `json:"columns"`

	// Bloom hierarchy parameters (spec §3/§4.C/§4.D).
	PartitionSize   int    `json:"partition_size"`   // N, entries per leaf
	BranchingFactor int    `json:"branching_factor"` // r
	BloomBits       uint64 `json:"bloom_bits"`       // m
	BloomHashes     uint   `json:"bloom_hashes"`     // k
	BloomSeed       uint32 `json:"bloom_seed"`

	// Store tuning (§6 store adapter backing implementation).
	BlockSize            int    `json:"block_size"`
	CacheSize            int    `json:"cache_size"`
	MemtableMaxEntries   int    `json:"memtable_max_entries"`
	MemtableMaxBytes     int64  `json:"memtable_max_bytes"`
	MemtableType         string `json:"memtable_type"`
	BTreeDegree          int    `json:"btree_degree"`
	MemtableInstances    int    `json:"memtable_instances"` // 1 RW + (N-1) RO before flush is forced
	SummaryStride        int    `json:"summary_stride"`     // every Nth index entry gets a summary entry
	WALSegmentMaxRecords int    `json:"wal_segment_max_records"`

	// Harness defaults (§6 CLI surface / §2.I instrumentation harness).
	DefaultNumRecords int    `json:"default_num_records"`
	TargetEveryKth    int    `json:"target_every_kth"`
	TargetPattern     string `json:"target_pattern"`
	ResultsDir        string `json:"results_dir"`

	// WorkerPoolSize bounds the process-wide worker pool (§5); 0 means
	// runtime.NumCPU().
	WorkerPoolSize int `json:"worker_pool_size"`
}

func Default() Config {
	return Config{
		DataDir:              "data",
		Columns:              []string{"phone", "mail", "address", "name", "surname"},
		PartitionSize:        64,
		BranchingFactor:      8,
		BloomBits:            1 << 16,
		BloomHashes:          4,
		BloomSeed:            0x9e3779b9,
		BlockSize:            4096,
		CacheSize:            8 << 20,
		MemtableMaxEntries:   1000,
		MemtableMaxBytes:     1 << 20,
		MemtableType:         "hashmap",
		BTreeDegree:          16,
		MemtableInstances:    2,
		SummaryStride:        8,
		WALSegmentMaxRecords: 1000,
		DefaultNumRecords:    100000,
		TargetEveryKth:       1000,
		TargetPattern:        "target",
		ResultsDir:           "csv",
		WorkerPoolSize:       0,
	}
}

// Normalize clamps every field left at an invalid/zero value back to its
// default, the way the teacher's Normalize clamps BlockSize/MemtableType.
func (c *Config) Normalize() {
	d := Default()

	if c.DataDir == "" {
		c.DataDir = d.DataDir
	}
	if len(c.Columns) == 0 {
		c.Columns = d.Columns
	}
	if c.PartitionSize <= 0 {
		c.PartitionSize = d.PartitionSize
	}
	if c.BranchingFactor <= 1 {
		c.BranchingFactor = d.BranchingFactor
	}
	if c.BloomBits == 0 {
		c.BloomBits = d.BloomBits
	}
	if c.BloomHashes == 0 {
		c.BloomHashes = d.BloomHashes
	}

	switch c.BlockSize {
	case 4096, 8192, 16384:
		// ok
	default:
		c.BlockSize = d.BlockSize
	}

	if c.CacheSize <= 0 {
		c.CacheSize = d.CacheSize
	}
	if c.MemtableMaxEntries <= 0 {
		c.MemtableMaxEntries = d.MemtableMaxEntries
	}
	if c.MemtableMaxBytes <= 0 {
		c.MemtableMaxBytes = d.MemtableMaxBytes
	}

	switch c.MemtableType {
	case "", "hashmap", "skiplist", "btree":
		if c.MemtableType == "" {
			c.MemtableType = d.MemtableType
		}
	default:
		c.MemtableType = d.MemtableType
	}

	if c.BTreeDegree < 2 {
		c.BTreeDegree = d.BTreeDegree
	}
	if c.MemtableInstances <= 0 {
		c.MemtableInstances = d.MemtableInstances
	}
	if c.SummaryStride <= 0 {
		c.SummaryStride = d.SummaryStride
	}
	if c.WALSegmentMaxRecords <= 0 {
		c.WALSegmentMaxRecords = d.WALSegmentMaxRecords
	}
	if c.DefaultNumRecords <= 0 {
		c.DefaultNumRecords = d.DefaultNumRecords
	}
	if c.TargetEveryKth <= 0 {
		c.TargetEveryKth = d.TargetEveryKth
	}
	if c.TargetPattern == "" {
		c.TargetPattern = d.TargetPattern
	}
	if c.ResultsDir == "" {
		c.ResultsDir = d.ResultsDir
	}
	if c.WorkerPoolSize < 0 {
		c.WorkerPoolSize = d.WorkerPoolSize
	}
}

// Load reads path as JSON, falling back to Default() (never fatal) when
// the file is missing (silently) or malformed (noted on stderr).
func Load(path string) (Config, error) {
	cfg := Default()

	b, err := os.ReadFile(path)
	if err != nil {
		cfg.Normalize()
		return cfg, nil
	}

	// Unmarshal over the default: whatever is missing from the JSON stays default.
	if err := json.Unmarshal(b, &cfg); err != nil {
		fmt.Fprintln(os.Stderr, "config: malformed config file, using defaults:", err)
		cfg = Default()
		cfg.Normalize()
		return cfg, nil
	}

	cfg.Normalize()
	return cfg, nil
}
