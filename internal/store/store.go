// Package store is the external contract component E/F are written
// against: open a DB over a set of column families, enumerate and scan
// SSTs, point-lookup, full-CF scan, flush and compact. fsstore.go backs
// the interface with a concrete implementation adapted from the
// teacher's sstable/block/memtable/wal packages, generalized from one
// keyspace to N independent column families.
package store

import "bloomjoin/internal/model"

// KV is one decoded (key, value) pair, as returned by a full scan or an
// SST iteration.
type KV struct {
	Key   string
	Value []byte
}

// Store is the adapter contract component G specifies.
type Store interface {
	// EnumerateSSTs lists the SST file ids of one column family,
	// newest-first.
	EnumerateSSTs(cf string) ([]string, error)

	// ScanSSTForValue returns every key in sstFileID whose value equals
	// target, clipped to [start, end] (empty string means unbounded on
	// that side).
	ScanSSTForValue(cf, sstFileID string, target []byte, start, end string) ([]string, error)

	// IterateSST returns every (key, value) pair of one SST file in key
	// order; used by the hierarchy builder, not by query paths.
	IterateSST(cf, sstFileID string) ([]KV, error)

	// PointGet looks up one key directly in a column family across its
	// memtable and SSTs, newest data first.
	PointGet(cf, key string) ([]byte, bool, error)

	// FullScanCF returns every key in cf for which pred holds, used by
	// the naive whole-DB scan baseline. The single-hierarchy fallback
	// verifies candidates with PointGet instead.
	FullScanCF(cf string, pred func(key string, value []byte) bool) ([]string, error)

	// Put writes one record into cf (WAL then memtable), generalizing
	// the teacher's single-keyspace Engine.Put/Delete across CFs.
	Put(cf, key string, value []byte) error
	Delete(cf, key string) error

	// Flush and Compact are driven only by the harness, never by E/F.
	Flush(cf string) error
	Compact(cf string) error

	// Close releases every open file handle and the manifest.
	Close() error
}

func recordToKV(r model.Record) KV {
	return KV{Key: r.Key, Value: r.Value}
}
