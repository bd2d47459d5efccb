package memtable

import "bloomjoin/internal/model"

type MemtableManagerIface interface {
	Get(key string) model.GetResult
	Put(r model.Record) (flushNeeded bool, err error)
	Delete(r model.Record) (flushNeeded bool, err error)
	NextFlushBatch() ([]model.Record, bool)

	// DrainAll force-flushes every table (active and RO), regardless of
	// fullness, merging duplicate keys by keeping the highest Seq. Used
	// by the store adapter's harness-driven Flush, which must flush
	// whatever is resident, not just a table that filled up on its own.
	DrainAll() []model.Record
}
