// Package metrics holds the three process-wide counters sampled around
// every query: total Bloom probes, leaf-only Bloom probes, and SST scan
// invocations. Counters are shared across every worker task that touches
// a hierarchy or the store adapter during a query and so must be atomic;
// they need no ordering guarantee beyond visibility to the caller that
// samples a delta after a join completes.
package metrics

import "go.uber.org/atomic"

// Counters is the single set of process-wide counters. The zero value is
// usable.
type Counters struct {
	bloomProbes     atomic.Uint64
	leafBloomProbes atomic.Uint64
	sstScans        atomic.Uint64
}

// Global is the process-wide instance queries report against by default.
var Global = &Counters{}

// IncBloomProbe records one Bloom::contains call against any node.
func (c *Counters) IncBloomProbe() {
	c.bloomProbes.Inc()
}

// IncLeafBloomProbe records one Bloom::contains call against a leaf node,
// in addition to the total counted by IncBloomProbe.
func (c *Counters) IncLeafBloomProbe() {
	c.leafBloomProbes.Inc()
}

// IncSSTScan records one scan_sst_for_value invocation.
func (c *Counters) IncSSTScan() {
	c.sstScans.Inc()
}

// Snapshot is a point-in-time read of all three counters.
type Snapshot struct {
	BloomProbes     uint64
	LeafBloomProbes uint64
	SSTScans        uint64
}

// Sample returns the current counter values.
func (c *Counters) Sample() Snapshot {
	return Snapshot{
		BloomProbes:     c.bloomProbes.Load(),
		LeafBloomProbes: c.leafBloomProbes.Load(),
		SSTScans:        c.sstScans.Load(),
	}
}

// Delta returns b minus a, field-wise. Intended usage: before := c.Sample();
// run query; after := c.Sample(); delta := after.Delta(before).
func (b Snapshot) Delta(a Snapshot) Snapshot {
	return Snapshot{
		BloomProbes:     b.BloomProbes - a.BloomProbes,
		LeafBloomProbes: b.LeafBloomProbes - a.LeafBloomProbes,
		SSTScans:        b.SSTScans - a.SSTScans,
	}
}
