package planner

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"testing"

	"bloomjoin/internal/hierarchy"
	"bloomjoin/internal/metrics"
	"bloomjoin/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is a minimal in-memory store.Store: one synthetic SST ("sst_main")
// per column family backed by a plain map, enough to exercise the planners
// without the filesystem-backed implementation.
type fakeStore struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]map[string][]byte)}
}

func (f *fakeStore) Put(cf, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[cf] == nil {
		f.data[cf] = make(map[string][]byte)
	}
	f.data[cf][key] = value
	return nil
}

func (f *fakeStore) Delete(cf, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data[cf], key)
	return nil
}

func (f *fakeStore) EnumerateSSTs(cf string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.data[cf]) == 0 {
		return nil, nil
	}
	return []string{"sst_main"}, nil
}

func (f *fakeStore) IterateSST(cf, _ string) ([]store.KV, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.data[cf]))
	for k := range f.data[cf] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]store.KV, 0, len(keys))
	for _, k := range keys {
		out = append(out, store.KV{Key: k, Value: f.data[cf][k]})
	}
	return out, nil
}

func (f *fakeStore) ScanSSTForValue(cf, sstFileID string, target []byte, start, end string) ([]string, error) {
	kvs, err := f.IterateSST(cf, sstFileID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, kv := range kvs {
		if start != "" && kv.Key < start {
			continue
		}
		if end != "" && kv.Key > end {
			continue
		}
		if bytes.Equal(kv.Value, target) {
			out = append(out, kv.Key)
		}
	}
	return out, nil
}

func (f *fakeStore) PointGet(cf, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[cf][key]
	return v, ok, nil
}

func (f *fakeStore) FullScanCF(cf string, pred func(key string, value []byte) bool) ([]string, error) {
	kvs, err := f.IterateSST(cf, "")
	if err != nil {
		return nil, err
	}
	var out []string
	for _, kv := range kvs {
		if pred(kv.Key, kv.Value) {
			out = append(out, kv.Key)
		}
	}
	return out, nil
}

func (f *fakeStore) Flush(string) error   { return nil }
func (f *fakeStore) Compact(string) error { return nil }
func (f *fakeStore) Close() error         { return nil }

var _ store.Store = (*fakeStore)(nil)

func naiveWholeDBScan(fs *fakeStore, cols []string, values [][]byte) []string {
	ids, err := fs.FullScanCF(cols[0], func(_ string, v []byte) bool { return bytes.Equal(v, values[0]) })
	if err != nil {
		panic(err)
	}
	var out []string
	for _, k := range ids {
		match := true
		for i := 1; i < len(cols); i++ {
			v, found, err := fs.PointGet(cols[i], k)
			if err != nil {
				panic(err)
			}
			if !found || !bytes.Equal(v, values[i]) {
				match = false
				break
			}
		}
		if match {
			out = append(out, k)
		}
	}
	return out
}

func uniqueSorted(ss []string) []string {
	set := make(map[string]struct{}, len(ss))
	for _, s := range ss {
		set[s] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// buildThreeColumnFixture seeds phone/mail/address across six keys such
// that exactly k00 satisfies all three target values simultaneously,
// every other key failing at least one column.
func buildThreeColumnFixture(t *testing.T) (*fakeStore, []*hierarchy.Hierarchy, []string) {
	t.Helper()
	fs := newFakeStore()

	phone := map[string]string{"k00": "p-match", "k01": "p-match", "k02": "p-other", "k03": "p-match", "k04": "p-other", "k05": "p-match"}
	mail := map[string]string{"k00": "m-match", "k01": "m-other", "k02": "m-match", "k03": "m-match", "k04": "m-match", "k05": "m-other"}
	address := map[string]string{"k00": "a-match", "k01": "a-match", "k02": "a-match", "k03": "a-other", "k04": "a-match", "k05": "a-match"}

	for k, v := range phone {
		require.NoError(t, fs.Put("phone", k, []byte(v)))
	}
	for k, v := range mail {
		require.NoError(t, fs.Put("mail", k, []byte(v)))
	}
	for k, v := range address {
		require.NoError(t, fs.Put("address", k, []byte(v)))
	}

	params := hierarchy.Params{M: 1 << 12, K: 5, Seed: 11, BranchingFactor: 2, PartitionSize: 2}
	cols := []string{"phone", "mail", "address"}
	trees := make([]*hierarchy.Hierarchy, len(cols))
	for i, cf := range cols {
		h, err := hierarchy.BuildColumn(context.Background(), fs, cf, params, 2)
		require.NoError(t, err)
		trees[i] = h
	}

	return fs, trees, cols
}

func TestJoinFindsExactlyTheTripleMatch(t *testing.T) {
	fs, trees, cols := buildThreeColumnFixture(t)
	values := [][]byte{[]byte("p-match"), []byte("m-match"), []byte("a-match")}

	jp := NewJoinPlanner(fs, 4)
	got, err := jp.Join(context.Background(), cols, trees, values, "", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"k00"}, uniqueSorted(got))
}

func TestFallbackPlannerAgreesWithJoin(t *testing.T) {
	fs, trees, cols := buildThreeColumnFixture(t)
	values := [][]byte{[]byte("p-match"), []byte("m-match"), []byte("a-match")}

	fp := NewFallbackPlanner(fs, 4)
	got, err := fp.Scan(context.Background(), cols, trees[0], values)
	require.NoError(t, err)

	assert.Equal(t, []string{"k00"}, uniqueSorted(got))
}

func TestThreeWayEquivalenceWithNaiveScan(t *testing.T) {
	fs, trees, cols := buildThreeColumnFixture(t)
	values := [][]byte{[]byte("p-match"), []byte("m-match"), []byte("a-match")}

	jp := NewJoinPlanner(fs, 4)
	joinKeys, err := jp.Join(context.Background(), cols, trees, values, "", "")
	require.NoError(t, err)

	fp := NewFallbackPlanner(fs, 4)
	fallbackKeys, err := fp.Scan(context.Background(), cols, trees[0], values)
	require.NoError(t, err)

	naiveKeys := naiveWholeDBScan(fs, cols, values)

	assert.Equal(t, uniqueSorted(naiveKeys), uniqueSorted(joinKeys))
	assert.Equal(t, uniqueSorted(naiveKeys), uniqueSorted(fallbackKeys))
}

func TestJoinNoMatchReturnsEmpty(t *testing.T) {
	fs, trees, cols := buildThreeColumnFixture(t)
	values := [][]byte{[]byte("p-match"), []byte("m-match"), []byte("never-seen-value")}

	jp := NewJoinPlanner(fs, 4)
	got, err := jp.Join(context.Background(), cols, trees, values, "", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestJoinArityMismatchIsAConfigError(t *testing.T) {
	fs, trees, cols := buildThreeColumnFixture(t)
	jp := NewJoinPlanner(fs, 4)

	_, err := jp.Join(context.Background(), cols, trees, [][]byte{[]byte("only-one")}, "", "")
	require.ErrorIs(t, err, ErrArityMismatch)
}

func TestFallbackArityMismatchIsAConfigError(t *testing.T) {
	fs, trees, cols := buildThreeColumnFixture(t)
	fp := NewFallbackPlanner(fs, 4)

	_, err := fp.Scan(context.Background(), cols, trees[0], [][]byte{[]byte("only-one")})
	require.ErrorIs(t, err, ErrArityMismatch)
}

func TestJoinEmptyHierarchyYieldsNoMatches(t *testing.T) {
	fs := newFakeStore()
	params := hierarchy.Params{M: 1 << 10, K: 3, Seed: 1, BranchingFactor: 2, PartitionSize: 2}
	empty, err := hierarchy.BuildColumn(context.Background(), fs, "phone", params, 2)
	require.NoError(t, err)

	jp := NewJoinPlanner(fs, 4)
	got, err := jp.Join(context.Background(), []string{"phone"}, []*hierarchy.Hierarchy{empty}, [][]byte{[]byte("anything")}, "", "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestJoinUpdatesMetricsCounters(t *testing.T) {
	fs, trees, cols := buildThreeColumnFixture(t)
	values := [][]byte{[]byte("p-match"), []byte("m-match"), []byte("a-match")}

	counters := &metrics.Counters{}
	before := counters.Sample()

	jp := NewJoinPlanner(fs, 4).WithCounters(counters)
	_, err := jp.Join(context.Background(), cols, trees, values, "", "")
	require.NoError(t, err)

	after := counters.Sample()
	delta := after.Delta(before)
	assert.Greater(t, delta.BloomProbes, uint64(0))
	assert.Greater(t, delta.SSTScans, uint64(0))
}
