package harness

import (
	"bytes"
	"sort"
	"sync"

	"bloomjoin/internal/store"
)

// fakeStoreForInject is a minimal in-memory store.Store: one synthetic
// SST ("sst_main") per column family backed by a plain map, enough to
// exercise the harness helpers without the filesystem-backed
// implementation.
type fakeStoreForInject struct {
	mu   sync.Mutex
	data map[string]map[string][]byte
}

func newFakeStoreForInject() *fakeStoreForInject {
	return &fakeStoreForInject{data: make(map[string]map[string][]byte)}
}

func (f *fakeStoreForInject) Put(cf, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.data[cf] == nil {
		f.data[cf] = make(map[string][]byte)
	}
	f.data[cf][key] = value
	return nil
}

func (f *fakeStoreForInject) Delete(cf, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data[cf], key)
	return nil
}

func (f *fakeStoreForInject) EnumerateSSTs(cf string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.data[cf]) == 0 {
		return nil, nil
	}
	return []string{"sst_main"}, nil
}

func (f *fakeStoreForInject) IterateSST(cf, _ string) ([]store.KV, error) {
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

func (f *fakeStoreForInject) ScanSSTForValue(cf, sstFileID string, target []byte, start, end string) ([]string, error) {
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

func (f *fakeStoreForInject) PointGet(cf, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.data[cf][key]
	return v, ok, nil
}

func (f *fakeStoreForInject) FullScanCF(cf string, pred func(key string, value []byte) bool) ([]string, error) {
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

func (f *fakeStoreForInject) Flush(string) error   { return nil }
func (f *fakeStoreForInject) Compact(string) error { return nil }
func (f *fakeStoreForInject) Close() error         { return nil }

var _ store.Store = (*fakeStoreForInject)(nil)
