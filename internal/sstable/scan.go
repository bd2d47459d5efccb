package sstable

import (
	"bytes"
	"path/filepath"
)

// ScanForValue decodes dataPath and returns every key whose value equals
// target and whose key falls in [start, end] (empty string unbounded on
// that side). This is the store adapter's scan_sst_for_value primitive;
// it is a thin filter over IterateDataFile rather than a separate
// block-skipping scan, since a run here is already bounded by the
// hierarchy's partition size.
func (m *Manager) ScanForValue(dataPath string, target []byte, start, end string) ([]string, error) {
	records, err := m.IterateDataFile(dataPath)
	if err != nil {
		return nil, err
	}

	var keys []string
	for _, r := range records {
		if r.Tombstone {
			continue
		}
		if start != "" && r.Key < start {
			continue
		}
		if end != "" && r.Key > end {
			continue
		}
		if !bytes.Equal(r.Value, target) {
			continue
		}
		keys = append(keys, r.Key)
	}
	return keys, nil
}

// DataPathForID returns the .data file path for a file id minted by
// Flush.
func (m *Manager) DataPathForID(fileID string) string {
	return filepath.Join(m.dir, fileID+".data")
}
