package sstable

import (
	"path/filepath"
	"strings"
)

// ListFileIDs returns every flushed SST's file id (the base name, without
// directory or extension) in this manager's directory, newest first.
func (m *Manager) ListFileIDs() ([]string, error) {
	paths, err := m.listDataFilesNewestFirst()
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(paths))
	for i, p := range paths {
		base := filepath.Base(p)
		ids[i] = strings.TrimSuffix(base, ".data")
	}
	return ids, nil
}
