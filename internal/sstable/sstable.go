package sstable

import (
	"bloomjoin/internal/block"
	"bloomjoin/internal/model"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type Manager struct {
	dir              string
	multiFileSSTable bool

	bm        *block.BlockManager
	blockSize int

	flags         uint16
	summaryStride uint64
	dataMagic     [4]byte
	indexMagic    [4]byte
	summMagic     [4]byte
}

func New(dir string, multiFileSSTable bool, bm *block.BlockManager, blockSize int, summaryStride uint64) *Manager {
	return &Manager{
		dir:              dir,
		multiFileSSTable: multiFileSSTable,
		bm:               bm,
		blockSize:        blockSize,
		summaryStride:    summaryStride,
		dataMagic:        [4]byte{'D', 'A', 'T', 'A'},
		indexMagic:       [4]byte{'I', 'N', 'D', 'X'},
		summMagic:        [4]byte{'S', 'U', 'M', 'M'},
	}
}

// Flush writes records as a new SST, named with a fresh uuid rather than
// a timestamp so two flushes in the same nanosecond never collide.
// Returns the minted file id (the base name, without extension).
func (m *Manager) Flush(records []model.Record) (string, error) {
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return "", err
	}

	fileID := "sst_" + uuid.NewString()
	basePath := filepath.Join(m.dir, fileID)

	if m.multiFileSSTable {
		if err := m.WriteMultiFile(basePath, records); err != nil {
			return "", err
		}
		return fileID, nil
	}
	if err := m.WriteSingleFile(basePath, records); err != nil {
		return "", err
	}
	return fileID, nil
}
