package store

import (
	"encoding/json"
	"path/filepath"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"
)

var manifestBucket = []byte("sst_ids")

// manifest is the durable column family -> SST file id list, recorded
// newest-last so EnumerateSSTs can reverse it cheaply. Opened once per
// Store.Open and kept for the store's lifetime; the filesystem listing in
// internal/sstable remains the fallback source of truth for a CF the
// manifest has not yet recorded (e.g. SSTs flushed by an older version of
// this store before the manifest existed).
type manifest struct {
	db *bolt.DB
}

func openManifest(dataDir string) (*manifest, error) {
	db, err := bolt.Open(filepath.Join(dataDir, "manifest.bbolt"), 0644, nil)
	if err != nil {
		return nil, errors.Wrap(err, "store: open manifest")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(manifestBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "store: init manifest bucket")
	}
	return &manifest{db: db}, nil
}

func (m *manifest) appendSSTID(cf, fileID string) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(manifestBucket)
		ids, err := readIDs(b, cf)
		if err != nil {
			return err
		}
		ids = append(ids, fileID)
		return writeIDs(b, cf, ids)
	})
}

// listSSTIDs returns cf's recorded file ids, newest first. ok is false
// when the manifest has no entry for cf at all (as opposed to an empty
// list), letting the caller fall back to a filesystem listing.
func (m *manifest) listSSTIDs(cf string) (ids []string, ok bool, err error) {
	err = m.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(manifestBucket)
		raw := b.Get([]byte(cf))
		if raw == nil {
			ok = false
			return nil
		}
		var stored []string
		if jsonErr := json.Unmarshal(raw, &stored); jsonErr != nil {
			return errors.Wrap(jsonErr, "store: decode manifest entry")
		}
		ok = true
		ids = make([]string, len(stored))
		for i := range stored {
			ids[i] = stored[len(stored)-1-i]
		}
		return nil
	})
	return ids, ok, err
}

func readIDs(b *bolt.Bucket, cf string) ([]string, error) {
	raw := b.Get([]byte(cf))
	if raw == nil {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, errors.Wrap(err, "store: decode manifest entry")
	}
	return ids, nil
}

func writeIDs(b *bolt.Bucket, cf string, ids []string) error {
	raw, err := json.Marshal(ids)
	if err != nil {
		return errors.Wrap(err, "store: encode manifest entry")
	}
	return b.Put([]byte(cf), raw)
}

// resetSSTIDs replaces cf's recorded id list outright, used after a
// compaction collapses every existing SST into one.
func (m *manifest) resetSSTIDs(cf string, ids []string) error {
	return m.db.Update(func(tx *bolt.Tx) error {
		return writeIDs(tx.Bucket(manifestBucket), cf, ids)
	})
}

func (m *manifest) close() error {
	return m.db.Close()
}
