package store

import (
	"path/filepath"
	"testing"

	"bloomjoin/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.Columns = []string{"phone", "mail"}
	cfg.MemtableMaxEntries = 4
	cfg.MemtableInstances = 2
	cfg.Normalize()
	return cfg
}

func TestPutThenPointGetFromMemtable(t *testing.T) {
	s, err := Open(testConfig(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("phone", "k1", []byte("555-0100")))

	val, found, err := s.PointGet("phone", "k1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("555-0100"), val)
}

func TestDeleteShadowsEarlierPut(t *testing.T) {
	s, err := Open(testConfig(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("phone", "k1", []byte("v1")))
	require.NoError(t, s.Delete("phone", "k1"))

	_, found, err := s.PointGet("phone", "k1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestFlushWritesSSTAndSurvivesMemtableReset(t *testing.T) {
	s, err := Open(testConfig(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("phone", "a", []byte("1")))
	require.NoError(t, s.Put("phone", "b", []byte("2")))
	require.NoError(t, s.Flush("phone"))

	ids, err := s.EnumerateSSTs("phone")
	require.NoError(t, err)
	require.Len(t, ids, 1)

	val, found, err := s.PointGet("phone", "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("1"), val)
}

func TestRotationFlushesWithoutExplicitCall(t *testing.T) {
	cfg := testConfig(t)
	cfg.MemtableMaxEntries = 2
	cfg.MemtableInstances = 2
	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Put("phone", string(rune('a'+i)), []byte{byte(i)}))
	}

	ids, err := s.EnumerateSSTs("phone")
	require.NoError(t, err)
	assert.NotEmpty(t, ids)
}

func TestColumnFamiliesAreIsolated(t *testing.T) {
	s, err := Open(testConfig(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("phone", "k", []byte("phone-value")))
	require.NoError(t, s.Put("mail", "k", []byte("mail-value")))

	pv, _, err := s.PointGet("phone", "k")
	require.NoError(t, err)
	mv, _, err := s.PointGet("mail", "k")
	require.NoError(t, err)

	assert.Equal(t, []byte("phone-value"), pv)
	assert.Equal(t, []byte("mail-value"), mv)
}

func TestFullScanCFAppliesPredicate(t *testing.T) {
	s, err := Open(testConfig(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("phone", "a", []byte("match")))
	require.NoError(t, s.Put("phone", "b", []byte("nomatch")))
	require.NoError(t, s.Flush("phone"))
	require.NoError(t, s.Put("phone", "c", []byte("match")))

	keys, err := s.FullScanCF("phone", func(_ string, v []byte) bool {
		return string(v) == "match"
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "c"}, keys)
}

func TestCompactCollapsesMultipleSSTsKeepingNewest(t *testing.T) {
	s, err := Open(testConfig(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("phone", "a", []byte("old")))
	require.NoError(t, s.Flush("phone"))
	require.NoError(t, s.Put("phone", "a", []byte("new")))
	require.NoError(t, s.Flush("phone"))

	require.NoError(t, s.Compact("phone"))

	ids, err := s.EnumerateSSTs("phone")
	require.NoError(t, err)
	require.Len(t, ids, 1)

	val, found, err := s.PointGet("phone", "a")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("new"), val)
}

func TestReopenReplaysWAL(t *testing.T) {
	cfg := testConfig(t)

	s1, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, s1.Put("phone", "durable", []byte("yes")))
	require.NoError(t, s1.Close())

	s2, err := Open(cfg)
	require.NoError(t, err)
	defer s2.Close()

	val, found, err := s2.PointGet("phone", "durable")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []byte("yes"), val)
}

func TestIterateSSTSkipsTombstones(t *testing.T) {
	s, err := Open(testConfig(t))
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("phone", "a", []byte("1")))
	require.NoError(t, s.Put("phone", "b", []byte("2")))
	require.NoError(t, s.Delete("phone", "b"))
	require.NoError(t, s.Flush("phone"))

	ids, err := s.EnumerateSSTs("phone")
	require.NoError(t, err)
	require.Len(t, ids, 1)

	kvs, err := s.IterateSST("phone", ids[0])
	require.NoError(t, err)
	require.Len(t, kvs, 1)
	assert.Equal(t, "a", kvs[0].Key)
}

func TestEnumerateSSTsFallsBackToFilesystemWithoutManifestEntry(t *testing.T) {
	s, err := Open(testConfig(t))
	require.NoError(t, err)
	defer s.Close()

	st, err := s.cfFor("phone")
	require.NoError(t, err)

	_, err = st.sst.Flush(nil)
	require.NoError(t, err)

	ids, err := s.EnumerateSSTs("phone")
	require.NoError(t, err)
	assert.NotEmpty(t, ids)
}

func TestDataDirLayoutIsOnePerColumnFamily(t *testing.T) {
	cfg := testConfig(t)
	s, err := Open(cfg)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Put("phone", "a", []byte("1")))
	require.NoError(t, s.Flush("phone"))

	require.DirExists(t, filepath.Join(cfg.DataDir, "sstable", "phone"))
}
