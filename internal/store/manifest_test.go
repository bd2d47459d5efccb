package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestListSSTIDsUnknownCF(t *testing.T) {
	m, err := openManifest(t.TempDir())
	require.NoError(t, err)
	defer m.close()

	ids, ok, err := m.listSSTIDs("phone")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, ids)
}

func TestManifestAppendIsNewestFirst(t *testing.T) {
	m, err := openManifest(t.TempDir())
	require.NoError(t, err)
	defer m.close()

	require.NoError(t, m.appendSSTID("phone", "sst_1"))
	require.NoError(t, m.appendSSTID("phone", "sst_2"))
	require.NoError(t, m.appendSSTID("phone", "sst_3"))

	ids, ok, err := m.listSSTIDs("phone")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"sst_3", "sst_2", "sst_1"}, ids)
}

func TestManifestResetClearsEntries(t *testing.T) {
	m, err := openManifest(t.TempDir())
	require.NoError(t, err)
	defer m.close()

	require.NoError(t, m.appendSSTID("phone", "sst_1"))
	require.NoError(t, m.resetSSTIDs("phone", nil))

	ids, ok, err := m.listSSTIDs("phone")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Empty(t, ids)
}

func TestManifestPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	m1, err := openManifest(dir)
	require.NoError(t, err)
	require.NoError(t, m1.appendSSTID("mail", "sst_a"))
	require.NoError(t, m1.close())

	m2, err := openManifest(dir)
	require.NoError(t, err)
	defer m2.close()

	ids, ok, err := m2.listSSTIDs("mail")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"sst_a"}, ids)
}
