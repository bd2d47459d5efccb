package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCSVWriterWritesHeaderOnceAndAppendsRows(t *testing.T) {
	dir := t.TempDir()

	w, err := NewCSVWriter(dir, "results.csv", []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, w.WriteRow([]string{"1", "2"}))
	require.NoError(t, w.Close())

	w2, err := NewCSVWriter(dir, "results.csv", []string{"a", "b"})
	require.NoError(t, err)
	require.NoError(t, w2.WriteRow([]string{"3", "4"}))
	require.NoError(t, w2.Close())

	b, err := os.ReadFile(filepath.Join(dir, "results.csv"))
	require.NoError(t, err)
	require.Equal(t, "a,b\n1,2\n3,4\n", string(b))
}
