package harness

import (
	"encoding/csv"
	"os"
	"path/filepath"
)

// CSVWriter appends rows to one result file under a results directory,
// writing header once on first creation — grounded on the source's
// writeCsvHeader, which writes a fixed header line to a result file only
// when the file does not already exist. No third-party CSV writer appears
// anywhere in the retrieved pack, so this stays on encoding/csv; see
// DESIGN.md.
type CSVWriter struct {
	path   string
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter opens (creating if necessary) resultsDir/name, writing
// header as the first line only if the file is new.
func NewCSVWriter(resultsDir, name string, header []string) (*CSVWriter, error) {
	if err := os.MkdirAll(resultsDir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(resultsDir, name)

	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}

	w := csv.NewWriter(f)
	if isNew {
		if err := w.Write(header); err != nil {
			f.Close()
			return nil, err
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &CSVWriter{path: path, file: f, writer: w}, nil
}

// WriteRow appends one data row and flushes immediately, so a crash
// mid-sweep never loses a completed row.
func (c *CSVWriter) WriteRow(fields []string) error {
	if err := c.writer.Write(fields); err != nil {
		return err
	}
	c.writer.Flush()
	return c.writer.Error()
}

// Close releases the underlying file handle.
func (c *CSVWriter) Close() error {
	return c.file.Close()
}
