package pipeline

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/aluiziolira/go-scrape-counter/models"
)

// csvHeader is written once, when the output file is created empty.
var csvHeader = []string{"timestamp_utc", "value", "url"}

// CSVRecorder appends one record per run to a CSV file. The file and its
// parent directory are created lazily; the header row is present iff the
// file is non-empty. An absent value is encoded as an empty cell, never a
// sentinel string.
type CSVRecorder struct {
	path string
}

// NewCSVRecorder returns a recorder appending to path.
func NewCSVRecorder(path string) *CSVRecorder {
	return &CSVRecorder{path: path}
}

// Append opens the file, writes the header if needed plus exactly one row,
// then flushes and closes within the call so a crash between runs cannot
// leave a partial row buffered.
func (r *CSVRecorder) Append(rec *models.Record) error {
	if err := ensureDir(r.path); err != nil {
		return err
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open csv file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat csv file: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return fmt.Errorf("write csv header: %w", err)
		}
	}

	value := ""
	if rec.Value != nil {
		value = strconv.Itoa(*rec.Value)
	}
	if err := w.Write([]string{rec.Timestamp(), value, rec.URL}); err != nil {
		f.Close()
		return fmt.Errorf("write csv record: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush csv record: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close csv file: %w", err)
	}
	return nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
