// Package results persists measurement rows to the append-only result table
// and reads it back to resume an interrupted sweep.
package results

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

var ErrSchemaMismatch = errors.New("result table header does not match schema")

// Sink appends rows to a CSV result table. Each Append is one durable write:
// rows of a batch either all reach the disk or, after a crash, none do
// beyond what the OS had flushed.
type Sink struct {
	path string
	mu   sync.Mutex
}

func NewSink(path string) *Sink {
	return &Sink{path: path}
}

func (s *Sink) Path() string {
	return s.path
}

// Truncate empties the table so the next Append starts with a fresh header.
func (s *Sink) Truncate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create results folder: %w", err)
	}
	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("truncate result table: %w", err)
	}
	return f.Close()
}

// Append writes rows to the end of the table. The header is written only
// when the table is empty.
func (s *Sink) Append(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create results folder: %w", err)
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open result table: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat result table: %w", err)
	}

	writer := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := writer.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	for _, r := range rows {
		if err := writer.Write(r.Record()); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result table: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync result table: %w", err)
	}
	return f.Close()
}

// Scan calls fn for every row of the table at path. A missing or empty
// table has no rows.
func Scan(path string, fn func(Row) error) error {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open result table: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if !slices.Equal(header, Header) {
		return fmt.Errorf("%w: got %q", ErrSchemaMismatch, header)
	}

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read row: %w", err)
		}

		row, err := parseRow(rec)
		if err != nil {
			line, _ := reader.FieldPos(0)
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(row); err != nil {
			return err
		}
	}
}

// ReadAll loads every row of the table at path.
func ReadAll(path string) ([]Row, error) {
	var rows []Row
	err := Scan(path, func(r Row) error {
		rows = append(rows, r)
		return nil
	})
	return rows, err
}
