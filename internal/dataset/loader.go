package dataset

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var bom = []byte{0xef, 0xbb, 0xbf}

// DefaultNATokens are the cell spellings read as missing values.
// "None" is deliberately absent: it is the implicit-missing marker that
// several metrics look for.
var DefaultNATokens = []string{
	"", "NA", "N/A", "n/a", "NaN", "nan", "-NaN", "-nan",
	"NULL", "null", "#N/A", "#NA", "<NA>",
}

type LoadOptions struct {
	// Delimiter separates fields. Zero means detect it from the first lines.
	Delimiter rune
	// NATokens lists the spellings read as missing. Nil means DefaultNATokens.
	NATokens []string
	// Root names batches by their slash-separated path relative to it, so
	// files with the same name in different folders stay apart. Empty names
	// a batch after its file.
	Root string
}

func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Delimiter: ',',
		NATokens:  DefaultNATokens,
	}
}

// Load reads one CSV file with a header row into a Batch numbered number.
func Load(path string, number int, opts LoadOptions) (*Batch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	batch, err := Read(file, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	batch.Name = BatchName(opts.Root, path)
	batch.Path = path
	batch.Number = number
	return batch, nil
}

// BatchName is the name a batch read from path gets under root.
func BatchName(root, path string) string {
	if root != "" {
		if rel, err := filepath.Rel(root, path); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.Base(path)
}

// Read parses CSV data with a header row into an unnamed Batch.
func Read(r io.Reader, opts LoadOptions) (*Batch, error) {
	br := bufio.NewReader(r)

	if head, err := br.Peek(len(bom)); err == nil && bytes.Equal(head, bom) {
		if _, err := br.Discard(len(bom)); err != nil {
			return nil, err
		}
	}

	delim := opts.Delimiter
	if delim == 0 {
		sample, _ := br.Peek(sniffBytes)
		delim = DetectDelimiter(sample)
	}

	reader := csv.NewReader(br)
	reader.Comma = delim
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read headers: %w", err)
	}

	raw := make([][]string, len(headers))
	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}
		if len(record) > len(headers) {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("line %d: %d fields, header has %d", line, len(record), len(headers))
		}

		for i := range headers {
			cell := ""
			if i < len(record) {
				cell = record[i]
			}
			raw[i] = append(raw[i], cell)
		}
		rows++
	}

	na := opts.NATokens
	if na == nil {
		na = DefaultNATokens
	}
	naSet := make(map[string]struct{}, len(na))
	for _, t := range na {
		naSet[t] = struct{}{}
	}

	batch := &Batch{Rows: rows, Columns: make([]*Column, len(headers))}
	for i, h := range headers {
		batch.Columns[i] = NewColumn(h, typeCells(raw[i], naSet))
	}
	return batch, nil
}

// typeCells picks the most specific type every present cell satisfies:
// integer, then float, then boolean, falling back to text for the whole column.
func typeCells(cells []string, na map[string]struct{}) []Value {
	allInt, allFloat, allBool := true, true, true

	for _, s := range cells {
		if _, ok := na[s]; ok {
			continue
		}
		if allInt {
			if _, ok := ParseInt(s); !ok {
				allInt = false
			}
		}
		if allFloat {
			if _, ok := ParseFloat(s); !ok {
				allFloat = false
			}
		}
		if allBool {
			if _, ok := ParseBool(s); !ok {
				allBool = false
			}
		}
		if !allInt && !allFloat && !allBool {
			break
		}
	}

	values := make([]Value, len(cells))
	for i, s := range cells {
		if _, ok := na[s]; ok {
			values[i] = MissingValue()
			continue
		}

		switch {
		case allInt:
			n, _ := ParseInt(s)
			values[i] = IntValue(n)
		case allFloat:
			f, _ := ParseFloat(s)
			values[i] = FloatValue(f)
		case allBool:
			b, _ := ParseBool(s)
			values[i] = BoolValue(b)
		default:
			values[i] = TextValue(s)
		}
	}
	return values
}

func ParseInt(s string) (int64, bool) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return i, true
}

func ParseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// ParseBool accepts the spellings a dataframe reader treats as booleans.
func ParseBool(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "True", "true", "TRUE":
		return true, true
	case "False", "false", "FALSE":
		return false, true
	}
	return false, false
}
