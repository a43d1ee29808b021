// Package dataset loads tabular data from CSV and JSON sources and keeps
// the loaded tables in an in-memory store keyed by session id.
package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/marinad-syro/inferra/pkg/table"
)

// Loader reads datasets from disk within a confined directory.
type Loader struct {
	// Dir restricts file loads to paths under this directory. Empty means
	// no restriction.
	Dir string
	// MaxRows rejects datasets larger than this many rows. Zero means
	// unlimited.
	MaxRows int
}

// LoadFile loads a dataset from a .csv or .json file.
func (l *Loader) LoadFile(path string) (*table.Table, error) {
	resolved, err := l.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".csv":
		return l.LoadCSV(bytes.NewReader(data))
	case ".json":
		return l.LoadJSON(data)
	default:
		return nil, fmt.Errorf("unsupported dataset format %q (supported: .csv, .json)", filepath.Ext(resolved))
	}
}

// resolve makes the path absolute and enforces the directory confinement.
func (l *Loader) resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if l.Dir == "" {
		return abs, nil
	}
	dir, err := filepath.Abs(l.Dir)
	if err != nil {
		return "", err
	}
	if abs != dir && !strings.HasPrefix(abs, dir+string(filepath.Separator)) {
		return "", fmt.Errorf("dataset path %q is outside the allowed directory %q", path, l.Dir)
	}
	return abs, nil
}

// LoadCSV parses CSV data into a table. The first row is the header; cell
// types are sniffed per column (numeric, boolean, else string) and empty
// cells become missing values.
func (l *Loader) LoadCSV(r io.Reader) (*table.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV headers: %w", err)
	}
	names := make([]string, len(headers))
	for i, h := range headers {
		names[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed CSV row: %w", err)
		}
		rows = append(rows, row)
		if l.MaxRows > 0 && len(rows) > l.MaxRows {
			return nil, fmt.Errorf("dataset exceeds the row limit of %d", l.MaxRows)
		}
	}

	t := table.New()
	for j, name := range names {
		raw := make([]string, len(rows))
		for i, row := range rows {
			if j < len(row) {
				raw[i] = strings.TrimSpace(row[j])
			}
		}
		if err := t.SetColumn(name, sniffColumn(raw)); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// sniffColumn picks a cell type for the column: numeric if every non-empty
// cell parses as a float, boolean if every non-empty cell is true/false,
// otherwise string. Empty cells are missing.
func sniffColumn(raw []string) []table.Value {
	numeric := true
	boolean := true
	empty := true
	for _, s := range raw {
		if s == "" {
			continue
		}
		empty = false
		if _, err := strconv.ParseFloat(s, 64); err != nil {
			numeric = false
		}
		switch strings.ToLower(s) {
		case "true", "false":
		default:
			boolean = false
		}
	}

	values := make([]table.Value, len(raw))
	for i, s := range raw {
		switch {
		case s == "" || empty:
			values[i] = nil
		case numeric:
			f, _ := strconv.ParseFloat(s, 64)
			if math.IsNaN(f) {
				values[i] = nil
			} else {
				values[i] = f
			}
		case boolean:
			values[i] = strings.EqualFold(s, "true")
		default:
			values[i] = s
		}
	}
	return values
}

// LoadJSON parses a JSON array of records into a table. Column order follows
// the key order of the first record.
func (l *Loader) LoadJSON(data []byte) (*table.Table, error) {
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse JSON records: %w", err)
	}
	if l.MaxRows > 0 && len(records) > l.MaxRows {
		return nil, fmt.Errorf("dataset exceeds the row limit of %d", l.MaxRows)
	}
	names, err := recordKeyOrder(data)
	if err != nil {
		return nil, err
	}
	// Keys absent from the first record still become columns.
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	for _, rec := range records {
		for key := range rec {
			if !seen[key] {
				seen[key] = true
				names = append(names, key)
			}
		}
	}
	return table.FromRecords(names, records), nil
}

// recordKeyOrder extracts the key order of the first object in a JSON array,
// which encoding/json's map decoding discards.
func recordKeyOrder(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if _, err := dec.Token(); err != nil { // [
		return nil, err
	}
	if !dec.More() {
		return nil, nil
	}
	if _, err := dec.Token(); err != nil { // {
		return nil, err
	}
	var names []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}
		names = append(names, key)
		if err := skipValue(dec); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// skipValue consumes one JSON value from the decoder.
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); ok && (d == '{' || d == '[') {
		depth := 1
		for depth > 0 {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			if d, ok := tok.(json.Delim); ok {
				switch d {
				case '{', '[':
					depth++
				case '}', ']':
					depth--
				}
			}
		}
	}
	return nil
}
