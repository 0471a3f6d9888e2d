package meta

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"vidbunch/internal/vberr"
)

// Format identifies a metadata file encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatJSONL  Format = "jsonl"
	FormatCSV    Format = "csv"
	FormatSQLite Format = "sqlite"
)

// DetectFormat infers the format from the file extension.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	case ".csv":
		return FormatCSV, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	default:
		return "", vberr.Configf("meta", "unrecognised metadata extension for %q", path)
	}
}

// Load reads a JSON, JSONL, or CSV metadata file. SQLite tables are served by
// the metastore package.
func Load(path string) (Table, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	if format == FormatSQLite {
		return nil, vberr.Configf("meta", "%s is a sqlite index; open it with metastore", path)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, vberr.Wrap(vberr.ErrConfiguration, "meta", "open", path, err)
	}
	defer file.Close()
	return Read(file, format)
}

// Read decodes a metadata table from r.
func Read(r io.Reader, format Format) (Table, error) {
	switch format {
	case FormatJSON:
		return readJSON(r)
	case FormatJSONL:
		return readJSONL(r)
	case FormatCSV:
		return readCSV(r)
	default:
		return nil, vberr.Configf("meta", "unsupported format %q", format)
	}
}

func readJSON(r io.Reader) (Table, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	var records []map[string]any
	if err := decoder.Decode(&records); err != nil {
		return nil, vberr.Wrap(vberr.ErrConfiguration, "meta", "parse json", "", err)
	}
	table := make(Table, 0, len(records))
	for i, record := range records {
		row, err := FromFields(record, i)
		if err != nil {
			return nil, err
		}
		table = append(table, row)
	}
	return table, nil
}

func readJSONL(r io.Reader) (Table, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	var table Table
	line := 0
	for scanner.Scan() {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		decoder := json.NewDecoder(bytes.NewReader(raw))
		decoder.UseNumber()
		var record map[string]any
		if err := decoder.Decode(&record); err != nil {
			return nil, vberr.Wrap(vberr.ErrConfiguration, "meta", "parse jsonl", fmt.Sprintf("row %d", line), err)
		}
		row, err := FromFields(record, line)
		if err != nil {
			return nil, err
		}
		table = append(table, row)
		line++
	}
	if err := scanner.Err(); err != nil {
		return nil, vberr.Wrap(vberr.ErrConfiguration, "meta", "scan jsonl", "", err)
	}
	return table, nil
}

func readCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Table{}, nil
		}
		return nil, vberr.Wrap(vberr.ErrConfiguration, "meta", "parse csv header", "", err)
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(header[i]))
	}
	var table Table
	for line := 0; ; line++ {
		values, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, vberr.Wrap(vberr.ErrConfiguration, "meta", "parse csv", fmt.Sprintf("row %d", line), err)
		}
		record := make(map[string]any, len(header))
		for i, key := range header {
			if i < len(values) {
				record[key] = values[i]
			}
		}
		row, err := FromFields(record, line)
		if err != nil {
			return nil, err
		}
		table = append(table, row)
	}
	return table, nil
}

// WriteJSON writes the table as a JSON records array.
func WriteJSON(w io.Writer, table Table) error {
	records := make([]VideoMeta, len(table))
	copy(records, table)
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	return nil
}
