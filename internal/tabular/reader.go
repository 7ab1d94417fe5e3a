// Package tabular reads the catalog spreadsheets exported as CSV, TSV or
// Parquet into positional rows.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ErrStructural marks a table that is missing or unreadable
var ErrStructural = errors.New("structural error")

// Row is one data row. Line is 1-based and excludes the header.
type Row struct {
	Line  int
	Cells []string
}

// Cell returns the trimmed cell at index i, or "" past the end of the row
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return strings.TrimSpace(r.Cells[i])
}

// RawCell returns the untrimmed cell at index i
func (r Row) RawCell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

// Table is a parsed source file
type Table struct {
	Name   string
	Header []string
	Rows   []Row
}

// ReadFile loads a table, choosing the decoder from the file extension
func ReadFile(path string) (*Table, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		table *Table
		err   error
	)
	switch ext {
	case ".csv":
		table, err = readDelimited(path, ',')
	case ".tsv", ".tab":
		table, err = readDelimited(path, '\t')
	case ".parquet":
		table, err = readParquet(path)
	default:
		return nil, fmt.Errorf("%w: unsupported table format %s (supported: .csv, .tsv, .parquet)", ErrStructural, ext)
	}
	if err != nil {
		return nil, err
	}

	table.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	slog.Debug("Loaded table", "path", path, "rows", len(table.Rows))
	return table, nil
}

func readDelimited(path string, delimiter rune) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open table: %w", ErrStructural, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read header of %s: %w", ErrStructural, path, err)
	}

	table := &Table{Header: header}
	for line := 1; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read %s at row %d: %w", ErrStructural, path, line, err)
		}
		if isBlank(record) {
			continue
		}
		table.Rows = append(table.Rows, Row{Line: line, Cells: record})
	}
	return table, nil
}

func readParquet(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open parquet file: %w", ErrStructural, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to stat file: %w", ErrStructural, err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open parquet: %w", ErrStructural, err)
	}

	columns := pf.Schema().Columns()
	table := &Table{Header: make([]string, len(columns))}
	for i, col := range columns {
		table.Header[i] = strings.Join(col, ".")
	}

	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	line := 0
	buf := make([]parquet.Row, 128)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(buf)
			for _, row := range buf[:n] {
				line++
				cells := make([]string, len(columns))
				for _, v := range row {
					if c := v.Column(); c >= 0 && c < len(cells) {
						cells[c] = valueString(v)
					}
				}
				if !isBlank(cells) {
					table.Rows = append(table.Rows, Row{Line: line, Cells: cells})
				}
			}
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				rows.Close()
				return nil, fmt.Errorf("%w: failed to read parquet rows: %w", ErrStructural, err)
			}
		}
		rows.Close()
	}
	return table, nil
}

func valueString(v parquet.Value) string {
	if v.IsNull() {
		return ""
	}
	switch v.Kind() {
	case parquet.Boolean:
		return strconv.FormatBool(v.Boolean())
	case parquet.Int32:
		return strconv.FormatInt(int64(v.Int32()), 10)
	case parquet.Int64:
		return strconv.FormatInt(v.Int64(), 10)
	case parquet.Float:
		return strconv.FormatFloat(float64(v.Float()), 'f', -1, 32)
	case parquet.Double:
		return strconv.FormatFloat(v.Double(), 'f', -1, 64)
	default:
		return string(v.ByteArray())
	}
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
