// Package tabular reads header-first row data from CSV files and Excel workbooks
// behind one streaming interface.
package tabular

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

// Reader streams data rows after the header. Read returns io.EOF after the last row.
type Reader interface {
	Header() []string
	Read() (Row, error)
	Close() error
}

type Options struct {
	// Sheet selects a workbook sheet; empty means the first sheet. Ignored for CSV.
	Sheet string
}

// Row is one data row. Line is 1-based and counts the header line.
type Row struct {
	Line  int
	cells []string
	index map[string]int
}

// NewRow builds a row against header, for sources other than files.
func NewRow(line int, header []string, cells []string) Row {
	_, index, _ := normalizeHeader(header)
	return Row{Line: line, cells: cells, index: index}
}

// Get returns the trimmed cell under column, or "" when the column or cell is absent.
func (r Row) Get(column string) string {
	i, ok := r.index[column]
	if !ok {
		return ""
	}
	return r.At(i)
}

func (r Row) At(i int) string {
	if i < 0 || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r Row) Len() int {
	return len(r.cells)
}

// Blank reports whether every cell is empty after trimming.
func (r Row) Blank() bool {
	for i := range r.cells {
		if r.At(i) != "" {
			return false
		}
	}
	return true
}

type UnsupportedFormatError struct {
	Path     string
	Detected string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format: %s is %s (expected CSV or XLSX)", e.Path, e.Detected)
}

type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	return fmt.Sprintf("missing required header column(s): %s", strings.Join(e.Columns, ", "))
}

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Open picks the source by file extension. Other extensions, and .csv files that
// are really workbooks, are resolved by sniffing the content.
func Open(path string, opts Options) (Reader, error) {
	workbook, err := isWorkbook(path)
	if err != nil {
		return nil, err
	}
	if workbook {
		r, err := openWorkbook(path, opts.Sheet)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	r, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func isWorkbook(path string) (bool, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".xlsx" || ext == ".xlsm" {
		return true, nil
	}
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return false, err
	}
	switch {
	case mt.Is(xlsxMIME):
		return true, nil
	case ext == ".csv" || ext == ".txt":
		return false, nil
	case mt.Is("text/csv"), mt.Is("text/plain"):
		return false, nil
	default:
		return false, &UnsupportedFormatError{Path: path, Detected: mt.String()}
	}
}

// RequireColumns reports every required column missing from header.
func RequireColumns(header []string, required ...string) error {
	hset := make(map[string]struct{}, len(header))
	for _, h := range header {
		hset[h] = struct{}{}
	}
	var missing []string
	for _, req := range required {
		if _, ok := hset[req]; !ok {
			missing = append(missing, req)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnsError{Columns: missing}
	}
	return nil
}

// ReadAll drains r. Blank rows are skipped.
func ReadAll(r Reader) ([]Row, error) {
	var out []Row
	for {
		row, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		if row.Blank() {
			continue
		}
		out = append(out, row)
	}
}

func normalizeHeader(h []string) ([]string, map[string]int, error) {
	out := make([]string, len(h))
	index := make(map[string]int, len(h))
	for i := range h {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h[i], "\ufeff"))
		if !utf8.ValidString(out[i]) {
			return nil, nil, fmt.Errorf("invalid header encoding in column %d", i+1)
		}
		if out[i] == "" {
			continue
		}
		if _, dup := index[out[i]]; !dup {
			index[out[i]] = i
		}
	}
	return out, index, nil
}
