package tabular

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

type workbookReader struct {
	file   *excelize.File
	rows   *excelize.Rows
	header []string
	index  map[string]int
	line   int
}

func openWorkbook(path, sheet string) (*workbookReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	name, err := resolveSheet(f, sheet)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	rows, err := f.Rows(name)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	w := &workbookReader{file: f, rows: rows}
	if !rows.Next() {
		_ = w.Close()
		if err := rows.Error(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("missing header in sheet %q", name)
	}
	h, err := rows.Columns()
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	w.header, w.index, err = normalizeHeader(h)
	if err != nil {
		_ = w.Close()
		return nil, err
	}
	w.line = 1
	return w, nil
}

func resolveSheet(f *excelize.File, sheet string) (string, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return "", fmt.Errorf("workbook has no sheets")
	}
	if sheet == "" {
		return sheets[0], nil
	}
	for _, s := range sheets {
		if s == sheet {
			return s, nil
		}
	}
	return "", fmt.Errorf("sheet %q not found (available: %v)", sheet, sheets)
}

func (w *workbookReader) Header() []string {
	return w.header
}

func (w *workbookReader) Read() (Row, error) {
	if !w.rows.Next() {
		if err := w.rows.Error(); err != nil {
			return Row{}, err
		}
		return Row{}, io.EOF
	}
	cells, err := w.rows.Columns()
	if err != nil {
		return Row{}, err
	}
	w.line++
	return Row{Line: w.line, cells: cells, index: w.index}, nil
}

func (w *workbookReader) Close() error {
	var rowsErr error
	if w.rows != nil {
		rowsErr = w.rows.Close()
	}
	if err := w.file.Close(); err != nil {
		return err
	}
	return rowsErr
}
