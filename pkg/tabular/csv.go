package tabular

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

type csvReader struct {
	r      *csv.Reader
	close  func() error
	header []string
	index  map[string]int
	line   int
}

func openCSV(path string) (*csvReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	br := stripUTF8BOM(bufio.NewReader(f))

	r := csv.NewReader(br)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	h, err := r.Read()
	if err != nil {
		_ = f.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("missing header")
		}
		return nil, err
	}
	header, index, err := normalizeHeader(h)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &csvReader{r: r, close: f.Close, header: header, index: index, line: 1}, nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}

func (c *csvReader) Header() []string {
	return c.header
}

func (c *csvReader) Read() (Row, error) {
	rec, err := c.r.Read()
	if err != nil {
		return Row{}, err
	}
	c.line++
	line, _ := c.r.FieldPos(0)
	if line == 0 {
		line = c.line
	}
	return Row{Line: line, cells: rec, index: c.index}, nil
}

func (c *csvReader) Close() error {
	return c.close()
}
