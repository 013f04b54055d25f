package source

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXReader is a Source over the first sheet of an Excel workbook.
type XLSXReader struct {
	file   *excelize.File
	rows   *excelize.Rows
	header []string
	line   int
}

// OpenXLSX opens the workbook at path and reads the header row of its first sheet.
func OpenXLSX(path string) (*XLSXReader, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}

	x, err := newXLSXReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return x, nil
}

func newXLSXReader(f *excelize.File) (*XLSXReader, error) {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrMalformedSource)
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: read sheet %q: %v", ErrMalformedSource, sheets[0], err)
	}

	x := &XLSXReader{file: f, rows: rows}

	cells, err := x.nextCells()
	if errors.Is(err, io.EOF) {
		_ = rows.Close()
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedSource)
	}
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedSource, err)
	}

	normalizeCells(cells)
	if len(cells) > 0 {
		cells[0] = strings.TrimPrefix(cells[0], "\uFEFF")
	}
	if isEmptyRow(cells) {
		_ = rows.Close()
		return nil, fmt.Errorf("%w: header row is empty", ErrMalformedSource)
	}

	x.header = NormalizeHeaders(cells)
	return x, nil
}

func (x *XLSXReader) nextCells() ([]string, error) {
	if !x.rows.Next() {
		if err := x.rows.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	x.line++
	return x.rows.Columns()
}

// Header implements Source.
func (x *XLSXReader) Header() []string { return x.header }

// Encoding implements Source. Workbooks are always UTF-8 internally.
func (x *XLSXReader) Encoding() string { return EncodingUTF8 }

// Next implements Source.
func (x *XLSXReader) Next() (Row, error) {
	for {
		cells, err := x.nextCells()
		if err != nil {
			return Row{}, err
		}
		if isEmptyRow(cells) {
			continue
		}
		normalizeCells(cells)
		return Row{Line: x.line, Cells: cells, Header: x.header}, nil
	}
}

// Close implements Source.
func (x *XLSXReader) Close() error {
	rowsErr := x.rows.Close()
	if err := x.file.Close(); err != nil {
		return err
	}
	return rowsErr
}
