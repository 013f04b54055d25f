// Package source streams rows out of dispatch export files.
//
// A Source decodes the file to UTF-8 (detecting the charset if asked to),
// normalizes every cell to NFC, reads the first row as header and yields the
// remaining non-empty rows one at a time. Nothing is buffered beyond the
// current record.
package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrMalformedSource is returned when a file has no readable header row.
var ErrMalformedSource = errors.New("malformed source")

// Options controls CSV parsing.
type Options struct {
	Delimiter rune
	Quote     rune // 0 disables quoting
	Escape    rune // 0 disables escaping
	Encoding  string
}

// DefaultOptions matches the usual dispatch export: semicolon separated,
// double quotes, backslash escapes, charset detected.
func DefaultOptions() Options {
	return Options{
		Delimiter: ';',
		Quote:     '"',
		Escape:    '\\',
		Encoding:  "auto",
	}
}

// Row is one data row of the input.
type Row struct {
	Line   int      // 1-based physical line the record starts on
	Cells  []string // NFC-normalized cell values
	Header []string // normalized header names
}

// Assoc zips the row with the header. Missing trailing cells are empty
// strings and cells beyond the header are dropped.
func (r Row) Assoc() map[string]string {
	out := make(map[string]string, len(r.Header))
	for i, name := range r.Header {
		if i < len(r.Cells) {
			out[name] = r.Cells[i]
		} else {
			out[name] = ""
		}
	}
	return out
}

// Source is a forward-only sequence of rows.
type Source interface {
	// Header returns the normalized header names.
	Header() []string
	// Encoding reports the charset the file was decoded from.
	Encoding() string
	// Next returns the next non-empty row, or io.EOF.
	Next() (Row, error)
	Close() error
}

// Open opens the file at path. Files ending in .xlsx are read with
// OpenXLSX; everything else is treated as CSV.
func Open(path string, opts Options) (Source, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return OpenXLSX(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}

	r, err := NewReader(f, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Reader is a CSV Source.
type Reader struct {
	tok      *tokenizer
	counter  *CountingReader
	header   []string
	encoding string
	closer   io.Closer
}

// NewReader decodes r and reads its header row.
func NewReader(r io.Reader, opts Options) (*Reader, error) {
	if opts.Delimiter == 0 {
		opts.Delimiter = ';'
	}

	counter := NewCountingReader(r)
	text, enc, err := decode(counter, opts.Encoding)
	if err != nil {
		return nil, err
	}

	rd := &Reader{
		tok:      newTokenizer(text, opts),
		counter:  counter,
		encoding: enc,
	}

	cells, _, err := rd.tok.readRecord()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: missing header row", ErrMalformedSource)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", ErrMalformedSource, err)
	}

	normalizeCells(cells)
	cells[0] = strings.TrimPrefix(cells[0], "\uFEFF")
	// UTF-8 BOM read through a single-byte charset
	cells[0] = strings.TrimPrefix(cells[0], "\u00EF\u00BB\u00BF")
	if isEmptyRow(cells) {
		return nil, fmt.Errorf("%w: header row is empty", ErrMalformedSource)
	}

	rd.header = NormalizeHeaders(cells)
	return rd, nil
}

// Header implements Source.
func (r *Reader) Header() []string { return r.header }

// Encoding implements Source.
func (r *Reader) Encoding() string { return r.encoding }

// BytesRead reports how many raw bytes have been consumed so far.
func (r *Reader) BytesRead() int64 { return r.counter.BytesRead }

// Next implements Source. Rows whose cells are all blank are skipped.
func (r *Reader) Next() (Row, error) {
	for {
		cells, line, err := r.tok.readRecord()
		if err != nil {
			return Row{}, err
		}
		if isEmptyRow(cells) {
			continue
		}
		normalizeCells(cells)
		return Row{Line: line, Cells: cells, Header: r.header}, nil
	}
}

// Close implements Source.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func normalizeCells(cells []string) {
	for i, c := range cells {
		cells[i] = norm.NFC.String(c)
	}
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
