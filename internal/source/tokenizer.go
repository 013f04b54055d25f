package source

import (
	"bufio"
	"io"
	"strings"
)

// tokenizer splits decoded text into CSV records.
//
// encoding/csv cannot be used here: dispatch exports need a configurable
// quote character (including none at all) and a backslash escape inside
// quoted fields. Quotes are lenient: a quote in the middle of an unquoted
// field is kept as a literal character, and text after a closing quote is
// appended to the field.
type tokenizer struct {
	r      *bufio.Reader
	delim  rune
	quote  rune // 0 disables quoting
	escape rune // 0 disables escaping
	line   int  // physical line of the next rune
}

func newTokenizer(r io.Reader, opts Options) *tokenizer {
	return &tokenizer{
		r:      bufio.NewReader(r),
		delim:  opts.Delimiter,
		quote:  opts.Quote,
		escape: opts.Escape,
		line:   1,
	}
}

// readRecord returns the next record and the physical line it starts on.
// It returns io.EOF once the input is exhausted.
func (t *tokenizer) readRecord() ([]string, int, error) {
	start := t.line

	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
		started  bool // anything consumed for this record
		fieldHas bool // field has content or was opened with a quote
	)

	finishField := func() {
		fields = append(fields, field.String())
		field.Reset()
		fieldHas = false
	}

	for {
		r, _, err := t.r.ReadRune()
		if err == io.EOF {
			if !started {
				return nil, start, io.EOF
			}
			finishField()
			return fields, start, nil
		}
		if err != nil {
			return nil, start, err
		}
		started = true

		if inQuotes {
			switch {
			case t.escape != 0 && r == t.escape && t.escape != t.quote:
				next, _, err := t.r.ReadRune()
				if err == io.EOF {
					field.WriteRune(r)
					continue
				}
				if err != nil {
					return nil, start, err
				}
				if next == t.quote || next == t.escape {
					field.WriteRune(next)
					continue
				}
				field.WriteRune(r)
				_ = t.r.UnreadRune()
			case r == t.quote:
				next, _, err := t.r.ReadRune()
				if err == nil && next == t.quote {
					field.WriteRune(t.quote)
					continue
				}
				if err == nil {
					_ = t.r.UnreadRune()
				}
				inQuotes = false
			case r == '\n':
				t.line++
				field.WriteRune(r)
			case r == '\r':
				field.WriteRune(r)
				if next, _, err := t.r.ReadRune(); err == nil {
					_ = t.r.UnreadRune()
					if next != '\n' {
						t.line++
					}
				}
			default:
				field.WriteRune(r)
			}
			continue
		}

		switch {
		case r == t.delim:
			finishField()
		case r == '\n':
			t.line++
			finishField()
			return fields, start, nil
		case r == '\r':
			next, _, err := t.r.ReadRune()
			if err == nil && next != '\n' {
				_ = t.r.UnreadRune()
			}
			t.line++
			finishField()
			return fields, start, nil
		case t.quote != 0 && r == t.quote && !fieldHas:
			inQuotes = true
			fieldHas = true
		default:
			field.WriteRune(r)
			fieldHas = true
		}
	}
}
