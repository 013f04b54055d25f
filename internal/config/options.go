package config

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/JonMunkholm/allocimport/internal/source"
)

// disabled turns off quoting or escaping.
const disabled = "none"

// CSVOptions converts the CSV settings into reader options.
func (c *ImportConfig) CSVOptions() (source.Options, error) {
	opts := source.DefaultOptions()

	delim, err := parseChar(c.Delimiter, false)
	if err != nil {
		return opts, fmt.Errorf("IMPORT_CSV_DELIMITER: %w", err)
	}
	quote, err := parseChar(c.Quote, true)
	if err != nil {
		return opts, fmt.Errorf("IMPORT_CSV_QUOTE: %w", err)
	}
	escape, err := parseChar(c.Escape, true)
	if err != nil {
		return opts, fmt.Errorf("IMPORT_CSV_ESCAPE: %w", err)
	}

	opts.Delimiter = delim
	opts.Quote = quote
	opts.Escape = escape
	if c.Encoding != "" {
		opts.Encoding = c.Encoding
	}
	return opts, nil
}

// Location loads the configured time zone.
func (c *ImportConfig) Location() (*time.Location, error) {
	if c.TimeZone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("IMPORT_TIME_ZONE: %w", err)
	}
	return loc, nil
}

func parseChar(s string, allowNone bool) (rune, error) {
	if allowNone && strings.EqualFold(s, disabled) {
		return 0, nil
	}
	if s == `\t` {
		return '\t', nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("must be a single character, got %q", s)
	}
	r, _ := utf8.DecodeRuneInString(s)
	if r == '\n' || r == '\r' {
		return 0, fmt.Errorf("line breaks are not allowed")
	}
	return r, nil
}
