package source

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Encoding names reported by Reader.Encoding.
const (
	EncodingUTF8        = "utf-8"
	EncodingUTF16       = "utf-16"
	EncodingWindows1252 = "windows-1252"
)

// sniffSize is how much of the file is inspected when the encoding is "auto".
const sniffSize = 64 * 1024

// ErrUnknownEncoding is returned for an encoding hint that names no known charset.
var ErrUnknownEncoding = errors.New("unknown encoding")

// decode wraps r so that it yields UTF-8 text. hint is "auto" (or empty)
// to detect the charset, otherwise a WHATWG encoding label such as
// "windows-1252", "latin1" or "utf-8".
func decode(r io.Reader, hint string) (io.Reader, string, error) {
	br := bufio.NewReaderSize(r, sniffSize)

	var (
		enc  encoding.Encoding
		name string
	)

	if hint == "" || strings.EqualFold(hint, "auto") {
		sample, err := br.Peek(sniffSize)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, "", fmt.Errorf("sniff encoding: %w", err)
		}
		name = detectEncoding(sample, len(sample) < sniffSize)
	} else {
		var err error
		enc, err = htmlindex.Get(hint)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %q", ErrUnknownEncoding, hint)
		}
		name, err = htmlindex.Name(enc)
		if err != nil {
			name = strings.ToLower(hint)
		}
	}

	switch name {
	case EncodingUTF8:
		return newUTF8Sanitizer(newBOMReader(br)), name, nil
	case EncodingUTF16, "utf-16le", "utf-16be":
		if enc == nil {
			enc = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM)
		}
	case EncodingWindows1252:
		if enc == nil {
			enc = charmap.Windows1252
		}
	}

	if enc == nil {
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return transform.NewReader(br, enc.NewDecoder()), name, nil
}

// detectEncoding guesses the charset of a file from its first bytes.
// Dispatch exports are UTF-8, UTF-16 with BOM (Excel "Unicode text") or
// Windows-1252; anything that is not valid UTF-8 is treated as the latter.
// A UTF-8 BOM settles it: stray invalid bytes are left to the sanitizer.
func detectEncoding(sample []byte, complete bool) string {
	if bytes.HasPrefix(sample, utf8BOM) {
		return EncodingUTF8
	}
	if len(sample) >= 2 {
		if (sample[0] == 0xFF && sample[1] == 0xFE) || (sample[0] == 0xFE && sample[1] == 0xFF) {
			return EncodingUTF16
		}
	}

	if !complete {
		sample = sample[:len(sample)-incompleteTrailingBytes(sample)]
	}
	if utf8.Valid(sample) {
		return EncodingUTF8
	}
	return EncodingWindows1252
}
