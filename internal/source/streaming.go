package source

// streaming.go provides the byte-level readers that sit between the input
// file and the CSV tokenizer:
//
//   - bomReader: drops a leading UTF-8 byte-order mark
//   - utf8Sanitizer: replaces invalid UTF-8 bytes with '?' without buffering the file
//   - CountingReader: counts raw bytes consumed, for logging
//
// All of them keep memory use at O(buffer size) regardless of file size.

import (
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// bomReader skips a UTF-8 BOM at the very start of the stream.
type bomReader struct {
	r       io.Reader
	checked bool
	pending []byte
}

func newBOMReader(r io.Reader) *bomReader {
	return &bomReader{r: r}
}

func (b *bomReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true

		head := make([]byte, len(utf8BOM))
		n, err := io.ReadFull(b.r, head)
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return 0, err
		}
		head = head[:n]
		if !bytes.Equal(head, utf8BOM) {
			b.pending = head
		}
	}

	if len(b.pending) > 0 {
		n := copy(p, b.pending)
		b.pending = b.pending[n:]
		return n, nil
	}
	return b.r.Read(p)
}

// utf8Sanitizer replaces invalid UTF-8 bytes with '?' on the fly. Bytes that
// may start a multi-byte sequence split across reads are held back until the
// next read.
type utf8Sanitizer struct {
	r       io.Reader
	pending []byte
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{r: r, pending: make([]byte, 0, utf8.UTFMax)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	offset := 0
	if len(s.pending) > 0 {
		offset = copy(p, s.pending)
		s.pending = s.pending[:0]
	}

	n, err := s.r.Read(p[offset:])
	n += offset
	if n == 0 {
		return 0, err
	}

	if isASCII(p[:n]) {
		return n, err
	}
	return s.sanitize(p[:n], err == io.EOF), err
}

// sanitize rewrites data in place and returns the number of bytes to hand out.
func (s *utf8Sanitizer) sanitize(data []byte, atEOF bool) int {
	if !atEOF {
		if trailing := incompleteTrailingBytes(data); trailing > 0 {
			s.pending = append(s.pending, data[len(data)-trailing:]...)
			data = data[:len(data)-trailing]
		}
	}
	if utf8.Valid(data) {
		return len(data)
	}

	write := 0
	for read := 0; read < len(data); {
		r, size := utf8.DecodeRune(data[read:])
		if r == utf8.RuneError && size == 1 {
			// '?' keeps the output no longer than the input.
			data[write] = '?'
			write++
			read++
			continue
		}
		copy(data[write:], data[read:read+size])
		write += size
		read += size
	}
	return write
}

func isASCII(data []byte) bool {
	for _, b := range data {
		if b >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// incompleteTrailingBytes reports how many bytes at the end of data form the
// beginning of a multi-byte sequence that is not yet complete.
func incompleteTrailingBytes(data []byte) int {
	for i := 1; i <= utf8.UTFMax-1 && i <= len(data); i++ {
		b := data[len(data)-i]
		if b >= 0xC0 {
			if i < sequenceLen(b) {
				return i
			}
			return 0
		}
		if b&0xC0 != 0x80 {
			return 0
		}
	}
	return 0
}

func sequenceLen(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC0:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	default:
		return 4
	}
}

// CountingReader counts the raw bytes read from the underlying reader.
type CountingReader struct {
	r         io.Reader
	BytesRead int64
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

// Read implements io.Reader.
func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}
