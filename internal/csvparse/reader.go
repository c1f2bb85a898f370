package csvparse

// reader.go prepares raw input for Parse.
//
// Spreadsheet exports frequently start with a UTF-8 byte order mark and
// occasionally contain bytes that are not valid UTF-8. Both are cleaned up
// while reading so the parser only ever sees text:
//
//   - BOMSkippingReader drops a leading 0xEF 0xBB 0xBF
//   - UTF8Sanitizer replaces invalid bytes with '?'
//
// NewInputReader applies both in the right order; Clean does the same for
// text that is already in memory, such as a pasted form field.

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// ErrInputTooLarge is returned by ReadLimited when the input exceeds the limit.
var ErrInputTooLarge = errors.New("input too large")

var utf8BOM = [3]byte{0xEF, 0xBB, 0xBF}

// BOMSkippingReader drops a UTF-8 byte order mark at the start of the stream.
type BOMSkippingReader struct {
	r       io.Reader
	checked bool
	head    []byte
}

// NewBOMSkippingReader wraps r.
func NewBOMSkippingReader(r io.Reader) *BOMSkippingReader {
	return &BOMSkippingReader{r: r}
}

// Read implements io.Reader.
func (b *BOMSkippingReader) Read(p []byte) (int, error) {
	if !b.checked {
		b.checked = true

		var buf [3]byte
		n, err := io.ReadFull(b.r, buf[:])
		switch {
		case n == 3 && buf == utf8BOM:
			// swallowed
		case n > 0:
			b.head = append([]byte(nil), buf[:n]...)
		}
		if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
			return 0, err
		}
		if n < 3 && len(b.head) == 0 {
			return 0, io.EOF
		}
	}

	if len(b.head) > 0 {
		n := copy(p, b.head)
		b.head = b.head[n:]
		return n, nil
	}

	return b.r.Read(p)
}

// UTF8Sanitizer replaces bytes that are not part of a valid UTF-8 sequence
// with '?'. Multi-byte sequences split across reads are carried over to the
// next read so they are not mistaken for invalid bytes.
type UTF8Sanitizer struct {
	r     io.Reader
	raw   []byte
	out   []byte
	carry []byte
	eof   bool
}

// NewUTF8Sanitizer wraps r.
func NewUTF8Sanitizer(r io.Reader) *UTF8Sanitizer {
	return &UTF8Sanitizer{r: r}
}

// Read implements io.Reader.
func (s *UTF8Sanitizer) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for len(s.out) == 0 {
		if s.eof && len(s.carry) == 0 {
			return 0, io.EOF
		}
		if err := s.fill(len(p)); err != nil {
			return 0, err
		}
	}

	n := copy(p, s.out)
	s.out = s.out[n:]
	return n, nil
}

// fill reads the next chunk from the underlying reader and sanitizes it
// into s.out.
func (s *UTF8Sanitizer) fill(size int) error {
	if size < 512 {
		size = 512
	}
	if cap(s.raw) < size+utf8.UTFMax {
		s.raw = make([]byte, 0, size+utf8.UTFMax)
	}

	buf := append(s.raw[:0], s.carry...)
	s.carry = s.carry[:0]

	if !s.eof {
		n, err := s.r.Read(buf[len(buf) : len(buf)+size])
		buf = buf[:len(buf)+n]
		switch {
		case err == io.EOF:
			s.eof = true
		case err != nil:
			return err
		}
	}

	// Hold back a trailing partial sequence until more bytes arrive.
	if !s.eof {
		if k := partialTail(buf); k > 0 {
			s.carry = append(s.carry, buf[len(buf)-k:]...)
			buf = buf[:len(buf)-k]
		}
	}

	out := make([]byte, 0, len(buf))
	for i := 0; i < len(buf); {
		r, size := utf8.DecodeRune(buf[i:])
		if r == utf8.RuneError && size <= 1 {
			out = append(out, '?')
			i++
			continue
		}
		out = append(out, buf[i:i+size]...)
		i += size
	}
	s.out = out
	return nil
}

// partialTail returns how many bytes at the end of buf form the beginning of
// a multi-byte sequence that is not yet complete.
func partialTail(buf []byte) int {
	for k := 1; k < utf8.UTFMax && k <= len(buf); k++ {
		c := buf[len(buf)-k]
		if c < 0x80 {
			return 0
		}
		if c >= 0xC0 {
			if !utf8.FullRune(buf[len(buf)-k:]) {
				return k
			}
			return 0
		}
	}
	return 0
}

// NewInputReader strips a BOM and sanitizes UTF-8 in one wrapper.
func NewInputReader(r io.Reader) io.Reader {
	return NewUTF8Sanitizer(NewBOMSkippingReader(r))
}

// ReadLimited reads all of r through NewInputReader. A max of zero or less
// disables the limit.
func ReadLimited(r io.Reader, max int64) (string, error) {
	src := NewInputReader(r)
	if max > 0 {
		src = io.LimitReader(src, max+1)
	}

	data, err := io.ReadAll(src)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	if max > 0 && int64(len(data)) > max {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrInputTooLarge, max)
	}
	return string(data), nil
}

// Clean strips a leading byte order mark and replaces invalid UTF-8 exactly
// as NewInputReader does. Text that needs neither is returned unchanged.
func Clean(text string) string {
	if !strings.HasPrefix(text, string(utf8BOM[:])) && utf8.ValidString(text) {
		return text
	}
	out, _ := io.ReadAll(NewInputReader(strings.NewReader(text)))
	return string(out)
}

// ParseReader reads all of r and parses it. Only read errors are returned.
func ParseReader(r io.Reader) (Table, error) {
	text, err := ReadLimited(r, 0)
	if err != nil {
		return nil, err
	}
	return Parse(text), nil
}
