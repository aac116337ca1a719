package lexer

import (
	"errors"
	"io"
	"unicode/utf8"
)

// ErrInvalidUTF8 is returned when a byte sequence starts an invalid UTF-8
// encoding.
var ErrInvalidUTF8 = errors.New("lexer: invalid UTF-8 sequence")

// charReader decodes one UTF-8 scalar at a time from an underlying
// io.Reader using a rotating 4-byte window, so it never needs to buffer
// more than one code point's worth of bytes ahead.
type charReader struct {
	r      io.Reader
	buf    [4]byte
	bufLen int
}

func newCharReader(r io.Reader) *charReader {
	return &charReader{r: r}
}

// next returns the next rune, io.EOF at end of stream, or ErrInvalidUTF8 if
// the next byte begins an invalid sequence.
func (c *charReader) next() (rune, error) {
	var readErr error
	for c.bufLen < 4 && readErr == nil {
		n, err := c.r.Read(c.buf[c.bufLen:])
		c.bufLen += n
		readErr = err
	}
	if c.bufLen == 0 {
		if readErr != nil {
			return 0, readErr
		}
		return 0, io.EOF
	}

	r, size := utf8.DecodeRune(c.buf[:c.bufLen])
	if r == utf8.RuneError && size <= 1 {
		return 0, ErrInvalidUTF8
	}

	copy(c.buf[:], c.buf[size:c.bufLen])
	c.bufLen -= size
	return r, nil
}
