package lexer

import (
	"fmt"
	"unicode/utf8"

	"fortio.org/safecast"

	"gard/internal/source"
)

// Cursor walks the bytes of a file window [Off, end). Template holes are
// lexed by a sub-cursor sharing the same window.
type Cursor struct {
	File *source.File
	Off  uint32
	end  uint32
}

// NewCursor covers the whole file. Files over 4GiB cannot be addressed by
// uint32 spans and are rejected when loaded, so overflow here is a bug.
func NewCursor(f *source.File) Cursor {
	end, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("lexer: file too large: %w", err))
	}
	return Cursor{File: f, end: end}
}

// fork returns an independent cursor at the same position and window.
func (c *Cursor) fork() Cursor { return *c }

func (c *Cursor) EOF() bool { return c.Off >= c.end }

// Peek returns the current byte, 0 at the end.
func (c *Cursor) Peek() byte { return c.PeekAt(0) }

// PeekAt returns the byte n positions ahead, 0 past the end.
func (c *Cursor) PeekAt(n uint32) byte {
	if c.Off+n >= c.end {
		return 0
	}
	return c.File.Content[c.Off+n]
}

// Bump consumes one byte.
func (c *Cursor) Bump() byte {
	b := c.Peek()
	if !c.EOF() {
		c.Off++
	}
	return b
}

// Eat consumes b if it is next.
func (c *Cursor) Eat(b byte) bool {
	if c.EOF() || c.File.Content[c.Off] != b {
		return false
	}
	c.Off++
	return true
}

// EatString consumes s if the input continues with it.
func (c *Cursor) EatString(s string) bool {
	n := uint32(len(s))
	if c.Off+n > c.end || string(c.File.Content[c.Off:c.Off+n]) != s {
		return false
	}
	c.Off += n
	return true
}

// PeekRune decodes the next rune. size is 0 at the end and on invalid UTF-8.
func (c *Cursor) PeekRune() (r rune, size int) {
	if c.EOF() {
		return utf8.RuneError, 0
	}
	if b := c.File.Content[c.Off]; b < utf8.RuneSelf {
		return rune(b), 1
	}
	r, size = utf8.DecodeRune(c.File.Content[c.Off:c.end])
	if r == utf8.RuneError && size <= 1 {
		return r, 0
	}
	return r, size
}

// BumpRune consumes one rune, or one byte of invalid input.
func (c *Cursor) BumpRune() {
	if _, size := c.PeekRune(); size > 1 {
		c.Off += uint32(size)
		return
	}
	c.Bump()
}

// Mark: метка для быстрого получения Span.
type Mark uint32

func (c *Cursor) Mark() Mark { return Mark(c.Off) }

// SpanFrom returns the span from m to the current offset.
func (c *Cursor) SpanFrom(m Mark) source.Span {
	return source.Span{File: c.File.ID, Start: uint32(m), End: c.Off}
}

func (c *Cursor) Reset(m Mark) { c.Off = uint32(m) }
