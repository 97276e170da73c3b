package mhtml

import "strings"

// Cursor is an explicit read position over the normalized archive text.
// The parser owns exactly one and threads it through every state; there
// is no package-level position.
type Cursor struct {
	src string
	pos int
}

// NewCursor normalizes line endings (some capturers emit CRLF, old Mac
// captures bare CR) and positions the cursor at the start of the text.
func NewCursor(text string) *Cursor {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return &Cursor{src: text}
}

// AtEnd reports whether the cursor has consumed all input
func (c *Cursor) AtEnd() bool {
	return c.pos >= len(c.src)
}

// NextLine returns the next line without its terminator and advances
// past it. ok is false once the input is exhausted.
func (c *Cursor) NextLine() (line string, ok bool) {
	if c.AtEnd() {
		return "", false
	}
	idx := strings.IndexByte(c.src[c.pos:], '\n')
	if idx < 0 {
		line = c.src[c.pos:]
		c.pos = len(c.src)
		return line, true
	}
	line = c.src[c.pos : c.pos+idx]
	c.pos += idx + 1
	return line, true
}

// SkipBlankLines advances past consecutive empty or whitespace-only lines
func (c *Cursor) SkipBlankLines() {
	for !c.AtEnd() {
		mark := c.pos
		line, _ := c.NextLine()
		if strings.TrimSpace(line) != "" {
			c.pos = mark
			return
		}
	}
}
