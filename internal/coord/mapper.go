package coord

import "unicode/utf8"

// Position is a zero-indexed (line, column) pair. Column is counted in
// UTF-16 code units, matching the LSP wire contract.
type Position struct {
	Line   int
	Column int
}

// Less reports whether p sorts strictly before o.
func (p Position) Less(o Position) bool {
	if p.Line != o.Line {
		return p.Line < o.Line
	}
	return p.Column < o.Column
}

// lineSpan describes one line's extent within Mapper.content: the byte range
// of its content (excluding the terminator) and the byte length of whatever
// terminator follows it (0 for the final line, which has none).
type lineSpan struct {
	byteOffset int
	byteLen    int
	termLen    int
	utf16Len   int
}

// Mapper converts between byte offsets and Positions for a fixed snapshot of
// text. It recognizes the full LSP line-terminator set: "\n", "\r\n", "\r",
// NEL (U+0085), LS (U+2028), and PS (U+2029); "\r\n" counts as a single line
// break.
type Mapper struct {
	content string
	lines   []lineSpan
}

// NewMapper builds a Mapper over content. Building is O(n) in the length of
// content; once built, ByteToPosition and PositionToByte are O(line count).
func NewMapper(content string) *Mapper {
	m := &Mapper{content: content}
	m.build()
	return m
}

func (m *Mapper) build() {
	n := len(m.content)
	start := 0
	i := 0
	for i < n {
		termLen := terminatorLenAt(m.content, i)
		if termLen == 0 {
			_, size := utf8.DecodeRuneInString(m.content[i:])
			i += size
			continue
		}
		m.lines = append(m.lines, lineSpan{
			byteOffset: start,
			byteLen:    i - start,
			termLen:    termLen,
			utf16Len:   utf16Len(m.content[start:i]),
		})
		i += termLen
		start = i
	}
	m.lines = append(m.lines, lineSpan{
		byteOffset: start,
		byteLen:    n - start,
		termLen:    0,
		utf16Len:   utf16Len(m.content[start:n]),
	})
}

// terminatorLenAt returns the byte length of the line terminator starting at
// s[i], or 0 if s[i] does not begin one. "\r\n" is reported as length 2 (one
// line break, not two).
func terminatorLenAt(s string, i int) int {
	if i >= len(s) {
		return 0
	}
	switch s[i] {
	case '\n':
		return 1
	case '\r':
		if i+1 < len(s) && s[i+1] == '\n' {
			return 2
		}
		return 1
	}
	r, size := utf8.DecodeRuneInString(s[i:])
	switch r {
	case '\u0085', '\u2028', '\u2029':
		return size
	}
	return 0
}

// LineCount returns the number of lines: the number of line terminators plus
// one. A trailing terminator produces one real, empty trailing line rather
// than being absorbed (line_count("a\n") == 2).
func (m *Mapper) LineCount() int {
	return len(m.lines)
}

// Len returns the byte length of the mapped content.
func (m *Mapper) Len() int {
	return len(m.content)
}

// LineText returns the content of line l, excluding its terminator.
func (m *Mapper) LineText(l int) string {
	if l < 0 || l >= len(m.lines) {
		return ""
	}
	ln := m.lines[l]
	return m.content[ln.byteOffset : ln.byteOffset+ln.byteLen]
}

// LineToByte returns the byte offset of the first byte of line l.
// LineToByte(LineCount()) equals Len().
func (m *Mapper) LineToByte(l int) int {
	if l < 0 {
		l = 0
	}
	if l >= len(m.lines) {
		return len(m.content)
	}
	return m.lines[l].byteOffset
}

// ByteToPosition returns the Position at which byte offset b begins. b is
// clamped to [0, Len()]. Offsets not on a scalar boundary are rounded down
// first (see PrevScalarBoundary).
func (m *Mapper) ByteToPosition(b int) Position {
	if b < 0 {
		b = 0
	}
	if b > len(m.content) {
		b = len(m.content)
	}
	b = PrevScalarBoundary(m.content, b)

	idx := m.lineIndexForByte(b)
	ln := m.lines[idx]
	within := b - ln.byteOffset
	if within < 0 {
		within = 0
	}
	if within > ln.byteLen {
		within = ln.byteLen
	}
	col := utf16Len(m.content[ln.byteOffset : ln.byteOffset+within])
	return Position{Line: idx, Column: col}
}

func (m *Mapper) lineIndexForByte(b int) int {
	for i, ln := range m.lines {
		lineEnd := ln.byteOffset + ln.byteLen + ln.termLen
		if i == len(m.lines)-1 || b < lineEnd {
			return i
		}
	}
	return len(m.lines) - 1
}

// PositionToByte converts a Position back to a byte offset. A line beyond the
// last line maps to Len(); a column beyond the line's length maps to the
// line's end (before its terminator).
func (m *Mapper) PositionToByte(pos Position) int {
	if pos.Line < 0 {
		pos.Line = 0
	}
	if pos.Line >= len(m.lines) {
		return len(m.content)
	}
	ln := m.lines[pos.Line]
	lineContent := m.content[ln.byteOffset : ln.byteOffset+ln.byteLen]
	return ln.byteOffset + byteOffsetForUTF16Column(lineContent, pos.Column)
}

// PrevScalarBoundary returns the largest index <= idx that lies on a UTF-8
// scalar boundary within s. Used to snap byte offsets that land inside a
// multi-byte rune down to the start of that rune.
func PrevScalarBoundary(s string, idx int) int {
	if idx <= 0 {
		return 0
	}
	if idx >= len(s) {
		return len(s)
	}
	for idx > 0 && !utf8.RuneStart(s[idx]) {
		idx--
	}
	return idx
}

// CountLineBreaks returns the number of line terminators in s, using the same
// terminator set as Mapper ("\r\n" counts once).
func CountLineBreaks(s string) int {
	count := 0
	i := 0
	for i < len(s) {
		if tl := terminatorLenAt(s, i); tl > 0 {
			count++
			i += tl
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return count
}

// LastLineUTF16Length returns the UTF-16 length of the text in s following
// its final line terminator (the text of s's last line). If s contains no
// terminator, it is s in its entirety.
func LastLineUTF16Length(s string) int {
	lastStart := 0
	i := 0
	for i < len(s) {
		if tl := terminatorLenAt(s, i); tl > 0 {
			i += tl
			lastStart = i
			continue
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return utf16Len(s[lastStart:])
}

// UTF16Len returns the length of s in UTF-16 code units.
func UTF16Len(s string) int {
	return utf16Len(s)
}

// utf16Len returns the length of s in UTF-16 code units.
func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		if r >= 0x10000 {
			n += 2
		} else {
			n++
		}
	}
	return n
}

// byteOffsetForUTF16Column returns the byte offset within s of the utf16Col-th
// UTF-16 code unit. A column beyond s's length maps to len(s).
func byteOffsetForUTF16Column(s string, utf16Col int) int {
	if utf16Col <= 0 {
		return 0
	}
	units := 0
	for i, r := range s {
		if units >= utf16Col {
			return i
		}
		if r >= 0x10000 {
			units += 2
		} else {
			units++
		}
	}
	return len(s)
}
