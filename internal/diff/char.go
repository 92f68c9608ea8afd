package diff

import (
	"github.com/dshills/lspdiffproxy/internal/coord"
	"github.com/dshills/lspdiffproxy/internal/protocol"
)

// zero is shared by every pure-insert event's RangeLength (see protocol's
// TextDocumentContentChangeEvent doc comment for why this must be a pointer).
var zero = 0

// Char runs a byte-level Myers diff between old (anchored in the enclosing
// document at anchor) and new, and returns the minimal batch of content
// change events that transforms old into new. Events are expressed in the
// enclosing document's absolute coordinate space.
//
// Grounded on original_source/src/chars_diff.rs's Incremental visitor: the
// same three operation kinds (delete/insert/replace), the same
// (line_offset, char_offset, on_line) running shift, and the same
// scalar-boundary snapping on the new-text slice.
func Char(old string, anchor coord.Position, new string) []protocol.TextDocumentContentChangeEvent {
	if old == new {
		return nil
	}

	// Strip the common byte prefix/suffix before Myers, so a run of
	// identical bytes at either end is kept whole rather than split.
	prefix := 0
	for prefix < len(old) && prefix < len(new) && old[prefix] == new[prefix] {
		prefix++
	}
	suffix := 0
	for suffix < len(old)-prefix && suffix < len(new)-prefix && old[len(old)-1-suffix] == new[len(new)-1-suffix] {
		suffix++
	}
	oldMid, newMid := old[prefix:len(old)-suffix], new[prefix:len(new)-suffix]
	ops := groupOps(myers(len(oldMid), len(newMid), func(i, j int) bool { return oldMid[i] == newMid[j] }))
	for i := range ops {
		ops[i].OldStart += prefix
		ops[i].NewStart += prefix
	}
	if len(ops) == 0 {
		return nil
	}

	oldMapper := coord.NewMapper(old)

	lineOffset := anchor.Line
	charOffset := anchor.Column
	onLine := 0

	var events []protocol.TextDocumentContentChangeEvent

	for _, op := range ops {
		localStart := oldMapper.ByteToPosition(op.OldStart)

		if localStart.Line != onLine {
			onLine = localStart.Line
			charOffset = 0
		}

		startAbs := coord.Position{
			Line:   lineOffset + localStart.Line,
			Column: charOffset + localStart.Column,
		}

		switch op.Kind {
		case OpInsert:
			text := snapSlice(new, op.NewStart, op.NewStart+op.NewLen)
			events = append(events, protocol.TextDocumentContentChangeEvent{
				Range:       &protocol.Range{Start: toLSP(startAbs), End: toLSP(startAbs)},
				RangeLength: &zero,
				Text:        text,
			})

			k := coord.CountLineBreaks(text)
			lineOffset += k
			if k > 0 {
				charOffset = coord.LastLineUTF16Length(text) - localStart.Column
			} else {
				charOffset += coord.UTF16Len(text)
			}

		case OpDelete:
			localEnd := oldMapper.ByteToPosition(op.OldStart + op.OldLen)
			endAbs := coord.Position{
				Line:   lineOffset + localEnd.Line,
				Column: localEnd.Column,
			}
			if localEnd.Line == localStart.Line {
				endAbs.Column += charOffset
			}
			events = append(events, protocol.TextDocumentContentChangeEvent{
				Range: &protocol.Range{Start: toLSP(startAbs), End: toLSP(endAbs)},
				Text:  "",
			})

			lineOffset -= localEnd.Line - localStart.Line
			charOffset -= localEnd.Column - localStart.Column
			onLine = localEnd.Line

		case OpReplace:
			localEnd := oldMapper.ByteToPosition(op.OldStart + op.OldLen)
			endAbs := coord.Position{
				Line:   lineOffset + localEnd.Line,
				Column: localEnd.Column,
			}
			if localEnd.Line == localStart.Line {
				endAbs.Column += charOffset
			}
			text := snapSlice(new, op.NewStart, op.NewStart+op.NewLen)
			events = append(events, protocol.TextDocumentContentChangeEvent{
				Range: &protocol.Range{Start: toLSP(startAbs), End: toLSP(endAbs)},
				Text:  text,
			})

			k := coord.CountLineBreaks(text)
			lineOffset += k - (localEnd.Line - localStart.Line)
			if k > 0 {
				charOffset = coord.LastLineUTF16Length(text) - localEnd.Column
			} else {
				charOffset += coord.UTF16Len(text) + localStart.Column - localEnd.Column
			}
			onLine = localEnd.Line
		}
	}

	return events
}

// snapSlice returns new[start:end], rounding both bounds down to the nearest
// UTF-8 scalar boundary first. Myers indexes raw bytes, so a Myers-reported
// boundary can fall inside a multi-byte rune of new; both ends are always
// snapped downward, never upward (per spec: always snap down).
func snapSlice(s string, start, end int) string {
	start = coord.PrevScalarBoundary(s, start)
	end = coord.PrevScalarBoundary(s, end)
	if end < start {
		end = start
	}
	return s[start:end]
}

func toLSP(p coord.Position) protocol.Position {
	return protocol.Position{Line: p.Line, Character: p.Column}
}
