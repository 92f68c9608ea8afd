package diff

import (
	"testing"

	"github.com/dshills/lspdiffproxy/internal/coord"
	"github.com/dshills/lspdiffproxy/internal/protocol"
)

func TestLine_Identity(t *testing.T) {
	if got := Line("a\nb\n", "a\nb\n"); got != nil {
		t.Fatalf("expected nil for identical text, got %+v", got)
	}
}

func TestLine_LineLevelReplacement(t *testing.T) {
	events := Line("alpha\nbeta\ngamma\n", "alpha\nBETA\ngamma\n")

	want := []protocol.TextDocumentContentChangeEvent{
		{
			Range: &protocol.Range{Start: protocol.Position{Line: 1, Character: 0}, End: protocol.Position{Line: 2, Character: 0}},
			Text:  "BETA\n",
		},
	}
	assertEventsEqual(t, events, want)
}

func TestLine_PureAppend(t *testing.T) {
	events := Line("a\nb\n", "a\nb\nc\nd\n")

	want := []protocol.TextDocumentContentChangeEvent{
		{
			Range:       &protocol.Range{Start: protocol.Position{Line: 2, Character: 0}, End: protocol.Position{Line: 2, Character: 0}},
			RangeLength: &zero,
			Text:        "c\nd\n",
		},
	}
	assertEventsEqual(t, events, want)
}

func TestLine_DeleteTrailingLines(t *testing.T) {
	events := Line("a\nb\nc\n", "a\n")

	want := []protocol.TextDocumentContentChangeEvent{
		{
			Range: &protocol.Range{Start: protocol.Position{Line: 1, Character: 0}, End: protocol.Position{Line: 3, Character: 0}},
			Text:  "",
		},
	}
	assertEventsEqual(t, events, want)
}

func TestLine_RoundTrip(t *testing.T) {
	cases := [][2]string{
		{"alpha\nbeta\ngamma\n", "alpha\nBETA\ngamma\n"},
		{"a\nb\n", "a\nb\nc\nd\n"},
		{"a\nb\nc\n", "a\n"},
		{"", "a\nb\n"},
		{"a\nb\n", ""},
		{"a\r\nb\r\nc\r\n", "a\r\nB\r\nc\r\n"},
		{"one line no trailing newline", "one line no trailing newline, changed"},
	}

	for _, c := range cases {
		events := Line(c[0], c[1])
		got := applyEvents(t, c[0], events)
		if got != c[1] {
			t.Errorf("Line(%q, %q): round-trip got %q", c[0], c[1], got)
		}
	}
}

func TestLine_NoNoOpEvents(t *testing.T) {
	events := Line("a\nb\nc\n", "a\nX\nc\n")
	for i, e := range events {
		if e.Text == "" && e.Range != nil && e.Range.Start == e.Range.End {
			t.Errorf("event %d is a no-op: %+v", i, e)
		}
	}
}

func TestLine_InsertionAtDocumentStart(t *testing.T) {
	events := Line("b\n", "a\nb\n")
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %+v", events)
	}
	want := protocol.Position{Line: 0, Character: 0}
	if events[0].Range.Start != want || events[0].Range.End != want {
		t.Fatalf("Range = %+v, want start==end==%+v", events[0].Range, want)
	}
}

func TestSplitLinesKeepEnds_Roundtrip(t *testing.T) {
	inputs := []string{
		"",
		"a",
		"a\n",
		"a\nb\nc",
		"a\r\nb\rc\n",
	}
	for _, in := range inputs {
		lines := splitLinesKeepEnds(in)
		joined := ""
		for _, l := range lines {
			joined += l
		}
		if joined != in {
			t.Errorf("splitLinesKeepEnds(%q) did not reassemble: got %q", in, joined)
		}
	}
}

func TestLine_MatchesCoordMapperLineCount(t *testing.T) {
	s := "one\ntwo\nthree\n"
	m := coord.NewMapper(s)
	lines := splitLinesKeepEnds(s)
	if len(lines) != m.LineCount() {
		t.Fatalf("splitLinesKeepEnds produced %d lines, coord.Mapper reports %d", len(lines), m.LineCount())
	}
}
