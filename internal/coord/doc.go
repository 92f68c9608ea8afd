// Package coord converts between byte offsets and LSP (line, column)
// positions within a snapshot of document text.
//
// This is the L1 layer of the diff engine: a pure function of the text it is
// given, with no knowledge of JSON-RPC, documents, or buffers. The diff and
// proxy layers call it to translate Myers byte offsets into LSP positions and
// back.
//
// It is grounded on the teacher's internal/lsp/position.go PositionConverter,
// generalized in two ways that package did not cover:
//
//   - Line terminators recognized are the full set named by the LSP
//     specification for line counting: "\n", "\r\n", "\r", NEL (U+0085),
//     LS (U+2028), and PS (U+2029). The teacher's converter (like the
//     line index of the since-removed internal/rope package) only
//     recognized '\n'.
//   - Columns are reported directly in UTF-16 code units rather than bytes,
//     so no separate post-conversion pass is needed by callers (spec option
//     (a) for the column-unit choice).
package coord
