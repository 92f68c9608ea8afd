package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/dshills/lspdiffproxy/internal/diff"
	"github.com/dshills/lspdiffproxy/internal/protocol"
)

// notification is the wire envelope for an outbound JSON-RPC notification.
// Re-marshaled from the decoded Go struct rather than patched in place with
// sjson: the params are already being unmarshaled to run the diff, so there
// is no raw-JSON surgery left to do by the time the rewritten contentChanges
// are ready (see SPEC_FULL.md §4.5).
type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// handleWholeDocumentChange rewrites a didChange notification whose
// contentChanges are all whole-document replacements into line-granularity
// edits against the document store's last known text, then forwards the
// rewritten notification and applies the same edits to the store.
func (p *Proxy) handleWholeDocumentChange(ctx context.Context, msg json.RawMessage) error {
	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal([]byte(gjson.GetBytes(msg, "params").Raw), &params); err != nil {
		return fmt.Errorf("decode didChange params: %w", err)
	}

	uri := params.TextDocument.URI
	current, ok := p.store.Text(uri)
	if !ok {
		// No tracked text (e.g. a didOpen the store missed); forward the
		// original whole-document replace rather than diff against nothing.
		return p.forwardAndTrackChange(ctx, msg)
	}

	rewritten := make([]protocol.TextDocumentContentChangeEvent, 0, len(params.ContentChanges))
	for _, change := range params.ContentChanges {
		if p.exceedsLimits(current, change.Text) {
			rewritten = append(rewritten, protocol.TextDocumentContentChangeEvent{Text: change.Text})
			current = change.Text
			continue
		}
		rewritten = append(rewritten, diff.Line(current, change.Text)...)
		current = change.Text
	}

	out := notification{
		JSONRPC: "2.0",
		Method:  methodDidChange,
		Params: protocol.DidChangeTextDocumentParams{
			TextDocument:   params.TextDocument,
			ContentChanges: rewritten,
		},
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal rewritten didChange: %w", err)
	}

	t, err := p.serverTransport(ctx)
	if err != nil {
		return err
	}
	if err := t.WriteMessage(data); err != nil {
		return fmt.Errorf("forward rewritten didChange: %w", err)
	}

	if err := p.store.Apply(uri, params.TextDocument.Version, rewritten); err != nil {
		p.logger.Warn("document store apply: %v", err)
	}
	return nil
}

// exceedsLimits reports whether diffing old against new would exceed the
// configured line-count or estimated-memory budget, mirroring the teacher's
// tracking.DiffOptions.MaxLines/MaxMemoryMB guard. A zero limit disables it.
func (p *Proxy) exceedsLimits(old, new string) bool {
	if p.limits.MaxDiffLines > 0 {
		lines := strings.Count(old, "\n") + strings.Count(new, "\n") + 2
		if lines > p.limits.MaxDiffLines {
			return true
		}
	}
	if p.limits.MaxDiffMemoryMB > 0 {
		const bytesPerMB = 1 << 20
		// The Myers trace keeps O(n+m) int state per diagonal; estimate
		// generously as proportional to the combined input size.
		estimate := (len(old) + len(new)) * 8
		if estimate > p.limits.MaxDiffMemoryMB*bytesPerMB {
			return true
		}
	}
	return false
}
