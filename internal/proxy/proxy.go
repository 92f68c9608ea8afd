// Package proxy wires the client-facing and server-facing JSON-RPC
// transports together with the document store and the downstream server
// supervisor. It is the component every other package in this module exists
// to serve.
//
// Grounded on original_source/src/main.rs's handle_rpc_msgs/change/open/close
// closures for the overall shape (forward everything; intercept a
// range-less textDocument/didChange), generalized to the teacher's
// goroutines-and-channels concurrency idiom (internal/lsp/supervisor.go's
// event channel, internal/lsp/document.go's mutex-guarded store) instead of
// original_source's single-threaded blocking stdin loop, since this proxy
// additionally has to survive downstream server restarts.
package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/dshills/lspdiffproxy/internal/documentstore"
	"github.com/dshills/lspdiffproxy/internal/jsonrpc"
	"github.com/dshills/lspdiffproxy/internal/logging"
	"github.com/dshills/lspdiffproxy/internal/protocol"
	"github.com/dshills/lspdiffproxy/internal/supervisor"
)

// Notification methods the router decodes. Every other method is forwarded
// without being unmarshaled.
const (
	methodDidOpen   = "textDocument/didOpen"
	methodDidChange = "textDocument/didChange"
	methodDidClose  = "textDocument/didClose"
)

// Limits bounds the cost of the line-level diff the router runs per
// qualifying didChange, mirroring the teacher's tracking.DiffOptions names.
type Limits struct {
	MaxDiffLines    int
	MaxDiffMemoryMB int
}

// Proxy relays JSON-RPC traffic between one client connection and one
// supervised downstream LSP server, rewriting whole-document didChange
// notifications into line-granularity edits along the way.
type Proxy struct {
	client *jsonrpc.Transport
	store  *documentstore.Store
	sup    *supervisor.Supervisor
	limits Limits
	logger *logging.Logger

	serverMu  sync.RWMutex
	server    *jsonrpc.Transport
	serverSet chan struct{}
}

// New creates a Proxy. client is the transport facing the editor; sup is the
// (not-yet-started) downstream server supervisor.
func New(client *jsonrpc.Transport, sup *supervisor.Supervisor, limits Limits, logger *logging.Logger) *Proxy {
	if logger == nil {
		logger = logging.NullLogger
	}
	return &Proxy{
		client:    client,
		store:     documentstore.NewStore(),
		sup:       sup,
		limits:    limits,
		logger:    logger,
		serverSet: make(chan struct{}),
	}
}

// Run starts the downstream server and pumps messages in both directions
// until ctx is cancelled or the downstream server fails permanently. It
// returns nil on a clean shutdown.
func (p *Proxy) Run(ctx context.Context) error {
	if err := p.sup.Start(ctx); err != nil {
		return fmt.Errorf("proxy: start downstream server: %w", err)
	}
	defer p.sup.Stop(context.Background())

	p.bindInstance(p.sup.Current())

	errCh := make(chan error, 2)
	go func() { errCh <- p.pumpClientToServer(ctx) }()
	go func() { errCh <- p.pumpServerToClient(ctx) }()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// bindInstance creates a server-side transport over inst's stdio and
// publishes it to the client->server pump.
func (p *Proxy) bindInstance(inst *supervisor.Instance) {
	if inst == nil {
		return
	}
	t := jsonrpc.NewTransport(inst.Stdout, inst.Stdin, nil)

	p.serverMu.Lock()
	p.server = t
	old := p.serverSet
	p.serverSet = make(chan struct{})
	p.serverMu.Unlock()
	close(old)
}

// serverTransport returns the current server-side transport, blocking while
// the downstream server is between crash and restart.
func (p *Proxy) serverTransport(ctx context.Context) (*jsonrpc.Transport, error) {
	for {
		p.serverMu.RLock()
		t := p.server
		wait := p.serverSet
		p.serverMu.RUnlock()

		if t != nil {
			return t, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wait:
		}
	}
}

// awaitRecovery blocks on supervisor lifecycle events until the server has
// either been recovered (returns true, rebinding the instance) or has failed
// permanently / the supervisor was stopped (returns false).
func (p *Proxy) awaitRecovery(ctx context.Context) bool {
	p.serverMu.Lock()
	p.server = nil
	p.serverMu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return false
		case ev, ok := <-p.sup.Events():
			if !ok {
				return false
			}
			switch ev.Type {
			case supervisor.EventRecovered:
				p.bindInstance(p.sup.Current())
				return true
			case supervisor.EventFailed:
				return false
			}
		}
	}
}

// pumpServerToClient forwards every message the downstream server emits to
// the client, untouched. The proxy never inspects server->client traffic.
func (p *Proxy) pumpServerToClient(ctx context.Context) error {
	for {
		t, err := p.serverTransport(ctx)
		if err != nil {
			return err
		}

		msg, err := t.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				p.logger.Warn("downstream server connection lost, awaiting restart")
				if p.awaitRecovery(ctx) {
					continue
				}
				return fmt.Errorf("proxy: downstream server unavailable: %w", err)
			}
			p.logger.Error("read from downstream server: %v", err)
			continue
		}

		if err := p.client.WriteMessage(msg); err != nil {
			return fmt.Errorf("proxy: write to client: %w", err)
		}
	}
}

// pumpClientToServer reads every message the client sends, forwards it
// verbatim unless it is a qualifying didChange, in which case it is rewritten
// first (see handleWholeDocumentChange).
func (p *Proxy) pumpClientToServer(ctx context.Context) error {
	for {
		msg, err := p.client.ReadMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				return nil
			}
			return fmt.Errorf("proxy: read from client: %w", err)
		}

		if err := p.handleClientMessage(ctx, msg); err != nil {
			p.logger.Error("handle client message: %v", err)
		}
	}
}

// handleClientMessage routes one client->server message: forwarding it
// verbatim, except for a qualifying didChange which is rewritten, and
// keeping the document store in sync with didOpen/didChange/didClose.
func (p *Proxy) handleClientMessage(ctx context.Context, msg json.RawMessage) error {
	method := gjson.GetBytes(msg, "method").String()

	switch method {
	case methodDidChange:
		if isWholeDocumentChange(msg) {
			return p.handleWholeDocumentChange(ctx, msg)
		}
		return p.forwardAndTrackChange(ctx, msg)
	case methodDidOpen:
		return p.forwardAndTrack(ctx, msg, p.trackOpen)
	case methodDidClose:
		return p.forwardAndTrack(ctx, msg, p.trackClose)
	default:
		return p.forward(ctx, msg)
	}
}

// forward writes msg to the server transport unchanged.
func (p *Proxy) forward(ctx context.Context, msg json.RawMessage) error {
	t, err := p.serverTransport(ctx)
	if err != nil {
		return err
	}
	return t.WriteMessage(msg)
}

// forwardAndTrack forwards msg verbatim, then runs track against its params
// to keep the document store in sync. track errors are logged, not fatal:
// the proxy's job is to relay traffic even if its own bookkeeping slips.
func (p *Proxy) forwardAndTrack(ctx context.Context, msg json.RawMessage, track func(json.RawMessage) error) error {
	if err := p.forward(ctx, msg); err != nil {
		return err
	}
	if err := track(msg); err != nil {
		p.logger.Warn("document store: %v", err)
	}
	return nil
}

// forwardAndTrackChange forwards a non-qualifying (ranged) didChange
// verbatim and applies the same edits to the store, so the store stays
// byte-identical to what the real server has.
func (p *Proxy) forwardAndTrackChange(ctx context.Context, msg json.RawMessage) error {
	if err := p.forward(ctx, msg); err != nil {
		return err
	}

	var params protocol.DidChangeTextDocumentParams
	if err := json.Unmarshal([]byte(gjson.GetBytes(msg, "params").Raw), &params); err != nil {
		return fmt.Errorf("decode didChange params: %w", err)
	}
	if err := p.store.Apply(params.TextDocument.URI, params.TextDocument.Version, params.ContentChanges); err != nil {
		p.logger.Warn("document store apply: %v", err)
	}
	return nil
}

func (p *Proxy) trackOpen(msg json.RawMessage) error {
	var params protocol.DidOpenTextDocumentParams
	if err := json.Unmarshal([]byte(gjson.GetBytes(msg, "params").Raw), &params); err != nil {
		return fmt.Errorf("decode didOpen params: %w", err)
	}
	return p.store.Open(params)
}

func (p *Proxy) trackClose(msg json.RawMessage) error {
	var params protocol.DidCloseTextDocumentParams
	if err := json.Unmarshal([]byte(gjson.GetBytes(msg, "params").Raw), &params); err != nil {
		return fmt.Errorf("decode didClose params: %w", err)
	}
	return p.store.Close(params.TextDocument.URI)
}

// isWholeDocumentChange reports whether every entry of a didChange
// notification's contentChanges array omits "range" — the one case §4.8
// requires the router to rewrite rather than forward verbatim. Uses gjson to
// answer this without fully decoding the message, since the overwhelming
// majority of didChange notifications already carry ranges from an editor
// that does incremental sync itself.
func isWholeDocumentChange(msg json.RawMessage) bool {
	changes := gjson.GetBytes(msg, "params.contentChanges")
	if !changes.IsArray() {
		return false
	}
	all := changes.Array()
	if len(all) == 0 {
		return false
	}
	for _, c := range all {
		if c.Get("range").Exists() {
			return false
		}
	}
	return true
}
