// Package documentstore tracks the last text version forwarded to the
// downstream LSP server, one document snapshot per open URI.
//
// Grounded on the teacher's internal/lsp/document.go DocumentManager /
// ManagedDocument pair, inverted from client-authoritative (the editor owns
// the canonical content, the manager mirrors it with debounced sync) to
// server-authoritative: the proxy's store holds exactly the bytes the
// downstream server has been told about, mutated only after a forward
// succeeds, with no debouncing — every didChange is synchronous in an LSP
// proxy's single message loop.
//
// Position<->byte conversion goes through internal/coord rather than a
// rope/buffer pair: coord.Mapper already recognizes the full LSP
// line-terminator set (the one internal/diff's rewrite path emits Positions
// against), and a store holding one version string per open document has no
// need for a persistent, incrementally-editable rope — documents are
// replaced wholesale or sliced once per didChange, not edited keystroke by
// keystroke.
package documentstore

import (
	"sync"

	"github.com/dshills/lspdiffproxy/internal/coord"
	"github.com/dshills/lspdiffproxy/internal/protocol"
)

// Document is one open document's server-authoritative state.
type Document struct {
	URI        protocol.DocumentURI
	LanguageID string
	Version    int
	Text       string
}

// Store maps document URI to its Document.
type Store struct {
	mu   sync.RWMutex
	docs map[protocol.DocumentURI]*Document
}

// NewStore creates an empty document store.
func NewStore() *Store {
	return &Store{docs: make(map[protocol.DocumentURI]*Document)}
}

// Open records a newly-opened document from a didOpen notification's params.
// It returns ErrDocumentAlreadyOpen if the client reopens a URI without an
// intervening didClose, which the proxy forwards anyway but the store should
// not silently overwrite.
func (s *Store) Open(params protocol.DidOpenTextDocumentParams) error {
	item := params.TextDocument

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[item.URI]; exists {
		return ErrDocumentAlreadyOpen
	}

	s.docs[item.URI] = &Document{
		URI:        item.URI,
		LanguageID: item.LanguageID,
		Version:    item.Version,
		Text:       item.Text,
	}
	return nil
}

// Close removes a document from the store. It returns ErrDocumentNotOpen if
// the URI was not tracked.
func (s *Store) Close(uri protocol.DocumentURI) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.docs[uri]; !exists {
		return ErrDocumentNotOpen
	}
	delete(s.docs, uri)
	return nil
}

// Get returns the stored document for uri, if open.
func (s *Store) Get(uri protocol.DocumentURI) (*Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	return doc, ok
}

// Apply mutates the stored text for uri with the same sequence of
// range-based edits that was forwarded downstream, keeping the store and the
// real server's buffer from ever diverging. version is the new document
// version carried by the didChange notification.
//
// Each ranged edit's Position is resolved against a coord.Mapper built over
// the text as it stands before that edit, so a Position's line/column is
// always interpreted relative to the same terminator set internal/diff used
// to produce it — including "\r", NEL, LS, and PS, not just "\n".
func (s *Store) Apply(uri protocol.DocumentURI, version int, changes []protocol.TextDocumentContentChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[uri]
	if !ok {
		return ErrDocumentNotOpen
	}

	for _, change := range changes {
		if change.Range == nil {
			doc.Text = change.Text
			continue
		}

		m := coord.NewMapper(doc.Text)
		start := m.PositionToByte(coord.Position{Line: change.Range.Start.Line, Column: change.Range.Start.Character})
		end := m.PositionToByte(coord.Position{Line: change.Range.End.Line, Column: change.Range.End.Character})
		doc.Text = doc.Text[:start] + change.Text + doc.Text[end:]
	}

	doc.Version = version
	return nil
}

// Text returns the current text of an open document.
func (s *Store) Text(uri protocol.DocumentURI) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[uri]
	if !ok {
		return "", false
	}
	return doc.Text, true
}

// Len returns the number of open documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
