package jsonrpc

import (
	"encoding/json"
	"io"
	"strings"
	"testing"
)

// mockPipe creates a bidirectional pipe for testing.
type mockPipe struct {
	reader *io.PipeReader
	writer *io.PipeWriter
}

func newMockPipe() *mockPipe {
	r, w := io.Pipe()
	return &mockPipe{reader: r, writer: w}
}

func (p *mockPipe) Close() error {
	p.reader.Close()
	p.writer.Close()
	return nil
}

func TestTransport_WriteMessageFraming(t *testing.T) {
	toServer := newMockPipe()
	transport := NewTransport(nil, toServer.writer, nil)

	msg := json.RawMessage(`{"jsonrpc":"2.0","method":"test/notification"}`)

	done := make(chan string, 1)
	go func() {
		buf := make([]byte, 4096)
		n, _ := toServer.reader.Read(buf)
		done <- string(buf[:n])
	}()

	if err := transport.WriteMessage(msg); err != nil {
		t.Fatalf("WriteMessage() error = %v", err)
	}

	received := <-done
	if !strings.Contains(received, "Content-Length: 46") {
		t.Errorf("missing/wrong Content-Length header in %q", received)
	}
	if !strings.Contains(received, `"method":"test/notification"`) {
		t.Errorf("missing method field in %q", received)
	}
}

func TestTransport_ReadMessageRoundTrip(t *testing.T) {
	toTransport := newMockPipe()
	transport := NewTransport(toTransport.reader, nil, nil)

	msg := json.RawMessage(`{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`)

	go func() {
		header := "Content-Length: " + itoa(len(msg)) + "\r\n\r\n"
		io.WriteString(toTransport.writer, header)
		toTransport.writer.Write(msg)
	}()

	got, err := transport.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage() error = %v", err)
	}
	if string(got) != string(msg) {
		t.Errorf("ReadMessage() = %s, want %s", got, msg)
	}
}

func TestTransport_ReadMessage_MultipleFrames(t *testing.T) {
	toTransport := newMockPipe()
	transport := NewTransport(toTransport.reader, nil, nil)

	msgs := []json.RawMessage{
		json.RawMessage(`{"jsonrpc":"2.0","method":"a"}`),
		json.RawMessage(`{"jsonrpc":"2.0","method":"b"}`),
	}

	go func() {
		for _, m := range msgs {
			header := "Content-Length: " + itoa(len(m)) + "\r\n\r\n"
			io.WriteString(toTransport.writer, header)
			toTransport.writer.Write(m)
		}
	}()

	for i, want := range msgs {
		got, err := transport.ReadMessage()
		if err != nil {
			t.Fatalf("ReadMessage() #%d error = %v", i, err)
		}
		if string(got) != string(want) {
			t.Errorf("ReadMessage() #%d = %s, want %s", i, got, want)
		}
	}
}

func TestTransport_Close(t *testing.T) {
	toServer := newMockPipe()
	transport := NewTransport(nil, toServer.writer, toServer)

	if transport.IsClosed() {
		t.Error("transport should not be closed initially")
	}

	if err := transport.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !transport.IsClosed() {
		t.Error("transport should be closed after Close()")
	}

	if err := transport.WriteMessage(json.RawMessage(`{}`)); err != ErrShutdown {
		t.Errorf("WriteMessage() after close = %v, want ErrShutdown", err)
	}

	// Double close is safe.
	if err := transport.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestTransport_ReadMessage_MissingContentLength(t *testing.T) {
	toTransport := newMockPipe()
	transport := NewTransport(toTransport.reader, nil, nil)

	go func() {
		io.WriteString(toTransport.writer, "Content-Type: application/vscode-jsonrpc\r\n\r\n")
	}()

	if _, err := transport.ReadMessage(); err == nil {
		t.Error("expected error for missing Content-Length header")
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
