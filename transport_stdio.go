package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
)

// LineDelimitedTransport is the byte-stream transport variant (spec.md
// §4.1/§4.2): one JSON-RPC message per line, newline-delimited. Adapted from
// the teacher's stdio.go read loop and write-message framing, generalized to
// deliver undifferentiated Message values to a subscriber set instead of
// resolving its own request/response correlation — that responsibility
// moved to the Correlator (spec.md §4.4).
type LineDelimitedTransport struct {
	reader io.Reader
	writer io.Writer

	mu        sync.Mutex
	connected bool
	writeMu   sync.Mutex

	messageSubs subscriberSet[MessageHandler]
	errorSubs   subscriberSet[ErrorHandler]

	readerStopped chan struct{}
	stopOnce      sync.Once
}

// NewLineDelimitedTransport wraps reader/writer (typically os.Stdin/os.Stdout
// for a subprocess-hosted server, or the two halves of a pipe in tests).
func NewLineDelimitedTransport(reader io.Reader, writer io.Writer) *LineDelimitedTransport {
	return &LineDelimitedTransport{
		reader:        reader,
		writer:        writer,
		readerStopped: make(chan struct{}),
	}
}

func (t *LineDelimitedTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return &AlreadyInitializedError{}
	}
	t.connected = true
	t.mu.Unlock()

	go t.readLoop(ctx)
	return nil
}

func (t *LineDelimitedTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *LineDelimitedTransport) Disconnect() error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil
	}
	t.connected = false
	t.mu.Unlock()

	t.messageSubs.clear()
	t.errorSubs.clear()
	return nil
}

func (t *LineDelimitedTransport) Send(ctx context.Context, msg Message) error {
	if !t.Connected() {
		return &NotConnectedError{}
	}
	return t.writeMessage(msg)
}

func (t *LineDelimitedTransport) writeMessage(msg Message) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		return NewTransportError("marshal message", err)
	}
	for len(data) > 0 {
		n, werr := t.writer.Write(data)
		if werr != nil {
			return NewTransportError("write message", werr)
		}
		if n == 0 {
			return NewTransportError("write message", errors.New("writer returned zero bytes without error"))
		}
		data = data[n:]
	}
	if _, err := t.writer.Write([]byte{'\n'}); err != nil {
		return NewTransportError("write message", err)
	}
	return nil
}

func (t *LineDelimitedTransport) OnMessage(h MessageHandler) Subscription {
	return t.messageSubs.add(h)
}

func (t *LineDelimitedTransport) OnError(h ErrorHandler) Subscription {
	return t.errorSubs.add(h)
}

// readLoop decodes newline-delimited messages until EOF or a read error.
// Note this is a blocking synchronous read: Disconnect cannot interrupt it
// mid-read, only stop further dispatch once the underlying reader yields
// (EOF, error, or the next line) — the same limitation the teacher's stdio
// reader has, inherent to stdin/stdout-style streams.
func (t *LineDelimitedTransport) readLoop(ctx context.Context) {
	defer t.stopOnce.Do(func() { close(t.readerStopped) })

	lr := NewLineReader(t.reader)
	for {
		msg, err := lr.Next()
		if err != nil {
			if err == io.EOF {
				return
			}
			var perr *ParseError
			if errors.As(err, &perr) {
				// A single malformed line doesn't kill the stream.
				t.emitError(err)
				continue
			}
			t.emitError(NewTransportError("read message", err))
			return
		}

		if !t.Connected() {
			return
		}

		for _, h := range t.messageSubs.snapshot() {
			h(ctx, msg)
		}
	}
}

func (t *LineDelimitedTransport) emitError(err error) {
	var perr *ParseError
	if errors.As(err, &perr) {
		if id, ok := perr.RecoverID(); ok {
			_ = t.writeMessage(NewErrorMessage(id, &Error{
				Code:    ErrCodeParseError,
				Message: perr.Error(),
			}))
			return
		}
	}
	for _, h := range t.errorSubs.snapshot() {
		h(err)
	}
}
