package mcp

import (
	"context"
	"sync"
)

// InMemoryTransport is the in-process transport variant (spec.md §4.2).
//
// Its send semantics depend on how it was constructed, resolving the source
// ambiguity the spec's Open Questions call out: a lone InMemoryTransport
// (NewInMemoryTransport) fans a sent message out to its own local message
// subscribers — useful for wiring a single engine's outbound traffic into a
// local observer/test harness. A linked pair (CreateLinkedPair) instead
// forwards each side's Send to the other side's subscribers, and only when
// the peer is Connected; otherwise the message is dropped silently, a
// documented edge case.
type InMemoryTransport struct {
	mu        sync.Mutex
	connected bool
	peer      *InMemoryTransport

	messageSubs subscriberSet[MessageHandler]
	errorSubs   subscriberSet[ErrorHandler]
}

// NewInMemoryTransport creates an unlinked transport: Send fans out to its
// own local subscribers.
func NewInMemoryTransport() *InMemoryTransport {
	return &InMemoryTransport{}
}

// CreateLinkedPair creates two transports wired so each one's Send delivers
// to the other's message subscribers.
func CreateLinkedPair() (a, b *InMemoryTransport) {
	a = &InMemoryTransport{}
	b = &InMemoryTransport{}
	a.peer = b
	b.peer = a
	return a, b
}

func (t *InMemoryTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		return &AlreadyInitializedError{}
	}
	t.connected = true
	return nil
}

func (t *InMemoryTransport) Disconnect() error {
	t.mu.Lock()
	t.connected = false
	t.mu.Unlock()
	t.messageSubs.clear()
	t.errorSubs.clear()
	return nil
}

func (t *InMemoryTransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

func (t *InMemoryTransport) Send(ctx context.Context, msg Message) error {
	t.mu.Lock()
	connected := t.connected
	peer := t.peer
	t.mu.Unlock()
	if !connected {
		return &NotConnectedError{}
	}

	target := t
	if peer != nil {
		if !peer.Connected() {
			// Documented edge case: peer not connected, message dropped silently.
			return nil
		}
		target = peer
	}

	for _, h := range target.messageSubs.snapshot() {
		h(ctx, msg)
	}
	return nil
}

func (t *InMemoryTransport) OnMessage(h MessageHandler) Subscription {
	return t.messageSubs.add(h)
}

func (t *InMemoryTransport) OnError(h ErrorHandler) Subscription {
	return t.errorSubs.add(h)
}

// emitError delivers err to every registered error subscriber, in
// registration order. Unused by the in-memory transport itself today (it
// has no I/O to fail) but kept symmetric with the other variants so a test
// harness can inject synthetic transport errors.
func (t *InMemoryTransport) emitError(err error) {
	for _, h := range t.errorSubs.snapshot() {
		h(err)
	}
}
