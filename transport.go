package mcp

import "context"

// MessageHandler receives one inbound Message. Multiple subscribers may be
// registered; spec.md §4.2 requires every subscriber to see every message,
// dispatched in registration order, and requires delivery to one subscriber
// to complete before the next is invoked (spec.md §5).
type MessageHandler func(ctx context.Context, msg Message)

// ErrorHandler receives one transport-level error (spec.md §7's "Transport
// errors": connection failures, send failures, decode failures not tied to
// a request id).
type ErrorHandler func(err error)

// Subscription is returned by OnMessage/OnError. Calling Unsubscribe removes
// the handler; it is safe to call more than once. This replaces
// closures-stored-in-sets with a handle the caller can release, per Design
// Notes §9. Resource content subscriptions (ResourcesRegistry) do not use
// it: they are one flag per URI, shared by every subscriber, so a single
// resources/unsubscribe ends updates for that URI for all of them.
type Subscription interface {
	Unsubscribe()
}

// Transport abstracts a bidirectional, duplex channel delivering decoded
// messages inbound and accepting messages outbound (spec.md §4.2). Every
// variant — in-memory, line-delimited byte-stream, event-stream+HTTP — must
// satisfy this same contract so the Engine never branches on transport kind.
type Transport interface {
	// Connect transitions the transport to Connected. Calling Connect on an
	// already-connected transport returns an error (idempotency guard).
	Connect(ctx context.Context) error

	// Disconnect drops all subscribers and terminates the input half. Safe
	// to call multiple times, including on a transport that never
	// connected.
	Disconnect() error

	// Connected reports whether the transport is currently connected.
	Connected() bool

	// Send enqueues msg for delivery to the peer. Returns NotConnectedError
	// if the transport isn't connected. Delivery order matches send order
	// (spec.md §5).
	Send(ctx context.Context, msg Message) error

	// OnMessage registers a subscriber invoked for every inbound message,
	// in registration order.
	OnMessage(h MessageHandler) Subscription

	// OnError registers a subscriber invoked for every transport-level
	// error.
	OnError(h ErrorHandler) Subscription
}
