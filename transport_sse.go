package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// SSETransport is the event-stream+HTTP transport variant (spec.md §4.1/
// §4.2): outbound messages are delivered as Server-Sent Events over a long
// lived GET connection, inbound messages arrive as individual HTTP POST
// bodies against the same session. Grounded on genai-toolbox's
// internal/server/mcp.go sseHandler/httpHandler pair, adapted from a
// tool-dispatching HTTP handler into a generic Transport so the Engine
// drives it the same way it drives the stdio and in-memory variants.
type SSETransport struct {
	id string

	mu        sync.Mutex
	connected bool
	attached  bool // an SSE GET connection is actively draining events
	events    chan Message

	messageSubs subscriberSet[MessageHandler]
	errorSubs   subscriberSet[ErrorHandler]
}

// newSSETransport creates a session-scoped transport. SSEServer mints one
// per accepted GET /sse connection.
func newSSETransport(id string) *SSETransport {
	return &SSETransport{
		id:     id,
		events: make(chan Message, 64),
	}
}

func (t *SSETransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.connected {
		return &AlreadyInitializedError{}
	}
	t.connected = true
	return nil
}

func (t *SSETransport) Disconnect() error {
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

func (t *SSETransport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Send queues msg for delivery over the SSE stream. Returns NotConnectedError
// if the session has no attached GET connection to drain it — an MCP host
// is expected to open the stream before the server ever has something to
// push, so this signals a genuine protocol violation rather than a normal
// race.
func (t *SSETransport) Send(ctx context.Context, msg Message) error {
	t.mu.Lock()
	connected := t.connected
	attached := t.attached
	t.mu.Unlock()
	if !connected || !attached {
		return &NotConnectedError{}
	}
	select {
	case t.events <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *SSETransport) OnMessage(h MessageHandler) Subscription {
	return t.messageSubs.add(h)
}

func (t *SSETransport) OnError(h ErrorHandler) Subscription {
	return t.errorSubs.add(h)
}

// dispatchInbound delivers a message decoded from an HTTP POST to every
// message subscriber, in registration order.
func (t *SSETransport) dispatchInbound(ctx context.Context, msg Message) {
	for _, h := range t.messageSubs.snapshot() {
		h(ctx, msg)
	}
}

func (t *SSETransport) emitError(err error) {
	for _, h := range t.errorSubs.snapshot() {
		h(err)
	}
}

// SSEServer hosts the HTTP endpoints backing one or more SSETransport
// sessions behind a chi.Router. OnSession is invoked once per new GET /sse
// connection with the freshly connected transport, giving the caller (the
// Protocol Engine, in server role) the chance to bind it and drive the
// handshake — mirroring how genai-toolbox's mcp.go registers a new session
// with its server on every sseHandler call.
type SSEServer struct {
	OnSession func(ctx context.Context, t *SSETransport)

	mu       sync.Mutex
	sessions map[string]*SSETransport

	keepAlive time.Duration
}

// NewSSEServer creates a server with the default 15s SSE keep-alive
// interval.
func NewSSEServer() *SSEServer {
	return &SSEServer{
		sessions:  make(map[string]*SSETransport),
		keepAlive: 15 * time.Second,
	}
}

// Routes mounts the SSE and message endpoints onto r.
func (s *SSEServer) Routes(r chi.Router) {
	r.Get("/sse", s.handleSSE)
	r.Post("/message", s.handleMessage)
}

func (s *SSEServer) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sessionID := uuid.NewString()
	t := newSSETransport(sessionID)
	if err := t.Connect(r.Context()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.mu.Lock()
	s.sessions[sessionID] = t
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		s.mu.Unlock()
		_ = t.Disconnect()
	}()

	t.mu.Lock()
	t.attached = true
	t.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprintf(w, "event: endpoint\ndata: /message?sessionId=%s\n\n", sessionID)
	flusher.Flush()

	if s.OnSession != nil {
		s.OnSession(r.Context(), t)
	}

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case msg, ok := <-t.events:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				t.emitError(NewTransportError("marshal sse event", err))
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *SSEServer) handleMessage(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")

	s.mu.Lock()
	t, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "unknown session"})
		return
	}

	var msg Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid message"})
		return
	}

	t.dispatchInbound(r.Context(), msg)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted"})
}
