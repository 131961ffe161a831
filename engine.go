package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// defaultRequestTimeout is applied to outbound calls that don't specify
// their own. spec.md's Design Notes leave the exact figure to the
// implementation; 30s matches the teacher's client default.
const defaultRequestTimeout = 30 * time.Second

// initializeParams is the wire shape of the initialize request (spec.md
// §4.3).
type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ClientInfo      Implementation `json:"clientInfo"`
}

// initializeResult is the wire shape of the initialize response.
type initializeResult struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    Capabilities   `json:"capabilities"`
	ServerInfo      Implementation `json:"serverInfo"`
	Instructions    string         `json:"instructions,omitempty"`
}

type cancelParams struct {
	RequestID RequestID `json:"requestId"`
	Reason    string    `json:"reason,omitempty"`
}

type progressParams struct {
	ProgressToken interface{} `json:"progressToken"`
	Progress      float64     `json:"progress"`
	Total         float64     `json:"total,omitempty"`
	Message       string      `json:"message,omitempty"`
}

// Engine is the Protocol Engine (spec.md §4.3): it owns one Transport, runs
// the initialize handshake for its Role, and thereafter routes inbound
// messages through the Message Validator, Capability Router, and Request
// Correlator, and offers Call/Notify for outbound traffic. One Engine
// drives one Session in one role; a host that is both a client (to one
// server) and a server (to another client) runs two Engines.
//
// Grounded on the teacher's Client (client.go) — the handshake sequencing,
// request/notification send paths, and inbound dispatch loop follow its
// shape, generalized from a single fixed Codex method set to the
// capability-gated router and from a single transport (stdio) to any
// Transport implementation.
type Engine struct {
	transport Transport
	session   *Session
	router    *Router
	correlator *Correlator
	clock     Clock
	logger    *slog.Logger
	localInfo Implementation

	requestTimeout time.Duration

	sub Subscription

	mu        sync.Mutex
	closed    bool
	inflight  map[string]context.CancelFunc
}

// EngineOption configures an Engine at construction time.
type EngineOption func(*Engine)

// WithRequestTimeout overrides the default outbound request timeout.
func WithRequestTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.requestTimeout = d }
}

// WithClock overrides the engine's time source (tests inject a FakeClock).
func WithClock(c Clock) EngineOption {
	return func(e *Engine) { e.clock = c }
}

// WithLogger overrides the engine's structured logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine in role, advertising localCaps and localInfo
// during the handshake, dispatching inbound requests/notifications through
// router. router is typically built by composing the registries (tools,
// prompts, resources, roots) and sampling/logging handlers before the
// engine connects.
func NewEngine(transport Transport, role Role, localCaps Capabilities, localInfo Implementation, router *Router, opts ...EngineOption) *Engine {
	e := &Engine{
		transport:      transport,
		session:        newSession(role, localCaps),
		router:         router,
		correlator:     NewCorrelator(nil),
		clock:          SystemClock{},
		logger:         slog.Default(),
		localInfo:      localInfo,
		requestTimeout: defaultRequestTimeout,
		inflight:       make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.correlator = NewCorrelator(e.clock)

	e.router.HandleRequest(MethodPing, nil, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		return struct{}{}, nil
	})

	if role == RoleServer {
		e.router.HandleRequest(MethodInitialize, nil, e.handleInitializeRequest)
		e.router.HandleNotification(MethodInitialized, nil, func(ctx context.Context, params ParamsValue) {
			if e.session.State() == StateInitializing {
				e.session.setState(StateReady)
				e.logger.Info("session ready", "role", "server")
			}
		})
	}

	return e
}

// Session exposes the engine's connection state.
func (e *Engine) Session() *Session { return e.session }

// Connect opens the transport and, in the client role, drives the
// initialize handshake to completion before returning. In the server
// role, Connect only opens the transport; the session reaches Ready once
// the peer completes its half of the handshake.
func (e *Engine) Connect(ctx context.Context) error {
	if err := e.transport.Connect(ctx); err != nil {
		return err
	}
	e.sub = e.transport.OnMessage(e.handleMessage)
	e.session.setState(StateConnected)

	if e.session.Role() == RoleClient {
		return e.initializeAsClient(ctx)
	}
	e.session.setState(StateInitializing)
	return nil
}

// Close tears down the transport and completes every outstanding call with
// a CanceledError.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.correlator.CancelAll("session closed")
	e.session.setState(StateClosed)
	if e.sub != nil {
		e.sub.Unsubscribe()
	}
	return e.transport.Disconnect()
}

func (e *Engine) initializeAsClient(ctx context.Context) error {
	e.session.setState(StateInitializing)

	params, err := ValueParamsValue(initializeParams{
		ProtocolVersion: ProtocolVersionLatest,
		Capabilities:    *e.session.LocalCapabilities(),
		ClientInfo:      e.localInfo,
	})
	if err != nil {
		return err
	}

	raw, err := e.call(ctx, MethodInitialize, params, CallOptions{Timeout: e.requestTimeout})
	if err != nil {
		return err
	}

	var result initializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("decode initialize result: %w", err)
	}
	if result.ProtocolVersion != ProtocolVersionLatest {
		return &ProtocolVersionMismatchError{Got: result.ProtocolVersion, Want: ProtocolVersionLatest}
	}

	e.session.setPeerCapabilities(result.Capabilities)
	e.session.setPeerInfo(result.ServerInfo)
	e.session.setProtocolVersion(result.ProtocolVersion)
	e.session.setInstructions(result.Instructions)

	if err := e.Notify(ctx, MethodInitialized, ParamsValue{}); err != nil {
		return err
	}
	e.session.setState(StateReady)
	e.logger.Info("session ready", "role", "client", "server", result.ServerInfo.Name)
	return nil
}

func (e *Engine) handleInitializeRequest(ctx context.Context, params ParamsValue) (interface{}, error) {
	if e.session.State() == StateReady {
		return nil, &AlreadyInitializedError{}
	}

	var p initializeParams
	if err := params.Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidInitializeParams, err)
	}
	if p.ProtocolVersion != ProtocolVersionLatest {
		return nil, &ProtocolVersionMismatchError{Got: p.ProtocolVersion, Want: ProtocolVersionLatest}
	}
	e.session.setPeerCapabilities(p.Capabilities)
	e.session.setPeerInfo(p.ClientInfo)
	e.session.setProtocolVersion(p.ProtocolVersion)
	e.session.setState(StateInitializing)

	return initializeResult{
		ProtocolVersion: ProtocolVersionLatest,
		Capabilities:    *e.session.LocalCapabilities(),
		ServerInfo:      e.localInfo,
	}, nil
}

var errInvalidInitializeParams = fmt.Errorf("invalid initialize params")

// Call sends a request and blocks for its response, subject to the
// engine's configured request timeout.
func (e *Engine) Call(ctx context.Context, method string, params ParamsValue) (json.RawMessage, error) {
	return e.call(ctx, method, params, CallOptions{Timeout: e.requestTimeout})
}

// CallWithProgress is like Call but registers onProgress to receive
// notifications/progress updates tied to a freshly minted progress token
// merged into params._meta.progressToken.
func (e *Engine) CallWithProgress(ctx context.Context, method string, params ParamsValue, onProgress func(ParamsValue)) (json.RawMessage, error) {
	token := NewProgressToken()
	merged, err := WithProgressToken(params.Raw(), token)
	if err != nil {
		return nil, err
	}
	return e.call(ctx, method, RawParamsValue(merged), CallOptions{
		Timeout:       e.requestTimeout,
		ProgressToken: &token,
		OnProgress:    onProgress,
	})
}

func (e *Engine) call(ctx context.Context, method string, params ParamsValue, opts CallOptions) (json.RawMessage, error) {
	if method != MethodInitialize && !e.session.Ready() {
		return nil, &NotConnectedError{}
	}
	if err := e.outboundCapabilityGate(method); err != nil {
		return nil, err
	}

	id := e.correlator.AllocateID()
	pending := e.correlator.Register(id, method, opts)

	msg := NewRequestMessage(id, method, params)
	if err := e.transport.Send(ctx, msg); err != nil {
		e.correlator.Cancel(id, "send failed")
		return nil, err
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = e.requestTimeout
	}
	return pending.Wait(ctx, timeout)
}

// outboundCapabilityGate mirrors the Capability Router's inbound gate
// (router.go) for the calls this engine originates: a method whose
// capability the peer never advertised during initialize fails locally
// with a CapabilityError, before any wire transmission (spec.md §4.5).
// initialize/ping and the correlation notifications carry no gate here,
// same as on the inbound side.
func (e *Engine) outboundCapabilityGate(method string) error {
	caps := e.session.PeerCapabilities()
	switch method {
	case MethodToolsList, MethodToolsCall:
		return requireCapability(caps.HasTools(), method)
	case MethodPromptsList, MethodPromptsGet, MethodPromptsExecute:
		return requireCapability(caps.HasPrompts(), method)
	case MethodResourcesList, MethodResourcesRead, MethodResourcesTemplatesList:
		return requireCapability(caps.HasResources(), method)
	case MethodResourcesSubscribe, MethodResourcesUnsubscribe:
		return requireCapability(caps.resourcesSubscribe(), method)
	case MethodRootsList:
		return requireCapability(caps.HasRoots(), method)
	case MethodSamplingCreateMessage:
		return requireCapability(caps.HasSampling(), method)
	case MethodLoggingSetLevel:
		return requireCapability(caps.HasLogging(), method)
	default:
		return nil
	}
}

// Notify sends a one-way notification; there is no response to wait for.
func (e *Engine) Notify(ctx context.Context, method string, params ParamsValue) error {
	return e.transport.Send(ctx, NewNotificationMessage(method, params))
}

// Cancel sends notifications/cancelled for id and completes the local
// PendingCall (if any) immediately, without waiting for the peer's
// acknowledgement — cancellation in MCP is advisory (spec.md §4.4).
func (e *Engine) Cancel(ctx context.Context, id RequestID, reason string) error {
	e.correlator.Cancel(id, reason)
	params, err := ValueParamsValue(cancelParams{RequestID: id, Reason: reason})
	if err != nil {
		return err
	}
	return e.Notify(ctx, MethodCancelled, params)
}

// handleMessage is the transport's MessageHandler: validate, classify, and
// route.
func (e *Engine) handleMessage(ctx context.Context, msg Message) {
	if err := Validate(msg); err != nil {
		e.logger.Warn("dropping invalid message", "error", err)
		return
	}

	switch msg.Kind() {
	case KindResponse, KindErrorResponse:
		if !e.correlator.Resolve(msg) {
			e.logger.Warn("response for unknown request id", "id", msg.ID)
		}
	case KindNotification:
		e.handleNotification(ctx, msg)
	case KindRequest:
		e.handleRequest(ctx, msg)
	}
}

func (e *Engine) handleNotification(ctx context.Context, msg Message) {
	switch msg.Method {
	case MethodCancelled:
		var p cancelParams
		if err := msg.Params.Decode(&p); err != nil {
			return
		}
		e.mu.Lock()
		cancel, ok := e.inflight[p.RequestID.String()]
		e.mu.Unlock()
		if ok {
			cancel()
		}
		// The same id could instead name one of our own outbound calls that
		// the peer is now canceling (spec.md §4.4): try the correlator too,
		// since a request lives in exactly one of the two tables.
		e.correlator.Cancel(p.RequestID, p.Reason)
	case MethodProgress:
		var p progressParams
		if err := msg.Params.Decode(&p); err != nil {
			return
		}
		e.correlator.Progress(ProgressToken{Value: p.ProgressToken}, msg.Params)
	default:
		e.router.DispatchNotification(ctx, e.session.PeerCapabilities(), msg.Method, msg.Params)
	}
}

func (e *Engine) handleRequest(ctx context.Context, msg Message) {
	id := *msg.ID

	if msg.Method != MethodInitialize && !e.session.Ready() && e.session.Role() == RoleServer {
		e.sendError(ctx, id, errorToWire(&ServerNotInitializedError{}))
		return
	}

	reqCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.inflight[id.String()] = cancel
	e.mu.Unlock()

	go func() {
		defer func() {
			cancel()
			e.mu.Lock()
			delete(e.inflight, id.String())
			e.mu.Unlock()
		}()

		result, err := e.router.Dispatch(reqCtx, e.session.LocalCapabilities(), msg.Method, msg.Params)
		if err != nil {
			e.sendError(ctx, id, errorToWire(err))
			return
		}
		raw, merr := json.Marshal(result)
		if merr != nil {
			e.sendError(ctx, id, &Error{Code: ErrCodeInternalError, Message: merr.Error()})
			return
		}
		if serr := e.transport.Send(ctx, NewResultMessage(id, raw)); serr != nil {
			e.logger.Warn("failed to send response", "error", serr)
		}
	}()
}

func (e *Engine) sendError(ctx context.Context, id RequestID, wireErr *Error) {
	if err := e.transport.Send(ctx, NewErrorMessage(id, wireErr)); err != nil {
		e.logger.Warn("failed to send error response", "error", err)
	}
}

// errorToWire maps a handler-returned error to a JSON-RPC error object,
// preferring the specific wire code for errors the engine recognizes.
func errorToWire(err error) *Error {
	switch e := err.(type) {
	case *RPCError:
		return e.RPCError()
	case *methodNotFoundError:
		return &Error{Code: ErrCodeMethodNotFound, Message: e.Error()}
	case *CapabilityError:
		return &Error{Code: ErrCodeInvalidRequest, Message: e.Error()}
	case *AuthorizationError:
		return &Error{Code: ErrCodeAuthorizationError, Message: e.Error()}
	case *TokenExpiredError:
		return &Error{Code: ErrCodeAuthorizationError, Message: e.Error()}
	case *ProtocolVersionMismatchError:
		return &Error{Code: ErrCodeInvalidRequest, Message: e.Error()}
	case *ServerNotInitializedError:
		return &Error{Code: ErrCodeServerNotInitialized, Message: e.Error()}
	case *AlreadyInitializedError:
		return &Error{Code: ErrCodeInvalidRequest, Message: e.Error()}
	default:
		return &Error{Code: ErrCodeInternalError, Message: err.Error()}
	}
}
