package mcp

import (
	"context"
	"sync"
)

// Method names (spec.md §4.5), grounded on the teacher's dispatch.go naming
// list — adapted from Codex's app/thread/turn vocabulary to the MCP method
// surface.
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodPing        = "ping"

	MethodToolsList         = "tools/list"
	MethodToolsCall         = "tools/call"
	MethodToolsListChanged  = "notifications/tools/list_changed"
	MethodPromptsList        = "prompts/list"
	MethodPromptsGet         = "prompts/get"
	MethodPromptsExecute     = "prompts/execute"
	MethodPromptsListChanged = "notifications/prompts/list_changed"

	MethodResourcesList          = "resources/list"
	MethodResourcesRead          = "resources/read"
	MethodResourcesTemplatesList = "resources/templates/list"
	MethodResourcesSubscribe     = "resources/subscribe"
	MethodResourcesUnsubscribe   = "resources/unsubscribe"
	MethodResourcesListChanged   = "notifications/resources/list_changed"
	MethodResourcesUpdated       = "notifications/resources/updated"

	MethodRootsList        = "roots/list"
	MethodRootsListChanged = "notifications/rootsChanged"

	MethodSamplingCreateMessage = "sampling/createMessage"

	MethodLoggingSetLevel = "logging/setLevel"
	MethodLoggingMessage  = "notifications/message"

	MethodCompletionComplete = "completion/complete"

	MethodCancelled = "notifications/cancelled"
	MethodProgress  = "notifications/progress"
)

// CapabilityGate checks whether caps permits a method to be dispatched. A
// nil gate (used for initialize/initialized/ping) means the method is
// always allowed.
type CapabilityGate func(caps *Capabilities) error

// RequestHandler services a JSON-RPC request and returns its result value
// (marshaled by the Engine) or an error (translated to a JSON-RPC error
// response).
type RequestHandler func(ctx context.Context, params ParamsValue) (interface{}, error)

// NotificationHandler services a one-way JSON-RPC notification.
type NotificationHandler func(ctx context.Context, params ParamsValue)

type requestRoute struct {
	gate    CapabilityGate
	handler RequestHandler
}

type notificationRoute struct {
	gate    CapabilityGate
	handler NotificationHandler
}

// ToolFallback services a method name the router has no explicit route
// for, by treating it as a tool invocation (spec.md §4.5: "any unknown
// method on the server falls through to Tools"). handled reports whether
// a tool by that name exists at all; when false, Dispatch still reports
// MethodNotFound.
type ToolFallback func(ctx context.Context, caps *Capabilities, method string, params ParamsValue) (result interface{}, handled bool, err error)

// Router is the Capability Router (spec.md §4.5): a capability-gated
// dispatch table shared by both client and server roles of the Protocol
// Engine. Each side registers the methods it's willing to service and the
// capability, if any, gating them; Dispatch enforces the gate before
// invoking the handler, so missing-capability rejection happens uniformly
// regardless of which role raised it. Grounded on the teacher's
// handleRequest switch in client.go, generalized from a fixed Codex method
// set to a registration table.
type Router struct {
	mu            sync.RWMutex
	requests      map[string]requestRoute
	notifications map[string]notificationRoute
	toolFallback  ToolFallback
}

// NewRouter creates an empty Router.
func NewRouter() *Router {
	return &Router{
		requests:      make(map[string]requestRoute),
		notifications: make(map[string]notificationRoute),
	}
}

// HandleRequest registers handler for method, gated by gate (nil for
// always-allowed methods like initialize/ping).
func (r *Router) HandleRequest(method string, gate CapabilityGate, handler RequestHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[method] = requestRoute{gate: gate, handler: handler}
}

// HandleNotification registers handler for a notification method.
func (r *Router) HandleNotification(method string, gate CapabilityGate, handler NotificationHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications[method] = notificationRoute{gate: gate, handler: handler}
}

// SetToolFallback installs the handler consulted when method matches no
// registered route.
func (r *Router) SetToolFallback(fn ToolFallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.toolFallback = fn
}

// Dispatch routes a request to its registered handler, checking caps
// against the route's gate first. An unknown method yields a
// methodNotFoundError and a failed gate yields the gate's own error; the
// Engine translates both to wire errors via errorToWire (spec.md §6).
func (r *Router) Dispatch(ctx context.Context, caps *Capabilities, method string, params ParamsValue) (interface{}, error) {
	r.mu.RLock()
	route, ok := r.requests[method]
	fallback := r.toolFallback
	r.mu.RUnlock()

	if !ok {
		if fallback != nil {
			result, handled, err := fallback(ctx, caps, method, params)
			if handled {
				return result, err
			}
		}
		return nil, &methodNotFoundError{method: method}
	}
	if route.gate != nil {
		if err := route.gate(caps); err != nil {
			return nil, err
		}
	}
	return route.handler(ctx, params)
}

// DispatchNotification routes a notification to its registered handler, if
// any. An unrecognized or ungated-out notification is silently dropped per
// spec.md §4.5 — notifications never produce an error response, there being
// no id to carry one.
func (r *Router) DispatchNotification(ctx context.Context, caps *Capabilities, method string, params ParamsValue) {
	r.mu.RLock()
	route, ok := r.notifications[method]
	r.mu.RUnlock()
	if !ok {
		return
	}
	if route.gate != nil {
		if err := route.gate(caps); err != nil {
			return
		}
	}
	route.handler(ctx, params)
}

// methodNotFoundError maps to wire code -32601.
type methodNotFoundError struct {
	method string
}

func (e *methodNotFoundError) Error() string { return "method not found: " + e.method }

func (e *methodNotFoundError) Is(target error) bool {
	_, ok := target.(*methodNotFoundError)
	return ok
}
