package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// ChangeNotifier is invoked after a registry mutation that should surface
// as a list_changed notification. Registries call it synchronously once
// armed (see ToolsRegistry.Arm), after every Register and after an
// Unregister that removed something. Arming can happen before the session
// is Ready: the Wire* helpers arm at setup and their closures check that
// the session is Ready and that this side advertises the listChanged
// capability before calling Engine.Notify (spec.md §4.6).
type ChangeNotifier func()

// ContentBlock is one piece of tool/prompt output: text, embedded binary
// data, or a reference to a resource (spec.md §4.6).
type ContentBlock struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	Data     string            `json:"data,omitempty"`
	MimeType string            `json:"mimeType,omitempty"`
	Resource *ResourceContents `json:"resource,omitempty"`
}

// TextContent builds a "text" ContentBlock.
func TextContent(text string) ContentBlock { return ContentBlock{Type: "text", Text: text} }

// ToolResult is the result of a tools/call invocation.
type ToolResult struct {
	Content []ContentBlock `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// ToolHandler executes a tool against its validated arguments.
type ToolHandler func(ctx context.Context, args json.RawMessage) (*ToolResult, error)

// Tool describes one registered tool (spec.md §4.6): name, human-facing
// metadata, a JSON Schema for its arguments, and the handler that runs it.
type Tool struct {
	Name        string
	Title       string
	Description string
	InputSchema json.RawMessage
	Handler     ToolHandler
}

type registeredTool struct {
	tool   Tool
	schema CompiledSchema
}

// ToolsRegistry implements the Tools registry (spec.md §4.6): register,
// unregister, list, and dispatching tools/call with input-schema
// validation via the injected SchemaValidator. Grounded on the teacher's
// service-wrapper pattern (thread.go's notification-listener map) for the
// subscriber/notify shape, enriched with goa-ai's JSON-Schema validation
// step before invoking the handler.
type ToolsRegistry struct {
	mu        sync.RWMutex
	tools     map[string]*registeredTool
	validator SchemaValidator
	notify    ChangeNotifier
	armed     bool
}

// NewToolsRegistry creates an empty registry backed by validator. Pass
// NewSchemaValidator() for the default jsonschema/v6-backed behavior.
func NewToolsRegistry(validator SchemaValidator) *ToolsRegistry {
	return &ToolsRegistry{
		tools:     make(map[string]*registeredTool),
		validator: validator,
	}
}

// Arm enables notify to fire on future mutations. Arm itself checks no
// session state; WireToolsNotifications arms with a closure that does.
func (r *ToolsRegistry) Arm(notify ChangeNotifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = notify
	r.armed = true
}

// Register adds or replaces a tool by name, compiling its input schema
// up-front so a malformed schema fails at registration rather than at call
// time.
func (r *ToolsRegistry) Register(tool Tool) error {
	var compiled CompiledSchema
	if len(tool.InputSchema) > 0 {
		c, err := r.validator.Compile(tool.InputSchema)
		if err != nil {
			return fmt.Errorf("compile schema for tool %q: %w", tool.Name, err)
		}
		compiled = c
	}

	r.mu.Lock()
	r.tools[tool.Name] = &registeredTool{tool: tool, schema: compiled}
	notify, armed := r.notify, r.armed
	r.mu.Unlock()

	if armed && notify != nil {
		notify()
	}
	return nil
}

// Unregister removes a tool by name. Reports whether it was present.
func (r *ToolsRegistry) Unregister(name string) bool {
	r.mu.Lock()
	_, ok := r.tools[name]
	delete(r.tools, name)
	notify, armed := r.notify, r.armed
	r.mu.Unlock()

	if ok && armed && notify != nil {
		notify()
	}
	return ok
}

// List returns all registered tools (Handler included) sorted by name,
// matching tools/list's expected stable ordering.
func (r *ToolsRegistry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, rt := range r.tools {
		out = append(out, rt.tool)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the tool registered under name.
func (r *ToolsRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.tools[name]
	if !ok {
		return Tool{}, false
	}
	return rt.tool, true
}

// Call validates args against the tool's input schema (if any) and invokes
// its handler.
func (r *ToolsRegistry) Call(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error) {
	r.mu.RLock()
	rt, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: fmt.Sprintf("unknown tool %q", name)})
	}

	if rt.schema != nil {
		instance := args
		if len(instance) == 0 {
			instance = json.RawMessage("{}")
		}
		if err := rt.schema.Validate(instance); err != nil {
			return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: err.Error()})
		}
	}

	return rt.tool.Handler(ctx, args)
}

// toolsListResult is the wire shape of tools/list: just the registered
// names (spec.md §6 — richer descriptors are available via List() for a
// host's own UI, but the wire contract is name-only).
type toolsListResult struct {
	Tools []string `json:"tools"`
}

type toolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// BindRouter registers tools/list and tools/call on router, gated on this
// side advertising the tools capability, and installs the router's
// unknown-method-as-tool-invocation fallback (spec.md §4.5): a request
// whose method names a registered tool is serviced the same as tools/call,
// with its result wrapped as {value: ...}.
func (r *ToolsRegistry) BindRouter(router *Router) {
	gate := func(caps *Capabilities) error { return requireCapability(caps.HasTools(), MethodToolsList) }

	router.HandleRequest(MethodToolsList, gate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		tools := r.List()
		names := make([]string, 0, len(tools))
		for _, t := range tools {
			names = append(names, t.Name)
		}
		return toolsListResult{Tools: names}, nil
	})

	router.HandleRequest(MethodToolsCall, gate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		var p toolsCallParams
		if err := params.Decode(&p); err != nil {
			return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: err.Error()})
		}
		return r.Call(ctx, p.Name, p.Arguments)
	})

	router.SetToolFallback(func(ctx context.Context, caps *Capabilities, method string, params ParamsValue) (interface{}, bool, error) {
		if _, ok := r.Get(method); !ok {
			return nil, false, nil
		}
		if err := requireCapability(caps.HasTools(), method); err != nil {
			return nil, true, err
		}
		result, err := r.Call(ctx, method, params.Raw())
		if err != nil {
			return nil, true, err
		}
		return map[string]interface{}{"value": result}, true, nil
	})
}
