package mcp

import (
	"context"
	"sync"
)

// CompletionReference names what is being completed against: a prompt
// name or a resource URI template.
type CompletionReference struct {
	Type string `json:"type"` // "ref/prompt" or "ref/resource"
	Name string `json:"name,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// CompletionArgument is the partially-typed argument the caller wants
// completions for.
type CompletionArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CompleteParams is the payload of completion/complete.
type CompleteParams struct {
	Ref      CompletionReference `json:"ref"`
	Argument CompletionArgument  `json:"argument"`
}

// Completion is the candidate list returned by completion/complete.
type Completion struct {
	Values  []string `json:"values"`
	Total   int      `json:"total,omitempty"`
	HasMore bool     `json:"hasMore,omitempty"`
}

// CompleteResult wraps a Completion in its wire envelope.
type CompleteResult struct {
	Completion Completion `json:"completion"`
}

// CompletionHandler produces argument completions for a prompt or resource
// template reference.
type CompletionHandler func(ctx context.Context, params CompleteParams) (*CompleteResult, error)

// CompletionGate holds the server-side handler for completion/complete,
// an optional capability servers may offer alongside prompts/resources to
// support argument autocompletion in a host's UI.
type CompletionGate struct {
	mu      sync.RWMutex
	handler CompletionHandler
}

// NewCompletionGate creates a gate with no handler configured.
func NewCompletionGate() *CompletionGate { return &CompletionGate{} }

// SetHandler installs the function that services completion/complete.
func (g *CompletionGate) SetHandler(h CompletionHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = h
}

func (g *CompletionGate) call(ctx context.Context, params CompleteParams) (*CompleteResult, error) {
	g.mu.RLock()
	h := g.handler
	g.mu.RUnlock()
	if h == nil {
		return nil, NewCapabilityError("no completion handler configured")
	}
	return h(ctx, params)
}

// BindRouter registers completion/complete on router. There is no
// dedicated capability flag for it in the base spec; a configured handler
// is itself the gate.
func (g *CompletionGate) BindRouter(router *Router) {
	decode := func(params ParamsValue) (CompleteParams, error) {
		var p CompleteParams
		err := params.Decode(&p)
		return p, err
	}
	router.HandleRequest(MethodCompletionComplete, nil, handleMediated(decode, g.call))
}
