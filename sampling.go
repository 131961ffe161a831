package mcp

import (
	"context"
	"sync"
)

// handleMediated adapts a typed (decode, handle) pair into a RequestHandler,
// generalizing the teacher's generic handleApproval[P, R] pattern
// (approval.go) from Codex's server-initiated approval requests to any
// server-to-client (or client-to-server) mediated request: decode params
// into P, hand it to the caller-supplied function, and let the Engine
// marshal whatever R comes back.
func handleMediated[P any, R any](decode func(ParamsValue) (P, error), fn func(context.Context, P) (R, error)) RequestHandler {
	return func(ctx context.Context, params ParamsValue) (interface{}, error) {
		p, err := decode(params)
		if err != nil {
			return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: err.Error()})
		}
		return fn(ctx, p)
	}
}

// ModelHint is a soft suggestion toward a particular model family.
type ModelHint struct {
	Name string `json:"name,omitempty"`
}

// ModelPreferences expresses the caller's tradeoffs among cost, speed, and
// capability (spec.md's sampling extension).
type ModelPreferences struct {
	Hints                []ModelHint `json:"hints,omitempty"`
	CostPriority         float64     `json:"costPriority,omitempty"`
	SpeedPriority        float64     `json:"speedPriority,omitempty"`
	IntelligencePriority float64     `json:"intelligencePriority,omitempty"`
}

// SamplingMessage is one turn offered to the model.
type SamplingMessage struct {
	Role    string       `json:"role"`
	Content ContentBlock `json:"content"`
}

// CreateMessageParams is the payload of a server-initiated
// sampling/createMessage request.
type CreateMessageParams struct {
	Messages         []SamplingMessage `json:"messages"`
	ModelPreferences *ModelPreferences `json:"modelPreferences,omitempty"`
	SystemPrompt     string            `json:"systemPrompt,omitempty"`
	MaxTokens        int               `json:"maxTokens,omitempty"`
}

// CreateMessageResult is the client's sampled completion.
type CreateMessageResult struct {
	Role       string       `json:"role"`
	Content    ContentBlock `json:"content"`
	Model      string       `json:"model,omitempty"`
	StopReason string       `json:"stopReason,omitempty"`
}

// SamplingHandler services a sampling/createMessage request on the client
// side, typically by prompting the host's own model and returning its
// completion.
type SamplingHandler func(ctx context.Context, params CreateMessageParams) (*CreateMessageResult, error)

// SamplingGate holds the client-side handler for server-initiated
// sampling/createMessage requests. A client that never calls SetHandler
// rejects sampling/createMessage with a capability error, matching a client
// that never advertised the sampling capability.
type SamplingGate struct {
	mu      sync.RWMutex
	handler SamplingHandler
}

// NewSamplingGate creates a gate with no handler configured.
func NewSamplingGate() *SamplingGate { return &SamplingGate{} }

// SetHandler installs the function that services sampling/createMessage.
func (g *SamplingGate) SetHandler(h SamplingHandler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handler = h
}

func (g *SamplingGate) call(ctx context.Context, params CreateMessageParams) (*CreateMessageResult, error) {
	g.mu.RLock()
	h := g.handler
	g.mu.RUnlock()
	if h == nil {
		return nil, NewCapabilityError("no sampling handler configured")
	}
	return h(ctx, params)
}

// BindRouter registers sampling/createMessage on router, gated on this
// side (the client) advertising the sampling capability.
func (g *SamplingGate) BindRouter(router *Router) {
	gate := func(caps *Capabilities) error { return requireCapability(caps.HasSampling(), MethodSamplingCreateMessage) }

	decode := func(params ParamsValue) (CreateMessageParams, error) {
		var p CreateMessageParams
		err := params.Decode(&p)
		return p, err
	}

	router.HandleRequest(MethodSamplingCreateMessage, gate, handleMediated(decode, g.call))
}
