package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// PromptArgument describes one named argument a prompt template accepts.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

// PromptMessage is one turn of a rendered prompt.
type PromptMessage struct {
	Role    string       `json:"role"`
	Content ContentBlock `json:"content"`
}

// PromptResult is the rendered output of prompts/get.
type PromptResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// PromptHandler renders a prompt template against the caller-supplied
// argument values.
type PromptHandler func(ctx context.Context, args map[string]string) (*PromptResult, error)

// Prompt describes one registered prompt template (spec.md §4.6).
type Prompt struct {
	Name        string
	Title       string
	Description string
	Arguments   []PromptArgument
	Handler     PromptHandler
}

// PromptsRegistry implements the Prompts registry (spec.md §4.6): register,
// unregister, list, and get-with-argument-substitution. Structurally
// identical to ToolsRegistry's bookkeeping, grounded the same way, minus
// schema validation — prompt arguments are always plain strings.
type PromptsRegistry struct {
	mu      sync.RWMutex
	prompts map[string]Prompt
	notify  ChangeNotifier
	armed   bool
}

// NewPromptsRegistry creates an empty registry.
func NewPromptsRegistry() *PromptsRegistry {
	return &PromptsRegistry{prompts: make(map[string]Prompt)}
}

// Arm enables notify to fire on future mutations.
func (r *PromptsRegistry) Arm(notify ChangeNotifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = notify
	r.armed = true
}

// Register adds or replaces a prompt by name.
func (r *PromptsRegistry) Register(p Prompt) {
	r.mu.Lock()
	r.prompts[p.Name] = p
	notify, armed := r.notify, r.armed
	r.mu.Unlock()
	if armed && notify != nil {
		notify()
	}
}

// Unregister removes a prompt by name. Reports whether it was present.
func (r *PromptsRegistry) Unregister(name string) bool {
	r.mu.Lock()
	_, ok := r.prompts[name]
	delete(r.prompts, name)
	notify, armed := r.notify, r.armed
	r.mu.Unlock()
	if ok && armed && notify != nil {
		notify()
	}
	return ok
}

// List returns all registered prompts sorted by name.
func (r *PromptsRegistry) List() []Prompt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get renders the prompt registered under name against args.
func (r *PromptsRegistry) Get(ctx context.Context, name string, args map[string]string) (*PromptResult, error) {
	r.mu.RLock()
	p, ok := r.prompts[name]
	r.mu.RUnlock()
	if !ok {
		return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: fmt.Sprintf("unknown prompt %q", name)})
	}
	for _, arg := range p.Arguments {
		if arg.Required {
			if _, ok := args[arg.Name]; !ok {
				return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: fmt.Sprintf("missing required argument %q", arg.Name)})
			}
		}
	}
	return p.Handler(ctx, args)
}

type promptDescriptor struct {
	Name        string           `json:"name"`
	Title       string           `json:"title,omitempty"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

type promptsListResult struct {
	Prompts []promptDescriptor `json:"prompts"`
}

type promptsGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// BindRouter registers prompts/list, prompts/get and prompts/execute on
// router, gated on
// this side advertising the prompts capability.
func (r *PromptsRegistry) BindRouter(router *Router) {
	gate := func(caps *Capabilities) error { return requireCapability(caps.HasPrompts(), MethodPromptsList) }

	router.HandleRequest(MethodPromptsList, gate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		prompts := r.List()
		descriptors := make([]promptDescriptor, 0, len(prompts))
		for _, p := range prompts {
			descriptors = append(descriptors, promptDescriptor{
				Name:        p.Name,
				Title:       p.Title,
				Description: p.Description,
				Arguments:   p.Arguments,
			})
		}
		return promptsListResult{Prompts: descriptors}, nil
	})

	router.HandleRequest(MethodPromptsGet, gate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		var p promptsGetParams
		if err := params.Decode(&p); err != nil {
			return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: err.Error()})
		}
		return r.Get(ctx, p.Name, p.Arguments)
	})

	// prompts/execute runs the same named handler as prompts/get — this
	// registry collapses the source's separate template-generation/executor
	// steps into one PromptHandler, so the two methods differ only in name.
	router.HandleRequest(MethodPromptsExecute, gate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		var p promptsGetParams
		if err := params.Decode(&p); err != nil {
			return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: err.Error()})
		}
		return r.Get(ctx, p.Name, p.Arguments)
	})
}
