package mcp

import (
	"context"
	"sort"
	"sync"
)

// Root is one filesystem or URI root the client exposes to a server
// (spec.md §4.6).
type Root struct {
	URI  string
	Name string
}

// RootsRegistry implements the Roots registry: a client-owned list the
// server can query via roots/list and that emits notifications/rootsChanged
// on mutation. Simpler than the other three registries — roots carry no
// handler, just descriptive data.
type RootsRegistry struct {
	mu     sync.RWMutex
	roots  map[string]Root
	notify ChangeNotifier
	armed  bool
}

// NewRootsRegistry creates an empty registry.
func NewRootsRegistry() *RootsRegistry {
	return &RootsRegistry{roots: make(map[string]Root)}
}

// Arm enables notify to fire on future mutations.
func (r *RootsRegistry) Arm(notify ChangeNotifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = notify
	r.armed = true
}

// Register adds or replaces a root by URI.
func (r *RootsRegistry) Register(root Root) {
	r.mu.Lock()
	r.roots[root.URI] = root
	notify, armed := r.notify, r.armed
	r.mu.Unlock()
	if armed && notify != nil {
		notify()
	}
}

// Unregister removes a root by URI. Reports whether it was present.
func (r *RootsRegistry) Unregister(uri string) bool {
	r.mu.Lock()
	_, ok := r.roots[uri]
	delete(r.roots, uri)
	notify, armed := r.notify, r.armed
	r.mu.Unlock()
	if ok && armed && notify != nil {
		notify()
	}
	return ok
}

// List returns all registered roots sorted by URI.
func (r *RootsRegistry) List() []Root {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Root, 0, len(r.roots))
	for _, root := range r.roots {
		out = append(out, root)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// rootsListResult is the wire shape of roots/list: plain URI strings
// (spec.md §6). Root.Name is a local convenience for a host's own UI and
// does not cross the wire.
type rootsListResult struct {
	Roots []string `json:"roots"`
}

// BindRouter registers roots/list on router, gated on this side (the
// client) advertising the roots capability.
func (r *RootsRegistry) BindRouter(router *Router) {
	gate := func(caps *Capabilities) error { return requireCapability(caps.HasRoots(), MethodRootsList) }

	router.HandleRequest(MethodRootsList, gate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		roots := r.List()
		uris := make([]string, 0, len(roots))
		for _, root := range roots {
			uris = append(uris, root.URI)
		}
		return rootsListResult{Roots: uris}, nil
	})
}
