package mcp

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// ResourceContents is the content of one resource read (spec.md §4.6): text
// or base64-encoded binary, never both.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text,omitempty"`
	Blob     string `json:"blob,omitempty"`
}

// Resource describes one concrete, directly addressable resource.
type Resource struct {
	URI         string
	Name        string
	Title       string
	Description string
	MimeType    string
}

// ResourceTemplate describes a URI template from which a family of
// resources can be constructed (spec.md §4.6's Resources+Templates
// registry).
type ResourceTemplate struct {
	URITemplate string
	Name        string
	Title       string
	Description string
	MimeType    string
}

// ResourceReader produces the contents of a resource at read time.
type ResourceReader func(ctx context.Context, uri string) ([]ResourceContents, error)

type registeredResource struct {
	resource Resource
	reader   ResourceReader
}

// ResourcesRegistry implements the Resources+Templates registry (spec.md
// §4.6): concrete resources with readers, URI templates for discovery, and
// per-URI subscribe/unsubscribe tracked so the owner knows when a content
// change is worth a notifications/resources/updated. Grounded on the
// teacher's thread.go notification-listener map, generalized from
// per-thread listeners to per-URI subscription state.
type ResourcesRegistry struct {
	mu        sync.RWMutex
	resources map[string]*registeredResource
	templates []ResourceTemplate
	subscribed map[string]bool

	listChangedNotify ChangeNotifier
	listChangedArmed  bool

	updateNotify func(uri string, content []ResourceContents)
	updateArmed  bool
}

// NewResourcesRegistry creates an empty registry.
func NewResourcesRegistry() *ResourcesRegistry {
	return &ResourcesRegistry{
		resources:  make(map[string]*registeredResource),
		subscribed: make(map[string]bool),
	}
}

// ArmListChanged enables notify to fire on register/unregister.
func (r *ResourcesRegistry) ArmListChanged(notify ChangeNotifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listChangedNotify = notify
	r.listChangedArmed = true
}

// ArmUpdates enables notify to fire from NotifyUpdated for subscribed URIs.
func (r *ResourcesRegistry) ArmUpdates(notify func(uri string, content []ResourceContents)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updateNotify = notify
	r.updateArmed = true
}

// RegisterResource adds or replaces a concrete resource and its reader.
func (r *ResourcesRegistry) RegisterResource(res Resource, reader ResourceReader) {
	r.mu.Lock()
	r.resources[res.URI] = &registeredResource{resource: res, reader: reader}
	notify, armed := r.listChangedNotify, r.listChangedArmed
	r.mu.Unlock()
	if armed && notify != nil {
		notify()
	}
}

// UnregisterResource removes a resource by URI. Reports whether it was
// present.
func (r *ResourcesRegistry) UnregisterResource(uri string) bool {
	r.mu.Lock()
	_, ok := r.resources[uri]
	delete(r.resources, uri)
	delete(r.subscribed, uri)
	notify, armed := r.listChangedNotify, r.listChangedArmed
	r.mu.Unlock()
	if ok && armed && notify != nil {
		notify()
	}
	return ok
}

// RegisterTemplate adds a URI template.
func (r *ResourcesRegistry) RegisterTemplate(t ResourceTemplate) {
	r.mu.Lock()
	r.templates = append(r.templates, t)
	notify, armed := r.listChangedNotify, r.listChangedArmed
	r.mu.Unlock()
	if armed && notify != nil {
		notify()
	}
}

// List returns all registered concrete resources sorted by URI.
func (r *ResourcesRegistry) List() []Resource {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Resource, 0, len(r.resources))
	for _, rr := range r.resources {
		out = append(out, rr.resource)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].URI < out[j].URI })
	return out
}

// ListTemplates returns all registered URI templates.
func (r *ResourcesRegistry) ListTemplates() []ResourceTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ResourceTemplate, len(r.templates))
	copy(out, r.templates)
	return out
}

// Read fetches the contents of uri via its registered reader.
func (r *ResourcesRegistry) Read(ctx context.Context, uri string) ([]ResourceContents, error) {
	r.mu.RLock()
	rr, ok := r.resources[uri]
	r.mu.RUnlock()
	if !ok {
		return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: fmt.Sprintf("unknown resource %q", uri)})
	}
	return rr.reader(ctx, uri)
}

// Subscribe marks uri as subscribed, so a later NotifyUpdated call fires.
func (r *ResourcesRegistry) Subscribe(uri string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resources[uri]; !ok {
		return NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: fmt.Sprintf("unknown resource %q", uri)})
	}
	r.subscribed[uri] = true
	return nil
}

// Unsubscribe clears uri's subscription.
func (r *ResourcesRegistry) Unsubscribe(uri string) {
	r.mu.Lock()
	delete(r.subscribed, uri)
	r.mu.Unlock()
}

// NotifyUpdated fires the update notifier for uri with its current content
// if it's currently subscribed. Called by the resource owner after a
// content change (spec.md §4.6: "content mutates on re-register").
func (r *ResourcesRegistry) NotifyUpdated(ctx context.Context, uri string) {
	r.mu.RLock()
	subscribed := r.subscribed[uri]
	notify, armed := r.updateNotify, r.updateArmed
	r.mu.RUnlock()
	if !subscribed || !armed || notify == nil {
		return
	}
	content, err := r.Read(ctx, uri)
	if err != nil {
		return
	}
	notify(uri, content)
}

type resourceDescriptor struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type resourcesListResult struct {
	Resources []resourceDescriptor `json:"resources"`
}

type resourceTemplateDescriptor struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

type resourcesTemplatesListResult struct {
	ResourceTemplates []resourceTemplateDescriptor `json:"resourceTemplates"`
}

type resourcesReadParams struct {
	URI string `json:"uri"`
}

type resourcesReadResult struct {
	Contents []ResourceContents `json:"contents"`
}

type resourcesSubscribeParams struct {
	URI string `json:"uri"`
}

// BindRouter registers resources/list, resources/read,
// resources/templates/list, and (when subscribe is advertised)
// resources/subscribe+resources/unsubscribe on router.
func (r *ResourcesRegistry) BindRouter(router *Router) {
	gate := func(caps *Capabilities) error { return requireCapability(caps.HasResources(), MethodResourcesList) }
	subGate := func(caps *Capabilities) error { return requireCapability(caps.resourcesSubscribe(), MethodResourcesSubscribe) }

	router.HandleRequest(MethodResourcesList, gate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		resources := r.List()
		descriptors := make([]resourceDescriptor, 0, len(resources))
		for _, res := range resources {
			descriptors = append(descriptors, resourceDescriptor{
				URI: res.URI, Name: res.Name, Title: res.Title,
				Description: res.Description, MimeType: res.MimeType,
			})
		}
		return resourcesListResult{Resources: descriptors}, nil
	})

	router.HandleRequest(MethodResourcesTemplatesList, gate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		templates := r.ListTemplates()
		descriptors := make([]resourceTemplateDescriptor, 0, len(templates))
		for _, t := range templates {
			descriptors = append(descriptors, resourceTemplateDescriptor{
				URITemplate: t.URITemplate, Name: t.Name, Title: t.Title,
				Description: t.Description, MimeType: t.MimeType,
			})
		}
		return resourcesTemplatesListResult{ResourceTemplates: descriptors}, nil
	})

	router.HandleRequest(MethodResourcesRead, gate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		var p resourcesReadParams
		if err := params.Decode(&p); err != nil {
			return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: err.Error()})
		}
		contents, err := r.Read(ctx, p.URI)
		if err != nil {
			return nil, err
		}
		return resourcesReadResult{Contents: contents}, nil
	})

	router.HandleRequest(MethodResourcesSubscribe, subGate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		var p resourcesSubscribeParams
		if err := params.Decode(&p); err != nil {
			return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: err.Error()})
		}
		if err := r.Subscribe(p.URI); err != nil {
			return nil, err
		}
		return struct{}{}, nil
	})

	router.HandleRequest(MethodResourcesUnsubscribe, subGate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		var p resourcesSubscribeParams
		if err := params.Decode(&p); err != nil {
			return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: err.Error()})
		}
		r.Unsubscribe(p.URI)
		return struct{}{}, nil
	})
}
