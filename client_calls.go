package mcp

import (
	"context"
	"encoding/json"
)

// The methods below wrap Engine.Call for the standard MCP methods, giving
// callers typed results instead of raw json.RawMessage. Each one exercises
// outboundCapabilityGate exactly as a raw Call to the same method would —
// they add convenience, not a separate code path.

// ListTools calls tools/list on the peer.
func (e *Engine) ListTools(ctx context.Context) ([]string, error) {
	raw, err := e.Call(ctx, MethodToolsList, ParamsValue{})
	if err != nil {
		return nil, err
	}
	var result toolsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a peer-registered tool by name.
func (e *Engine) CallTool(ctx context.Context, name string, args json.RawMessage) (*ToolResult, error) {
	params, err := ValueParamsValue(toolsCallParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	raw, err := e.Call(ctx, MethodToolsCall, params)
	if err != nil {
		return nil, err
	}
	var result ToolResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListPrompts calls prompts/list on the peer.
func (e *Engine) ListPrompts(ctx context.Context) ([]Prompt, error) {
	raw, err := e.Call(ctx, MethodPromptsList, ParamsValue{})
	if err != nil {
		return nil, err
	}
	var result promptsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	prompts := make([]Prompt, 0, len(result.Prompts))
	for _, d := range result.Prompts {
		prompts = append(prompts, Prompt{
			Name: d.Name, Title: d.Title, Description: d.Description, Arguments: d.Arguments,
		})
	}
	return prompts, nil
}

// GetPrompt calls prompts/get on the peer.
func (e *Engine) GetPrompt(ctx context.Context, name string, args map[string]string) (*PromptResult, error) {
	return e.callPrompt(ctx, MethodPromptsGet, name, args)
}

// ExecutePrompt calls prompts/execute on the peer.
func (e *Engine) ExecutePrompt(ctx context.Context, name string, args map[string]string) (*PromptResult, error) {
	return e.callPrompt(ctx, MethodPromptsExecute, name, args)
}

func (e *Engine) callPrompt(ctx context.Context, method, name string, args map[string]string) (*PromptResult, error) {
	params, err := ValueParamsValue(promptsGetParams{Name: name, Arguments: args})
	if err != nil {
		return nil, err
	}
	raw, err := e.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}
	var result PromptResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources calls resources/list on the peer.
func (e *Engine) ListResources(ctx context.Context) ([]Resource, error) {
	raw, err := e.Call(ctx, MethodResourcesList, ParamsValue{})
	if err != nil {
		return nil, err
	}
	var result resourcesListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	resources := make([]Resource, 0, len(result.Resources))
	for _, d := range result.Resources {
		resources = append(resources, Resource{
			URI: d.URI, Name: d.Name, Title: d.Title, Description: d.Description, MimeType: d.MimeType,
		})
	}
	return resources, nil
}

// ListResourceTemplates calls resources/templates/list on the peer.
func (e *Engine) ListResourceTemplates(ctx context.Context) ([]ResourceTemplate, error) {
	raw, err := e.Call(ctx, MethodResourcesTemplatesList, ParamsValue{})
	if err != nil {
		return nil, err
	}
	var result resourcesTemplatesListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	templates := make([]ResourceTemplate, 0, len(result.ResourceTemplates))
	for _, d := range result.ResourceTemplates {
		templates = append(templates, ResourceTemplate{
			URITemplate: d.URITemplate, Name: d.Name, Title: d.Title, Description: d.Description, MimeType: d.MimeType,
		})
	}
	return templates, nil
}

// ReadResource calls resources/read on the peer.
func (e *Engine) ReadResource(ctx context.Context, uri string) ([]ResourceContents, error) {
	params, err := ValueParamsValue(resourcesReadParams{URI: uri})
	if err != nil {
		return nil, err
	}
	raw, err := e.Call(ctx, MethodResourcesRead, params)
	if err != nil {
		return nil, err
	}
	var result resourcesReadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result.Contents, nil
}

// SubscribeResource calls resources/subscribe on the peer.
func (e *Engine) SubscribeResource(ctx context.Context, uri string) error {
	params, err := ValueParamsValue(resourcesSubscribeParams{URI: uri})
	if err != nil {
		return err
	}
	_, err = e.Call(ctx, MethodResourcesSubscribe, params)
	return err
}

// UnsubscribeResource calls resources/unsubscribe on the peer.
func (e *Engine) UnsubscribeResource(ctx context.Context, uri string) error {
	params, err := ValueParamsValue(resourcesSubscribeParams{URI: uri})
	if err != nil {
		return err
	}
	_, err = e.Call(ctx, MethodResourcesUnsubscribe, params)
	return err
}

// ListRoots calls roots/list on the peer.
func (e *Engine) ListRoots(ctx context.Context) ([]string, error) {
	raw, err := e.Call(ctx, MethodRootsList, ParamsValue{})
	if err != nil {
		return nil, err
	}
	var result rootsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return result.Roots, nil
}

// SetLoggingLevel calls logging/setLevel on the peer.
func (e *Engine) SetLoggingLevel(ctx context.Context, level LogLevel) error {
	params, err := ValueParamsValue(setLevelParams{Level: level.String()})
	if err != nil {
		return err
	}
	_, err = e.Call(ctx, MethodLoggingSetLevel, params)
	return err
}

// CreateMessage calls sampling/createMessage on the peer — the server-role
// side of the sampling extension (sampling.go's SamplingGate services the
// matching client-role inbound request).
func (e *Engine) CreateMessage(ctx context.Context, params CreateMessageParams) (*CreateMessageResult, error) {
	p, err := ValueParamsValue(params)
	if err != nil {
		return nil, err
	}
	raw, err := e.Call(ctx, MethodSamplingCreateMessage, p)
	if err != nil {
		return nil, err
	}
	var result CreateMessageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
