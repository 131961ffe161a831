package mcp

import (
	"context"
	"encoding/json"
)

// The Wire* helpers connect a registry's change notifications to an
// Engine's outbound Notify, gated on the session being Ready and this side
// actually advertising the relevant listChanged/subscribe capability —
// the same guard a hand-wired caller would need, pulled out once since
// every registry repeats it identically.

// WireToolsNotifications arms reg to emit notifications/tools/list_changed
// through e whenever the tool set changes.
func WireToolsNotifications(e *Engine, reg *ToolsRegistry) {
	reg.Arm(func() {
		caps := e.Session().LocalCapabilities()
		if !e.Session().Ready() || !caps.HasTools() || !caps.Tools.ListChanged {
			return
		}
		_ = e.Notify(context.Background(), MethodToolsListChanged, ParamsValue{})
	})
}

// WirePromptsNotifications arms reg to emit
// notifications/prompts/list_changed through e whenever the prompt set
// changes.
func WirePromptsNotifications(e *Engine, reg *PromptsRegistry) {
	reg.Arm(func() {
		caps := e.Session().LocalCapabilities()
		if !e.Session().Ready() || !caps.HasPrompts() || !caps.Prompts.ListChanged {
			return
		}
		_ = e.Notify(context.Background(), MethodPromptsListChanged, ParamsValue{})
	})
}

// WireRootsNotifications arms reg to emit
// notifications/rootsChanged through e whenever the root set
// changes.
func WireRootsNotifications(e *Engine, reg *RootsRegistry) {
	reg.Arm(func() {
		caps := e.Session().LocalCapabilities()
		if !e.Session().Ready() || !caps.HasRoots() || !caps.Roots.ListChanged {
			return
		}
		_ = e.Notify(context.Background(), MethodRootsListChanged, ParamsValue{})
	})
}

// WireResourcesNotifications arms reg to emit both
// notifications/resources/list_changed on registration changes and
// notifications/resources/updated for subscribed URIs on content changes.
func WireResourcesNotifications(e *Engine, reg *ResourcesRegistry) {
	reg.ArmListChanged(func() {
		caps := e.Session().LocalCapabilities()
		if !e.Session().Ready() || !caps.HasResources() || !caps.Resources.ListChanged {
			return
		}
		_ = e.Notify(context.Background(), MethodResourcesListChanged, ParamsValue{})
	})
	reg.ArmUpdates(func(uri string, content []ResourceContents) {
		if !e.Session().Ready() || !e.Session().LocalCapabilities().resourcesSubscribe() {
			return
		}
		params, err := ValueParamsValue(struct {
			URI     string             `json:"uri"`
			Content []ResourceContents `json:"content"`
		}{URI: uri, Content: content})
		if err != nil {
			return
		}
		_ = e.Notify(context.Background(), MethodResourcesUpdated, params)
	})
}

// WireLogging wires filter's peer-forwarding emit to e.Notify, completing
// the Logging Filter's connection to the Protocol Engine.
func WireLogging(e *Engine, filter *LoggingFilter) {
	filter.SetEmit(func(ctx context.Context, level LogLevel, logger string, data json.RawMessage) {
		if !e.Session().Ready() || !e.Session().LocalCapabilities().HasLogging() {
			return
		}
		params, err := logNotifyParams(level, logger, data)
		if err != nil {
			return
		}
		_ = e.Notify(ctx, MethodLoggingMessage, params)
	})
}
