// Package mcp implements a bidirectional JSON-RPC 2.0 engine for the
// Model Context Protocol: framing and codec, pluggable transports
// (in-memory, line-delimited stdio, SSE+HTTP), message validation, request
// correlation with cancellation and progress, capability-gated method
// routing, and the four capability registries — Tools, Prompts,
// Resources+Templates, and Roots — alongside an Auth Gate and a Logging
// Filter.
//
// A host embeds an Engine in RoleClient to talk to a capability provider,
// or in RoleServer to expose one. Both roles share the same Transport,
// Router, and Correlator machinery; only the handshake direction and the
// registries bound to the router differ.
package mcp
