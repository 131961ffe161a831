package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// LogLevel is one of the eight RFC 5424 syslog severities the Logging
// Filter gates on (spec.md §4.8).
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelNotice
	LevelWarning
	LevelError
	LevelCritical
	LevelAlert
	LevelEmergency
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelNotice:
		return "notice"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	case LevelAlert:
		return "alert"
	case LevelEmergency:
		return "emergency"
	default:
		return "info"
	}
}

func parseLogLevel(s string) (LogLevel, error) {
	switch s {
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "notice":
		return LevelNotice, nil
	case "warning":
		return LevelWarning, nil
	case "error":
		return LevelError, nil
	case "critical":
		return LevelCritical, nil
	case "alert":
		return LevelAlert, nil
	case "emergency":
		return LevelEmergency, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// slogLevel maps an MCP LogLevel to the nearest log/slog.Level for local
// mirroring.
func (l LogLevel) slogLevel() slog.Level {
	switch {
	case l <= LevelDebug:
		return slog.LevelDebug
	case l <= LevelNotice:
		return slog.LevelInfo
	case l <= LevelWarning:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

// LoggingFilter implements the Logging Filter (spec.md §4.8): a
// severity-gated sink that mirrors entries to a local structured logger and
// forwards anything at or above the configured minimum severity to the
// peer as notifications/message. Grounded on genai-toolbox's
// internal/log/log.go slog wiring, adding the wire-level severity gate and
// logging/setLevel control that genai-toolbox's logger (local-only) has no
// analog for.
type LoggingFilter struct {
	mu       sync.RWMutex
	minLevel LogLevel
	levelSet bool
	slogger  *slog.Logger
	emit     func(ctx context.Context, level LogLevel, logger string, data json.RawMessage)
}

// NewLoggingFilter creates a filter mirroring to slogger. Peer forwarding
// starts disarmed — loggingLevel is unset (spec.md §4.8) until the peer
// calls logging/setLevel, so no notifications/message is emitted no matter
// how severe an entry is until that first call.
func NewLoggingFilter(slogger *slog.Logger) *LoggingFilter {
	if slogger == nil {
		slogger = slog.Default()
	}
	return &LoggingFilter{slogger: slogger}
}

// SetEmit wires the function used to forward a qualifying entry to the
// peer — typically Engine.Notify bound to MethodLoggingMessage.
func (f *LoggingFilter) SetEmit(emit func(ctx context.Context, level LogLevel, logger string, data json.RawMessage)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emit = emit
}

// Log mirrors an entry to the local slog.Logger unconditionally, and
// forwards it to the peer only if level is at or above the configured
// minimum.
func (f *LoggingFilter) Log(ctx context.Context, level LogLevel, logger string, data interface{}) {
	raw, err := json.Marshal(data)
	if err != nil {
		raw = json.RawMessage(`null`)
	}

	f.slogger.Log(ctx, level.slogLevel(), "mcp log", "level", level.String(), "logger", logger, "data", string(raw))

	f.mu.RLock()
	min := f.minLevel
	set := f.levelSet
	emit := f.emit
	f.mu.RUnlock()
	if !set || level < min || emit == nil {
		return
	}
	emit(ctx, level, logger, raw)
}

// SetLevel updates the minimum severity forwarded to the peer and arms
// forwarding (it is unset, and forwarding disarmed, until this is called —
// spec.md §4.8).
func (f *LoggingFilter) SetLevel(level LogLevel) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.minLevel = level
	f.levelSet = true
}

type logMessageParams struct {
	Level  string          `json:"level"`
	Logger string          `json:"logger,omitempty"`
	Data   json.RawMessage `json:"data"`
}

type setLevelParams struct {
	Level string `json:"level"`
}

// BindRouter registers logging/setLevel on router, gated on this side
// advertising the logging capability.
func (f *LoggingFilter) BindRouter(router *Router) {
	gate := func(caps *Capabilities) error { return requireCapability(caps.HasLogging(), MethodLoggingSetLevel) }

	router.HandleRequest(MethodLoggingSetLevel, gate, func(ctx context.Context, params ParamsValue) (interface{}, error) {
		var p setLevelParams
		if err := params.Decode(&p); err != nil {
			return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: err.Error()})
		}
		level, err := parseLogLevel(p.Level)
		if err != nil {
			return nil, NewRPCError(&Error{Code: ErrCodeInvalidParams, Message: err.Error()})
		}
		f.SetLevel(level)
		return struct{}{}, nil
	})
}

// logNotifyParams builds the params for a notifications/message emission,
// so WireLogging's emit closure doesn't need to know the wire shape.
func logNotifyParams(level LogLevel, logger string, data json.RawMessage) (ParamsValue, error) {
	return ValueParamsValue(logMessageParams{Level: level.String(), Logger: logger, Data: data})
}
