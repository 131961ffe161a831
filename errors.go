package mcp

import (
	"encoding/json"
	"fmt"
)

// JSON-RPC 2.0 and MCP-specific error codes (spec.md §6).
const (
	ErrCodeParseError            = -32700
	ErrCodeInvalidRequest        = -32600
	ErrCodeMethodNotFound        = -32601
	ErrCodeInvalidParams         = -32602
	ErrCodeInternalError         = -32603
	ErrCodeServerNotInitialized  = -32002
	ErrCodeRequestFailed         = -32001
	ErrCodeAuthorizationError    = -32401
)

// RPCError wraps a JSON-RPC error response carried on the wire.
// Data is deliberately excluded from Error() — it is peer-controlled and
// may carry sensitive detail. Use Data() to access it explicitly.
type RPCError struct {
	err *Error
}

// NewRPCError wraps a JSON-RPC Error object.
func NewRPCError(err *Error) *RPCError {
	return &RPCError{err: err}
}

func (e *RPCError) Error() string {
	if e.err == nil {
		return "rpc error: <nil>"
	}
	return fmt.Sprintf("rpc error: code=%d message=%q", e.err.Code, e.err.Message)
}

// RPCError returns the underlying JSON-RPC error object.
func (e *RPCError) RPCError() *Error { return e.err }

// Code returns the JSON-RPC error code.
func (e *RPCError) Code() int {
	if e.err == nil {
		return 0
	}
	return e.err.Code
}

// Data returns the raw error data, if any. Peer-controlled.
func (e *RPCError) Data() json.RawMessage {
	if e.err == nil {
		return nil
	}
	return e.err.Data
}

// Is implements errors.Is by comparing error codes.
func (e *RPCError) Is(target error) bool {
	t, ok := target.(*RPCError)
	if !ok {
		return false
	}
	if e.err == nil || t.err == nil {
		return e.err == t.err
	}
	return e.err.Code == t.err.Code
}

// TransportError wraps I/O or connection failures not tied to a request id.
type TransportError struct {
	msg   string
	cause error
}

func NewTransportError(msg string, cause error) *TransportError {
	return &TransportError{msg: msg, cause: cause}
}

func (e *TransportError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("transport error: %s: %v", e.msg, e.cause)
	}
	return fmt.Sprintf("transport error: %s", e.msg)
}

func (e *TransportError) Unwrap() error { return e.cause }

// TimeoutError represents a request timing out before a response arrived.
type TimeoutError struct {
	msg   string
	cause error
}

func NewTimeoutError(msg string) *TimeoutError {
	return &TimeoutError{msg: msg}
}

func (e *TimeoutError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("timeout: %s: %v", e.msg, e.cause)
	}
	return fmt.Sprintf("timeout: %s", e.msg)
}

func (e *TimeoutError) Unwrap() error { return e.cause }

// Is matches all TimeoutError instances; timeouts are semantically equivalent.
func (e *TimeoutError) Is(target error) bool {
	_, ok := target.(*TimeoutError)
	return ok
}

// CanceledError represents a request cancellation, local or peer-initiated.
type CanceledError struct {
	reason string
}

func NewCanceledError(reason string) *CanceledError {
	return &CanceledError{reason: reason}
}

func (e *CanceledError) Error() string {
	if e.reason == "" {
		return "canceled"
	}
	return fmt.Sprintf("canceled: %s", e.reason)
}

// Reason returns the peer- or caller-supplied cancellation reason, if any.
func (e *CanceledError) Reason() string { return e.reason }

// Is matches all CanceledError instances.
func (e *CanceledError) Is(target error) bool {
	_, ok := target.(*CanceledError)
	return ok
}

// CapabilityError is raised locally, before any wire transmission, when the
// caller invokes a method the peer hasn't advertised support for.
type CapabilityError struct {
	msg string
}

func NewCapabilityError(msg string) *CapabilityError {
	return &CapabilityError{msg: msg}
}

func (e *CapabilityError) Error() string { return e.msg }

func (e *CapabilityError) Is(target error) bool {
	_, ok := target.(*CapabilityError)
	return ok
}

// ProtocolVersionMismatchError is returned when a peer's handshake reply
// advertises a protocol version that does not match LATEST.
type ProtocolVersionMismatchError struct {
	Got, Want string
}

func (e *ProtocolVersionMismatchError) Error() string {
	return fmt.Sprintf("protocol version mismatch: got %q, want %q", e.Got, e.Want)
}

func (e *ProtocolVersionMismatchError) Is(target error) bool {
	_, ok := target.(*ProtocolVersionMismatchError)
	return ok
}

// AlreadyInitializedError is returned by a double Connect/handshake attempt.
type AlreadyInitializedError struct{}

func (e *AlreadyInitializedError) Error() string { return "already initialized" }

func (e *AlreadyInitializedError) Is(target error) bool {
	_, ok := target.(*AlreadyInitializedError)
	return ok
}

// NotConnectedError is returned by Send/Notify on a transport that has not
// connected, or has already been closed.
type NotConnectedError struct{}

func (e *NotConnectedError) Error() string { return "not connected" }

func (e *NotConnectedError) Is(target error) bool {
	_, ok := target.(*NotConnectedError)
	return ok
}

// ServerNotInitializedError mirrors the wire error code -32002: a non-initialize
// request arrived at a server session that has not reached Ready.
type ServerNotInitializedError struct{}

func (e *ServerNotInitializedError) Error() string { return "server not initialized" }

func (e *ServerNotInitializedError) Is(target error) bool {
	_, ok := target.(*ServerNotInitializedError)
	return ok
}

// AuthorizationError mirrors the wire error code -32401.
type AuthorizationError struct {
	msg string
}

func NewAuthorizationError(msg string) *AuthorizationError {
	return &AuthorizationError{msg: msg}
}

func (e *AuthorizationError) Error() string { return e.msg }

func (e *AuthorizationError) Is(target error) bool {
	_, ok := target.(*AuthorizationError)
	return ok
}

// TokenExpiredError distinguishes an expired token from other verification
// failures (spec.md §4.7: "exp < now ⇒ TokenExpired"). Still wire-coded as
// -32401, same as AuthorizationError.
type TokenExpiredError struct {
	Subject string
}

func (e *TokenExpiredError) Error() string { return "token expired" }

func (e *TokenExpiredError) Is(target error) bool {
	_, ok := target.(*TokenExpiredError)
	return ok
}
