package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const jsonrpcVersion = "2.0"

// RequestID is a union type: string | int64 | nil, matching the JSON-RPC 2.0
// id field. Zero value (Value == nil) represents the absent id used by
// notifications.
type RequestID struct {
	Value interface{}
}

// NewRequestID wraps an int64 or string as a RequestID.
func NewRequestID(v interface{}) RequestID { return RequestID{Value: v} }

func (r RequestID) String() string {
	switch v := r.Value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (r RequestID) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value)
}

func (r *RequestID) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	r.Value = v
	return nil
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("code=%d message=%q", e.Code, e.Message)
}

// ParamsValue is the duck-typed params/result carried by a message: the wire
// allows arbitrary JSON, so handlers decode through their own schema rather
// than the engine assuming a shape (Design Notes §9).
type ParamsValue struct {
	raw json.RawMessage
}

// RawParamsValue wraps an already-serialized JSON value.
func RawParamsValue(raw json.RawMessage) ParamsValue { return ParamsValue{raw: raw} }

// ValueParamsValue marshals v into a ParamsValue.
func ValueParamsValue(v interface{}) (ParamsValue, error) {
	if v == nil {
		return ParamsValue{}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return ParamsValue{}, err
	}
	return ParamsValue{raw: raw}, nil
}

// IsZero reports whether no params were carried at all.
func (p ParamsValue) IsZero() bool { return len(p.raw) == 0 }

// Raw returns the underlying JSON bytes.
func (p ParamsValue) Raw() json.RawMessage { return p.raw }

// Decode unmarshals the params into v.
func (p ParamsValue) Decode(v interface{}) error {
	if len(p.raw) == 0 {
		return nil
	}
	return json.Unmarshal(p.raw, v)
}

// Object returns the params as a map, if it decodes as a JSON object.
func (p ParamsValue) Object() (map[string]interface{}, bool) {
	if len(p.raw) == 0 {
		return nil, false
	}
	var m map[string]interface{}
	if err := json.Unmarshal(p.raw, &m); err != nil {
		return nil, false
	}
	return m, true
}

// metaEnvelope is the shape used to read/write params._meta.progressToken
// without requiring handlers to know about it.
type metaEnvelope struct {
	Meta *struct {
		ProgressToken json.RawMessage `json:"progressToken,omitempty"`
	} `json:"_meta,omitempty"`
}

// ProgressToken extracts params._meta.progressToken, if present.
func (p ParamsValue) ProgressToken() (ProgressToken, bool) {
	if len(p.raw) == 0 {
		return ProgressToken{}, false
	}
	var env metaEnvelope
	if err := json.Unmarshal(p.raw, &env); err != nil || env.Meta == nil || len(env.Meta.ProgressToken) == 0 {
		return ProgressToken{}, false
	}
	var v interface{}
	if err := json.Unmarshal(env.Meta.ProgressToken, &v); err != nil {
		return ProgressToken{}, false
	}
	return ProgressToken{Value: v}, true
}

// WithProgressToken returns params with _meta.progressToken set to token,
// merging into any existing object-shaped params.
func WithProgressToken(raw json.RawMessage, token ProgressToken) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &obj); err != nil {
			return nil, fmt.Errorf("params must be an object to carry a progress token: %w", err)
		}
	}
	if obj == nil {
		obj = make(map[string]json.RawMessage)
	}
	tokenJSON, err := json.Marshal(token.Value)
	if err != nil {
		return nil, err
	}
	meta := map[string]json.RawMessage{"progressToken": tokenJSON}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	obj["_meta"] = metaJSON
	return json.Marshal(obj)
}

// ProgressToken is an opaque identifier placed in params._meta.progressToken
// so the peer can emit notifications/progress tied to a request without
// knowing the request id.
type ProgressToken struct {
	Value interface{}
}

func (p ProgressToken) String() string { return fmt.Sprintf("%v", p.Value) }

// MessageKind discriminates the four shapes a JSON-RPC 2.0 message can take.
type MessageKind int

const (
	KindRequest MessageKind = iota
	KindNotification
	KindResponse
	KindErrorResponse
)

// Message is the wire-level union of Request | Notification | Response | Error
// (spec.md §3). Exactly one of {Result, Err} is set on a response.
type Message struct {
	JSONRPC string
	ID      *RequestID
	Method  string
	Params  ParamsValue
	Result  json.RawMessage
	Err     *Error
}

// Kind classifies the message per spec.md §3's invariants.
func (m Message) Kind() MessageKind {
	switch {
	case m.ID != nil && m.Method != "":
		return KindRequest
	case m.ID == nil && m.Method != "":
		return KindNotification
	case m.ID != nil && m.Err != nil:
		return KindErrorResponse
	case m.ID != nil:
		return KindResponse
	default:
		return KindResponse
	}
}

// NewRequestMessage builds a request message.
func NewRequestMessage(id RequestID, method string, params ParamsValue) Message {
	return Message{JSONRPC: jsonrpcVersion, ID: &id, Method: method, Params: params}
}

// NewNotificationMessage builds a notification message.
func NewNotificationMessage(method string, params ParamsValue) Message {
	return Message{JSONRPC: jsonrpcVersion, Method: method, Params: params}
}

// NewResultMessage builds a success response message.
func NewResultMessage(id RequestID, result json.RawMessage) Message {
	return Message{JSONRPC: jsonrpcVersion, ID: &id, Result: result}
}

// NewErrorMessage builds an error response message.
func NewErrorMessage(id RequestID, err *Error) Message {
	return Message{JSONRPC: jsonrpcVersion, ID: &id, Err: err}
}

// wireMessage is the over-the-wire JSON shape; Message is decomposed into /
// recomposed from it so callers work with the friendlier union type.
type wireMessage struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *RequestID      `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// MarshalJSON encodes a Message to its minified wire form.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		JSONRPC: jsonrpcVersion,
		ID:      m.ID,
		Method:  m.Method,
		Params:  m.Params.raw,
		Result:  m.Result,
		Error:   m.Err,
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a Message from its wire form and validates the
// jsonrpc version field (spec.md §3 invariant).
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.JSONRPC != jsonrpcVersion {
		return fmt.Errorf("%w: jsonrpc=%q", errInvalidJSONRPCVersion, w.JSONRPC)
	}
	m.JSONRPC = w.JSONRPC
	m.ID = w.ID
	m.Method = w.Method
	m.Params = ParamsValue{raw: w.Params}
	m.Result = w.Result
	m.Err = w.Error
	return nil
}

var errInvalidJSONRPCVersion = fmt.Errorf("invalid jsonrpc version")

// EncodeLine serializes a Message as minified JSON followed by exactly one
// newline, the line-delimited framing from spec.md §4.1.
func EncodeLine(w io.Writer, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %v", errEncode, err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

var errEncode = fmt.Errorf("encode message")

// LineReader incrementally splits a byte stream into line-delimited JSON
// messages, per spec.md §4.1: accumulate into a growing buffer, split on the
// first '\n', emit the prefix, keep the remainder. A buffer that fills
// without a newline is not itself an error.
type LineReader struct {
	scanner *bufio.Scanner
}

const (
	lineReaderInitialBuffer = 64 * 1024
	lineReaderMaxMessage    = 10 * 1024 * 1024
)

// NewLineReader wraps r with the line-delimited JSON framing.
func NewLineReader(r io.Reader) *LineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, lineReaderInitialBuffer), lineReaderMaxMessage)
	return &LineReader{scanner: s}
}

// Next returns the next decoded message. It returns io.EOF when the stream
// ends cleanly. A line that fails to parse as JSON-RPC surfaces as
// ParseError(-32700); the caller decides whether to reply (if an id could be
// recovered) or to surface it via on_error, per spec.md §4.1.
func (lr *LineReader) Next() (Message, error) {
	if !lr.scanner.Scan() {
		if err := lr.scanner.Err(); err != nil {
			return Message{}, err
		}
		return Message{}, io.EOF
	}
	line := lr.scanner.Bytes()
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, &ParseError{line: append([]byte(nil), line...), cause: err}
	}
	return msg, nil
}

// ParseError wraps a line that failed to decode as a JSON-RPC message.
// RecoverID best-effort extracts the original id so the caller can still
// reply with a JSON-RPC error response; when it can't, the caller is
// expected to surface the error via the transport's error stream instead.
type ParseError struct {
	line  []byte
	cause error
}

func (e *ParseError) Error() string { return fmt.Sprintf("parse error: %v", e.cause) }
func (e *ParseError) Unwrap() error { return e.cause }

// RecoverID attempts to pull an "id" field out of the malformed line.
func (e *ParseError) RecoverID() (RequestID, bool) {
	var partial struct {
		ID *RequestID `json:"id"`
	}
	if err := json.Unmarshal(e.line, &partial); err != nil || partial.ID == nil {
		return RequestID{}, false
	}
	return *partial.ID, true
}

// DecodeSSEDataLine decodes a single SSE "data:" field's JSON payload.
func DecodeSSEDataLine(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(bytes.TrimSpace(data), &msg); err != nil {
		return Message{}, &ParseError{line: data, cause: err}
	}
	return msg, nil
}
