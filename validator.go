package mcp

import "errors"

// Validate enforces the JSON-RPC 2.0 shape invariants from spec.md §3 on an
// already-decoded Message, before it reaches dispatch. Malformed wire bytes
// are rejected earlier, by the codec (ParseError); Validate catches the
// shapes that decode fine as JSON but violate JSON-RPC 2.0 semantics, e.g. a
// response carrying both a result and an error.
func Validate(msg Message) error {
	if msg.JSONRPC != jsonrpcVersion {
		return &InvalidRequestDetail{Reason: "jsonrpc version must be \"2.0\""}
	}
	switch msg.Kind() {
	case KindRequest:
		if msg.Method == "" {
			return &InvalidRequestDetail{Reason: "request missing method"}
		}
	case KindNotification:
		if msg.Method == "" {
			return &InvalidRequestDetail{Reason: "notification missing method"}
		}
	case KindResponse, KindErrorResponse:
		if msg.Result != nil && msg.Err != nil {
			return &InvalidRequestDetail{Reason: "response must not carry both result and error"}
		}
		if msg.Result == nil && msg.Err == nil {
			return &InvalidRequestDetail{Reason: "response must carry exactly one of result or error"}
		}
	}
	return nil
}

// InvalidRequestDetail is returned by Validate. Engine.handleMessage logs it
// as a warning and drops the message: no InvalidRequest(-32600) response is
// sent, even when the message carries an id, and no error subscriber is
// invoked.
type InvalidRequestDetail struct {
	Reason string
}

func (e *InvalidRequestDetail) Error() string { return "invalid request: " + e.Reason }

func (e *InvalidRequestDetail) Is(target error) bool {
	var other *InvalidRequestDetail
	return errors.As(target, &other)
}
