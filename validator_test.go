package mcp_test

import (
	"testing"

	mcp "github.com/open-mcp/engine"
)

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	msg := mcp.NewRequestMessage(mcp.NewRequestID(int64(1)), "tools/call", mcp.ParamsValue{})
	if err := mcp.Validate(msg); err != nil {
		t.Fatalf("Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsRequestMissingMethod(t *testing.T) {
	msg := mcp.NewRequestMessage(mcp.NewRequestID(int64(1)), "", mcp.ParamsValue{})
	if err := mcp.Validate(msg); err == nil {
		t.Fatal("expected an error for a request with an empty method")
	}
}

func TestValidateRejectsResponseCarryingBothResultAndError(t *testing.T) {
	msg := mcp.NewResultMessage(mcp.NewRequestID(int64(1)), []byte(`{}`))
	msg.Err = &mcp.Error{Code: mcp.ErrCodeInternalError, Message: "oops"}

	if err := mcp.Validate(msg); err == nil {
		t.Fatal("expected an error for a response carrying both result and error")
	}
}

func TestValidateRejectsResponseCarryingNeitherResultNorError(t *testing.T) {
	id := mcp.NewRequestID(int64(1))
	msg := mcp.Message{JSONRPC: "2.0", ID: &id}

	if err := mcp.Validate(msg); err == nil {
		t.Fatal("expected an error for a response carrying neither result nor error")
	}
}

func TestValidateRejectsWrongJSONRPCVersion(t *testing.T) {
	msg := mcp.NewNotificationMessage("ping", mcp.ParamsValue{})
	msg.JSONRPC = "1.0"

	if err := mcp.Validate(msg); err == nil {
		t.Fatal("expected an error for a non-2.0 jsonrpc field")
	}
}
