package mcp_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	mcp "github.com/open-mcp/engine"
)

func TestRPCErrorIsComparesCodesNotMessages(t *testing.T) {
	a := mcp.NewRPCError(&mcp.Error{Code: mcp.ErrCodeInvalidParams, Message: "first message"})
	b := mcp.NewRPCError(&mcp.Error{Code: mcp.ErrCodeInvalidParams, Message: "second message"})
	c := mcp.NewRPCError(&mcp.Error{Code: mcp.ErrCodeInternalError, Message: "first message"})

	assert.True(t, errors.Is(a, b), "same code should compare equal regardless of message")
	assert.False(t, errors.Is(a, c), "different codes must not compare equal")
}

func TestRPCErrorDataExcludedFromErrorString(t *testing.T) {
	err := mcp.NewRPCError(&mcp.Error{
		Code:    mcp.ErrCodeInvalidParams,
		Message: "bad params",
		Data:    []byte(`{"secret":"leaked"}`),
	})
	assert.NotContains(t, err.Error(), "leaked")
	assert.Equal(t, []byte(`{"secret":"leaked"}`), []byte(err.Data()))
}

func TestTransportErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := mcp.NewTransportError("write failed", cause)
	assert.ErrorIs(t, err, cause)
}

func TestTimeoutErrorIsMatchesAnyInstance(t *testing.T) {
	a := mcp.NewTimeoutError("request timed out")
	b := mcp.NewTimeoutError("a different timeout")
	assert.True(t, errors.Is(a, b))
}

func TestCanceledErrorCarriesReason(t *testing.T) {
	err := mcp.NewCanceledError("user requested")
	assert.Equal(t, "user requested", err.Reason())
	assert.Contains(t, err.Error(), "user requested")

	var target *mcp.CanceledError
	assert.True(t, errors.As(err, &target))
}

func TestCapabilityErrorIsMatchesAnyInstance(t *testing.T) {
	a := mcp.NewCapabilityError("sampling not supported")
	b := mcp.NewCapabilityError("tools not supported")
	assert.True(t, errors.Is(a, b))
}

func TestProtocolVersionMismatchErrorMessage(t *testing.T) {
	err := &mcp.ProtocolVersionMismatchError{Got: "1999-01-01", Want: mcp.ProtocolVersionLatest}
	assert.Contains(t, err.Error(), "1999-01-01")
	assert.Contains(t, err.Error(), mcp.ProtocolVersionLatest)
}

func TestAuthorizationAndTokenExpiredErrorsAreDistinctTypes(t *testing.T) {
	authErr := mcp.NewAuthorizationError("No authorization token provided")
	expiredErr := &mcp.TokenExpiredError{Subject: "alice"}

	assert.False(t, errors.Is(authErr, expiredErr))
	assert.False(t, errors.Is(expiredErr, authErr))

	var asExpired *mcp.TokenExpiredError
	assert.True(t, errors.As(expiredErr, &asExpired))
	assert.Equal(t, "alice", asExpired.Subject)
}

func TestServerNotInitializedAndNotConnectedAreDistinctSentinelTypes(t *testing.T) {
	assert.False(t, errors.Is(&mcp.ServerNotInitializedError{}, &mcp.NotConnectedError{}))
	assert.True(t, errors.Is(&mcp.ServerNotInitializedError{}, &mcp.ServerNotInitializedError{}))
}
