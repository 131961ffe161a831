package mcp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcp "github.com/open-mcp/engine"
)

func tokenParams(t *testing.T, token string) mcp.ParamsValue {
	t.Helper()
	p, err := mcp.ValueParamsValue(struct {
		Token string `json:"token"`
		Name  string `json:"name"`
	}{Token: token, Name: "widget"})
	require.NoError(t, err)
	return p
}

func TestAuthGateRejectsMissingToken(t *testing.T) {
	clock := mcp.NewFakeClock(time.Unix(0, 0))
	provider := mcp.NewJWTAuthProvider([]byte("secret"), clock)
	gate := mcp.NewAuthGate(provider)

	called := false
	handler := gate.Gate(nil, func(ctx context.Context, params mcp.ParamsValue) (interface{}, error) {
		called = true
		return nil, nil
	})

	params, err := mcp.ValueParamsValue(struct {
		Name string `json:"name"`
	}{Name: "widget"})
	require.NoError(t, err)

	_, err = handler(context.Background(), params)
	require.Error(t, err)
	assert.False(t, called)

	var authErr *mcp.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestAuthGateRejectsInvalidToken(t *testing.T) {
	clock := mcp.NewFakeClock(time.Unix(0, 0))
	provider := mcp.NewJWTAuthProvider([]byte("secret"), clock)
	gate := mcp.NewAuthGate(provider)

	handler := gate.Gate(nil, func(ctx context.Context, params mcp.ParamsValue) (interface{}, error) {
		return "ok", nil
	})

	_, err := handler(context.Background(), tokenParams(t, "not-a-real-token"))
	require.Error(t, err)

	var authErr *mcp.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestAuthGateAcceptsValidTokenAndStripsIt(t *testing.T) {
	clock := mcp.NewFakeClock(time.Unix(1000, 0))
	provider := mcp.NewJWTAuthProvider([]byte("secret"), clock)
	gate := mcp.NewAuthGate(provider)

	token, err := provider.GenerateToken("user-1", []string{"admin"}, time.Hour)
	require.NoError(t, err)

	var seenParams mcp.ParamsValue
	handler := gate.Gate([]string{"admin"}, func(ctx context.Context, params mcp.ParamsValue) (interface{}, error) {
		seenParams = params
		return "ok", nil
	})

	result, err := handler(context.Background(), tokenParams(t, token))
	require.NoError(t, err)
	assert.Equal(t, "ok", result)

	obj, ok := seenParams.Object()
	require.True(t, ok)
	_, hasToken := obj["token"]
	assert.False(t, hasToken, "token must be stripped before the handler sees params")
	assert.Equal(t, "widget", obj["name"])
}

func TestAuthGateRejectsInsufficientRole(t *testing.T) {
	clock := mcp.NewFakeClock(time.Unix(0, 0))
	provider := mcp.NewJWTAuthProvider([]byte("secret"), clock)
	gate := mcp.NewAuthGate(provider)

	token, err := provider.GenerateToken("user-1", []string{"viewer"}, time.Hour)
	require.NoError(t, err)

	handler := gate.Gate([]string{"admin"}, func(ctx context.Context, params mcp.ParamsValue) (interface{}, error) {
		return "ok", nil
	})

	_, err = handler(context.Background(), tokenParams(t, token))
	require.Error(t, err)

	var authErr *mcp.AuthorizationError
	require.ErrorAs(t, err, &authErr)
}

func TestAuthGateRejectsExpiredToken(t *testing.T) {
	clock := mcp.NewFakeClock(time.Unix(0, 0))
	provider := mcp.NewJWTAuthProvider([]byte("secret"), clock)

	token, err := provider.GenerateToken("user-1", []string{"admin"}, time.Minute)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	_, err = provider.VerifyToken(token)
	require.Error(t, err)

	var expired *mcp.TokenExpiredError
	require.ErrorAs(t, err, &expired)
	assert.False(t, provider.ValidateToken(token))
}
