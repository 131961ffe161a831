package mcp_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcp "github.com/open-mcp/engine"
)

func toolsGate(caps *mcp.Capabilities) error {
	if caps.HasTools() {
		return nil
	}
	return mcp.NewCapabilityError("tools/call requires the tools capability")
}

func TestRouterDispatchInvokesRegisteredHandler(t *testing.T) {
	router := mcp.NewRouter()
	router.HandleRequest("custom/echo", nil, func(ctx context.Context, params mcp.ParamsValue) (interface{}, error) {
		var v struct {
			Msg string `json:"msg"`
		}
		require.NoError(t, params.Decode(&v))
		return v.Msg, nil
	})

	params, err := mcp.ValueParamsValue(struct {
		Msg string `json:"msg"`
	}{Msg: "hi"})
	require.NoError(t, err)

	result, err := router.Dispatch(context.Background(), &mcp.Capabilities{}, "custom/echo", params)
	require.NoError(t, err)
	assert.Equal(t, "hi", result)
}

func TestRouterDispatchUnknownMethodIsMethodNotFound(t *testing.T) {
	router := mcp.NewRouter()
	_, err := router.Dispatch(context.Background(), &mcp.Capabilities{}, "nonexistent/method", mcp.ParamsValue{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

func TestRouterDispatchEnforcesCapabilityGate(t *testing.T) {
	router := mcp.NewRouter()
	router.HandleRequest(mcp.MethodToolsCall, toolsGate, func(ctx context.Context, params mcp.ParamsValue) (interface{}, error) {
		return "called", nil
	})

	_, err := router.Dispatch(context.Background(), &mcp.Capabilities{}, mcp.MethodToolsCall, mcp.ParamsValue{})
	require.Error(t, err)
	var capErr *mcp.CapabilityError
	require.ErrorAs(t, err, &capErr)

	result, err := router.Dispatch(context.Background(), &mcp.Capabilities{Tools: &mcp.ToolsCapability{}}, mcp.MethodToolsCall, mcp.ParamsValue{})
	require.NoError(t, err)
	assert.Equal(t, "called", result)
}

func TestRouterDispatchFallsThroughToToolFallback(t *testing.T) {
	router := mcp.NewRouter()
	router.SetToolFallback(func(ctx context.Context, caps *mcp.Capabilities, method string, params mcp.ParamsValue) (interface{}, bool, error) {
		if method != "some_tool" {
			return nil, false, nil
		}
		return map[string]string{"value": "fallback result"}, true, nil
	})

	result, err := router.Dispatch(context.Background(), &mcp.Capabilities{}, "some_tool", mcp.ParamsValue{})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"value": "fallback result"}, result)
}

func TestRouterDispatchFallbackMissReportsMethodNotFound(t *testing.T) {
	router := mcp.NewRouter()
	router.SetToolFallback(func(ctx context.Context, caps *mcp.Capabilities, method string, params mcp.ParamsValue) (interface{}, bool, error) {
		return nil, false, nil
	})

	_, err := router.Dispatch(context.Background(), &mcp.Capabilities{}, "nonexistent", mcp.ParamsValue{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "method not found")
}

func TestRouterDispatchNotificationIsSilentWhenUnregistered(t *testing.T) {
	router := mcp.NewRouter()
	// Must not panic even though no route exists.
	router.DispatchNotification(context.Background(), &mcp.Capabilities{}, "notifications/unknown", mcp.ParamsValue{})
}

func TestRouterDispatchNotificationInvokesHandler(t *testing.T) {
	router := mcp.NewRouter()
	received := make(chan struct{}, 1)
	router.HandleNotification("notifications/progress", nil, func(ctx context.Context, params mcp.ParamsValue) {
		received <- struct{}{}
	})

	router.DispatchNotification(context.Background(), &mcp.Capabilities{}, "notifications/progress", mcp.ParamsValue{})

	select {
	case <-received:
	default:
		t.Fatal("expected the registered notification handler to run")
	}
}

func TestRouterDispatchNotificationGatedOutIsDropped(t *testing.T) {
	router := mcp.NewRouter()
	called := false
	router.HandleNotification("notifications/resources/updated", func(caps *mcp.Capabilities) error {
		return mcp.NewCapabilityError("requires resources capability")
	}, func(ctx context.Context, params mcp.ParamsValue) {
		called = true
	})

	router.DispatchNotification(context.Background(), &mcp.Capabilities{}, "notifications/resources/updated", mcp.ParamsValue{})
	assert.False(t, called)
}
