package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcp "github.com/open-mcp/engine"
)

func TestRootsRegistryRegisterAndList(t *testing.T) {
	reg := mcp.NewRootsRegistry()
	reg.Register(mcp.Root{URI: "file:///b", Name: "b"})
	reg.Register(mcp.Root{URI: "file:///a", Name: "a"})

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "file:///a", list[0].URI)
	assert.Equal(t, "file:///b", list[1].URI)
}

func TestRootsRegistryUnregisterReportsPresence(t *testing.T) {
	reg := mcp.NewRootsRegistry()
	reg.Register(mcp.Root{URI: "file:///a"})

	assert.True(t, reg.Unregister("file:///a"))
	assert.False(t, reg.Unregister("file:///a"))
}

func TestRootsRegistryArmFiresNotifyOnMutation(t *testing.T) {
	reg := mcp.NewRootsRegistry()
	calls := 0
	reg.Arm(func() { calls++ })

	reg.Register(mcp.Root{URI: "file:///a"})
	assert.Equal(t, 1, calls)

	reg.Unregister("file:///a")
	assert.Equal(t, 2, calls)
}

func TestRootsRegistryBindRouterListsPlainURIStrings(t *testing.T) {
	reg := mcp.NewRootsRegistry()
	reg.Register(mcp.Root{URI: "file:///a", Name: "workspace a"})

	router := mcp.NewRouter()
	reg.BindRouter(router)

	caps := &mcp.Capabilities{Roots: &mcp.RootsCapability{}}
	result, err := router.Dispatch(context.Background(), caps, mcp.MethodRootsList, mcp.ParamsValue{})
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded struct {
		Roots []string `json:"roots"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"file:///a"}, decoded.Roots)
}

func TestRootsRegistryBindRouterGatedByCapability(t *testing.T) {
	reg := mcp.NewRootsRegistry()
	router := mcp.NewRouter()
	reg.BindRouter(router)

	_, err := router.Dispatch(context.Background(), &mcp.Capabilities{}, mcp.MethodRootsList, mcp.ParamsValue{})
	require.Error(t, err)

	var capErr *mcp.CapabilityError
	require.ErrorAs(t, err, &capErr)
}
