package mcp_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcp "github.com/open-mcp/engine"
)

func echoTool(name string) mcp.Tool {
	return mcp.Tool{
		Name: name,
		Handler: func(ctx context.Context, args json.RawMessage) (*mcp.ToolResult, error) {
			return &mcp.ToolResult{Content: []mcp.ContentBlock{mcp.TextContent("ok")}}, nil
		},
	}
}

func TestToolsRegistryRegisterAndGet(t *testing.T) {
	reg := mcp.NewToolsRegistry(mcp.NewSchemaValidator())
	require.NoError(t, reg.Register(echoTool("greet")))

	tool, ok := reg.Get("greet")
	require.True(t, ok)
	assert.Equal(t, "greet", tool.Name)

	_, ok = reg.Get("missing")
	assert.False(t, ok)
}

func TestToolsRegistryListIsSortedByName(t *testing.T) {
	reg := mcp.NewToolsRegistry(mcp.NewSchemaValidator())
	require.NoError(t, reg.Register(echoTool("zebra")))
	require.NoError(t, reg.Register(echoTool("alpha")))

	list := reg.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	assert.Equal(t, "zebra", list[1].Name)
}

func TestToolsRegistryUnregisterReportsPresence(t *testing.T) {
	reg := mcp.NewToolsRegistry(mcp.NewSchemaValidator())
	require.NoError(t, reg.Register(echoTool("greet")))

	assert.True(t, reg.Unregister("greet"))
	assert.False(t, reg.Unregister("greet"))
}

func TestToolsRegistryArmFiresNotifyOnMutation(t *testing.T) {
	reg := mcp.NewToolsRegistry(mcp.NewSchemaValidator())
	calls := 0
	reg.Arm(func() { calls++ })

	require.NoError(t, reg.Register(echoTool("greet")))
	assert.Equal(t, 1, calls)

	reg.Unregister("greet")
	assert.Equal(t, 2, calls)
}

func TestToolsRegistryRegisterRejectsMalformedSchema(t *testing.T) {
	reg := mcp.NewToolsRegistry(mcp.NewSchemaValidator())
	tool := echoTool("greet")
	tool.InputSchema = json.RawMessage(`{not valid`)

	err := reg.Register(tool)
	assert.Error(t, err)
}

func TestToolsRegistryCallValidatesArgsAgainstSchema(t *testing.T) {
	reg := mcp.NewToolsRegistry(mcp.NewSchemaValidator())
	tool := echoTool("greet")
	tool.InputSchema = json.RawMessage(`{
		"type": "object",
		"properties": {"name": {"type": "string"}},
		"required": ["name"]
	}`)
	require.NoError(t, reg.Register(tool))

	_, err := reg.Call(context.Background(), "greet", json.RawMessage(`{}`))
	require.Error(t, err)

	result, err := reg.Call(context.Background(), "greet", json.RawMessage(`{"name":"alice"}`))
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Content[0].Text)
}

func TestToolsRegistryCallUnknownToolIsInvalidParams(t *testing.T) {
	reg := mcp.NewToolsRegistry(mcp.NewSchemaValidator())
	_, err := reg.Call(context.Background(), "missing", nil)
	require.Error(t, err)

	var rpcErr *mcp.RPCError
	require.ErrorAs(t, err, &rpcErr)
	assert.Equal(t, mcp.ErrCodeInvalidParams, rpcErr.Code())
}

func TestToolsRegistryBindRouterListsNamesOnly(t *testing.T) {
	reg := mcp.NewToolsRegistry(mcp.NewSchemaValidator())
	require.NoError(t, reg.Register(echoTool("greet")))

	router := mcp.NewRouter()
	reg.BindRouter(router)

	caps := &mcp.Capabilities{Tools: &mcp.ToolsCapability{}}
	result, err := router.Dispatch(context.Background(), caps, mcp.MethodToolsList, mcp.ParamsValue{})
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)

	var decoded struct {
		Tools []string `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, []string{"greet"}, decoded.Tools)
}
