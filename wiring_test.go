package mcp_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcp "github.com/open-mcp/engine"
)

func TestWireToolsNotificationsEmitsOnlyWhenNegotiated(t *testing.T) {
	serverRouter := mcp.NewRouter()
	toolsReg := mcp.NewToolsRegistry(mcp.NewSchemaValidator())
	toolsReg.BindRouter(serverRouter)

	clientTransport, serverTransport := mcp.CreateLinkedPair()
	clientRouter := mcp.NewRouter()
	client := mcp.NewEngine(clientTransport, mcp.RoleClient, mcp.Capabilities{Tools: &mcp.ToolsCapability{}},
		mcp.Implementation{Name: "c", Version: "1"}, clientRouter)
	server := mcp.NewEngine(serverTransport, mcp.RoleServer, mcp.Capabilities{Tools: &mcp.ToolsCapability{ListChanged: true}},
		mcp.Implementation{Name: "s", Version: "1"}, serverRouter)

	mcp.WireToolsNotifications(server, toolsReg)

	require.NoError(t, server.Connect(context.Background()))
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()
	defer server.Close()

	received := make(chan struct{}, 1)
	clientRouter.HandleNotification(mcp.MethodToolsListChanged, nil, func(ctx context.Context, params mcp.ParamsValue) {
		received <- struct{}{}
	})

	require.NoError(t, toolsReg.Register(echoTool("greet")))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("expected notifications/tools/list_changed once the server advertised listChanged")
	}
}

func TestWireToolsNotificationsSuppressedWithoutListChangedCapability(t *testing.T) {
	serverRouter := mcp.NewRouter()
	toolsReg := mcp.NewToolsRegistry(mcp.NewSchemaValidator())
	toolsReg.BindRouter(serverRouter)

	clientTransport, serverTransport := mcp.CreateLinkedPair()
	clientRouter := mcp.NewRouter()
	client := mcp.NewEngine(clientTransport, mcp.RoleClient, mcp.Capabilities{Tools: &mcp.ToolsCapability{}},
		mcp.Implementation{Name: "c", Version: "1"}, clientRouter)
	server := mcp.NewEngine(serverTransport, mcp.RoleServer, mcp.Capabilities{Tools: &mcp.ToolsCapability{}},
		mcp.Implementation{Name: "s", Version: "1"}, serverRouter)

	mcp.WireToolsNotifications(server, toolsReg)

	require.NoError(t, server.Connect(context.Background()))
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()
	defer server.Close()

	received := make(chan struct{}, 1)
	clientRouter.HandleNotification(mcp.MethodToolsListChanged, nil, func(ctx context.Context, params mcp.ParamsValue) {
		received <- struct{}{}
	})

	require.NoError(t, toolsReg.Register(echoTool("greet")))

	select {
	case <-received:
		t.Fatal("must not emit list_changed when this side never advertised it")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWireResourcesNotificationsCarriesContentOnUpdate(t *testing.T) {
	serverRouter := mcp.NewRouter()
	resourcesReg := mcp.NewResourcesRegistry()
	resourcesReg.RegisterResource(mcp.Resource{URI: "file:///a"},
		func(ctx context.Context, uri string) ([]mcp.ResourceContents, error) {
			return []mcp.ResourceContents{{URI: uri, Text: "updated body"}}, nil
		})
	resourcesReg.BindRouter(serverRouter)

	clientTransport, serverTransport := mcp.CreateLinkedPair()
	clientRouter := mcp.NewRouter()
	client := mcp.NewEngine(clientTransport, mcp.RoleClient,
		mcp.Capabilities{Resources: &mcp.ResourcesCapability{Subscribe: true}},
		mcp.Implementation{Name: "c", Version: "1"}, clientRouter)
	server := mcp.NewEngine(serverTransport, mcp.RoleServer,
		mcp.Capabilities{Resources: &mcp.ResourcesCapability{Subscribe: true}},
		mcp.Implementation{Name: "s", Version: "1"}, serverRouter)

	mcp.WireResourcesNotifications(server, resourcesReg)

	require.NoError(t, server.Connect(context.Background()))
	require.NoError(t, client.Connect(context.Background()))
	defer client.Close()
	defer server.Close()

	require.NoError(t, resourcesReg.Subscribe("file:///a"))

	received := make(chan mcp.ParamsValue, 1)
	clientRouter.HandleNotification(mcp.MethodResourcesUpdated, nil, func(ctx context.Context, params mcp.ParamsValue) {
		received <- params
	})

	resourcesReg.NotifyUpdated(context.Background(), "file:///a")

	select {
	case params := <-received:
		var body struct {
			URI     string                  `json:"uri"`
			Content []mcp.ResourceContents `json:"content"`
		}
		require.NoError(t, params.Decode(&body))
		assert.Equal(t, "file:///a", body.URI)
		require.Len(t, body.Content, 1)
		assert.Equal(t, "updated body", body.Content[0].Text)
	case <-time.After(time.Second):
		t.Fatal("expected notifications/resources/updated carrying content")
	}
}
