package mcp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/inquest/pkg/config"
)

func TestCreateTransport_Stdio(t *testing.T) {
	transport, err := createTransport(&config.MCPServerConfig{
		Transport: config.TransportStdio,
		Command:   "kubectl-mcp",
		Args:      []string{"serve", "--readonly"},
		Env:       map[string]string{"KUBECONFIG": "/tmp/kubeconfig"},
	})
	require.NoError(t, err)

	cmdTransport, ok := transport.(*mcpsdk.CommandTransport)
	require.True(t, ok)
	assert.Equal(t, []string{"kubectl-mcp", "serve", "--readonly"}, cmdTransport.Command.Args)
	assert.Contains(t, cmdTransport.Command.Env, "KUBECONFIG=/tmp/kubeconfig")
}

func TestCreateTransport_Stdio_MissingCommand(t *testing.T) {
	_, err := createTransport(&config.MCPServerConfig{
		Transport: config.TransportStdio,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires command")
}

func TestCreateTransport_StreamableHTTP(t *testing.T) {
	transport, err := createTransport(&config.MCPServerConfig{
		Transport: config.TransportStreamableHTTP,
		URL:       "https://mcp.example.com/mcp",
	})
	require.NoError(t, err)

	httpTransport, ok := transport.(*mcpsdk.StreamableClientTransport)
	require.True(t, ok)
	assert.Equal(t, "https://mcp.example.com/mcp", httpTransport.Endpoint)
	assert.Nil(t, httpTransport.HTTPClient)
}

func TestCreateTransport_StreamableHTTP_WithHeaders(t *testing.T) {
	transport, err := createTransport(&config.MCPServerConfig{
		Transport: config.TransportStreamableHTTP,
		URL:       "https://mcp.example.com/mcp",
		Headers:   map[string]string{"Authorization": "Bearer token123"},
	})
	require.NoError(t, err)

	httpTransport, ok := transport.(*mcpsdk.StreamableClientTransport)
	require.True(t, ok)
	assert.NotNil(t, httpTransport.HTTPClient)
}

func TestCreateTransport_StreamableHTTP_MissingURL(t *testing.T) {
	_, err := createTransport(&config.MCPServerConfig{
		Transport: config.TransportStreamableHTTP,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires url")
}

func TestCreateTransport_UnsupportedType(t *testing.T) {
	_, err := createTransport(&config.MCPServerConfig{Transport: "websocket"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported transport type")
}

func TestHeaderTransport_RoundTrip(t *testing.T) {
	var seen http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	rt := &headerTransport{
		base: http.DefaultTransport,
		headers: map[string]string{
			"Authorization": "Bearer token123",
			"X-Tenant":      "ops",
		},
	}

	req, err := http.NewRequest(http.MethodGet, server.URL, nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "Bearer token123", seen.Get("Authorization"))
	assert.Equal(t, "ops", seen.Get("X-Tenant"))

	// The original request is cloned, not mutated.
	assert.Empty(t, req.Header.Get("Authorization"))
}
