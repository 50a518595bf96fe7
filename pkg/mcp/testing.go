package mcp

import (
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeready-toolchain/inquest/pkg/config"
)

// SetTransportFactory overrides how the registry builds transports for
// configured servers. This is intended for test infrastructure that needs
// to wire in-memory MCP servers without going through the real stdio or
// HTTP transport creation path. Must be called before Initialize.
func (r *Registry) SetTransportFactory(fn func(*config.MCPServerConfig) (mcpsdk.Transport, error)) {
	r.transportFor = fn
}
