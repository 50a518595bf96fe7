// Package masking scrubs secrets from MCP tool results before they enter
// the investigation conversation and the incident evidence record. Masking
// is configured per server in mcp_servers.yaml; servers without a
// data_masking block pass their results through untouched.
package masking

// Masker is a structural masker: it parses the payload and masks values
// with context a regex cannot carry (for example Kubernetes Secret data,
// but not ConfigMap data).
type Masker interface {
	// Name is the identifier pattern groups and config entries refer to.
	Name() string

	// AppliesTo is a cheap pre-check (string containment, no parsing).
	AppliesTo(content string) bool

	// Mask returns the masked payload. Implementations must return the
	// original content when they cannot parse it.
	Mask(content string) string
}
