package config

import (
	"os"
	"regexp"
)

var envRefPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnv substitutes ${VAR_NAME} references with environment variable
// values. References to unset variables are left literal so validation (or
// the consuming process) can surface them instead of silently blanking
// credentials.
//
// Examples:
//   - ${KUBECONFIG} → value of KUBECONFIG when set
//   - Bearer ${API_TOKEN} → "Bearer <token>" when API_TOKEN is set
//   - ${UNSET_VAR} → "${UNSET_VAR}" unchanged
//
// Bare $VAR (no braces) is never touched, which keeps shell snippets and
// regex patterns in config values intact.
func ExpandEnv(s string) string {
	return envRefPattern.ReplaceAllStringFunc(s, func(ref string) string {
		name := envRefPattern.FindStringSubmatch(ref)[1]
		if value, ok := os.LookupEnv(name); ok {
			return value
		}
		return ref
	})
}
