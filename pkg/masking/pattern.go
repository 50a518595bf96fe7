package masking

import "regexp"

// pattern is one compiled masking rule. Replacements may reference capture
// groups (${1}) to keep the key and separator of a key/value match intact,
// so masked output stays readable for the LLM.
type pattern struct {
	regex       *regexp.Regexp
	replacement string
}

// builtinPatterns are the regex rules server configs can name. The
// literals are covered by tests, so MustCompile is safe here.
var builtinPatterns = map[string]pattern{
	"api_key": {
		regex:       regexp.MustCompile(`(?i)(api[_-]?key|apikey)(["']?\s*[:=]\s*["']?)[A-Za-z0-9_\-]{16,}["']?`),
		replacement: `${1}${2}__MASKED_API_KEY__`,
	},
	"password": {
		regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)(["']?\s*[:=]\s*["']?)[^"'\s]{6,}["']?`),
		replacement: `${1}${2}__MASKED_PASSWORD__`,
	},
	"secret_key": {
		regex:       regexp.MustCompile(`(?i)(secret[_-]?key)(["']?\s*[:=]\s*["']?)[A-Za-z0-9_\-.]{16,}["']?`),
		replacement: `${1}${2}__MASKED_SECRET_KEY__`,
	},
	"token": {
		regex:       regexp.MustCompile(`(?i)(token|bearer|jwt)(["']?\s*[:=]\s*["']?)[A-Za-z0-9_\-.]{20,}["']?`),
		replacement: `${1}${2}__MASKED_TOKEN__`,
	},
	"certificate": {
		regex:       regexp.MustCompile(`(?s)-----BEGIN [A-Z ]+-----.*?-----END [A-Z ]+-----`),
		replacement: `__MASKED_CERTIFICATE__`,
	},
	"certificate_authority_data": {
		regex:       regexp.MustCompile(`(certificate-authority-data:\s*)[A-Za-z0-9+/]{20,}={0,2}`),
		replacement: `${1}__MASKED_CA_DATA__`,
	},
	"ssh_key": {
		regex:       regexp.MustCompile(`ssh-(?:rsa|dss|ed25519|ecdsa)\s+[A-Za-z0-9+/=]+`),
		replacement: `__MASKED_SSH_KEY__`,
	},
	"email": {
		regex:       regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9]+(?:[.-][A-Za-z0-9]+)*\.[A-Za-z]{2,63}\b`),
		replacement: `__MASKED_EMAIL__`,
	},
	"aws_access_key": {
		regex:       regexp.MustCompile(`\bAKIA[A-Z0-9]{16}\b`),
		replacement: `__MASKED_AWS_ACCESS_KEY__`,
	},
	"aws_secret_key": {
		regex:       regexp.MustCompile(`(?i)(aws[_-]?secret[_-]?access[_-]?key)(["']?\s*[:=]\s*["']?)[A-Za-z0-9/+=]{40}["']?`),
		replacement: `${1}${2}__MASKED_AWS_SECRET_KEY__`,
	},
}

// patternGroups bundle rules (regex patterns and structural maskers) so
// server configs stay short. Group members that name a structural masker
// resolve through the service's masker registry.
var patternGroups = map[string][]string{
	"basic":      {"api_key", "password"},
	"secrets":    {"api_key", "password", "secret_key", "token"},
	"security":   {"api_key", "password", "secret_key", "token", "certificate", "certificate_authority_data", "ssh_key", "email"},
	"kubernetes": {"kubernetes_secret", "certificate_authority_data", "api_key", "password"},
	"cloud":      {"aws_access_key", "aws_secret_key", "api_key", "token"},
	"all": {
		"kubernetes_secret",
		"api_key", "password", "secret_key", "token",
		"certificate", "certificate_authority_data", "ssh_key", "email",
		"aws_access_key", "aws_secret_key",
	},
}
