package masking

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// MaskedSecretValue replaces Kubernetes Secret data values.
const MaskedSecretValue = "[MASKED_SECRET]"

// Leading whitespace is allowed so Secrets nested in List items pass the
// pre-check; Mask recurses into list kinds.
var (
	yamlSecretKind = regexp.MustCompile(`(?m)^\s*kind:\s*Secret`)
	jsonSecretKind = regexp.MustCompile(`"kind"\s*:\s*"Secret(List)?"`)
)

// SecretMasker masks the data and stringData values of Kubernetes Secret
// resources while leaving every other kind, notably ConfigMaps, untouched.
// Handles single resources, SecretList and List items, multi-document
// YAML, and Secrets embedded in last-applied-configuration annotations.
type SecretMasker struct{}

// Name implements Masker.
func (m *SecretMasker) Name() string { return "kubernetes_secret" }

// AppliesTo implements Masker.
func (m *SecretMasker) AppliesTo(content string) bool {
	if !strings.Contains(content, "Secret") {
		return false
	}
	return yamlSecretKind.MatchString(content) || jsonSecretKind.MatchString(content)
}

// Mask implements Masker. JSON is tried first when the payload looks like
// JSON, otherwise the YAML path runs; the yaml parser would otherwise
// accept JSON and re-serialize it as YAML.
func (m *SecretMasker) Mask(content string) string {
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if masked, ok := m.maskJSON(content); ok {
			return masked
		}
	}
	if masked, ok := m.maskYAML(content); ok {
		return masked
	}
	return content
}

// maskJSON masks a single JSON resource. Reports false when the payload is
// not valid JSON or contains no Secret.
func (m *SecretMasker) maskJSON(content string) (string, bool) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(content), &doc); err != nil {
		return "", false
	}
	if !maskResource(doc) {
		return "", false
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", false
	}
	return matchTrailingNewline(string(out), content), true
}

// maskYAML masks multi-document YAML. Reports false on parse errors or
// when no document contains a Secret, so the caller keeps the original.
func (m *SecretMasker) maskYAML(content string) (string, bool) {
	decoder := yaml.NewDecoder(strings.NewReader(content))
	var docs []map[string]any
	changed := false

	for {
		var doc map[string]any
		err := decoder.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", false
		}
		if doc == nil {
			continue
		}
		if maskResource(doc) {
			changed = true
		}
		docs = append(docs, doc)
	}

	if !changed || len(docs) == 0 {
		return "", false
	}

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	for _, doc := range docs {
		if err := encoder.Encode(doc); err != nil {
			return "", false
		}
	}
	if err := encoder.Close(); err != nil {
		return "", false
	}

	out := strings.TrimRight(buf.String(), "\n")
	return matchTrailingNewline(out, content), true
}

// maskResource masks a parsed resource in place and reports whether
// anything was a Secret. List kinds recurse into their items.
func maskResource(doc map[string]any) bool {
	kind, _ := doc["kind"].(string)
	switch {
	case kind == "Secret":
		maskDataFields(doc)
		maskEmbeddedAnnotations(doc)
		return true
	case kind == "SecretList":
		// SecretList items usually omit their own kind field.
		items, _ := doc["items"].([]any)
		for _, item := range items {
			if entry, ok := item.(map[string]any); ok {
				maskDataFields(entry)
				maskEmbeddedAnnotations(entry)
			}
		}
		return len(items) > 0
	case strings.HasSuffix(kind, "List"):
		items, _ := doc["items"].([]any)
		changed := false
		for _, item := range items {
			entry, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if maskResource(entry) {
				changed = true
			}
		}
		return changed
	}
	return false
}

// maskDataFields replaces every value under data and stringData.
func maskDataFields(resource map[string]any) {
	for _, field := range []string{"data", "stringData"} {
		values, ok := resource[field].(map[string]any)
		if !ok {
			continue
		}
		for key := range values {
			values[key] = MaskedSecretValue
		}
	}
}

// maskEmbeddedAnnotations masks Secrets serialized into annotations, most
// commonly kubectl.kubernetes.io/last-applied-configuration.
func maskEmbeddedAnnotations(resource map[string]any) {
	metadata, ok := resource["metadata"].(map[string]any)
	if !ok {
		return
	}
	annotations, ok := metadata["annotations"].(map[string]any)
	if !ok {
		return
	}

	for key, value := range annotations {
		text, ok := value.(string)
		if !ok || !strings.Contains(text, "Secret") {
			continue
		}
		var embedded map[string]any
		if err := json.Unmarshal([]byte(text), &embedded); err != nil {
			continue
		}
		if !maskResource(embedded) {
			continue
		}
		masked, err := json.Marshal(embedded)
		if err != nil {
			continue
		}
		annotations[key] = string(masked)
	}
}

// matchTrailingNewline makes the masked output end the way the original
// did, so diff-style consumers see only the masked values change.
func matchTrailingNewline(out, original string) string {
	if strings.HasSuffix(original, "\n") && !strings.HasSuffix(out, "\n") {
		return out + "\n"
	}
	return out
}
