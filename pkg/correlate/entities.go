package correlate

import "regexp"

var (
	podNamePattern   = regexp.MustCompile(`pod:(\S+)`)
	namespacePattern = regexp.MustCompile(`namespace:(\S+)`)
)

// ExtractEntities lifts structured fields from a free-text incident
// description using deterministic patterns. No LLM call; this runs on the
// synchronous submission path. Returns nil when nothing was recognized.
func ExtractEntities(description string) map[string]string {
	entities := make(map[string]string)

	if m := podNamePattern.FindStringSubmatch(description); m != nil {
		entities["pod_name"] = m[1]
	}
	if m := namespacePattern.FindStringSubmatch(description); m != nil {
		entities["namespace"] = m[1]
	} else if _, ok := entities["pod_name"]; ok {
		// A pod without an explicit namespace lives in "default".
		entities["namespace"] = "default"
	}

	if len(entities) == 0 {
		return nil
	}
	return entities
}
