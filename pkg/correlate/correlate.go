// Package correlate provides deterministic heuristics over collected
// investigation evidence: entity extraction from incident descriptions and
// knowledge-graph-aware root cause rules. The rules are a salvage path for
// failed investigations that produced no root cause of their own; completed
// investigations never consult them.
package correlate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/models"
)

// restartsPatterns capture container restart counts from tool output in the
// common kubectl shapes: "restartCount: 5", "restarts: 5", "5 restarts".
var restartsPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)restart[_ ]?count[:=\s]+(\d+)`),
	regexp.MustCompile(`(?i)restarts[:=\s]+(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s+restarts?\b`),
}

// Evidence is the flattened view of collected evidence the rules match on.
type Evidence struct {
	Logs     string
	Events   string
	Restarts int
}

// EvidenceFromItems buckets collected evidence items by source: sources
// containing "log" feed Logs, sources containing "event" feed Events.
// Restarts is the maximum restart count found in any item's content.
func EvidenceFromItems(items []models.EvidenceItem) Evidence {
	var ev Evidence
	var logs, events []string

	for _, item := range items {
		source := strings.ToLower(item.Source)
		switch {
		case strings.Contains(source, "log"):
			logs = append(logs, item.Content)
		case strings.Contains(source, "event"):
			events = append(events, item.Content)
		}
		if n := maxRestarts(item.Content); n > ev.Restarts {
			ev.Restarts = n
		}
	}

	ev.Logs = strings.Join(logs, "\n")
	ev.Events = strings.Join(events, "\n")
	return ev
}

func maxRestarts(content string) int {
	highest := 0
	for _, pattern := range restartsPatterns {
		for _, m := range pattern.FindAllStringSubmatch(content, -1) {
			if n, err := strconv.Atoi(m[1]); err == nil && n > highest {
				highest = n
			}
		}
	}
	return highest
}

// Suggestion is a rule-derived root cause.
type Suggestion struct {
	RootCause  string
	Confidence models.Confidence
	Details    string
}

// Engine applies root cause rules over evidence, consulting the knowledge
// graph for dependency context.
type Engine struct {
	graph *config.KnowledgeGraph
}

// NewEngine creates an Engine. A nil graph behaves like an empty one.
func NewEngine(graph *config.KnowledgeGraph) *Engine {
	if graph == nil {
		graph = config.NewKnowledgeGraph(nil)
	}
	return &Engine{graph: graph}
}

// Correlate applies the rules in order and returns the first match.
// entities is the incident's extracted entities (may be nil); it is used to
// attach knowledge-graph dependency context to the suggestion.
func (e *Engine) Correlate(ev Evidence, entities map[string]string) (*Suggestion, bool) {
	// Rule 1: OOMKilled with observed restarts
	if strings.Contains(ev.Logs, "OOMKilled") && ev.Restarts > 0 {
		return &Suggestion{
			RootCause:  "Insufficient Memory",
			Confidence: models.ConfidenceHigh,
		}, true
	}

	// Rule 2: scheduler could not place the pod
	if strings.Contains(ev.Events, "FailedScheduling") {
		return &Suggestion{
			RootCause:  "Insufficient Cluster Resources",
			Confidence: models.ConfidenceHigh,
		}, true
	}

	// Rule 3: refused connections point at an unreachable dependency
	if strings.Contains(ev.Logs, "connection refused") {
		s := &Suggestion{
			RootCause:  "Database Unreachable",
			Confidence: models.ConfidenceMedium,
		}
		if component, ok := e.componentForPod(entities["pod_name"]); ok {
			if deps := e.graph.GetDependencies(component); len(deps) > 0 {
				s.Details = fmt.Sprintf("component %q depends on: %s",
					component, strings.Join(deps, ", "))
			}
		}
		return s, true
	}

	return nil, false
}

// componentForPod resolves a pod name to a knowledge graph component.
// Pod names carry generated suffixes ("payment-service-7d9f8c-x2v4q"), so
// trailing "-segment" parts are stripped until a component matches.
func (e *Engine) componentForPod(podName string) (string, bool) {
	if podName == "" {
		return "", false
	}
	name := podName
	for {
		if _, ok := e.graph.GetComponent(name); ok {
			return name, true
		}
		idx := strings.LastIndex(name, "-")
		if idx <= 0 {
			return "", false
		}
		name = name[:idx]
	}
}
