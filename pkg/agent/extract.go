package agent

import (
	"regexp"
	"strings"
	"time"

	"github.com/codeready-toolchain/inquest/pkg/models"
)

// Patterns parsing the labeled final report, with fallbacks for agents
// that conclude in free prose.
var (
	rootCausePattern   = regexp.MustCompile(`(?i)ROOT CAUSE:\s*(.+?)(?:\n|$)`)
	rootCauseFallbacks = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:the\s+)?root cause (?:is|appears to be|seems to be)\s+(.+?)(?:\.|$)`),
		regexp.MustCompile(`(?i)(?:this\s+)?(?:is\s+)?(?:likely\s+)?caused by\s+(.+?)(?:\.|$)`),
		regexp.MustCompile(`(?i)(?:the\s+)?issue (?:is|appears to be)\s+(.+?)(?:\.|$)`),
	}

	confidencePattern = regexp.MustCompile(`(?i)CONFIDENCE:\s*(high|medium|low)`)

	evidencePattern = regexp.MustCompile(`(?is)EVIDENCE:\s*(.+?)(?:\n\n|\n[A-Z]+:|$)`)

	recommendationsPattern = regexp.MustCompile(`(?is)RECOMMENDATIONS?:\s*(.+?)(?:\n\n|$)`)
	recommendationSplit    = regexp.MustCompile(`\n[-•*]\s*|\n\d+\.\s*|\n`)
	recommendationPrefix   = regexp.MustCompile(`^(?:[-•*]|\d+\.)\s*`)
)

// Confidence keyword fallbacks scanned when no CONFIDENCE marker exists.
var (
	highConfidenceIndicators = []string{"definitely", "certainly", "clearly", "obviously", "high confidence"}
	lowConfidenceIndicators  = []string{"possibly", "maybe", "might", "could be", "low confidence", "uncertain"}
)

// extractRootCause pulls the root cause from the final report.
// Prefers the ROOT CAUSE marker, then prose patterns, then the first
// sentence as a last resort.
func extractRootCause(content string) string {
	if content == "" {
		return ""
	}

	if m := rootCausePattern.FindStringSubmatch(content); m != nil {
		return strings.TrimSpace(m[1])
	}

	for _, pattern := range rootCauseFallbacks {
		if m := pattern.FindStringSubmatch(content); m != nil {
			return strings.TrimSpace(m[1])
		}
	}

	// No pattern matched: first sentence as fallback.
	sentences := strings.Split(content, ".")
	return strings.TrimSpace(sentences[0])
}

// extractConfidence pulls the confidence level, defaulting to medium.
func extractConfidence(content string) models.Confidence {
	if content == "" {
		return models.ConfidenceMedium
	}

	if m := confidencePattern.FindStringSubmatch(content); m != nil {
		return models.Confidence(strings.ToLower(m[1]))
	}

	lower := strings.ToLower(content)
	for _, indicator := range highConfidenceIndicators {
		if strings.Contains(lower, indicator) {
			return models.ConfidenceHigh
		}
	}
	for _, indicator := range lowConfidenceIndicators {
		if strings.Contains(lower, indicator) {
			return models.ConfidenceLow
		}
	}

	return models.ConfidenceMedium
}

// extractEvidence walks the conversation pairing each tool call with the
// first later message that has content, then appends any EVIDENCE:
// sections the agent wrote as agent_analysis items.
func extractEvidence(messages []Message, now time.Time) []models.EvidenceItem {
	var evidence []models.EvidenceItem

	for i, msg := range messages {
		if !msg.HasToolCalls() {
			continue
		}
		for _, call := range msg.ToolCalls {
			response := "No response"
			for _, next := range messages[i+1:] {
				if next.Content != "" {
					response = next.Content
					break
				}
			}
			evidence = append(evidence, models.EvidenceItem{
				Source:    call.Name,
				Args:      call.Args,
				Content:   response,
				Timestamp: now,
			})
		}
	}

	for _, msg := range messages {
		if msg.Content == "" {
			continue
		}
		if m := evidencePattern.FindStringSubmatch(msg.Content); m != nil {
			evidence = append(evidence, models.EvidenceItem{
				Source:    "agent_analysis",
				Content:   strings.TrimSpace(m[1]),
				Timestamp: now,
			})
		}
	}

	return evidence
}

// extractRecommendations splits the RECOMMENDATIONS section into
// individual entries, dropping fragments too short to act on.
func extractRecommendations(content string) []string {
	if content == "" {
		return nil
	}

	m := recommendationsPattern.FindStringSubmatch(content)
	if m == nil {
		return nil
	}

	var recommendations []string
	for _, line := range recommendationSplit.Split(strings.TrimSpace(m[1]), -1) {
		line = strings.TrimSpace(recommendationPrefix.ReplaceAllString(strings.TrimSpace(line), ""))
		if len(line) > 10 {
			recommendations = append(recommendations, line)
		}
	}
	return recommendations
}

// collectToolCalls records every tool call across the conversation in
// emission order.
func collectToolCalls(messages []Message, now time.Time) []models.ToolCallRecord {
	var calls []models.ToolCallRecord
	for _, msg := range messages {
		if !msg.HasToolCalls() {
			continue
		}
		for _, call := range msg.ToolCalls {
			name := call.Name
			if name == "" {
				name = "unknown"
			}
			calls = append(calls, models.ToolCallRecord{
				Tool:      name,
				Args:      call.Args,
				Timestamp: now,
			})
		}
	}
	return calls
}
