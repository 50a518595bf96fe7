package masking

import (
	"log/slog"
	"regexp"

	"github.com/codeready-toolchain/inquest/pkg/config"
)

// RedactionNotice replaces the entire tool result when masking itself
// fails. Fail closed: a broken masker must never leak the raw output.
const RedactionNotice = "[TOOL RESULT REDACTED: masking failed]"

// serverRules holds the resolved masking rules for one server.
type serverRules struct {
	maskers  []Masker
	patterns []pattern
}

// Service applies per-server masking rules to MCP tool results. Rules are
// resolved once at construction; servers without an enabled data_masking
// block get no entry and pass through untouched.
type Service struct {
	rules   map[string]serverRules
	logger  *slog.Logger
	maskers map[string]Masker
}

// NewService resolves the masking configuration of every registered MCP
// server. Unknown pattern names are logged and skipped rather than
// failing startup; invalid custom regexes are rejected earlier by config
// validation, so a compile failure here is only logged.
func NewService(registry *config.MCPServerRegistry, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		rules:   make(map[string]serverRules),
		logger:  logger.With("component", "masking"),
		maskers: make(map[string]Masker),
	}
	s.registerMasker(&SecretMasker{})

	if registry == nil {
		return s
	}
	for serverID, server := range registry.GetAll() {
		if server.DataMasking == nil || !server.DataMasking.Enabled {
			continue
		}
		rules := s.resolveRules(serverID, server.DataMasking)
		s.rules[serverID] = rules
		s.logger.Info("Masking enabled for MCP server",
			"server", serverID,
			"maskers", len(rules.maskers),
			"patterns", len(rules.patterns))
	}
	return s
}

// registerMasker makes a structured masker resolvable by name.
func (s *Service) registerMasker(m Masker) {
	s.maskers[m.Name()] = m
}

// resolveRules expands groups and names into concrete maskers and
// patterns, deduplicating names that appear through several groups.
func (s *Service) resolveRules(serverID string, cfg *config.MaskingConfig) serverRules {
	names := make([]string, 0, len(cfg.Patterns))
	seen := make(map[string]bool)
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}

	for _, group := range cfg.PatternGroups {
		members, ok := patternGroups[group]
		if !ok {
			s.logger.Warn("Unknown masking pattern group, skipping",
				"server", serverID, "group", group)
			continue
		}
		for _, name := range members {
			add(name)
		}
	}
	for _, name := range cfg.Patterns {
		add(name)
	}

	var rules serverRules
	for _, name := range names {
		if m, ok := s.maskers[name]; ok {
			rules.maskers = append(rules.maskers, m)
			continue
		}
		if p, ok := builtinPatterns[name]; ok {
			rules.patterns = append(rules.patterns, p)
			continue
		}
		s.logger.Warn("Unknown masking pattern, skipping",
			"server", serverID, "pattern", name)
	}

	for _, custom := range cfg.CustomPatterns {
		re, err := regexp.Compile(custom.Pattern)
		if err != nil {
			s.logger.Warn("Invalid custom masking pattern, skipping",
				"server", serverID, "pattern", custom.Pattern, "error", err)
			continue
		}
		rules.patterns = append(rules.patterns, pattern{regex: re, replacement: custom.Replacement})
	}
	return rules
}

// Enabled reports whether any server has masking rules configured.
func (s *Service) Enabled() bool {
	return len(s.rules) > 0
}

// MaskToolResult applies the server's masking rules to a tool result.
// Servers without rules pass through unchanged. Structured maskers run
// before regex patterns so they parse the document intact.
func (s *Service) MaskToolResult(content, serverID string) (masked string) {
	rules, ok := s.rules[serverID]
	if !ok || content == "" {
		return content
	}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Masking panicked, redacting entire tool result",
				"server", serverID, "panic", r)
			masked = RedactionNotice
		}
	}()

	masked = content
	for _, m := range rules.maskers {
		if m.AppliesTo(masked) {
			masked = m.Mask(masked)
		}
	}
	for _, p := range rules.patterns {
		masked = p.regex.ReplaceAllString(masked, p.replacement)
	}
	return masked
}
