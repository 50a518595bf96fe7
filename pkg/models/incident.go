// Package models defines the domain types shared across the service:
// incidents, investigation evidence, and audit steps.
package models

import "time"

// IncidentStatus defines the lifecycle states of an incident investigation.
type IncidentStatus string

const (
	// StatusPending: accepted, waiting for a worker slot.
	StatusPending IncidentStatus = "pending"
	// StatusInProgress: investigation running.
	StatusInProgress IncidentStatus = "in_progress"
	// StatusCompleted: investigation produced a verdict.
	StatusCompleted IncidentStatus = "completed"
	// StatusFailed: investigation gave up (exhausted retries, timeout, shutdown).
	StatusFailed IncidentStatus = "failed"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the status permits no further transitions.
func (s IncidentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// StepStatus defines the outcome recorded on an investigation step.
type StepStatus string

const (
	// StepStarted: the step began and has no terminal outcome yet.
	StepStarted StepStatus = "started"
	// StepCompleted: the step finished successfully.
	StepCompleted StepStatus = "completed"
	// StepFailed: the step finished with an error.
	StepFailed StepStatus = "failed"
)

// Confidence defines how strongly the evidence supports a root cause.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// IsValid checks if the confidence level is valid.
func (c Confidence) IsValid() bool {
	return c == ConfidenceHigh || c == ConfidenceMedium || c == ConfidenceLow
}

// Incident is the unit of work: one submitted problem description plus
// everything the investigation produced for it.
type Incident struct {
	ID          string         `json:"id"`
	Description string         `json:"description"`
	Status      IncidentStatus `json:"status"`

	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ExtractedEntities holds structured hints parsed from the description
	// (pod name, namespace) used when correlating evidence.
	ExtractedEntities map[string]string `json:"extracted_entities,omitempty"`

	Evidence           *Evidence  `json:"evidence,omitempty"`
	SuggestedRootCause string     `json:"suggested_root_cause,omitempty"`
	ConfidenceScore    Confidence `json:"confidence_score,omitempty"`

	InvestigationSteps []InvestigationStep `json:"investigation_steps"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// Evidence aggregates what the agent observed and concluded.
type Evidence struct {
	ToolCalls         []ToolCallRecord `json:"tool_calls"`
	CollectedEvidence []EvidenceItem   `json:"collected_evidence"`
	Reasoning         string           `json:"reasoning"`
	Recommendations   []string         `json:"recommendations"`
	// Partial marks evidence salvaged from a failed or timed-out run.
	Partial bool `json:"partial,omitempty"`
}

// ToolCallRecord is one tool invocation the agent requested, in order.
type ToolCallRecord struct {
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// EvidenceItem is one observation: a tool result paired with its call,
// or an analysis excerpt from the agent itself (source "agent_analysis").
type EvidenceItem struct {
	Source    string         `json:"source"`
	Args      map[string]any `json:"args,omitempty"`
	Content   string         `json:"content"`
	Timestamp time.Time      `json:"timestamp"`
}

// InvestigationStep is one append-only audit entry on an incident.
type InvestigationStep struct {
	StepName  string         `json:"step_name"`
	Timestamp time.Time      `json:"timestamp"`
	Status    StepStatus     `json:"status"`
	Details   map[string]any `json:"details,omitempty"`
}

// Audit step names recorded by the store and scheduler.
const (
	StepIncidentCreated        = "incident_created"
	StepInvestigationStarted   = "investigation_started"
	StepInvestigationCompleted = "investigation_completed"
	StepInvestigationFailed    = "investigation_failed"
	StepAgentInvestigating     = "agent_investigating"
)

// Clone returns a deep copy so callers can never mutate stored state.
func (i *Incident) Clone() *Incident {
	if i == nil {
		return nil
	}
	cp := *i

	if i.CompletedAt != nil {
		t := *i.CompletedAt
		cp.CompletedAt = &t
	}
	if i.ExtractedEntities != nil {
		cp.ExtractedEntities = make(map[string]string, len(i.ExtractedEntities))
		for k, v := range i.ExtractedEntities {
			cp.ExtractedEntities[k] = v
		}
	}
	cp.Evidence = i.Evidence.Clone()

	if i.InvestigationSteps != nil {
		cp.InvestigationSteps = make([]InvestigationStep, len(i.InvestigationSteps))
		for idx, step := range i.InvestigationSteps {
			cp.InvestigationSteps[idx] = step
			cp.InvestigationSteps[idx].Details = cloneAnyMap(step.Details)
		}
	}
	return &cp
}

// Clone returns a deep copy of the evidence.
func (e *Evidence) Clone() *Evidence {
	if e == nil {
		return nil
	}
	cp := *e

	if e.ToolCalls != nil {
		cp.ToolCalls = make([]ToolCallRecord, len(e.ToolCalls))
		for i, tc := range e.ToolCalls {
			cp.ToolCalls[i] = tc
			cp.ToolCalls[i].Args = cloneAnyMap(tc.Args)
		}
	}
	if e.CollectedEvidence != nil {
		cp.CollectedEvidence = make([]EvidenceItem, len(e.CollectedEvidence))
		for i, item := range e.CollectedEvidence {
			cp.CollectedEvidence[i] = item
			cp.CollectedEvidence[i].Args = cloneAnyMap(item.Args)
		}
	}
	if e.Recommendations != nil {
		cp.Recommendations = append([]string(nil), e.Recommendations...)
	}
	return &cp
}

// cloneAnyMap shallow-copies map values; nested tool arguments are
// treated as immutable once recorded.
func cloneAnyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
