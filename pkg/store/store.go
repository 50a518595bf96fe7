// Package store holds incident records in memory for the lifetime of the
// process. Records survive investigation failures but not restarts.
package store

import (
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/inquest/pkg/correlate"
	"github.com/codeready-toolchain/inquest/pkg/models"
)

var (
	// ErrNotFound indicates the incident ID is unknown.
	ErrNotFound = errors.New("incident not found")
	// ErrInvalidTransition indicates a status change the lifecycle forbids.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// validTransitions is the incident lifecycle. Terminal statuses are absent:
// once completed or failed, a record never changes status again.
var validTransitions = map[models.IncidentStatus][]models.IncidentStatus{
	models.StatusPending:    {models.StatusInProgress, models.StatusCompleted, models.StatusFailed},
	models.StatusInProgress: {models.StatusCompleted, models.StatusFailed},
}

// Store is a thread-safe in-memory incident store.
// All methods return deep copies; callers never share memory with the store.
type Store struct {
	mu        sync.RWMutex
	incidents map[string]*models.Incident
	order     []string // creation order, oldest first
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		incidents: make(map[string]*models.Incident),
	}
}

// CreatePending creates a new incident in status pending with its initial
// incident_created step and entities extracted from the description.
func (s *Store) CreatePending(description string) *models.Incident {
	now := time.Now().UTC()
	incident := &models.Incident{
		ID:                uuid.NewString(),
		Description:       description,
		Status:            models.StatusPending,
		CreatedAt:         now,
		ExtractedEntities: correlate.ExtractEntities(description),
		InvestigationSteps: []models.InvestigationStep{{
			StepName:  models.StepIncidentCreated,
			Timestamp: now,
			Status:    models.StepCompleted,
			Details:   map[string]any{"description": description},
		}},
	}

	s.mu.Lock()
	s.incidents[incident.ID] = incident
	s.order = append(s.order, incident.ID)
	s.mu.Unlock()

	return incident.Clone()
}

// Get returns a copy of the incident, or ErrNotFound.
func (s *Store) Get(id string) (*models.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	incident, exists := s.incidents[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return incident.Clone(), nil
}

// List returns incidents newest-first. A non-positive limit returns all.
func (s *Store) List(limit int) []*models.Incident {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.order)
	if limit > 0 && limit < n {
		n = limit
	}
	result := make([]*models.Incident, 0, n)
	for i := len(s.order) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, s.incidents[s.order[i]].Clone())
	}
	return result
}

// UpdateStatus transitions an incident through its lifecycle and appends the
// matching investigation step. details is recorded on the step; for failed
// transitions details["error"] becomes the incident's error_message.
// Terminal incidents reject every transition.
func (s *Store) UpdateStatus(id string, status models.IncidentStatus, details map[string]any) (*models.Incident, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	incident, exists := s.incidents[id]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if !transitionAllowed(incident.Status, status) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, incident.Status, status)
	}

	now := time.Now().UTC()
	incident.Status = status

	step := models.InvestigationStep{
		Timestamp: now,
		Details:   maps.Clone(details),
	}

	switch status {
	case models.StatusInProgress:
		step.StepName = models.StepInvestigationStarted
		step.Status = models.StepStarted
	case models.StatusCompleted:
		incident.CompletedAt = &now
		step.StepName = models.StepInvestigationCompleted
		step.Status = models.StepCompleted
	case models.StatusFailed:
		incident.CompletedAt = &now
		step.StepName = models.StepInvestigationFailed
		step.Status = models.StepFailed
		incident.ErrorMessage = failureMessage(details)
	}

	incident.InvestigationSteps = append(incident.InvestigationSteps, step)
	return incident.Clone(), nil
}

// failureMessage pulls the error text out of transition details. A failed
// incident always carries an error_message, even when the caller gave none.
func failureMessage(details map[string]any) string {
	if msg, ok := details["error"].(string); ok && msg != "" {
		return msg
	}
	return "investigation failed"
}

func transitionAllowed(from, to models.IncidentStatus) bool {
	for _, allowed := range validTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// SetInvestigationResult records the verdict on a non-terminal incident.
// The evidence is deep-copied.
func (s *Store) SetInvestigationResult(id string, evidence *models.Evidence, rootCause string, confidence models.Confidence) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, exists := s.incidents[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if incident.Status.IsTerminal() {
		return fmt.Errorf("%w: incident %s is %s", ErrInvalidTransition, id, incident.Status)
	}

	incident.Evidence = evidence.Clone()
	incident.SuggestedRootCause = rootCause
	incident.ConfidenceScore = confidence
	return nil
}

// AppendStep appends an investigation step to a non-terminal incident.
// A zero step timestamp is stamped with the current time.
func (s *Store) AppendStep(id string, step models.InvestigationStep) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	incident, exists := s.incidents[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if incident.Status.IsTerminal() {
		return fmt.Errorf("%w: incident %s is %s", ErrInvalidTransition, id, incident.Status)
	}

	if step.Timestamp.IsZero() {
		step.Timestamp = time.Now().UTC()
	}
	step.Details = maps.Clone(step.Details)
	incident.InvestigationSteps = append(incident.InvestigationSteps, step)
	return nil
}

// Prune removes terminal incidents completed before now-maxAge, then trims
// the store to maxRecords by dropping the oldest terminal incidents.
// Active incidents are never removed. Non-positive arguments disable the
// corresponding pass. Returns the number of incidents removed.
func (s *Store) Prune(maxAge time.Duration, maxRecords int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0

	if maxAge > 0 {
		cutoff := time.Now().UTC().Add(-maxAge)
		for _, id := range s.order {
			incident := s.incidents[id]
			if incident.Status.IsTerminal() && incident.CompletedAt != nil && incident.CompletedAt.Before(cutoff) {
				delete(s.incidents, id)
				removed++
			}
		}
	}

	if maxRecords > 0 {
		for _, id := range s.order {
			if len(s.incidents) <= maxRecords {
				break
			}
			incident, exists := s.incidents[id]
			if !exists || !incident.Status.IsTerminal() {
				continue
			}
			delete(s.incidents, id)
			removed++
		}
	}

	if removed > 0 {
		s.compactOrder()
	}
	return removed
}

// compactOrder drops order entries whose incidents were removed.
// Caller must hold the write lock.
func (s *Store) compactOrder() {
	kept := s.order[:0]
	for _, id := range s.order {
		if _, exists := s.incidents[id]; exists {
			kept = append(kept, id)
		}
	}
	s.order = kept
}

// Len returns the number of stored incidents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.incidents)
}
