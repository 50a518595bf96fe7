package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/inquest/pkg/models"
	"github.com/codeready-toolchain/inquest/pkg/scheduler"
	"github.com/codeready-toolchain/inquest/pkg/store"
)

// DefaultListLimit is applied when a list request carries no limit.
const DefaultListLimit = 10

// InvestigationSubmitter starts background investigations. Implemented by
// the scheduler; narrowed to an interface so handlers can be tested without
// a real worker pool.
type InvestigationSubmitter interface {
	Submit(ctx context.Context, description string) (*models.Incident, error)
}

// IncidentService handles incident submission and retrieval.
type IncidentService struct {
	submitter InvestigationSubmitter
	incidents *store.Store
}

// NewIncidentService creates a new IncidentService.
func NewIncidentService(submitter InvestigationSubmitter, incidents *store.Store) *IncidentService {
	if submitter == nil {
		panic("NewIncidentService: submitter must not be nil")
	}
	if incidents == nil {
		panic("NewIncidentService: incidents must not be nil")
	}
	return &IncidentService{
		submitter: submitter,
		incidents: incidents,
	}
}

// Submit validates the problem description and schedules its investigation.
// The returned incident is in "pending" status; clients poll Get for the
// verdict.
func (s *IncidentService) Submit(ctx context.Context, description string) (*models.Incident, error) {
	if strings.TrimSpace(description) == "" {
		return nil, NewValidationError("description", "description is required")
	}

	incident, err := s.submitter.Submit(ctx, description)
	if err != nil {
		if errors.Is(err, scheduler.ErrNotReady) {
			return nil, fmt.Errorf("%w: %s", ErrUnavailable, "scheduler is shutting down")
		}
		return nil, fmt.Errorf("failed to submit incident: %w", err)
	}

	return incident, nil
}

// Get returns one incident by ID.
func (s *IncidentService) Get(_ context.Context, id string) (*models.Incident, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, NewValidationError("incident_id", fmt.Sprintf("'%s' is not a valid incident ID", id))
	}

	incident, err := s.incidents.Get(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: incident %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}

	return incident, nil
}

// List returns the most recent incidents, newest first. A non-positive
// limit applies DefaultListLimit.
func (s *IncidentService) List(_ context.Context, limit int) ([]*models.Incident, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.incidents.List(limit), nil
}
