package store

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/inquest/pkg/models"
)

func TestCreatePending(t *testing.T) {
	s := New()

	incident := s.CreatePending("pod:nginx-abc123 in namespace:production is crashlooping")

	_, err := uuid.Parse(incident.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, incident.Status)
	assert.False(t, incident.CreatedAt.IsZero())
	assert.Nil(t, incident.CompletedAt)
	assert.Empty(t, incident.ErrorMessage)

	assert.Equal(t, map[string]string{
		"pod_name":  "nginx-abc123",
		"namespace": "production",
	}, incident.ExtractedEntities)

	require.Len(t, incident.InvestigationSteps, 1)
	step := incident.InvestigationSteps[0]
	assert.Equal(t, models.StepIncidentCreated, step.StepName)
	assert.Equal(t, models.StepCompleted, step.Status)
	assert.Equal(t, "pod:nginx-abc123 in namespace:production is crashlooping", step.Details["description"])
}

func TestCreatePending_ReturnsCopy(t *testing.T) {
	s := New()

	created := s.CreatePending("pod:web-1 is down")
	created.Description = "mutated"
	created.InvestigationSteps[0].Details["description"] = "mutated"

	stored, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "pod:web-1 is down", stored.Description)
	assert.Equal(t, "pod:web-1 is down", stored.InvestigationSteps[0].Details["description"])
}

func TestGet_NotFound(t *testing.T) {
	s := New()

	_, err := s.Get(uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestList(t *testing.T) {
	s := New()
	first := s.CreatePending("first")
	second := s.CreatePending("second")
	third := s.CreatePending("third")

	all := s.List(0)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID)
	assert.Equal(t, second.ID, all[1].ID)
	assert.Equal(t, first.ID, all[2].ID)

	limited := s.List(2)
	require.Len(t, limited, 2)
	assert.Equal(t, third.ID, limited[0].ID)
	assert.Equal(t, second.ID, limited[1].ID)
}

func TestList_Empty(t *testing.T) {
	s := New()
	assert.Empty(t, s.List(10))
}

func TestUpdateStatus_Lifecycle(t *testing.T) {
	s := New()
	incident := s.CreatePending("pod:api-1 failing")

	inProgress, err := s.UpdateStatus(incident.ID, models.StatusInProgress, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, inProgress.Status)
	assert.Nil(t, inProgress.CompletedAt)
	require.Len(t, inProgress.InvestigationSteps, 2)
	assert.Equal(t, models.StepInvestigationStarted, inProgress.InvestigationSteps[1].StepName)
	assert.Equal(t, models.StepStarted, inProgress.InvestigationSteps[1].Status)

	completed, err := s.UpdateStatus(incident.ID, models.StatusCompleted, nil)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.Len(t, completed.InvestigationSteps, 3)
	assert.Equal(t, models.StepInvestigationCompleted, completed.InvestigationSteps[2].StepName)
	assert.Equal(t, models.StepCompleted, completed.InvestigationSteps[2].Status)
	assert.Empty(t, completed.ErrorMessage)
}

func TestUpdateStatus_Failed(t *testing.T) {
	s := New()
	incident := s.CreatePending("pod:api-1 failing")
	_, err := s.UpdateStatus(incident.ID, models.StatusInProgress, nil)
	require.NoError(t, err)

	failed, err := s.UpdateStatus(incident.ID, models.StatusFailed, map[string]any{"error": "LLM unavailable"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Equal(t, "LLM unavailable", failed.ErrorMessage)
	require.NotNil(t, failed.CompletedAt)

	last := failed.InvestigationSteps[len(failed.InvestigationSteps)-1]
	assert.Equal(t, models.StepInvestigationFailed, last.StepName)
	assert.Equal(t, models.StepFailed, last.Status)
	assert.Equal(t, "LLM unavailable", last.Details["error"])
}

func TestUpdateStatus_FailedWithoutErrorDetail(t *testing.T) {
	s := New()
	incident := s.CreatePending("something broke")

	failed, err := s.UpdateStatus(incident.ID, models.StatusFailed, nil)
	require.NoError(t, err)
	assert.Equal(t, "investigation failed", failed.ErrorMessage)
}

func TestUpdateStatus_IllegalTransitions(t *testing.T) {
	tests := []struct {
		name string
		path []models.IncidentStatus
		next models.IncidentStatus
	}{
		{"pending to pending", nil, models.StatusPending},
		{"in_progress to in_progress", []models.IncidentStatus{models.StatusInProgress}, models.StatusInProgress},
		{"in_progress to pending", []models.IncidentStatus{models.StatusInProgress}, models.StatusPending},
		{"completed is immutable", []models.IncidentStatus{models.StatusInProgress, models.StatusCompleted}, models.StatusInProgress},
		{"completed to failed", []models.IncidentStatus{models.StatusInProgress, models.StatusCompleted}, models.StatusFailed},
		{"failed to completed", []models.IncidentStatus{models.StatusInProgress, models.StatusFailed}, models.StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New()
			incident := s.CreatePending("test")
			for _, status := range tt.path {
				_, err := s.UpdateStatus(incident.ID, status, nil)
				require.NoError(t, err)
			}

			_, err := s.UpdateStatus(incident.ID, tt.next, nil)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	s := New()
	incident := s.CreatePending("test")

	_, err := s.UpdateStatus(incident.ID, models.IncidentStatus("exploded"), nil)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestUpdateStatus_NotFound(t *testing.T) {
	s := New()

	_, err := s.UpdateStatus(uuid.NewString(), models.StatusInProgress, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetInvestigationResult(t *testing.T) {
	s := New()
	incident := s.CreatePending("pod:api-1 failing")
	_, err := s.UpdateStatus(incident.ID, models.StatusInProgress, nil)
	require.NoError(t, err)

	evidence := &models.Evidence{
		ToolCalls: []models.ToolCallRecord{
			{Tool: "get_pod_logs", Args: map[string]any{"pod": "api-1"}, Timestamp: time.Now().UTC()},
		},
		Reasoning:       "logs show OOMKilled",
		Recommendations: []string{"Increase the memory limit"},
	}
	require.NoError(t, s.SetInvestigationResult(incident.ID, evidence, "Memory limit too low", models.ConfidenceHigh))

	// Mutations on the caller's copy must not leak into the store.
	evidence.Reasoning = "mutated"
	evidence.ToolCalls[0].Args["pod"] = "mutated"

	stored, err := s.Get(incident.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Evidence)
	assert.Equal(t, "logs show OOMKilled", stored.Evidence.Reasoning)
	assert.Equal(t, "api-1", stored.Evidence.ToolCalls[0].Args["pod"])
	assert.Equal(t, "Memory limit too low", stored.SuggestedRootCause)
	assert.Equal(t, models.ConfidenceHigh, stored.ConfidenceScore)
}

func TestSetInvestigationResult_TerminalRejected(t *testing.T) {
	s := New()
	incident := s.CreatePending("test")
	_, err := s.UpdateStatus(incident.ID, models.StatusFailed, nil)
	require.NoError(t, err)

	err = s.SetInvestigationResult(incident.ID, &models.Evidence{}, "late verdict", models.ConfidenceLow)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestAppendStep(t *testing.T) {
	s := New()
	incident := s.CreatePending("test")
	_, err := s.UpdateStatus(incident.ID, models.StatusInProgress, nil)
	require.NoError(t, err)

	err = s.AppendStep(incident.ID, models.InvestigationStep{
		StepName: models.StepAgentInvestigating,
		Status:   models.StepStarted,
		Details:  map[string]any{"message": "Investigation started"},
	})
	require.NoError(t, err)

	stored, err := s.Get(incident.ID)
	require.NoError(t, err)
	require.Len(t, stored.InvestigationSteps, 3)
	last := stored.InvestigationSteps[2]
	assert.Equal(t, models.StepAgentInvestigating, last.StepName)
	assert.False(t, last.Timestamp.IsZero())

	// Earlier steps are untouched.
	assert.Equal(t, models.StepIncidentCreated, stored.InvestigationSteps[0].StepName)
	assert.Equal(t, models.StepInvestigationStarted, stored.InvestigationSteps[1].StepName)
}

func TestAppendStep_TerminalRejected(t *testing.T) {
	s := New()
	incident := s.CreatePending("test")
	_, err := s.UpdateStatus(incident.ID, models.StatusCompleted, nil)
	require.NoError(t, err)

	err = s.AppendStep(incident.ID, models.InvestigationStep{StepName: models.StepAgentInvestigating})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPrune_ByAge(t *testing.T) {
	s := New()
	old := s.CreatePending("old")
	fresh := s.CreatePending("fresh")
	active := s.CreatePending("active")

	_, err := s.UpdateStatus(old.ID, models.StatusCompleted, nil)
	require.NoError(t, err)
	_, err = s.UpdateStatus(fresh.ID, models.StatusCompleted, nil)
	require.NoError(t, err)

	// Backdate the old incident's completion past the cutoff.
	past := time.Now().UTC().Add(-2 * time.Hour)
	s.incidents[old.ID].CompletedAt = &past

	removed := s.Prune(time.Hour, 0)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 2, s.Len())

	_, err = s.Get(old.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(fresh.ID)
	assert.NoError(t, err)
	_, err = s.Get(active.ID)
	assert.NoError(t, err)
}

func TestPrune_ByCount(t *testing.T) {
	s := New()
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, s.CreatePending("incident").ID)
	}
	// Terminate the three oldest.
	for _, id := range ids[:3] {
		_, err := s.UpdateStatus(id, models.StatusCompleted, nil)
		require.NoError(t, err)
	}

	removed := s.Prune(0, 3)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 3, s.Len())

	// The two oldest terminals went first.
	_, err := s.Get(ids[0])
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ids[1])
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ids[2])
	assert.NoError(t, err)
}

func TestPrune_NeverRemovesActive(t *testing.T) {
	s := New()
	for i := 0; i < 4; i++ {
		s.CreatePending("active incident")
	}

	removed := s.Prune(time.Nanosecond, 1)
	assert.Zero(t, removed)
	assert.Equal(t, 4, s.Len())
}

func TestPrune_Disabled(t *testing.T) {
	s := New()
	incident := s.CreatePending("test")
	_, err := s.UpdateStatus(incident.ID, models.StatusCompleted, nil)
	require.NoError(t, err)

	assert.Zero(t, s.Prune(0, 0))
	assert.Equal(t, 1, s.Len())
}

func TestPrune_ListStaysConsistent(t *testing.T) {
	s := New()
	first := s.CreatePending("first")
	second := s.CreatePending("second")
	_, err := s.UpdateStatus(first.ID, models.StatusCompleted, nil)
	require.NoError(t, err)

	past := time.Now().UTC().Add(-time.Hour)
	s.incidents[first.ID].CompletedAt = &past
	s.Prune(time.Minute, 0)

	all := s.List(0)
	require.Len(t, all, 1)
	assert.Equal(t, second.ID, all[0].ID)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			incident := s.CreatePending("pod:web-1 concurrent test")
			_, err := s.UpdateStatus(incident.ID, models.StatusInProgress, nil)
			assert.NoError(t, err)
			_, err = s.Get(incident.ID)
			assert.NoError(t, err)
			s.List(5)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, s.Len())
}
