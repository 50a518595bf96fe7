package cleanup

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/models"
	"github.com/codeready-toolchain/inquest/pkg/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// completedIncident creates an incident and walks it to completed.
func completedIncident(t *testing.T, st *store.Store) string {
	t.Helper()
	incident := st.CreatePending("api errors spiking")
	_, err := st.UpdateStatus(incident.ID, models.StatusCompleted, nil)
	require.NoError(t, err)
	return incident.ID
}

func TestService_SweepTrimsToRecordCap(t *testing.T) {
	st := store.New()
	oldest := completedIncident(t, st)
	completedIncident(t, st)
	newest := completedIncident(t, st)

	cfg := &config.RetentionConfig{
		MaxAge:        24 * time.Hour,
		MaxRecords:    2,
		SweepInterval: time.Hour,
	}
	svc := NewService(cfg, st, testLogger())
	svc.sweep()

	assert.Equal(t, 2, st.Len())

	_, err := st.Get(oldest)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, err = st.Get(newest)
	assert.NoError(t, err)
}

func TestService_SweepKeepsActiveIncidents(t *testing.T) {
	st := store.New()
	for i := 0; i < 3; i++ {
		st.CreatePending("still investigating")
	}

	cfg := &config.RetentionConfig{
		MaxAge:        24 * time.Hour,
		MaxRecords:    1,
		SweepInterval: time.Hour,
	}
	svc := NewService(cfg, st, testLogger())
	svc.sweep()

	// Non-terminal incidents are never pruned, even over the cap.
	assert.Equal(t, 3, st.Len())
}

func TestService_StartSweepsImmediately(t *testing.T) {
	st := store.New()
	for i := 0; i < 4; i++ {
		completedIncident(t, st)
	}

	cfg := &config.RetentionConfig{
		MaxAge:        24 * time.Hour,
		MaxRecords:    1,
		SweepInterval: time.Hour,
	}
	svc := NewService(cfg, st, testLogger())
	svc.Start(context.Background())
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return st.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_PeriodicSweep(t *testing.T) {
	st := store.New()

	cfg := &config.RetentionConfig{
		MaxAge:        24 * time.Hour,
		MaxRecords:    1,
		SweepInterval: 10 * time.Millisecond,
	}
	svc := NewService(cfg, st, testLogger())
	svc.Start(context.Background())
	defer svc.Stop()

	// Exceed the cap after the initial sweep; the ticker must catch it.
	completedIncident(t, st)
	completedIncident(t, st)

	require.Eventually(t, func() bool {
		return st.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestService_StartIsIdempotent(t *testing.T) {
	svc := NewService(&config.RetentionConfig{
		MaxAge:        time.Hour,
		MaxRecords:    10,
		SweepInterval: time.Hour,
	}, store.New(), testLogger())

	svc.Start(context.Background())
	svc.Start(context.Background())
	svc.Stop()
}

func TestService_StopWithoutStart(t *testing.T) {
	svc := NewService(&config.RetentionConfig{
		MaxAge:        time.Hour,
		MaxRecords:    10,
		SweepInterval: time.Hour,
	}, store.New(), testLogger())

	assert.NotPanics(t, svc.Stop)
}
