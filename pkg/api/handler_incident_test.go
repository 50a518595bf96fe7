package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/inquest/pkg/agent"
	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/models"
	"github.com/codeready-toolchain/inquest/pkg/scheduler"
	"github.com/codeready-toolchain/inquest/pkg/services"
	"github.com/codeready-toolchain/inquest/pkg/store"
)

// newTestServer wires a real store, scheduler, and incident service behind
// the HTTP server. The scripted LLM concludes immediately so background
// investigations never outlive a test.
func newTestServer(t *testing.T) (*Server, *store.Store, *scheduler.Scheduler) {
	t.Helper()
	st := store.New()
	llm := agent.NewScriptedLLMClient(
		agent.ScriptStep{Message: agent.AssistantMessage("ROOT CAUSE: test\nCONFIDENCE: low")},
	)
	llm.RepeatLast = true
	sched := scheduler.New(st, llm, agent.NewStubToolExecutor(nil), nil, &config.SchedulerConfig{
		MaxConcurrentInvestigations: 2,
		InvestigationTimeout:        5 * time.Second,
		MaxIterations:               3,
		GracefulShutdownTimeout:     time.Second,
	}, nil)
	t.Cleanup(sched.Stop)

	server := NewServer(services.NewIncidentService(sched, st), sched)
	return server, st, sched
}

func postJSON(t *testing.T, server *Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func getPath(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestSubmitIncidentHandler(t *testing.T) {
	server, st, _ := newTestServer(t)

	rec := postJSON(t, server, "/api/v1/incidents", `{"description":"pod:api-x namespace:prod crashing"}`)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp SubmitIncidentResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.IncidentID)
	assert.Equal(t, "pending", resp.Status)

	stored, err := st.Get(resp.IncidentID)
	require.NoError(t, err)
	assert.Equal(t, "pod:api-x namespace:prod crashing", stored.Description)
}

func TestSubmitIncidentHandler_EmptyDescription(t *testing.T) {
	server, _, _ := newTestServer(t)

	tests := []struct {
		name string
		body string
	}{
		{name: "empty description", body: `{"description":""}`},
		{name: "whitespace description", body: `{"description":"   "}`},
		{name: "missing field", body: `{}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(t, server, "/api/v1/incidents", tt.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
}

func TestSubmitIncidentHandler_MalformedBody(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := postJSON(t, server, "/api/v1/incidents", `{not json`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSubmitIncidentHandler_OversizeDescription(t *testing.T) {
	server, _, _ := newTestServer(t)

	huge := strings.Repeat("x", agent.MaxDescriptionSize+1)
	rec := postJSON(t, server, "/api/v1/incidents", `{"description":"`+huge+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestSubmitIncidentHandler_SchedulerStopped(t *testing.T) {
	server, _, sched := newTestServer(t)
	sched.Stop()

	rec := postJSON(t, server, "/api/v1/incidents", `{"description":"too late"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestGetIncidentHandler(t *testing.T) {
	server, st, _ := newTestServer(t)
	created := st.CreatePending("api returning 503s")

	rec := getPath(t, server, "/api/v1/incidents/"+created.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var incident models.Incident
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &incident))
	assert.Equal(t, created.ID, incident.ID)
	assert.Equal(t, "api returning 503s", incident.Description)
	assert.Equal(t, models.StatusPending, incident.Status)
	require.Len(t, incident.InvestigationSteps, 1)
	assert.Equal(t, models.StepIncidentCreated, incident.InvestigationSteps[0].StepName)
}

func TestGetIncidentHandler_NotFound(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := getPath(t, server, "/api/v1/incidents/0a65b52c-9f60-4c87-9d1a-6e2b3f3b74f1")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetIncidentHandler_MalformedID(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := getPath(t, server, "/api/v1/incidents/not-a-uuid")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestListIncidentsHandler(t *testing.T) {
	server, st, _ := newTestServer(t)
	for i := 0; i < 15; i++ {
		st.CreatePending("incident")
	}

	t.Run("default limit", func(t *testing.T) {
		rec := getPath(t, server, "/api/v1/incidents")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp IncidentListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, services.DefaultListLimit, resp.Count)
		assert.Len(t, resp.Incidents, services.DefaultListLimit)
	})

	t.Run("explicit limit", func(t *testing.T) {
		rec := getPath(t, server, "/api/v1/incidents?limit=3")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp IncidentListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 3, resp.Count)
	})

	t.Run("invalid limit", func(t *testing.T) {
		rec := getPath(t, server, "/api/v1/incidents?limit=zero")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

		rec = getPath(t, server, "/api/v1/incidents?limit=-5")
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestListIncidentsHandler_Empty(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := getPath(t, server, "/api/v1/incidents")
	require.Equal(t, http.StatusOK, rec.Code)

	// Empty list marshals as [], not null.
	assert.Contains(t, rec.Body.String(), `"incidents":[]`)
}

func TestListIncidentsHandler_NewestFirst(t *testing.T) {
	server, st, _ := newTestServer(t)

	first := st.CreatePending("first")
	time.Sleep(2 * time.Millisecond)
	second := st.CreatePending("second")

	rec := getPath(t, server, "/api/v1/incidents?limit=2")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp IncidentListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Incidents, 2)
	assert.Equal(t, second.ID, resp.Incidents[0].ID)
	assert.Equal(t, first.ID, resp.Incidents[1].ID)
}

