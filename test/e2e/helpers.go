package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/inquest/pkg/api"
	"github.com/codeready-toolchain/inquest/pkg/models"
)

// SubmitIncident posts a description and requires a 202 acceptance.
func (app *TestApp) SubmitIncident(description string) *api.SubmitIncidentResponse {
	app.t.Helper()

	body, err := json.Marshal(api.SubmitIncidentRequest{Description: description})
	require.NoError(app.t, err)

	resp, err := http.Post(app.BaseURL+"/api/v1/incidents", "application/json", bytes.NewReader(body))
	require.NoError(app.t, err)
	defer resp.Body.Close()
	require.Equal(app.t, http.StatusAccepted, resp.StatusCode)

	var accepted api.SubmitIncidentResponse
	require.NoError(app.t, json.NewDecoder(resp.Body).Decode(&accepted))
	require.NotEmpty(app.t, accepted.IncidentID)
	return &accepted
}

// SubmitRaw posts an arbitrary body and returns the status code and body.
func (app *TestApp) SubmitRaw(body string) (int, string) {
	app.t.Helper()

	resp, err := http.Post(app.BaseURL+"/api/v1/incidents", "application/json", bytes.NewReader([]byte(body)))
	require.NoError(app.t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(app.t, err)
	return resp.StatusCode, buf.String()
}

// GetIncident fetches one incident over HTTP and requires a 200.
func (app *TestApp) GetIncident(id string) *models.Incident {
	app.t.Helper()

	resp, err := http.Get(app.BaseURL + "/api/v1/incidents/" + id)
	require.NoError(app.t, err)
	defer resp.Body.Close()
	require.Equal(app.t, http.StatusOK, resp.StatusCode)

	var incident models.Incident
	require.NoError(app.t, json.NewDecoder(resp.Body).Decode(&incident))
	return &incident
}

// ListIncidents fetches the incident list over HTTP.
func (app *TestApp) ListIncidents(limit int) *api.IncidentListResponse {
	app.t.Helper()

	url := app.BaseURL + "/api/v1/incidents"
	if limit > 0 {
		url = fmt.Sprintf("%s?limit=%d", url, limit)
	}
	resp, err := http.Get(url)
	require.NoError(app.t, err)
	defer resp.Body.Close()
	require.Equal(app.t, http.StatusOK, resp.StatusCode)

	var list api.IncidentListResponse
	require.NoError(app.t, json.NewDecoder(resp.Body).Decode(&list))
	return &list
}

// GetJSON fetches any path and decodes the JSON response into out.
func (app *TestApp) GetJSON(path string, out any) int {
	app.t.Helper()

	resp, err := http.Get(app.BaseURL + path)
	require.NoError(app.t, err)
	defer resp.Body.Close()

	require.NoError(app.t, json.NewDecoder(resp.Body).Decode(out))
	return resp.StatusCode
}

// WaitForStatus polls over HTTP until the incident reaches the wanted
// status, failing the test after timeout.
func (app *TestApp) WaitForStatus(id string, status models.IncidentStatus, timeout time.Duration) *models.Incident {
	app.t.Helper()

	var last *models.Incident
	require.Eventually(app.t, func() bool {
		last = app.GetIncident(id)
		return last.Status == status
	}, timeout, 20*time.Millisecond,
		"incident %s never reached status %s", id, status)
	return last
}

// WaitTerminal polls until the incident is completed or failed.
func (app *TestApp) WaitTerminal(id string, timeout time.Duration) *models.Incident {
	app.t.Helper()

	var last *models.Incident
	require.Eventually(app.t, func() bool {
		last = app.GetIncident(id)
		return last.Status.IsTerminal()
	}, timeout, 20*time.Millisecond,
		"incident %s never reached a terminal status", id)
	return last
}

// stepNames flattens the audit trail for order assertions.
func stepNames(incident *models.Incident) []string {
	names := make([]string, 0, len(incident.InvestigationSteps))
	for _, step := range incident.InvestigationSteps {
		names = append(names, step.StepName)
	}
	return names
}
