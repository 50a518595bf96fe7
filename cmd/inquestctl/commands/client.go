package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/codeready-toolchain/inquest/pkg/api"
	"github.com/codeready-toolchain/inquest/pkg/models"
)

// apiClient is a thin JSON client over the Inquest HTTP API.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newClient() *apiClient {
	return &apiClient{
		baseURL: baseURL(),
		token:   bearerToken(),
		http:    &http.Client{Timeout: flagTimeout},
	}
}

// errorBody is the error payload shape the server returns.
type errorBody struct {
	Message string `json:"message"`
}

// do performs one JSON request. A non-2xx response becomes an error built
// from the server's message, except for statuses listed in accept, which
// are returned to the caller with the decoded body.
func (c *apiClient) do(method, path string, body any, out any, accept ...int) (int, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 && !contains(accept, resp.StatusCode) {
		var payload errorBody
		if jsonErr := json.Unmarshal(data, &payload); jsonErr == nil && payload.Message != "" {
			return resp.StatusCode, fmt.Errorf("%s (HTTP %d)", payload.Message, resp.StatusCode)
		}
		return resp.StatusCode, fmt.Errorf("server returned HTTP %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return resp.StatusCode, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func contains(codes []int, code int) bool {
	for i := 0; i < len(codes); i++ {
		if codes[i] == code {
			return true
		}
	}
	return false
}

func (c *apiClient) submitIncident(description string) (*api.SubmitIncidentResponse, error) {
	var resp api.SubmitIncidentResponse
	_, err := c.do(http.MethodPost, "/api/v1/incidents",
		api.SubmitIncidentRequest{Description: description}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *apiClient) getIncident(id string) (*models.Incident, error) {
	var incident models.Incident
	_, err := c.do(http.MethodGet, "/api/v1/incidents/"+id, nil, &incident)
	if err != nil {
		return nil, err
	}
	return &incident, nil
}

func (c *apiClient) listIncidents(limit int) (*api.IncidentListResponse, error) {
	path := "/api/v1/incidents"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var resp api.IncidentListResponse
	_, err := c.do(http.MethodGet, path, nil, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// health fetches the health report. A 503 is a valid report, not an error.
func (c *apiClient) health() (*api.HealthResponse, int, error) {
	var resp api.HealthResponse
	code, err := c.do(http.MethodGet, "/health", nil, &resp, http.StatusServiceUnavailable)
	if err != nil {
		return nil, code, err
	}
	return &resp, code, nil
}

// pollIncident polls every interval until the incident reaches a terminal
// status or the deadline passes. onChange fires on every status change.
func (c *apiClient) pollIncident(id string, interval, timeout time.Duration, onChange func(*models.Incident)) (*models.Incident, error) {
	deadline := time.Now().Add(timeout)
	var lastStatus models.IncidentStatus

	for {
		incident, err := c.getIncident(id)
		if err != nil {
			return nil, err
		}
		if incident.Status != lastStatus {
			lastStatus = incident.Status
			if onChange != nil {
				onChange(incident)
			}
		}
		if incident.Status.IsTerminal() {
			return incident, nil
		}
		if time.Now().After(deadline) {
			return incident, fmt.Errorf("incident %s still %s after %s", id, incident.Status, timeout)
		}
		time.Sleep(interval)
	}
}
