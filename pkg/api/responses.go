package api

import (
	"github.com/codeready-toolchain/inquest/pkg/models"
	"github.com/codeready-toolchain/inquest/pkg/services"
)

// SubmitIncidentResponse is returned by POST /api/v1/incidents.
type SubmitIncidentResponse struct {
	IncidentID string `json:"incident_id"`
	Status     string `json:"status"`
	Message    string `json:"message"`
}

// IncidentListResponse is returned by GET /api/v1/incidents.
type IncidentListResponse struct {
	Incidents []*models.Incident `json:"incidents"`
	Count     int                `json:"count"`
}

// HealthCheck is one subsystem's entry in the health report.
type HealthCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status   string                    `json:"status"`
	Version  string                    `json:"version"`
	Checks   map[string]HealthCheck    `json:"checks"`
	Warnings []*services.SystemWarning `json:"warnings,omitempty"`
}
