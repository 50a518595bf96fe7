package api

// SubmitIncidentRequest is the HTTP request body for POST /api/v1/incidents.
type SubmitIncidentRequest struct {
	Description string `json:"description"`
}
