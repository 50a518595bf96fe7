package api

import (
	"fmt"
	"net/http"
	"strconv"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/inquest/pkg/agent"
	"github.com/codeready-toolchain/inquest/pkg/models"
)

// maxListLimit caps GET /api/v1/incidents page sizes.
const maxListLimit = 100

// submitIncidentHandler handles POST /api/v1/incidents.
// Creates an incident in "pending" status and returns immediately with its
// id; clients poll GET /api/v1/incidents/:id for the verdict.
func (s *Server) submitIncidentHandler(c *echo.Context) error {
	var req SubmitIncidentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "request body must be JSON with a description field")
	}

	if len(req.Description) > agent.MaxDescriptionSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("description exceeds maximum size of %d bytes", agent.MaxDescriptionSize))
	}

	incident, err := s.incidentService.Submit(c.Request().Context(), req.Description)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusAccepted, &SubmitIncidentResponse{
		IncidentID: incident.ID,
		Status:     string(incident.Status),
		Message:    "Incident accepted for investigation",
	})
}

// getIncidentHandler handles GET /api/v1/incidents/:id.
func (s *Server) getIncidentHandler(c *echo.Context) error {
	incidentID := c.Param("id")
	if incidentID == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "incident id is required")
	}

	incident, err := s.incidentService.Get(c.Request().Context(), incidentID)
	if err != nil {
		return mapServiceError(err)
	}

	return c.JSON(http.StatusOK, incident)
}

// listIncidentsHandler handles GET /api/v1/incidents.
func (s *Server) listIncidentsHandler(c *echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, "limit must be a positive integer")
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = n
	}

	incidents, err := s.incidentService.List(c.Request().Context(), limit)
	if err != nil {
		return mapServiceError(err)
	}
	if incidents == nil {
		incidents = []*models.Incident{}
	}

	return c.JSON(http.StatusOK, &IncidentListResponse{
		Incidents: incidents,
		Count:     len(incidents),
	})
}
