package api

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewServer_NilDependencies(t *testing.T) {
	server, _, sched := newTestServer(t)

	assert.Panics(t, func() { NewServer(nil, sched) })
	assert.Panics(t, func() { NewServer(server.incidentService, nil) })
}

func TestServer_UnknownRoute(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := getPath(t, server, "/api/v1/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ShutdownWithoutStart(t *testing.T) {
	server, _, _ := newTestServer(t)

	assert.NoError(t, server.Shutdown(context.Background()))
}
