package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matcreates/tribe-sub001/internal/infra/http/handlers"
)

func health(t *testing.T, h *handlers.HealthHandler) (int, handlers.HealthResponse) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Handle(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body handlers.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	ok := handlers.PingFunc(func(context.Context) error { return nil })
	code, body := health(t, handlers.NewHealthHandler(nil, func() bool { return true }, ok))

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "not configured", body.Dependencies["database"])
	assert.Equal(t, "healthy", body.Dependencies["redis"])
}

func TestHealth_Degraded(t *testing.T) {
	down := handlers.PingFunc(func(context.Context) error { return errors.New("connection refused") })
	code, body := health(t, handlers.NewHealthHandler(nil, func() bool { return false }, down))

	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unhealthy: connection closed", body.Dependencies["rabbitmq"])
}
