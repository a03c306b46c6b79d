package handlers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealth(t *testing.T) {
	healthy := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantStatus int
		wantState  string
	}{
		{"no dependencies", nil, http.StatusOK, "ok"},
		{"all healthy", map[string]Pinger{"postgres": healthy, "redis": healthy}, http.StatusOK, "ok"},
		{"redis down", map[string]Pinger{"postgres": healthy, "redis": down}, http.StatusServiceUnavailable, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler(tt.checks)

			rec := serve(http.HandlerFunc(h.Health), "GET", "/health", "")

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeBody(t, rec)
			assert.Equal(t, tt.wantState, body["status"])
			assert.Equal(t, "folio-api", body["service"])
			assert.Len(t, body["dependencies"], len(tt.checks))
		})
	}
}

func TestHealthReportsFailingDependency(t *testing.T) {
	h := NewHealthHandler(map[string]Pinger{
		"postgres": pingerFunc(func(context.Context) error { return errors.New("timeout") }),
	})

	rec := serve(http.HandlerFunc(h.Health), "GET", "/health", "")

	deps := decodeBody(t, rec)["dependencies"].(map[string]interface{})
	assert.Equal(t, "timeout", deps["postgres"])
}
