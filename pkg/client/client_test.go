package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kmkrofficial/signature/internal/api"
	"github.com/kmkrofficial/signature/internal/gate"
)

func TestURLBuilder(t *testing.T) {
	c := New("https://example.com/")

	assert.Equal(t, "https://example.com/v1/tasks/", c.url().setPath(api.ListTasksRoute).build())
	assert.Equal(t, "https://example.com/v1/tasks/session-sweep/logs",
		c.url().setPath(api.LogsForTaskRoute).setPathParam("name", "session-sweep").build())
	assert.Equal(t, "https://example.com/v1/audit/audits?filter=entry.Success&limit=5",
		c.url().setPath(api.ListAuditsRoute).
			addQueryParam("limit", 5).
			addQueryParam("filter", "entry.Success").
			build())
}

func TestDo_SendsTokenAndParsesErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Correlation-ID", "corr-1")
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case api.MeRoute:
			if r.Header.Get("Authorization") != "Bearer expired" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(gate.DeniedResponse{
				Error:         string(gate.ReasonSessionExpired),
				CorrelationID: "corr-1",
				Result:        gate.Result{Decision: gate.Denied, Reason: gate.ReasonSessionExpired, View: gate.ViewLogin},
			})
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"task 'x' not found","correlation_id":"corr-1"}`))
		}
	}))
	defer srv.Close()

	c := New(srv.URL, WithAuthToken("expired"))

	_, correlation, err := c.Me(context.Background())
	assert.Equal(t, "corr-1", correlation)
	assert.ErrorIs(t, err, ErrSessionEnded)

	err = c.TriggerTask(context.Background(), "x")
	var apiErr APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "task 'x' not found", apiErr.Message)
}
