package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/closeflow/pkg/closeops"
)

func newTestServer(health HealthChecker) *Server {
	return New(Config{
		ListenAddr:     "127.0.0.1:0",
		AllowedOrigins: []string{"https://close.example.com"},
		Log:            zerolog.Nop(),
		Handler:        closeops.NewService(nil),
		Health:         health,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics\n"))
		}),
	})
}

func invoke(t *testing.T, s *Server, body string) (*httptest.ResponseRecorder, closeops.Response) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/operations", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)

	var resp closeops.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestInvoke_Success(t *testing.T) {
	s := newTestServer(nil)

	rec, resp := invoke(t, s, `{"input": {"operation": "get_critical_path", "period": "2025-01"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NotNil(t, resp.Output)
	assert.Equal(t, "success", resp.Output.Status)
	assert.Equal(t, "get_critical_path", resp.Output.Operation)
}

func TestInvoke_ErrorStatus(t *testing.T) {
	s := newTestServer(nil)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantType string
	}{
		{"malformed json", `{"input":`, http.StatusBadRequest, "ValidationError"},
		{"unknown operation", `{"input": {"operation": "nope"}}`, http.StatusBadRequest, "ValidationError"},
		{"no store", `{"input": {"operation": "get_close_progress", "period": "2025-01"}}`, http.StatusInternalServerError, "InternalError"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := invoke(t, s, tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantType, resp.Type)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

type recordingHandler struct {
	calls int
}

func (h *recordingHandler) Handle(context.Context, *closeops.Request) *closeops.Response {
	h.calls++
	return closeops.Success("get_critical_path", nil)
}

func TestInvoke_RefusesEnvelopeStore(t *testing.T) {
	var hits int
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	handler := &recordingHandler{}
	s := New(Config{Log: zerolog.Nop(), Handler: handler})

	tests := []struct {
		name string
		body string
	}{
		{
			name: "api url and token",
			body: `{"workspace_id": "ws", "api_url": "` + upstream.URL + `", "api_token": "secret",
				"input": {"operation": "identify_blockers", "period": "2025-01"}}`,
		},
		{
			name: "api url only",
			body: `{"workspace_id": "ws", "api_url": "` + upstream.URL + `",
				"input": {"operation": "identify_blockers", "period": "2025-01"}}`,
		},
		{
			name: "token only",
			body: `{"api_token": "secret", "input": {"operation": "get_critical_path", "period": "2025-01"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, resp := invoke(t, s, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "ValidationError", resp.Type)
			assert.Contains(t, resp.Error, "api_url and api_token are not accepted")
		})
	}

	assert.Zero(t, handler.calls)
	assert.Zero(t, hits)

	rec, _ := invoke(t, s, `{"workspace_id": "ws", "input": {"operation": "get_critical_path", "period": "2025-01"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, handler.calls)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusFor(&closeops.Response{Type: "NotFoundError"}))
	assert.Equal(t, http.StatusBadGateway, statusFor(&closeops.Response{Type: "ExecutionError"}))
	assert.Equal(t, http.StatusOK, statusFor(closeops.Success("x", nil)))
}

func TestHealthz(t *testing.T) {
	healthy := newTestServer(func(context.Context) error { return nil })
	rec := httptest.NewRecorder()
	healthy.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	broken := newTestServer(func(context.Context) error { return errors.New("database is locked") })
	rec = httptest.NewRecorder()
	broken.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "database is locked")
}

func TestRoutes(t *testing.T) {
	s := newTestServer(nil)

	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/operations", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var list map[string][]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, closeops.Operations, list["operations"])

	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, "# metrics\n", rec.Body.String())

	req := httptest.NewRequest(http.MethodOptions, "/v1/operations", nil)
	req.Header.Set("Origin", "https://close.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, "https://close.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
