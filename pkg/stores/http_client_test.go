package stores

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ledgerworks/closeflow/pkg/engine"
	"github.com/ledgerworks/closeflow/pkg/telemetry"
)

func newTestHTTPClient(t *testing.T, url string, opts ...Option) *HTTPClient {
	t.Helper()

	client, err := NewHTTPClient(HTTPConfig{
		BaseURL:         url + "/",
		Token:           "secret-token",
		WorkspaceID:     "ws-1",
		STFID:           "stf-1",
		Timeout:         time.Second,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	}, opts...)
	require.NoError(t, err)
	return client
}

func TestHTTPClient_ExecuteQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/workspaces/ws-1/sql", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "true", r.Header.Get("X-Internal-Bypass"))
		assert.Equal(t, "ws-1", r.Header.Get("X-Workspace-ID"))
		assert.Equal(t, "stf-1", r.Header.Get("X-STF-ID"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, map[string]interface{}{
			"sql": "SELECT id FROM fiscal_periods WHERE period_name = '2025-01'",
		}, req)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"columns":["id"],"rows":[["p-1"]]}`))
	}))
	defer server.Close()

	client := newTestHTTPClient(t, server.URL)

	result, err := client.ExecuteQuery(context.Background(),
		"SELECT id FROM fiscal_periods WHERE period_name = ?", "2025-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, result.Columns)
	assert.Equal(t, [][]interface{}{{"p-1"}}, result.Rows)
}

func TestHTTPClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"columns":["n"],"rows":[[1]]}`))
	}))
	defer server.Close()

	obs := &recordingObserver{}
	client := newTestHTTPClient(t, server.URL, WithObserver(obs))

	result, err := client.ExecuteQuery(context.Background(), "SELECT 1 AS n")
	require.NoError(t, err)
	assert.Equal(t, [][]interface{}{{float64(1)}}, result.Rows)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2, obs.retries)
	require.Len(t, obs.queries, 1)
	assert.NoError(t, obs.queries[0])
}

func TestHTTPClient_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestHTTPClient(t, server.URL)

	_, err := client.ExecuteQuery(context.Background(), "SELECT * FROM close_tasks")
	require.Error(t, err)
	assert.True(t, engine.IsExecution(err))
	assert.Contains(t, err.Error(), "SQL execution failed. Query: SELECT * FROM close_tasks...")
	assert.Equal(t, int32(DefaultMaxAttempts), calls.Load())
}

func TestHTTPClient_ClientErrorsAreNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "statement denied by policy", http.StatusForbidden)
	}))
	defer server.Close()

	client := newTestHTTPClient(t, server.URL)

	_, err := client.ExecuteQuery(context.Background(), "DELETE FROM close_tasks")
	require.Error(t, err)
	assert.True(t, engine.IsExecution(err))
	assert.Contains(t, err.Error(), "403 Forbidden: statement denied by policy")
	assert.Equal(t, int32(1), calls.Load())

	var ce *engine.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, http.StatusForbidden, ce.Details["status_code"])
}

func TestHTTPClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client, err := NewHTTPClient(HTTPConfig{
		BaseURL:         server.URL,
		WorkspaceID:     "ws-1",
		Timeout:         20 * time.Millisecond,
		MaxAttempts:     2,
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
	})
	require.NoError(t, err)

	_, err = client.ExecuteQuery(context.Background(), "SELECT 1")
	require.Error(t, err)

	var ce *engine.CloseError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, engine.ErrorClassExecution, ce.Class)
	assert.Equal(t, engine.ErrCodeTimeout, ce.Code)
	assert.Contains(t, ce.Message, "SQL execution timeout")
}

func TestHTTPClient_InvalidResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := newTestHTTPClient(t, server.URL)

	_, err := client.ExecuteQuery(context.Background(), "SELECT 1")
	require.Error(t, err)
	assert.True(t, engine.IsExecution(err))
}

func TestNewHTTPClient_Validation(t *testing.T) {
	_, err := NewHTTPClient(HTTPConfig{WorkspaceID: "ws"})
	assert.Error(t, err)

	_, err = NewHTTPClient(HTTPConfig{BaseURL: "http://localhost"})
	assert.Error(t, err)

	client, err := NewHTTPClient(HTTPConfig{BaseURL: "http://localhost", WorkspaceID: "ws"})
	require.NoError(t, err)
	assert.Equal(t, DefaultHTTPTimeout, client.cfg.Timeout)
	assert.Equal(t, uint(DefaultMaxAttempts), client.cfg.MaxAttempts)
}

func TestHTTPClient_TracesQueryAndRetries(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"columns":["n"],"rows":[[1]]}`))
	}))
	defer server.Close()

	client := newTestHTTPClient(t, server.URL, WithTracer(telemetry.GlobalTracer()))

	_, err := client.ExecuteQuery(context.Background(), "SELECT 1 AS n")
	require.NoError(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "store.query", span.Name())
	assert.Contains(t, span.Attributes(), telemetry.AttrStoreDriver.String(DriverHTTP))
	assert.Contains(t, span.Attributes(), telemetry.AttrDBStatement.String("SELECT 1 AS n"))

	require.Len(t, span.Events(), 1)
	assert.Equal(t, "store.retry", span.Events()[0].Name)
}
