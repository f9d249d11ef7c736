package stores

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/ledgerworks/closeflow/pkg/engine"
	"github.com/ledgerworks/closeflow/pkg/telemetry"
)

// Remote store defaults.
const (
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultMaxAttempts     = 3
	DefaultInitialInterval = 300 * time.Millisecond
	DefaultMaxInterval     = 5 * time.Second
)

// retryableStatus are the response codes worth another attempt.
var retryableStatus = map[int]bool{
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// HTTPConfig holds the workspace SQL API connection settings.
type HTTPConfig struct {
	// BaseURL is the API root, e.g. "https://api.example.com".
	BaseURL string

	// Token is sent as a bearer token.
	Token string

	// WorkspaceID selects the workspace database.
	WorkspaceID string

	// STFID identifies the caller for policy evaluation on the API side.
	STFID string

	// Timeout bounds each individual request.
	Timeout time.Duration

	// MaxAttempts caps the number of requests per query, first included.
	MaxAttempts uint

	// InitialInterval and MaxInterval bound the exponential backoff between attempts.
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClient executes statements against the workspace SQL API.
type HTTPClient struct {
	cfg      HTTPConfig
	client   *http.Client
	endpoint string
	logger   zerolog.Logger
	observer Observer
	tracer   *telemetry.Tracer
	now      func() time.Time
}

// sqlRequest is the SQL API request body. The API takes a single
// self-contained statement.
type sqlRequest struct {
	SQL string `json:"sql"`
}

// NewHTTPClient creates a client for the workspace SQL API.
func NewHTTPClient(cfg HTTPConfig, opts ...Option) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("api url is required")
	}
	if cfg.WorkspaceID == "" {
		return nil, fmt.Errorf("workspace id is required")
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultHTTPTimeout
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = DefaultInitialInterval
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = DefaultMaxInterval
	}

	o := applyOptions(opts)
	return &HTTPClient{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		endpoint: fmt.Sprintf("%s/api/v1/workspaces/%s/sql", strings.TrimRight(cfg.BaseURL, "/"), cfg.WorkspaceID),
		logger:   o.logger.With().Str("component", "http_store").Str("workspace_id", cfg.WorkspaceID).Logger(),
		observer: o.observer,
		tracer:   o.tracer,
		now:      o.now,
	}, nil
}

// ExecuteQuery posts a statement to the SQL API, retrying transient failures.
// Arguments are rendered into the statement as SQL literals.
func (c *HTTPClient) ExecuteQuery(ctx context.Context, statement string, args ...interface{}) (*engine.QueryResult, error) {
	ctx, span := c.tracer.StartStoreSpan(ctx, DriverHTTP, engine.QueryExcerpt(statement))
	defer span.End()

	rendered, err := InlineArgs(statement, args...)
	if err != nil {
		err = engine.NewInternalError("failed to render SQL statement", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	body, err := json.Marshal(sqlRequest{SQL: rendered})
	if err != nil {
		return nil, engine.NewInternalError("failed to encode SQL request", err)
	}

	c.logger.Debug().Str("statement", engine.QueryExcerpt(statement)).Msg("Executing SQL")

	attempt := 0
	operation := func() (*engine.QueryResult, error) {
		attempt++
		return c.post(ctx, body)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialInterval
	b.MaxInterval = c.cfg.MaxInterval

	start := c.now()
	result, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.cfg.MaxAttempts),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.observer.RecordStoreRetry(DriverHTTP)
			telemetry.AddRetryEvent(span, attempt, err)
			c.logger.Warn().Err(err).Int("attempt", attempt).Dur("next", next).Msg("Retrying SQL request")
		}),
	)
	if err != nil {
		err = classifyHTTPError(ctx, rendered, err)
	}
	c.observer.RecordStoreQuery(DriverHTTP, c.now().Sub(start), err)

	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if result.Rows == nil {
		result.Rows = [][]interface{}{}
	}
	span.SetAttributes(attribute.Int("db.rows", len(result.Rows)))
	return result, nil
}

// post performs one request. Non-retryable failures come back as permanent errors.
func (c *HTTPClient) post(ctx context.Context, body []byte) (*engine.QueryResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("X-Internal-Bypass", "true")
	req.Header.Set("X-Workspace-ID", c.cfg.WorkspaceID)
	req.Header.Set("X-STF-ID", c.cfg.STFID)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		statusErr := &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(snippet))}
		if retryableStatus[resp.StatusCode] {
			return nil, statusErr
		}
		return nil, backoff.Permanent(statusErr)
	}

	var result engine.QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("invalid SQL API response: %w", err))
	}
	return &result, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("%d %s", e.code, http.StatusText(e.code))
	}
	return fmt.Sprintf("%d %s: %s", e.code, http.StatusText(e.code), e.body)
}

func classifyHTTPError(ctx context.Context, statement string, err error) error {
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return engine.NewExecutionError("SQL execution timeout", statement, err).WithCode(engine.ErrCodeTimeout)
	}

	ee := engine.NewExecutionError("SQL execution failed", statement, err)
	var se *statusError
	if errors.As(err, &se) {
		ee = ee.WithDetail("status_code", se.code)
	}
	return ee
}
