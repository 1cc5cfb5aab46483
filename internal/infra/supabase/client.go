// Package supabase provides a client for Supabase (PostgREST + GoTrue admin).
// Used as the hosted data backend for bills and user profiles.
package supabase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/boddenberg/billstats-bfa/internal/domain"
	"github.com/boddenberg/billstats-bfa/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("supabase")

// defaultPageSize matches the default max-rows of hosted Supabase projects.
const defaultPageSize = 1000

// Client wraps HTTP calls to the Supabase REST and auth admin APIs.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	serviceRoleKey string
	guard          *resilience.Guard
	logger         *zap.Logger

	// pageSize is the rows requested per ListBills page. It must not exceed
	// the project's PostgREST max-rows.
	pageSize int
}

// NewClient creates a Supabase client. Every call goes through cb plus
// the retry and bulkhead settings in cfg.
func NewClient(httpClient *http.Client, baseURL, apiKey, serviceRoleKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Client {
	if apiKey == "" {
		apiKey = serviceRoleKey
	}
	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         apiKey,
		serviceRoleKey: serviceRoleKey,
		guard:          resilience.NewGuard(cb, cfg),
		logger:         logger,
		pageSize:       defaultPageSize,
	}
}

// statusError is a non-2xx answer from Supabase.
type statusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("supabase %s %s returned %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// doRequest executes an authenticated request against the Supabase API.
// path is relative to the project URL (e.g. "rest/v1/bills?..."). A 4xx
// answer is marked permanent so it is not retried.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader, prefer string) ([]byte, int, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		c.logger.Error("supabase: failed to create request",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, 0, resilience.Permanent(err)
	}

	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.serviceRoleKey))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("supabase: request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, 0, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.logger.Error("supabase: failed to read response body",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, resp.StatusCode, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("supabase: non-2xx response",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)),
		)
		serr := &statusError{Method: method, Path: path, Status: resp.StatusCode, Body: string(respBody)}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, resp.StatusCode, resilience.Permanent(serr)
		}
		return nil, resp.StatusCode, serr
	}

	c.logger.Debug("supabase: request OK",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
	)

	return respBody, resp.StatusCode, nil
}

// call runs fn under the client's guard and translates failures into
// domain errors. Domain errors returned by fn pass through untouched.
func (c *Client) call(ctx context.Context, service string, fn func() error) error {
	err := c.guard.Do(ctx, fn)
	if err == nil {
		return nil
	}

	var notFound *domain.ErrNotFound
	var validation *domain.ErrValidation
	var status *statusError
	switch {
	case errors.As(err, &notFound), errors.As(err, &validation):
		return err
	case errors.As(err, &status) && status.Status == http.StatusForbidden:
		// row-level security refused the service role
		return &domain.ErrForbidden{Action: service}
	case resilience.IsCircuitOpen(err):
		return &domain.ErrCircuitOpen{Service: service}
	case errors.Is(err, context.DeadlineExceeded):
		return &domain.ErrTimeout{Operation: service}
	}
	return &domain.ErrExternalService{Service: service, Err: err}
}

// Ping checks that the REST endpoint answers; used by /healthz.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Supabase.Ping")
	defer span.End()

	_, _, err := c.doRequest(ctx, http.MethodGet, "rest/v1/bills?select=id&limit=1", nil, "")
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase", Err: err}
	}
	return nil
}
