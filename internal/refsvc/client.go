// Package refsvc is the HTTP client for the external reference service,
// which resolves client and task identities by ID. All calls go through a
// circuit breaker; client lookups additionally retry transient failures,
// because client identity must be confirmed before an import is accepted,
// while task lookups are best-effort.
package refsvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/promptdeck/ingest-api/internal/resilience"
)

// Sentinel errors for reference lookups.
var (
	// ErrNotFound indicates the remote entity does not exist (4xx response).
	ErrNotFound = errors.New("reference not found")

	// ErrRemoteService indicates the reference service failed (5xx response).
	ErrRemoteService = errors.New("reference service error")
)

// TaskReference is the remote representation of a task.
type TaskReference struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ClientReference is the remote representation of a client.
type ClientReference struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// Config holds the client's connection settings. Basic auth credentials
// are set once at construction.
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client fetches references over HTTP through a shared circuit breaker.
type Client struct {
	config  Config
	http    *http.Client
	breaker *resilience.CircuitBreaker
	retry   *resilience.RetryPolicy
	logger  *slog.Logger
}

// NewClient creates a reference service client. If breaker or retry are
// nil, defaults are used. If logger is nil, the default logger is used.
func NewClient(
	config Config,
	breaker *resilience.CircuitBreaker,
	retry *resilience.RetryPolicy,
	logger *slog.Logger,
) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if breaker == nil {
		breaker = resilience.NewCircuitBreaker(resilience.DefaultBreakerSettings(), logger)
	}
	if retry == nil {
		retry = resilience.DefaultRetryPolicy(logger)
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	return &Client{
		config:  config,
		http:    &http.Client{Timeout: config.Timeout},
		breaker: breaker,
		retry:   retry,
		logger:  logger.With(slog.String("component", "reference_client")),
	}
}

// GetTaskReference fetches a task reference by ID. The call goes through
// the circuit breaker only; a failed lookup is not retried.
func (c *Client) GetTaskReference(ctx context.Context, id string) (*TaskReference, error) {
	var ref TaskReference
	err := c.throughBreaker(ctx, fmt.Sprintf("%s/tasks/%s", c.config.BaseURL, id), &ref)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// GetClientReference fetches a client reference by ID. Transient failures
// are retried with exponential backoff, and each retry attempt passes
// through the circuit breaker, so an open breaker fails attempts fast.
func (c *Client) GetClientReference(ctx context.Context, id string) (*ClientReference, error) {
	var ref ClientReference
	url := fmt.Sprintf("%s/clients/%s", c.config.BaseURL, id)

	err := c.retry.Do(ctx, func(ctx context.Context) error {
		return c.throughBreaker(ctx, url, &ref)
	}, isTransient)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// isTransient reports whether an error is worth retrying. Missing
// entities are a definitive answer; everything else, including a
// fail-fast rejection from an open breaker, may clear up.
func isTransient(err error) bool {
	return !errors.Is(err, ErrNotFound)
}

// throughBreaker performs one GET through the circuit breaker. A 4xx
// response is a definitive answer from the remote, so it does not count
// against the breaker's failure window; 5xx responses and transport
// failures do.
func (c *Client) throughBreaker(ctx context.Context, url string, out any) error {
	var notFoundErr error

	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		err := c.get(ctx, url, out)
		if errors.Is(err, ErrNotFound) {
			notFoundErr = err
			return nil
		}
		return err
	})
	if err != nil {
		return err
	}
	return notFoundErr
}

// get performs the HTTP request and decodes the response.
func (c *Client) get(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("reference service request failed",
			slog.String("url", url),
			slog.String("error", err.Error()))
		return fmt.Errorf("reference service unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%w: malformed response body: %v", ErrRemoteService, err)
		}
		return nil

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return fmt.Errorf("%w: %s returned %d", ErrNotFound, url, resp.StatusCode)

	default:
		c.logger.Warn("reference service returned server error",
			slog.String("url", url),
			slog.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: %s returned %d", ErrRemoteService, url, resp.StatusCode)
	}
}
