// Package resilience guards calls to out-of-process dependencies with a
// circuit breaker and a retry policy. Both are explicit, independently
// testable state machines rather than framework annotations.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker rejects a call without
// invoking the remote operation.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the breaker's current position in its state machine.
type State string

// Breaker states
const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// BreakerSettings configures a CircuitBreaker.
type BreakerSettings struct {
	// FailureRateThreshold is the failure ratio over a full window at or
	// above which the breaker opens.
	FailureRateThreshold float64

	// WindowSize is the number of most-recent call outcomes considered.
	WindowSize int

	// WaitDuration is how long the breaker stays open before allowing a
	// half-open probe.
	WaitDuration time.Duration
}

// DefaultBreakerSettings returns the standard breaker configuration:
// 50% failure rate over the 2 most recent calls, 1s open duration.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		FailureRateThreshold: 0.5,
		WindowSize:           2,
		WaitDuration:         time.Second,
	}
}

// CircuitBreaker is an explicit CLOSED/OPEN/HALF_OPEN state machine.
//
// In CLOSED state calls pass through and their outcomes are recorded in a
// sliding window; once the window is full and its failure ratio reaches
// the threshold, the breaker opens. While OPEN, calls made before the wait
// duration elapses fail fast with ErrCircuitOpen. The first call after the
// wait duration is a HALF_OPEN probe: success closes the breaker and
// resets the window, failure re-opens it and restarts the wait.
type CircuitBreaker struct {
	settings BreakerSettings
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	state    State
	window   []bool // true = failure, most recent last
	openedAt time.Time
}

// NewCircuitBreaker creates a breaker with the given settings.
// If logger is nil, the default logger is used.
func NewCircuitBreaker(settings BreakerSettings, logger *slog.Logger) *CircuitBreaker {
	if settings.WindowSize <= 0 {
		settings.WindowSize = DefaultBreakerSettings().WindowSize
	}
	if settings.FailureRateThreshold <= 0 {
		settings.FailureRateThreshold = DefaultBreakerSettings().FailureRateThreshold
	}
	if settings.WaitDuration <= 0 {
		settings.WaitDuration = DefaultBreakerSettings().WaitDuration
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CircuitBreaker{
		settings: settings,
		logger:   logger.With(slog.String("component", "circuit_breaker")),
		now:      time.Now,
		state:    StateClosed,
	}
}

// State returns the breaker's current state. A breaker whose wait duration
// has elapsed still reports open until the next call probes it.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Execute runs op through the breaker. The error from op is returned
// unchanged; ErrCircuitOpen is returned without invoking op when the
// breaker rejects the call.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	if err := cb.beforeCall(); err != nil {
		return err
	}

	err := op(ctx)
	cb.afterCall(err == nil)
	return err
}

// beforeCall decides whether the call may proceed, moving OPEN to
// HALF_OPEN when the wait duration has elapsed.
func (cb *CircuitBreaker) beforeCall() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return nil

	case StateOpen:
		if cb.now().Sub(cb.openedAt) < cb.settings.WaitDuration {
			return ErrCircuitOpen
		}
		// Wait elapsed: this call becomes the probe.
		cb.state = StateHalfOpen
		cb.logger.Info("circuit breaker half-open, allowing probe call")
		return nil

	case StateHalfOpen:
		// A probe is already in flight; reject concurrent calls.
		return ErrCircuitOpen

	default:
		return ErrCircuitOpen
	}
}

// afterCall records the outcome and applies the transition rules.
func (cb *CircuitBreaker) afterCall(success bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateHalfOpen:
		if success {
			cb.state = StateClosed
			cb.window = nil
			cb.logger.Info("circuit breaker closed after successful probe")
		} else {
			cb.state = StateOpen
			cb.openedAt = cb.now()
			cb.logger.Warn("circuit breaker re-opened after failed probe")
		}

	case StateClosed:
		cb.window = append(cb.window, !success)
		if len(cb.window) > cb.settings.WindowSize {
			cb.window = cb.window[len(cb.window)-cb.settings.WindowSize:]
		}

		if len(cb.window) == cb.settings.WindowSize && cb.failureRate() >= cb.settings.FailureRateThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
			cb.logger.Warn("circuit breaker opened",
				slog.Float64("failure_rate", cb.failureRate()),
				slog.Int("window_size", cb.settings.WindowSize))
		}
	}
}

// failureRate computes the failure ratio over the current window.
// Callers must hold the mutex.
func (cb *CircuitBreaker) failureRate() float64 {
	if len(cb.window) == 0 {
		return 0
	}
	failures := 0
	for _, failed := range cb.window {
		if failed {
			failures++
		}
	}
	return float64(failures) / float64(len(cb.window))
}
