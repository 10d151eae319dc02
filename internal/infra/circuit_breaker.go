package infra

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker (Closed → Open → Half-Open) guarding the SMTP relay.
// When the relay starts timing out, closure notifications fast-fail into
// the dead letter queue instead of tying up workers.
//
// States:
//   - Closed:    normal operation, sends pass through
//   - Open:      all sends fail immediately (fast-fail)
//   - Half-Open: one probe send allowed through to test recovery

// BreakerState represents the current circuit breaker state.
type BreakerState int

const (
	BreakerClosed   BreakerState = iota // normal — sends flow
	BreakerOpen                         // tripped — fast-fail all sends
	BreakerHalfOpen                     // probing — one send allowed
)

// String returns a human-readable state name (for the health endpoint / logs).
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when Execute is called while the breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig holds tunable parameters.
type CircuitBreakerConfig struct {
	FailureThreshold int           // consecutive failures to trip open
	SuccessThreshold int           // consecutive successes in half-open to close
	OpenTimeout      time.Duration // how long to stay open before probing
}

// DefaultCBConfig returns sensible defaults for the mailer breaker.
func DefaultCBConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenTimeout:      60 * time.Second,
	}
}

// CircuitBreaker implements the pattern with thread-safe state transitions.
type CircuitBreaker struct {
	mu               sync.Mutex
	state            BreakerState
	failureCount     int
	successCount     int
	lastFailureTime  time.Time
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
}

// NewCircuitBreaker creates a breaker in Closed state.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 60 * time.Second
	}
	return &CircuitBreaker{
		state:            BreakerClosed,
		failureThreshold: cfg.FailureThreshold,
		successThreshold: cfg.SuccessThreshold,
		openTimeout:      cfg.OpenTimeout,
	}
}

// State returns the current breaker state (safe for concurrent reads).
func (cb *CircuitBreaker) State() BreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	// Auto-transition open → half-open once the timeout elapsed
	if cb.state == BreakerOpen && time.Since(cb.lastFailureTime) >= cb.openTimeout {
		cb.state = BreakerHalfOpen
		cb.successCount = 0
	}
	return cb.state
}

// Execute runs fn through the circuit breaker.
// Returns ErrCircuitOpen immediately if the breaker is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if cb.State() == BreakerOpen {
		return ErrCircuitOpen
	}

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

// onFailure records a failure (must be called under lock).
func (cb *CircuitBreaker) onFailure() {
	cb.failureCount++
	cb.lastFailureTime = time.Now()

	switch cb.state {
	case BreakerClosed:
		if cb.failureCount >= cb.failureThreshold {
			cb.state = BreakerOpen
			cb.successCount = 0
		}
	case BreakerHalfOpen:
		// Probe failed — back to open
		cb.state = BreakerOpen
		cb.failureCount = 0
	}
}

// onSuccess records a success (must be called under lock).
func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case BreakerClosed:
		cb.failureCount = 0
	case BreakerHalfOpen:
		cb.successCount++
		if cb.successCount >= cb.successThreshold {
			cb.state = BreakerClosed
			cb.failureCount = 0
			cb.successCount = 0
		}
	}
}
