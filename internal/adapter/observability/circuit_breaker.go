package observability

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by Call while the breaker rejects requests.
var ErrCircuitOpen = errors.New("circuit open")

// CircuitBreakerState represents the state of a circuit breaker.
type CircuitBreakerState int

const (
	// StateClosed means requests are allowed.
	StateClosed CircuitBreakerState = iota
	// StateOpen means requests are rejected until the cool-down passes.
	StateOpen
	// StateHalfOpen means a limited number of trial requests are allowed.
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker stops calling a failing dependency for a cool-down period.
// The protected function runs without the breaker's lock held, so slow
// calls do not serialize each other.
type CircuitBreaker struct {
	name        string
	maxFailures int
	timeout     time.Duration
	halfOpenMax int
	now         func() time.Time

	mu          sync.Mutex
	state       CircuitBreakerState
	failures    int
	lastFailure time.Time
	inFlight    int
	successes   int
}

// NewCircuitBreaker opens after maxFailures consecutive failures and lets a
// trial call through once timeout has passed.
func NewCircuitBreaker(name string, maxFailures int, timeout time.Duration) *CircuitBreaker {
	if maxFailures <= 0 {
		maxFailures = 1
	}
	return &CircuitBreaker{
		name:        name,
		maxFailures: maxFailures,
		timeout:     timeout,
		halfOpenMax: 1,
		now:         time.Now,
		state:       StateClosed,
	}
}

// Call runs fn unless the breaker is open.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if err := cb.before(); err != nil {
		return err
	}
	err := fn()
	cb.after(err)
	return err
}

func (cb *CircuitBreaker) before() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && cb.now().Sub(cb.lastFailure) >= cb.timeout {
		cb.state = StateHalfOpen
		cb.inFlight = 0
		cb.successes = 0
	}
	switch cb.state {
	case StateOpen:
		RecordCircuitBreakerStatus(cb.name, cb.state)
		return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
	case StateHalfOpen:
		if cb.inFlight >= cb.halfOpenMax {
			return fmt.Errorf("%s: %w", cb.name, ErrCircuitOpen)
		}
		cb.inFlight++
	}
	return nil
}

func (cb *CircuitBreaker) after(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateHalfOpen && cb.inFlight > 0 {
		cb.inFlight--
	}
	if err != nil {
		cb.failures++
		cb.lastFailure = cb.now()
		if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
			cb.state = StateOpen
		}
	} else {
		switch cb.state {
		case StateClosed:
			cb.failures = 0
		case StateHalfOpen:
			cb.successes++
			if cb.successes >= cb.halfOpenMax {
				cb.state = StateClosed
				cb.failures = 0
				cb.successes = 0
			}
		}
	}
	RecordCircuitBreakerStatus(cb.name, cb.state)
}

// State returns the current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.failures
}

// Reset closes the breaker.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.successes = 0
	cb.inFlight = 0
	RecordCircuitBreakerStatus(cb.name, cb.state)
}
