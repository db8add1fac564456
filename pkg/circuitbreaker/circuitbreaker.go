package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

var ErrOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls to one downstream service. Only errors the
// classifier reports as tripping count towards opening it, so business
// failures like "not found" or "already returned" pass through freely.
type CircuitBreaker struct {
	maxFailures int
	cooldown    time.Duration
	isTripping  func(error) bool

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

func New(maxFailures int, cooldown time.Duration, isTripping func(error) bool) *CircuitBreaker {
	if isTripping == nil {
		isTripping = func(err error) bool { return err != nil }
	}
	return &CircuitBreaker{
		maxFailures: maxFailures,
		cooldown:    cooldown,
		isTripping:  isTripping,
		state:       StateClosed,
	}
}

// Execute runs fn unless the breaker is open. After the cooldown a single
// probe call is let through; its outcome closes or re-opens the breaker.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.allow() {
		return ErrOpen
	}
	err := fn()
	cb.record(err)
	return err
}

func (cb *CircuitBreaker) allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen {
		if time.Since(cb.openedAt) < cb.cooldown {
			return false
		}
		cb.state = StateHalfOpen
	}
	return true
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil || !cb.isTripping(err) {
		cb.failures = 0
		if cb.state == StateHalfOpen {
			cb.state = StateClosed
		}
		return
	}

	cb.failures++
	if cb.state == StateHalfOpen || cb.failures >= cb.maxFailures {
		cb.state = StateOpen
		cb.openedAt = time.Now()
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}
