package resilience

import (
	"errors"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("circuit breaker is open")

type CircuitState string

const (
	CircuitClosed   CircuitState = "closed"
	CircuitOpen     CircuitState = "open"
	CircuitHalfOpen CircuitState = "half_open"
)

// CircuitBreaker guards an external dependency. It opens after a run of
// consecutive failures, rejects calls while open, and probes with a small
// half-open budget before closing again.
type CircuitBreaker struct {
	mu sync.Mutex

	failureLimit   int
	openFor        time.Duration
	halfOpenBudget int

	state        CircuitState
	failStreak   int
	openedAt     time.Time
	probing      int
	probeSuccess int
	now          func() time.Time
}

func NewCircuitBreaker(failureLimit int, openFor time.Duration, halfOpenBudget int) *CircuitBreaker {
	if failureLimit < 1 {
		failureLimit = 1
	}
	if openFor <= 0 {
		openFor = 15 * time.Second
	}
	if halfOpenBudget < 1 {
		halfOpenBudget = 1
	}
	return &CircuitBreaker{
		failureLimit:   failureLimit,
		openFor:        openFor,
		halfOpenBudget: halfOpenBudget,
		state:          CircuitClosed,
		now:            time.Now,
	}
}

// Allow reports whether a call may proceed, reserving a probe slot while
// half-open.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitOpen {
		if b.now().Sub(b.openedAt) < b.openFor {
			return ErrCircuitOpen
		}
		b.state = CircuitHalfOpen
		b.probing = 0
		b.probeSuccess = 0
	}

	if b.state == CircuitHalfOpen {
		if b.probing >= b.halfOpenBudget {
			return ErrCircuitOpen
		}
		b.probing++
	}
	return nil
}

func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		b.failStreak = 0
	case CircuitHalfOpen:
		if b.probing > 0 {
			b.probing--
		}
		b.probeSuccess++
		if b.probeSuccess >= b.halfOpenBudget && b.probing == 0 {
			b.state = CircuitClosed
			b.failStreak = 0
			b.openedAt = time.Time{}
		}
	}
}

func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case CircuitClosed:
		b.failStreak++
		if b.failStreak >= b.failureLimit {
			b.trip()
		}
	case CircuitHalfOpen:
		if b.probing > 0 {
			b.probing--
		}
		b.trip()
	case CircuitOpen:
		b.openedAt = b.now()
	}
}

func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == CircuitOpen && b.now().Sub(b.openedAt) >= b.openFor {
		return CircuitHalfOpen
	}
	return b.state
}

func (b *CircuitBreaker) trip() {
	b.state = CircuitOpen
	b.openedAt = b.now()
	b.probing = 0
	b.probeSuccess = 0
}
