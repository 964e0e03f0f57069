package engine

import (
	"sync"
	"time"
)

// breakerState tracks one engine's circuit.
type breakerState int

const (
	breakerClosed breakerState = iota
	breakerOpen
	breakerHalfOpen
)

// Breaker is a minimal per-engine circuit breaker: consecutive fetch
// failures open the circuit, the collector then skips the engine without
// calling it, and after the reset timeout one probe call is allowed.
type Breaker struct {
	mu        sync.Mutex
	state     breakerState
	failures  int
	threshold int
	reset     time.Duration
	openedAt  time.Time
	nowFunc   func() time.Time
}

// NewBreaker creates a breaker that opens after threshold consecutive
// failures and allows a probe after reset.
func NewBreaker(threshold int, reset time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if reset <= 0 {
		reset = 30 * time.Second
	}
	return &Breaker{threshold: threshold, reset: reset, nowFunc: time.Now}
}

// WithNow fixes the breaker clock for tests.
func (b *Breaker) WithNow(fn func() time.Time) *Breaker {
	b.nowFunc = fn
	return b
}

// Allow reports whether a call may proceed. An open circuit transitions
// to half-open once the reset timeout has elapsed, admitting one probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case breakerClosed, breakerHalfOpen:
		return true
	case breakerOpen:
		if b.nowFunc().Sub(b.openedAt) >= b.reset {
			b.state = breakerHalfOpen
			return true
		}
		return false
	}
	return true
}

// Success closes the circuit and clears the failure count.
func (b *Breaker) Success() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = breakerClosed
	b.failures = 0
}

// Failure counts one failed call, opening the circuit at the threshold.
// A failed half-open probe reopens immediately.
func (b *Breaker) Failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == breakerHalfOpen {
		b.state = breakerOpen
		b.openedAt = b.nowFunc()
		return
	}
	b.failures++
	if b.failures >= b.threshold {
		b.state = breakerOpen
		b.openedAt = b.nowFunc()
	}
}
