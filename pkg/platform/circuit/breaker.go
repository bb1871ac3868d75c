// Package circuit provides a simple counting circuit breaker. Callers record
// outcomes against a primary dependency; once consecutive failures hit the
// threshold the circuit opens and callers should take their fallback path
// until enough consecutive successes close it again.
package circuit

import "sync"

// State is the breaker position.
type State int

const (
	StateClosed State = iota
	StateOpen
)

// StateChange reports a transition caused by the recorded outcome.
type StateChange struct {
	Opened bool
	Closed bool
}

// Breaker tracks consecutive outcomes. Safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	name             string
	failureThreshold int
	successThreshold int

	state     State
	failures  int
	successes int
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets how many consecutive failures open the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many consecutive successes close an open
// circuit.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.successThreshold = n
		}
	}
}

// New creates a closed breaker.
func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 1,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the breaker's name.
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen reports whether callers should use their fallback.
func (b *Breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state == StateOpen
}

// RecordFailure counts a failed primary operation. It returns whether the
// caller should now use the fallback, and any transition this outcome caused.
func (b *Breaker) RecordFailure() (useFallback bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.successes = 0
	if b.state == StateOpen {
		return true, StateChange{}
	}

	b.failures++
	if b.failures >= b.failureThreshold {
		b.state = StateOpen
		b.failures = 0
		return true, StateChange{Opened: true}
	}
	return false, StateChange{}
}

// RecordSuccess counts a successful primary operation. It returns whether the
// caller may use the primary, and any transition this outcome caused.
func (b *Breaker) RecordSuccess() (usePrimary bool, change StateChange) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state == StateClosed {
		return true, StateChange{}
	}

	b.successes++
	if b.successes >= b.successThreshold {
		b.state = StateClosed
		b.successes = 0
		return true, StateChange{Closed: true}
	}
	return false, StateChange{}
}

// Reset manually closes the circuit.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failures = 0
	b.successes = 0
}
