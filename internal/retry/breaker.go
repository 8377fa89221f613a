package retry

import (
	"sync"
	"time"
)

// BreakerState is the breaker's operating mode.
type BreakerState int

const (
	// Closed lets every call through.
	Closed BreakerState = iota
	// Open rejects calls until the cooldown has passed.
	Open
	// HalfOpen lets one probe through; its outcome decides the next state.
	HalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker stops calling a failing dependency after Threshold
// consecutive failures and probes it again once Cooldown has passed.
type Breaker struct {
	Threshold int           // default 3
	Cooldown  time.Duration // default 30s

	// OnChange is called with the lock held on every transition.
	OnChange func(from, to BreakerState)

	mu       sync.Mutex
	state    BreakerState
	failures int
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

// Allow reports whether a call may proceed.  In half-open mode only one
// caller is admitted until [Breaker.Record] reports its result.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.clock().Sub(b.openedAt) < b.cooldown() {
			return false
		}
		b.transition(HalfOpen)
		b.probing = true
		return true
	case HalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return true
}

// Record reports the outcome of an admitted call.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.probing = false
	if err == nil {
		b.failures = 0
		b.transition(Closed)
		return
	}
	b.failures++
	if b.state == HalfOpen || b.failures >= b.threshold() {
		b.openedAt = b.clock()
		b.transition(Open)
	}
}

// State returns the current mode.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) transition(to BreakerState) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.OnChange != nil {
		b.OnChange(from, to)
	}
}

func (b *Breaker) threshold() int {
	if b.Threshold <= 0 {
		return 3
	}
	return b.Threshold
}

func (b *Breaker) cooldown() time.Duration {
	if b.Cooldown <= 0 {
		return 30 * time.Second
	}
	return b.Cooldown
}

func (b *Breaker) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}
