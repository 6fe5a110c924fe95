package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/clearmind-health/booking-platform/pkg/logging"
)

// ErrOpen is returned without invoking the wrapped call while the circuit is
// open. Callers surface it as a retryable upstream-unavailable condition.
var ErrOpen = errors.New("resilience: circuit open")

// State is the circuit position.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

const halfOpenSuccessesToClose = 3

// Settings tunes one breaker.
type Settings struct {
	// FailureThreshold failures within Window trip the circuit.
	FailureThreshold int
	Window           time.Duration
	// OpenTimeout is how long the circuit fails fast before allowing a trial.
	OpenTimeout time.Duration
}

// DefaultSettings matches the documented defaults: 5 failures in 60s, 30s open.
func DefaultSettings() Settings {
	return Settings{
		FailureThreshold: 5,
		Window:           time.Minute,
		OpenTimeout:      30 * time.Second,
	}
}

func (s Settings) withDefaults() Settings {
	if s.FailureThreshold <= 0 {
		s.FailureThreshold = 5
	}
	if s.Window <= 0 {
		s.Window = time.Minute
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}
	return s
}

// Breaker wraps calls to one external integration. Transitions are mutex-
// synchronized; multiple requests race on failure and success counting.
type Breaker struct {
	name     string
	settings Settings
	logger   *logging.Logger
	now      func() time.Time

	mu                sync.Mutex
	state             State
	failures          []time.Time
	openedAt          time.Time
	halfOpenSuccesses int
	trialInFlight     bool
}

// NewBreaker creates a closed breaker for the named integration.
func NewBreaker(name string, settings Settings, logger *logging.Logger) *Breaker {
	if logger == nil {
		logger = logging.Default()
	}
	return &Breaker{
		name:     name,
		settings: settings.withDefaults(),
		logger:   logger,
		now:      time.Now,
		state:    StateClosed,
	}
}

func newBreakerWithClock(name string, settings Settings, now func() time.Time) *Breaker {
	b := NewBreaker(name, settings, nil)
	b.now = now
	return b
}

// State returns the current circuit position.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn through the breaker. While open it fails fast with ErrOpen;
// after the open timeout exactly one trial call runs half-open.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if err := b.allow(); err != nil {
		return err
	}

	err := fn(ctx)
	b.record(err)
	return err
}

// allow decides whether a call may proceed, performing the OPEN → HALF_OPEN
// transition when the open timeout has elapsed.
func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.settings.OpenTimeout {
			return ErrOpen
		}
		b.state = StateHalfOpen
		b.halfOpenSuccesses = 0
		b.trialInFlight = true
		b.logger.Info("circuit half-open", "integration", b.name)
		return nil
	case StateHalfOpen:
		if b.trialInFlight {
			return ErrOpen
		}
		b.trialInFlight = true
		return nil
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateHalfOpen:
		b.trialInFlight = false
		if err != nil {
			// Any half-open failure reopens immediately and restarts the timer.
			b.state = StateOpen
			b.openedAt = b.now()
			b.halfOpenSuccesses = 0
			b.logger.Warn("circuit reopened after half-open failure", "integration", b.name, "error", err)
			return
		}
		b.halfOpenSuccesses++
		if b.halfOpenSuccesses >= halfOpenSuccessesToClose {
			b.state = StateClosed
			b.failures = nil
			b.halfOpenSuccesses = 0
			b.logger.Info("circuit closed", "integration", b.name)
		}
	case StateClosed:
		if err == nil {
			return
		}
		now := b.now()
		b.failures = append(b.failures, now)
		b.pruneLocked(now)
		if len(b.failures) >= b.settings.FailureThreshold {
			b.state = StateOpen
			b.openedAt = now
			b.logger.Warn("circuit opened", "integration", b.name, "failures", len(b.failures))
		}
	}
}

// pruneLocked drops failures older than the sliding window. Caller holds mu.
func (b *Breaker) pruneLocked(now time.Time) {
	cutoff := now.Add(-b.settings.Window)
	kept := b.failures[:0]
	for _, ts := range b.failures {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.failures = kept
}
