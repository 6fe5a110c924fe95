package resilience

import (
	"context"
	"sync"

	"github.com/clearmind-health/booking-platform/pkg/logging"
)

// Registry holds one breaker per integration name. It is injected rather than
// global so tests get a fresh registry with no cross-test leakage.
type Registry struct {
	settings Settings
	logger   *logging.Logger

	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates a registry applying the same settings to every breaker.
func NewRegistry(settings Settings, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		settings: settings.withDefaults(),
		logger:   logger,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for the integration, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[name]
	if !ok {
		b = NewBreaker(name, r.settings, r.logger)
		r.breakers[name] = b
	}
	return b
}

// Execute runs fn through the named integration's breaker.
func (r *Registry) Execute(ctx context.Context, name string, fn func(context.Context) error) error {
	return r.Get(name).Execute(ctx, fn)
}
