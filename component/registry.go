package component

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kbukum/fuisce/logger"
)

// Registry starts components in registration order and stops them in
// reverse order.
type Registry struct {
	mu          sync.RWMutex
	components  []Component
	started     map[string]bool
	log         *logger.Logger
	stopTimeout time.Duration
}

// NewRegistry returns an empty registry; a nil log uses the global logger.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.WithComponent("registry")
	}
	return &Registry{
		started:     make(map[string]bool),
		log:         log,
		stopTimeout: 10 * time.Second,
	}
}

// Register adds c; dependencies must be registered first.
func (r *Registry) Register(c Component) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.find(c.Name()) != nil {
		return fmt.Errorf("component %s already registered", c.Name())
	}
	r.components = append(r.components, c)
	r.log.Debug("Component registered", logger.Fields(logger.FieldComponent, c.Name()))
	return nil
}

func (r *Registry) find(name string) Component {
	for _, c := range r.components {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// StartAll starts the components that are not running. When one fails, the
// ones this call started are stopped again.
func (r *Registry) StartAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var startedNow []Component
	for _, c := range r.components {
		if r.started[c.Name()] {
			continue
		}
		if err := c.Start(ctx); err != nil {
			r.log.Error("Component start failed", logger.ErrorFields("start", err))
			startErr := fmt.Errorf("failed to start %s: %w", c.Name(), err)
			return errors.Join(startErr, r.stop(ctx, startedNow))
		}
		r.started[c.Name()] = true
		startedNow = append(startedNow, c)

		fields := logger.Fields(logger.FieldComponent, c.Name())
		if d, ok := c.(Describable); ok {
			desc := d.Describe()
			fields["type"] = desc.Type
			fields["details"] = desc.Details
		}
		r.log.Debug("Component started", fields)
	}
	return nil
}

// StopAll stops every running component, newest first. All of them get a
// chance to stop; the failures are joined.
func (r *Registry) StopAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stop(ctx, r.components)
}

// stop stops the running components of cs in reverse order.
func (r *Registry) stop(ctx context.Context, cs []Component) error {
	var errs []error
	for i := len(cs) - 1; i >= 0; i-- {
		c := cs[i]
		if !r.started[c.Name()] {
			continue
		}
		stopCtx, cancel := context.WithTimeout(ctx, r.stopTimeout)
		err := c.Stop(stopCtx)
		cancel()
		delete(r.started, c.Name())

		if err != nil {
			errs = append(errs, fmt.Errorf("failed to stop %s: %w", c.Name(), err))
			r.log.Error("Component stop failed", logger.ErrorFields("stop", err))
			continue
		}
		r.log.Debug("Component stopped", logger.Fields(logger.FieldComponent, c.Name()))
	}
	return errors.Join(errs...)
}

// HealthAll asks every component for its health, in registration order.
func (r *Registry) HealthAll(ctx context.Context) []Health {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Health, 0, len(r.components))
	for _, c := range r.components {
		out = append(out, c.Health(ctx))
	}
	return out
}

// Get returns the component called name, or nil.
func (r *Registry) Get(name string) Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.find(name)
}

// All returns the components in registration order.
func (r *Registry) All() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Component(nil), r.components...)
}
