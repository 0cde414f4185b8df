package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/moolen/vigil/internal/logging"
)

// Manager starts components in registration order and stops them in reverse.
type Manager struct {
	components      []Component
	started         []Component
	shutdownTimeout time.Duration
	mu              sync.Mutex
	logger          *logging.Logger
}

// NewManager creates a manager with a 10 second per-component shutdown timeout.
func NewManager() *Manager {
	return &Manager{
		shutdownTimeout: 10 * time.Second,
		logger:          logging.GetLogger("lifecycle"),
	}
}

// Register appends a component. Nil, unnamed and duplicate components are rejected.
func (m *Manager) Register(component Component) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if component == nil {
		return fmt.Errorf("cannot register nil component")
	}
	if component.Name() == "" {
		return fmt.Errorf("component must have a non-empty name")
	}
	for _, c := range m.components {
		if c == component {
			return fmt.Errorf("component %s is already registered", component.Name())
		}
	}

	m.components = append(m.components, component)
	m.logger.Debug("Registered component %s", component.Name())
	return nil
}

// Start starts every component. On failure the already started ones are
// stopped again and the error is returned.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.started = nil
	for _, component := range m.components {
		startTime := time.Now()
		if err := component.Start(ctx); err != nil {
			m.logger.Error("Failed to start %s: %v", component.Name(), err)
			m.stopStarted(context.Background())
			return fmt.Errorf("initialization failed for %s: %w", component.Name(), err)
		}
		m.started = append(m.started, component)
		m.logger.Debug("%s started (took %dms)", component.Name(), time.Since(startTime).Milliseconds())
	}
	return nil
}

// Stop stops started components in reverse order. Errors are logged, never returned.
func (m *Manager) Stop(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopStarted(ctx)
}

func (m *Manager) stopStarted(ctx context.Context) {
	for i := len(m.started) - 1; i >= 0; i-- {
		component := m.started[i]
		startTime := time.Now()

		componentCtx, cancel := context.WithTimeout(ctx, m.shutdownTimeout)
		err := component.Stop(componentCtx)
		cancel()

		switch {
		case errors.Is(err, context.DeadlineExceeded):
			m.logger.Warn("Component %s exceeded grace period (%dms timeout)",
				component.Name(), m.shutdownTimeout.Milliseconds())
		case err != nil:
			m.logger.Error("Error stopping %s: %v", component.Name(), err)
		default:
			m.logger.Debug("%s stopped (took %dms)", component.Name(), time.Since(startTime).Milliseconds())
		}
	}
	m.started = nil
}

// SetShutdownTimeout sets the per-component stop deadline.
func (m *Manager) SetShutdownTimeout(timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdownTimeout = timeout
}
