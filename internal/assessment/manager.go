package assessment

import (
	"context"
	"errors"
	"sync"

	"github.com/halcyonlabs/wellspring/pkg/models"
)

// ErrSessionNotFound is returned for lookups of unknown session IDs.
var ErrSessionNotFound = errors.New("session not found")

// Manager tracks the live controllers. One controller exists per in-flight
// assessment attempt; terminal controllers stay resident until removed so
// the caller can read their result.
type Manager struct {
	deps Deps

	mu          sync.RWMutex
	controllers map[string]*Controller
}

// NewManager creates a manager that will build controllers with deps.
func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:        deps,
		controllers: make(map[string]*Controller),
	}
}

// StartSession creates and activates a controller for one assessment
// attempt.
func (m *Manager) StartSession(ctx context.Context, userID string, kind models.AssessmentKind) (*Controller, error) {
	c := NewController(userID, kind, m.deps)

	m.mu.Lock()
	m.controllers[c.SessionID()] = c
	m.mu.Unlock()

	if err := c.Start(ctx); err != nil {
		m.Remove(c.SessionID())
		return nil, err
	}
	return c, nil
}

// Get returns the controller for a session ID.
func (m *Manager) Get(sessionID string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.controllers[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return c, nil
}

// Remove drops a controller from the registry.
func (m *Manager) Remove(sessionID string) {
	m.mu.Lock()
	delete(m.controllers, sessionID)
	m.mu.Unlock()
}

// ActiveCount returns the number of non-terminal sessions.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, c := range m.controllers {
		if c.State() != models.StateTerminal {
			n++
		}
	}
	return n
}

// ShutdownAll finishes every live session so in-flight assessments still
// produce their outcome on service shutdown, then waits for them to
// terminate or for ctx to expire.
func (m *Manager) ShutdownAll(ctx context.Context) {
	m.mu.RLock()
	live := make([]*Controller, 0, len(m.controllers))
	for _, c := range m.controllers {
		live = append(live, c)
	}
	m.mu.RUnlock()

	for _, c := range live {
		c.Post(Event{Type: EventFinishRequested})
	}
	for _, c := range live {
		select {
		case <-c.Done():
		case <-ctx.Done():
			return
		}
	}
}
