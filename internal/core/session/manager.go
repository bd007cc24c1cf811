package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/akozyrev/event-orchestrator/internal/core/domain"
)

// Manager tracks the live actor of every session id. It only guards the
// registry map; session state stays inside each actor.
type Manager struct {
	deps Deps

	mu     sync.Mutex
	actors map[string]*Actor
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:   deps,
		actors: make(map[string]*Actor),
	}
}

// StartSession spawns an actor for a new session id. Starting an id that
// already has a live actor is an error; ended actors are replaced.
func (m *Manager) StartSession(ctx context.Context, initial domain.ChatSession) (*Actor, error) {
	if initial.SessionID == "" {
		return nil, fmt.Errorf("session id is required")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.actors[initial.SessionID]; ok {
		select {
		case <-existing.Done():
			// Terminated actor: fall through and replace it.
		default:
			return nil, fmt.Errorf("session %s is already running", initial.SessionID)
		}
	}

	actor := Start(ctx, initial, m.deps)
	m.actors[initial.SessionID] = actor
	return actor, nil
}

// Get returns the actor for a session id, live or terminated.
func (m *Manager) Get(sessionID string) (*Actor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	actor, ok := m.actors[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, domain.ErrWorkflowNotFound)
	}
	return actor, nil
}

// Count reports how many registered actors are still live.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := 0
	for _, actor := range m.actors {
		select {
		case <-actor.Done():
		default:
			live++
		}
	}
	return live
}

// Reap drops terminated actors from the registry and reports how many
// were removed.
func (m *Manager) Reap() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, actor := range m.actors {
		select {
		case <-actor.Done():
			delete(m.actors, id)
			removed++
		default:
		}
	}
	return removed
}

// Shutdown ends every live session and waits for the actors to finish.
func (m *Manager) Shutdown(ctx context.Context, reason string) {
	m.mu.Lock()
	actors := make([]*Actor, 0, len(m.actors))
	for _, a := range m.actors {
		actors = append(actors, a)
	}
	m.mu.Unlock()

	for _, a := range actors {
		_ = a.End(ctx, reason)
	}
	for _, a := range actors {
		select {
		case <-a.Done():
		case <-ctx.Done():
			return
		}
	}
}
