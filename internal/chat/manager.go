package chat

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"docchat-backend/internal/shared/telemetry"
)

const defaultMaxAge = 2 * time.Hour

// Manager owns the in-memory sessions of every owner.
type Manager struct {
	asker  Asker
	maxAge time.Duration
	now    func() time.Time
	newID  func() string

	mu       sync.Mutex
	sessions map[string]*Session
	// inflight counts queries of every session, deleted ones included.
	inflight sync.WaitGroup
}

// NewManager constructs a Manager. Sessions idle longer than maxAge are swept.
func NewManager(asker Asker, maxAge time.Duration) *Manager {
	if maxAge <= 0 {
		maxAge = defaultMaxAge
	}
	return &Manager{
		asker:    asker,
		maxAge:   maxAge,
		now:      time.Now,
		newID:    uuid.NewString,
		sessions: make(map[string]*Session),
	}
}

// Create starts a new session for ownerID.
func (m *Manager) Create(ownerID string) *Session {
	s := NewSession(m.newID(), ownerID, m.asker, m.now)
	s.tracked = &m.inflight
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns the owner's session. Another owner's session is reported as not found.
func (m *Manager) Get(ownerID, sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.OwnerID != ownerID {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Delete clears and forgets the owner's session.
func (m *Manager) Delete(ownerID, sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok || s.OwnerID != ownerID {
		m.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	s.Clear()
	return nil
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes idle sessions untouched for longer than maxAge. Sessions awaiting a
// reply are kept until they resolve.
func (m *Manager) Sweep() int {
	cutoff := m.now().UTC().Add(-m.maxAge)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		updated, idle := s.idleSince()
		if idle && updated.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				telemetry.Info("chat.sessions_swept", map[string]any{"removed": n, "remaining": m.Len()})
			}
		}
	}
}

// Wait blocks until every in-flight query resolves or ctx ends. Queries of
// sessions deleted while awaiting a reply are drained too.
func (m *Manager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
