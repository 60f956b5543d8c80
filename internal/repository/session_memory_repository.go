package repository

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/arena-session-api/internal/models"
)

// MemorySessionRepository keeps sessions in process memory. Suitable for
// development, tests and single-instance deployments.
type MemorySessionRepository struct {
	mu       sync.Mutex
	sessions map[string]models.Session
	now      func() time.Time
}

// NewMemorySessionRepository creates an empty in-memory session store.
func NewMemorySessionRepository() *MemorySessionRepository {
	return &MemorySessionRepository{
		sessions: make(map[string]models.Session),
		now:      time.Now,
	}
}

// Create stores the session unless the id is already taken.
func (m *MemorySessionRepository) Create(ctx context.Context, session *models.Session) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[session.ID]; exists {
		return 0, nil
	}
	m.sessions[session.ID] = *session
	return 1, nil
}

// Load returns a copy of the non-expired session, or nil.
func (m *MemorySessionRepository) Load(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.lookup(userID, sessionID)
	if !ok {
		return nil, nil
	}
	return &session, nil
}

// Renew extends a live session.
func (m *MemorySessionRepository) Renew(ctx context.Context, userID, sessionID string, expiresOn time.Time) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now().UTC()
	session, ok := m.lookup(userID, sessionID)
	if !ok || !now.Before(session.ExpiresOn) {
		return nil, nil
	}
	session.ExpiresOn = expiresOn
	session.UpdatedOn = now
	m.sessions[sessionID] = session
	return &session, nil
}

// Expire flags a non-expired session as expired.
func (m *MemorySessionRepository) Expire(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.lookup(userID, sessionID)
	if !ok {
		return nil, nil
	}
	session.Expired = true
	session.UpdatedOn = m.now().UTC()
	m.sessions[sessionID] = session
	return &session, nil
}

// Get returns any stored session regardless of state.
func (m *MemorySessionRepository) Get(sessionID string) (models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[sessionID]
	return session, ok
}

// Len returns the number of stored sessions, live or not.
func (m *MemorySessionRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MemorySessionRepository) lookup(userID, sessionID string) (models.Session, bool) {
	session, ok := m.sessions[sessionID]
	if !ok || session.UserID != userID || session.Expired {
		return models.Session{}, false
	}
	return session, true
}
