package service

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/noah-isme/arena-session-api/internal/models"
	appErrors "github.com/noah-isme/arena-session-api/pkg/errors"
)

// SessionStore persists sessions. Load, Renew and Expire only match sessions
// that are not flagged expired and return (nil, nil) when nothing matched.
// Renew and Expire must be single conditional operations.
type SessionStore interface {
	Create(ctx context.Context, session *models.Session) (int64, error)
	Load(ctx context.Context, userID, sessionID string) (*models.Session, error)
	Renew(ctx context.Context, userID, sessionID string, expiresOn time.Time) (*models.Session, error)
	Expire(ctx context.Context, userID, sessionID string) (*models.Session, error)
}

// SessionInfo identifies a live session and when it lapses.
type SessionInfo struct {
	SessionID string
	Expiry    time.Time
}

// SessionService drives the session state machine: a live session can be
// renewed any number of times and expired exactly once.
type SessionService struct {
	store      SessionStore
	refreshTTL time.Duration
	metrics    *MetricsService
	logger     *zap.Logger
	now        func() time.Time
}

// NewSessionService constructs a SessionService.
func NewSessionService(store SessionStore, refreshTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{store: store, refreshTTL: refreshTTL, metrics: metrics, logger: logger, now: time.Now}
}

// WithClock returns a copy of the service reading time from now.
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	clone := *s
	clone.now = now
	return &clone
}

// Create starts a new live session for the user.
func (s *SessionService) Create(ctx context.Context, userID string) (*SessionInfo, error) {
	now := s.now().UTC()
	session := &models.Session{
		ID:        ulid.Make().String(),
		UserID:    userID,
		ExpiresOn: now.Add(s.refreshTTL),
		CreatedOn: now,
		UpdatedOn: now,
	}

	rows, err := s.store.Create(ctx, session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to create session")
	}
	if rows == 0 {
		return nil, appErrors.Clone(appErrors.ErrUnresolved, "session not created")
	}

	s.metrics.RecordSessionTransition(TransitionCreate)
	s.logger.Debug("session created", zap.String("user_id", userID), zap.String("session_id", session.ID))
	return &SessionInfo{SessionID: session.ID, Expiry: session.ExpiresOn}, nil
}

// Load returns the live session. A missing session is Unresolved; one that is
// flagged expired or past its expiry is Unauthorized.
func (s *SessionService) Load(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	session, err := s.store.Load(ctx, userID, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to load session")
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrUnresolved, "session not found")
	}
	if !session.Live(s.now()) {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session expired")
	}
	return session, nil
}

// Renew pushes the expiry of a live session to now + refresh TTL.
func (s *SessionService) Renew(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	if _, err := s.Load(ctx, userID, sessionID); err != nil {
		return nil, err
	}

	session, err := s.store.Renew(ctx, userID, sessionID, s.now().UTC().Add(s.refreshTTL))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to renew session")
	}
	if session == nil {
		return nil, appErrors.Clone(appErrors.ErrUnresolved, "session not renewed")
	}

	s.metrics.RecordSessionTransition(TransitionRenew)
	return session, nil
}

// Expire ends a live session. Only one caller can expire a given session.
func (s *SessionService) Expire(ctx context.Context, userID, sessionID string) error {
	session, err := s.store.Expire(ctx, userID, sessionID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to expire session")
	}
	if session == nil {
		return appErrors.Clone(appErrors.ErrUnresolved, "session not expired")
	}

	s.metrics.RecordSessionTransition(TransitionExpire)
	s.logger.Debug("session expired", zap.String("user_id", userID), zap.String("session_id", sessionID))
	return nil
}
