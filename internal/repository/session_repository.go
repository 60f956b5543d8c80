package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/arena-session-api/internal/models"
)

const sessionColumns = `id, user_id, expires_on, created_on, updated_on, expired`

// SessionRepository stores sessions in Postgres. Every transition is a single
// conditional statement so concurrent callers cannot both win.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new instance of SessionRepository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts the session and reports how many rows were written.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) (int64, error) {
	const query = `INSERT INTO sessions (` + sessionColumns + `) VALUES (:id, :user_id, :expires_on, :created_on, :updated_on, :expired) ON CONFLICT (id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, session)
	if err != nil {
		return 0, fmt.Errorf("create session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("create session rows affected: %w", err)
	}
	return rows, nil
}

// Load returns the non-expired session owned by userID, or nil.
func (r *SessionRepository) Load(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	const query = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 AND user_id = $2 AND expired = FALSE LIMIT 1`
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, sessionID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	return &session, nil
}

// Renew moves the expiry of a live session and returns the updated record.
func (r *SessionRepository) Renew(ctx context.Context, userID, sessionID string, expiresOn time.Time) (*models.Session, error) {
	const query = `UPDATE sessions SET expires_on = $3, updated_on = $4 WHERE id = $1 AND user_id = $2 AND expired = FALSE AND expires_on > $4 RETURNING ` + sessionColumns
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, sessionID, userID, expiresOn, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("renew session: %w", err)
	}
	return &session, nil
}

// Expire flags a non-expired session as expired and returns it.
func (r *SessionRepository) Expire(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	const query = `UPDATE sessions SET expired = TRUE, updated_on = $3 WHERE id = $1 AND user_id = $2 AND expired = FALSE RETURNING ` + sessionColumns
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, sessionID, userID, time.Now().UTC()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("expire session: %w", err)
	}
	return &session, nil
}
