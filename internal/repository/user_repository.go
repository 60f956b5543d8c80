package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/arena-session-api/internal/models"
)

const userColumns = `id, email, password_hash, name, avatar, created_on, updated_on`

// UserRepository provides database access for player accounts.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by email address.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// CreateWithSettings inserts a user together with its initial game settings
// in one transaction.
func (r *UserRepository) CreateWithSettings(ctx context.Context, user *models.User, settings *models.GameSettings) (err error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.CreatedOn, user.UpdatedOn = now, now
	settings.UserID = user.ID
	settings.CreatedOn, settings.UpdatedOn = now, now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin signup transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const userQuery = `INSERT INTO users (` + userColumns + `) VALUES (:id, :email, :password_hash, :name, :avatar, :created_on, :updated_on)`
	if _, err = tx.NamedExecContext(ctx, userQuery, user); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create user: %w", ErrDuplicate)
		}
		return fmt.Errorf("create user: %w", err)
	}

	const settingsQuery = `INSERT INTO game_settings (` + gameSettingsColumns + `) VALUES (:user_id, :player_name, :game_time, :wins, :losses, :games_played, :created_on, :updated_on)`
	if _, err = tx.NamedExecContext(ctx, settingsQuery, settings); err != nil {
		return fmt.Errorf("create game settings: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit signup: %w", err)
	}
	return nil
}

// Update changes the provided profile fields and returns the stored user.
func (r *UserRepository) Update(ctx context.Context, id string, update models.UserUpdate) (*models.User, error) {
	var sets []string
	args := []interface{}{id}

	if update.Name != nil {
		args = append(args, *update.Name)
		sets = append(sets, fmt.Sprintf("name = $%d", len(args)))
	}
	if update.Email != nil {
		args = append(args, *update.Email)
		sets = append(sets, fmt.Sprintf("email = $%d", len(args)))
	}
	if update.Avatar != nil {
		args = append(args, *update.Avatar)
		sets = append(sets, fmt.Sprintf("avatar = $%d", len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_on = $%d", len(args)))

	query := fmt.Sprintf("UPDATE users SET %s WHERE id = $1 RETURNING %s", strings.Join(sets, ", "), userColumns)

	var user models.User
	if err := r.db.GetContext(ctx, &user, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("update user: %w", ErrDuplicate)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	return &user, nil
}
