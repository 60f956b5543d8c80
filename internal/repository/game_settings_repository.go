package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/arena-session-api/internal/models"
)

const gameSettingsColumns = `user_id, player_name, game_time, wins, losses, games_played, created_on, updated_on`

// GameSettingsRepository persists per-player game settings.
type GameSettingsRepository struct {
	db *sqlx.DB
}

// NewGameSettingsRepository creates a new instance of GameSettingsRepository.
func NewGameSettingsRepository(db *sqlx.DB) *GameSettingsRepository {
	return &GameSettingsRepository{db: db}
}

// FindByUserID returns the settings of a player, or nil when none exist.
func (r *GameSettingsRepository) FindByUserID(ctx context.Context, userID string) (*models.GameSettings, error) {
	const query = `SELECT ` + gameSettingsColumns + ` FROM game_settings WHERE user_id = $1 LIMIT 1`
	var settings models.GameSettings
	if err := r.db.GetContext(ctx, &settings, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find game settings: %w", err)
	}
	return &settings, nil
}

// Update applies the change in one statement; counters are incremented in SQL.
// Returns nil when the player has no settings row.
func (r *GameSettingsRepository) Update(ctx context.Context, userID string, update models.GameSettingsUpdate) (*models.GameSettings, error) {
	var sets []string
	args := []interface{}{userID}

	if update.PlayerName != nil {
		args = append(args, *update.PlayerName)
		sets = append(sets, fmt.Sprintf("player_name = $%d", len(args)))
	}
	if update.GameTime != nil {
		args = append(args, *update.GameTime)
		sets = append(sets, fmt.Sprintf("game_time = $%d", len(args)))
	}
	if update.Won || update.Lost {
		sets = append(sets, "games_played = games_played + 1")
	}
	if update.Won {
		sets = append(sets, "wins = wins + 1")
	}
	if update.Lost {
		sets = append(sets, "losses = losses + 1")
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_on = $%d", len(args)))

	query := fmt.Sprintf("UPDATE game_settings SET %s WHERE user_id = $1 RETURNING %s", strings.Join(sets, ", "), gameSettingsColumns)

	var settings models.GameSettings
	if err := r.db.GetContext(ctx, &settings, query, args...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("update game settings: %w", err)
	}
	return &settings, nil
}
