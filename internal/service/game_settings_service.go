package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/arena-session-api/internal/models"
	appErrors "github.com/noah-isme/arena-session-api/pkg/errors"
)

type gameSettingsRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.GameSettings, error)
	Update(ctx context.Context, userID string, update models.GameSettingsUpdate) (*models.GameSettings, error)
}

type avatarUpdater interface {
	UpdateAvatar(ctx context.Context, id string, avatar models.Avatar) (*models.UserProfile, error)
}

type gameLogRecorder interface {
	Record(userID string, game int, commentary string) error
}

// GameSettingsService reads and updates per-player settings and records game
// commentary after each update.
type GameSettingsService struct {
	repo      gameSettingsRepository
	users     avatarUpdater
	gameLogs  gameLogRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGameSettingsService creates an instance of GameSettingsService.
func NewGameSettingsService(repo gameSettingsRepository, users avatarUpdater, gameLogs gameLogRecorder, validate *validator.Validate, logger *zap.Logger) *GameSettingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &GameSettingsService{repo: repo, users: users, gameLogs: gameLogs, validator: validate, logger: logger}
}

// Get returns the settings of a player.
func (s *GameSettingsService) Get(ctx context.Context, userID string) (*models.GameSettings, error) {
	settings, err := s.repo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to fetch game settings")
	}
	if settings == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user")
	}
	return settings, nil
}

// Update applies the request, then appends the commentary to the log of the
// current game.
func (s *GameSettingsService) Update(ctx context.Context, userID string, req models.UpdateGameSettingsRequest) (*models.GameSettings, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	update := models.GameSettingsUpdate{
		PlayerName: req.PlayerName,
		GameTime:   req.GameTime,
		Won:        req.Won != nil && *req.Won,
		Lost:       req.Lost != nil && *req.Lost,
	}
	if update.Empty() && req.Avatar == nil {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "no update provided")
	}

	if req.Avatar != nil {
		if _, err := s.users.UpdateAvatar(ctx, userID, *req.Avatar); err != nil {
			return nil, err
		}
	}

	var (
		settings *models.GameSettings
		err      error
	)
	if update.Empty() {
		settings, err = s.repo.FindByUserID(ctx, userID)
	} else {
		settings, err = s.repo.Update(ctx, userID, update)
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to update game settings")
	}
	if settings == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "user")
	}

	commentary := ""
	if req.Commentary != nil {
		commentary = *req.Commentary
	}
	if err := s.gameLogs.Record(userID, settings.GamesPlayed, commentary); err != nil {
		s.logger.Warn("game log not recorded", zap.String("user_id", userID), zap.Int("game", settings.GamesPlayed), zap.Error(err))
	}

	return settings, nil
}
