package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/arena-session-api/internal/models"
	"github.com/noah-isme/arena-session-api/internal/repository"
	appErrors "github.com/noah-isme/arena-session-api/pkg/errors"
)

type userRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CreateWithSettings(ctx context.Context, user *models.User, settings *models.GameSettings) error
	Update(ctx context.Context, id string, update models.UserUpdate) (*models.User, error)
}

// UserService handles accounts and credential checks.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
	cost      int
}

// NewUserService creates an instance of UserService. cost is the bcrypt work factor.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger, cost int) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &UserService{repo: repo, validator: validate, logger: logger, cost: cost}
}

// Signup registers a user together with default game settings.
func (s *UserService) Signup(ctx context.Context, req models.SignupRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to hash password")
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: string(hash),
		Name:         req.Name,
		Avatar:       req.Avatar,
	}
	settings := &models.GameSettings{PlayerName: req.Name, GameTime: models.DefaultGameTime}

	if err := s.repo.CreateWithSettings(ctx, user, settings); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "user not created")
	}

	s.logger.Info("user signed up", zap.String("user_id", user.ID))
	return user, nil
}

// VerifyCredentials checks an email/password pair. Unknown emails are a bad
// request, wrong passwords are unauthorized.
func (s *UserService) VerifyCredentials(ctx context.Context, email, password string) (*models.Identity, error) {
	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrBadRequest, "email")
		}
		return nil, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "password")
	}

	return &models.Identity{UserID: user.ID, Name: user.Name, Avatar: user.Avatar}, nil
}

// Get returns the public profile of a user.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user")
		}
		return nil, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to fetch user")
	}
	profile := user.Profile()
	return &profile, nil
}

// Update changes the name and/or email of a user.
func (s *UserService) Update(ctx context.Context, id string, req models.UpdateUserRequest) (*models.UserProfile, error) {
	if req.Name != nil {
		trimmed := strings.TrimSpace(*req.Name)
		req.Name = &trimmed
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}

	update := models.UserUpdate{Name: req.Name, Email: req.Email}
	if update.Empty() {
		return nil, appErrors.WithData(appErrors.ErrValidation, map[string]string{"field": "body"})
	}

	return s.applyUpdate(ctx, id, update)
}

// UpdateAvatar switches the character of a user.
func (s *UserService) UpdateAvatar(ctx context.Context, id string, avatar models.Avatar) (*models.UserProfile, error) {
	return s.applyUpdate(ctx, id, models.UserUpdate{Avatar: &avatar})
}

func (s *UserService) applyUpdate(ctx context.Context, id string, update models.UserUpdate) (*models.UserProfile, error) {
	user, err := s.repo.Update(ctx, id, update)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already registered")
		}
		return nil, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to update user")
	}
	profile := user.Profile()
	return &profile, nil
}

// Authenticate validates a login payload and checks its credentials.
func (s *UserService) Authenticate(ctx context.Context, req models.LoginRequest) (*models.Identity, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	return s.VerifyCredentials(ctx, req.Email, req.Password)
}
