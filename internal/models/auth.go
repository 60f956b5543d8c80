package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

// SignupRequest is the payload for creating an account.
type SignupRequest struct {
	Name     string `json:"name" validate:"required,min=6,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=100"`
	Avatar   Avatar `json:"avatar" validate:"required,oneof=witch archer boxer ninja"`
}

// UpdateUserRequest changes profile fields; at least one must be present.
type UpdateUserRequest struct {
	Name  *string `json:"name" validate:"omitempty,min=6,max=100"`
	Email *string `json:"email" validate:"omitempty,email,max=255"`
}

// UpdateGameSettingsRequest changes game settings and records game results.
type UpdateGameSettingsRequest struct {
	PlayerName *string `json:"playerName" validate:"omitempty,min=1,max=100"`
	GameTime   *int    `json:"gameTime" validate:"omitempty,min=5"`
	Won        *bool   `json:"won"`
	Lost       *bool   `json:"lost"`
	Commentary *string `json:"commentary"`
	Avatar     *Avatar `json:"avatar" validate:"omitempty,oneof=witch archer boxer ninja"`
}

// DownloadGameLogQuery selects the game whose log is downloaded.
type DownloadGameLogQuery struct {
	Game string `form:"game" validate:"required,numeric,max=10"`
}

// SessionClaims is the payload of both access and refresh tokens.
type SessionClaims struct {
	UserID    string `json:"userId"`
	SessionID string `json:"sessionId"`
	jwt.RegisteredClaims
}

// SessionSummary is returned to clients after login, refresh and renew.
type SessionSummary struct {
	Expiry int64  `json:"expiry"`
	Name   string `json:"name,omitempty"`
	Avatar Avatar `json:"avatar,omitempty"`
}

// SessionResponse wraps the session summary.
type SessionResponse struct {
	OK      bool           `json:"ok"`
	Session SessionSummary `json:"session"`
}

// UserResponse wraps a user profile.
type UserResponse struct {
	OK   bool        `json:"ok"`
	User UserProfile `json:"user"`
}

// GameSettingsResponse wraps game settings.
type GameSettingsResponse struct {
	OK       bool          `json:"ok"`
	Settings *GameSettings `json:"settings"`
}

// OKResponse is the bare acknowledgement body.
type OKResponse struct {
	OK bool `json:"ok"`
}
