package service

import (
	"crypto/rand"
	"errors"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/noah-isme/arena-session-api/internal/models"
	appErrors "github.com/noah-isme/arena-session-api/pkg/errors"
)

const (
	csrfAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	csrfLength   = 24
)

var (
	// ErrTokenExpired is returned for a well-formed token past its exp claim.
	ErrTokenExpired = appErrors.New(appErrors.KindUnauthorized, "TOKEN_EXPIRED", "jwt expired")
	// ErrTokenInvalid is returned for malformed tokens and bad signatures.
	ErrTokenInvalid = appErrors.New(appErrors.KindUnauthorized, "TOKEN_INVALID", "invalid token")
)

// TokenConfig defines the signing secret and token lifetimes.
type TokenConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// AccessToken is a signed access token with the CSRF token that keys it.
type AccessToken struct {
	Token     string
	CSRFToken string
	// Expiry is the access token expiry in epoch milliseconds.
	Expiry int64
}

// TokenService issues and verifies the access and refresh tokens of a session.
// Access tokens are signed with secret+csrf so they are useless without the
// matching CSRF token.
type TokenService struct {
	config TokenConfig
	now    func() time.Time
}

// NewTokenService constructs a TokenService.
func NewTokenService(config TokenConfig) *TokenService {
	return &TokenService{config: config, now: time.Now}
}

// WithClock returns a copy of the service reading time from now.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	clone := *s
	clone.now = now
	return &clone
}

// IssueAccessToken creates a fresh CSRF token and an access token bound to it.
func (s *TokenService) IssueAccessToken(userID, sessionID string) (*AccessToken, error) {
	csrf, err := GenerateCSRFToken()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to generate csrf token")
	}

	expiresAt := s.now().Add(s.config.AccessTTL)
	token, err := s.sign(userID, sessionID, expiresAt, s.config.Secret+csrf)
	if err != nil {
		return nil, err
	}

	return &AccessToken{Token: token, CSRFToken: csrf, Expiry: expiresAt.UnixMilli()}, nil
}

// IssueRefreshToken signs a refresh token with the server secret alone.
func (s *TokenService) IssueRefreshToken(userID, sessionID string) (string, error) {
	return s.sign(userID, sessionID, s.now().Add(s.config.RefreshTTL), s.config.Secret)
}

// VerifyAccessToken validates an access token against the CSRF token it was issued with.
func (s *TokenService) VerifyAccessToken(token, csrf string) (*models.SessionClaims, error) {
	return s.parse(token, s.config.Secret+csrf)
}

// VerifyRefreshToken validates a refresh token.
func (s *TokenService) VerifyRefreshToken(token string) (*models.SessionClaims, error) {
	return s.parse(token, s.config.Secret)
}

func (s *TokenService) sign(userID, sessionID string, expiresAt time.Time, key string) (string, error) {
	issuedAt := s.now()
	claims := &models.SessionClaims{
		UserID:    userID,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to sign token")
	}
	return signed, nil
}

func (s *TokenService) parse(token, key string) (*models.SessionClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	claims := &models.SessionClaims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(key), nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, appErrors.Wrap(err, appErrors.KindUnauthorized, ErrTokenExpired.Code, ErrTokenExpired.Message)
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.KindUnauthorized, ErrTokenInvalid.Code, ErrTokenInvalid.Message)
	}

	if claims.UserID == "" || claims.SessionID == "" {
		return nil, appErrors.Clone(ErrTokenInvalid, "token missing session claims")
	}
	return claims, nil
}

// GenerateCSRFToken returns 24 characters drawn uniformly from [A-Za-z0-9].
func GenerateCSRFToken() (string, error) {
	limit := big.NewInt(int64(len(csrfAlphabet)))
	buf := make([]byte, csrfLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = csrfAlphabet[n.Int64()]
	}
	return string(buf), nil
}
