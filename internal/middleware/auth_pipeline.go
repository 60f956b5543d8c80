package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/arena-session-api/internal/models"
	"github.com/noah-isme/arena-session-api/internal/service"
	"github.com/noah-isme/arena-session-api/pkg/config"
	"github.com/noah-isme/arena-session-api/pkg/cookie"
	appErrors "github.com/noah-isme/arena-session-api/pkg/errors"
	"github.com/noah-isme/arena-session-api/pkg/middleware/requestid"
	"github.com/noah-isme/arena-session-api/pkg/response"
)

// AuthPipelineConfig tunes the token checks and cookie attributes.
type AuthPipelineConfig struct {
	Cookie config.CookieConfig
	// BindRefreshToken rejects requests whose refresh token names a different
	// user or session than the access token.
	BindRefreshToken bool
}

// AuthPipeline provides the gin stages that verify, issue and revoke session
// tokens. Every stage either calls c.Next or aborts with an error response.
type AuthPipeline struct {
	tokens      *service.TokenService
	sessions    *service.SessionService
	signer      *cookie.Signer
	cookies     config.CookieConfig
	bindRefresh bool
	metrics     *service.MetricsService
	logger      *zap.Logger
}

// NewAuthPipeline constructs the auth middleware set.
func NewAuthPipeline(tokens *service.TokenService, sessions *service.SessionService, signer *cookie.Signer, cfg AuthPipelineConfig, metrics *service.MetricsService, logger *zap.Logger) *AuthPipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthPipeline{
		tokens:      tokens,
		sessions:    sessions,
		signer:      signer,
		cookies:     cookieConfigOrDefault(cfg.Cookie),
		bindRefresh: cfg.BindRefreshToken,
		metrics:     metrics,
		logger:      logger,
	}
}

// VerifyTokens checks the access token against its CSRF token and requires a
// validly signed refresh cookie. It performs no store lookups.
func (p *AuthPipeline) VerifyTokens() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, reason, err := p.authenticate(c)
		if err != nil {
			p.reject(c, "verifyTokens", reason, err)
			return
		}

		SetSessionContext(c, SessionContext{}.WithIdentity(claims.UserID, claims.SessionID))
		c.Next()
	}
}

// VerifySession requires the session named by the access token to be live.
func (p *AuthPipeline) VerifySession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, ok := GetSessionContext(c)
		if !ok || sc.SessionID == "" {
			p.reject(c, "verifySession", "missing_session", appErrors.ErrUnauthorized)
			return
		}

		session, err := p.sessions.Load(c.Request.Context(), sc.UserID, sc.SessionID)
		if err != nil {
			ClearSessionContext(c)
			switch appErrors.KindOf(err) {
			case appErrors.KindUnresolved, appErrors.KindUnauthorized:
				p.reject(c, "verifySession", "session_not_live", appErrors.Clone(appErrors.ErrUnauthorized, ""))
			default:
				p.fail(c, "verifySession", sc, err)
			}
			return
		}

		SetSessionContext(c, sc.WithSession(session.ID, session.ExpiresOn))
		c.Next()
	}
}

// GenerateSession rotates the session of the request: the current session, if
// any, is expired before a new one is created. A failed expire aborts without
// creating anything.
func (p *AuthPipeline) GenerateSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, ok := GetSessionContext(c)
		if !ok {
			p.reject(c, "generateSession", "missing_user", appErrors.ErrUnauthorized)
			return
		}
		ctx := c.Request.Context()

		if sc.SessionID != "" {
			if err := p.sessions.Expire(ctx, sc.UserID, sc.SessionID); err != nil {
				ClearSessionContext(c)
				p.fail(c, "generateSession", sc, err)
				return
			}
		}

		info, err := p.sessions.Create(ctx, sc.UserID)
		if err != nil {
			ClearSessionContext(c)
			p.fail(c, "generateSession", sc, err)
			return
		}

		SetSessionContext(c, sc.WithSession(info.SessionID, info.Expiry))
		c.Next()
	}
}

// GenerateTokens issues the token set for the session of the request and
// writes the refreshToken, xsrf-token and auth-token cookies.
func (p *AuthPipeline) GenerateTokens() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, ok := GetSessionContext(c)
		if !ok || sc.SessionID == "" {
			p.reject(c, "generateTokens", "missing_session", appErrors.ErrUnauthorized)
			return
		}

		access, err := p.tokens.IssueAccessToken(sc.UserID, sc.SessionID)
		if err != nil {
			p.fail(c, "generateTokens", sc, err)
			return
		}
		refresh, err := p.tokens.IssueRefreshToken(sc.UserID, sc.SessionID)
		if err != nil {
			p.fail(c, "generateTokens", sc, err)
			return
		}

		issued := IssuedTokens{Access: access, Refresh: refresh}
		p.writeSessionCookies(c, issued)
		c.Set(issuedTokensKey, issued)
		c.Next()
	}
}

// RenewSession extends the verified session of the request.
func (p *AuthPipeline) RenewSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		sc, ok := GetSessionContext(c)
		if !ok || sc.SessionID == "" {
			p.reject(c, "renewSession", "missing_session", appErrors.ErrUnauthorized)
			return
		}

		session, err := p.sessions.Renew(c.Request.Context(), sc.UserID, sc.SessionID)
		if err != nil {
			ClearSessionContext(c)
			p.logger.Warn("session renew failed", p.snapshot(c, sc, err)...)
			p.reject(c, "renewSession", "session_not_renewed", appErrors.Clone(appErrors.ErrUnauthorized, ""))
			return
		}

		SetSessionContext(c, sc.WithSession(session.ID, session.ExpiresOn))
		c.Next()
	}
}

// ExpireSession logs the caller out. Session cookies are cleared before the
// caller is identified so they are gone whatever the outcome.
func (p *AuthPipeline) ExpireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		p.clearSessionCookies(c)

		claims, reason, err := p.authenticate(c)
		if err != nil {
			ClearSessionContext(c)
			p.reject(c, "expireSession", reason, appErrors.Clone(appErrors.ErrUnauthorized, ""))
			return
		}

		sc := SessionContext{}.WithIdentity(claims.UserID, claims.SessionID)
		if err := p.sessions.Expire(c.Request.Context(), sc.UserID, sc.SessionID); err != nil {
			ClearSessionContext(c)
			p.fail(c, "expireSession", sc, err)
			return
		}

		ClearSessionContext(c)
		c.Next()
	}
}

// authenticate extracts and checks the token set of the request. reason is a
// metrics label describing the failure.
func (p *AuthPipeline) authenticate(c *gin.Context) (*models.SessionClaims, string, error) {
	bearer := bearerToken(c)
	if bearer == "" {
		return nil, "missing_access_token", appErrors.ErrUnauthorized
	}

	csrf := csrfToken(c)
	if csrf == "" {
		return nil, "missing_csrf_token", appErrors.ErrForbidden
	}

	signed, err := c.Request.Cookie(RefreshTokenCookie)
	if err != nil || signed.Value == "" {
		return nil, "missing_refresh_token", appErrors.ErrUnauthorized
	}
	refresh, err := p.signer.Unsign(signed.Value)
	if err != nil {
		return nil, "bad_refresh_signature", appErrors.ErrUnauthorized
	}

	claims, err := p.tokens.VerifyAccessToken(bearer, csrf)
	if err != nil {
		reason := "invalid_access_token"
		if errors.Is(err, service.ErrTokenExpired) {
			reason = "expired_access_token"
		}
		return nil, reason, appErrors.ErrUnauthorized
	}

	if p.bindRefresh {
		refreshClaims, err := p.tokens.VerifyRefreshToken(refresh)
		if err != nil || refreshClaims.UserID != claims.UserID || refreshClaims.SessionID != claims.SessionID {
			return nil, "refresh_token_mismatch", appErrors.ErrUnauthorized
		}
	}

	return claims, "", nil
}

// reject answers an authentication failure.
func (p *AuthPipeline) reject(c *gin.Context, label, reason string, err error) {
	p.metrics.RecordAuthFailure(reason)
	p.logger.Warn(label,
		zap.String("reason", reason),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Value(c)),
	)
	response.Abort(c, err)
}

// fail answers a store or signing failure.
func (p *AuthPipeline) fail(c *gin.Context, label string, sc SessionContext, err error) {
	p.logger.Error(label, p.snapshot(c, sc, err)...)
	response.Abort(c, err)
}

func (p *AuthPipeline) snapshot(c *gin.Context, sc SessionContext, err error) []zap.Field {
	return []zap.Field{
		zap.String("user_id", sc.UserID),
		zap.String("session_id", sc.SessionID),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Value(c)),
		zap.Error(err),
	}
}
