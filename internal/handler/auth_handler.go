package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/arena-session-api/internal/middleware"
	"github.com/noah-isme/arena-session-api/internal/models"
	"github.com/noah-isme/arena-session-api/internal/service"
	appErrors "github.com/noah-isme/arena-session-api/pkg/errors"
	"github.com/noah-isme/arena-session-api/pkg/response"
)

// AuthHandler wires the login, refresh, renew, logout and signup endpoints.
// Login and LoadProfile are chain stages that run before the token issuance
// middleware; the other methods terminate a chain.
type AuthHandler struct {
	users   *service.UserService
	metrics *service.MetricsService
	logger  *zap.Logger
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(users *service.UserService, metrics *service.MetricsService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{users: users, metrics: metrics, logger: logger}
}

// Login godoc
// @Summary Log in
// @Description Checks credentials, opens a session and sets the refreshToken, xsrf-token and auth-token cookies
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Login payload"
// @Success 200 {object} models.SessionResponse
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Abort(c, invalidBody(err))
		return
	}

	identity, err := h.users.Authenticate(c.Request.Context(), req)
	h.metrics.RecordLogin(err == nil)
	if err != nil {
		h.logger.Warn("login rejected", zap.String("email", req.Email), zap.Error(err))
		response.Abort(c, err)
		return
	}

	middleware.SetSessionContext(c, middleware.SessionContext{}.WithIdentity(identity.UserID, ""))
	middleware.SetIdentity(c, *identity)
	c.Next()
}

// LoadProfile attaches the name and avatar of the verified user so a
// refreshed session can echo them back.
func (h *AuthHandler) LoadProfile(c *gin.Context) {
	sc, ok := sessionFromContext(c)
	if !ok {
		return
	}

	profile, err := h.users.Get(c.Request.Context(), sc.UserID)
	if err != nil {
		response.Abort(c, err)
		return
	}

	middleware.SetIdentity(c, models.Identity{UserID: profile.ID, Name: profile.Name, Avatar: profile.Avatar})
	c.Next()
}

// Session godoc
// @Summary Refresh session
// @Description Expires the current session and opens a new one with fresh tokens
// @Tags Authentication
// @Produce json
// @Param X-XSRF-Token header string true "CSRF token"
// @Success 200 {object} models.SessionResponse
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /refresh [get]
func (h *AuthHandler) Session(c *gin.Context) {
	issued, ok := middleware.GetIssuedTokens(c)
	if !ok || issued.Access == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	identity, _ := middleware.GetIdentity(c)
	response.OK(c, models.SessionResponse{
		OK: true,
		Session: models.SessionSummary{
			Expiry: issued.Access.Expiry,
			Name:   identity.Name,
			Avatar: identity.Avatar,
		},
	})
}

// Renewed godoc
// @Summary Keep session alive
// @Description Extends the expiry of the current session
// @Tags Authentication
// @Produce json
// @Param X-XSRF-Token header string true "CSRF token"
// @Success 200 {object} models.SessionResponse
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /session [put]
func (h *AuthHandler) Renewed(c *gin.Context) {
	sc, ok := sessionFromContext(c)
	if !ok {
		return
	}
	response.OK(c, models.SessionResponse{OK: true, Session: models.SessionSummary{Expiry: sc.Expiry.UnixMilli()}})
}

// Logout godoc
// @Summary Log out
// @Description Expires the current session and clears the session cookies
// @Tags Authentication
// @Produce json
// @Param X-XSRF-Token header string true "CSRF token"
// @Success 200 {object} models.OKResponse
// @Failure 401 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	response.OK(c, models.OKResponse{OK: true})
}

// Signup godoc
// @Summary Sign up
// @Description Creates an account with default game settings
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SignupRequest true "Signup payload"
// @Success 200 {object} models.OKResponse
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req models.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err))
		return
	}

	if _, err := h.users.Signup(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, models.OKResponse{OK: true})
}
