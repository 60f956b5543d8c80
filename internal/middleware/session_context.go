package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arena-session-api/internal/models"
	"github.com/noah-isme/arena-session-api/internal/service"
)

const (
	sessionContextKey = "sessionContext"
	identityKey       = "identity"
	issuedTokensKey   = "issuedTokens"
)

// SessionContext is the verified session state of the current request. It is
// a value: each pipeline stage derives a new one and stores it back.
type SessionContext struct {
	UserID    string
	SessionID string
	Expiry    time.Time
}

// WithIdentity returns the context for the given user and session with no
// known expiry.
func (s SessionContext) WithIdentity(userID, sessionID string) SessionContext {
	return SessionContext{UserID: userID, SessionID: sessionID}
}

// WithSession returns a copy bound to the given session, keeping the user.
func (s SessionContext) WithSession(sessionID string, expiry time.Time) SessionContext {
	s.SessionID = sessionID
	s.Expiry = expiry
	return s
}

// SetSessionContext stores the session context on the request.
func SetSessionContext(c *gin.Context, sc SessionContext) {
	c.Set(sessionContextKey, sc)
}

// GetSessionContext returns the session context; ok is false when no user is
// bound to the request.
func GetSessionContext(c *gin.Context) (SessionContext, bool) {
	value, exists := c.Get(sessionContextKey)
	if !exists {
		return SessionContext{}, false
	}
	sc, ok := value.(SessionContext)
	if !ok || sc.UserID == "" {
		return SessionContext{}, false
	}
	return sc, true
}

// ClearSessionContext drops any session state from the request.
func ClearSessionContext(c *gin.Context) {
	c.Set(sessionContextKey, SessionContext{})
}

// SetIdentity stores the profile fields echoed back after login or refresh.
func SetIdentity(c *gin.Context, identity models.Identity) {
	c.Set(identityKey, identity)
}

// GetIdentity returns the identity stored by SetIdentity.
func GetIdentity(c *gin.Context) (models.Identity, bool) {
	value, exists := c.Get(identityKey)
	if !exists {
		return models.Identity{}, false
	}
	identity, ok := value.(models.Identity)
	return identity, ok
}

// IssuedTokens are the tokens minted for the current response.
type IssuedTokens struct {
	Access  *service.AccessToken
	Refresh string
}

// GetIssuedTokens returns the tokens set by GenerateTokens.
func GetIssuedTokens(c *gin.Context) (IssuedTokens, bool) {
	value, exists := c.Get(issuedTokensKey)
	if !exists {
		return IssuedTokens{}, false
	}
	tokens, ok := value.(IssuedTokens)
	return tokens, ok
}
