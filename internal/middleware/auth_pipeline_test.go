package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/arena-session-api/internal/models"
	"github.com/noah-isme/arena-session-api/internal/repository"
	"github.com/noah-isme/arena-session-api/internal/service"
	"github.com/noah-isme/arena-session-api/pkg/config"
	"github.com/noah-isme/arena-session-api/pkg/cookie"
)

const testSecret = "test-secret"

type pipelineHarness struct {
	pipeline *AuthPipeline
	tokens   *service.TokenService
	sessions *service.SessionService
	store    *repository.MemorySessionRepository
	signer   *cookie.Signer
}

type failingExpireStore struct {
	*repository.MemorySessionRepository
}

func (f failingExpireStore) Expire(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	return nil, errors.New("store unavailable")
}

func newHarness(t *testing.T, bindRefresh bool, store service.SessionStore) *pipelineHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	memory := repository.NewMemorySessionRepository()
	if store == nil {
		store = memory
	} else if f, ok := store.(failingExpireStore); ok {
		memory = f.MemorySessionRepository
	}

	tokens := service.NewTokenService(service.TokenConfig{Secret: testSecret, AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour})
	sessions := service.NewSessionService(store, 24*time.Hour, nil, zap.NewNop())
	signer := cookie.NewSigner("cookie-secret")
	pipeline := NewAuthPipeline(tokens, sessions, signer, AuthPipelineConfig{
		Cookie:           config.CookieConfig{Path: "/", SameSite: http.SameSiteLaxMode},
		BindRefreshToken: bindRefresh,
	}, service.NewMetricsService(), zap.NewNop())

	return &pipelineHarness{pipeline: pipeline, tokens: tokens, sessions: sessions, store: memory, signer: signer}
}

type loginState struct {
	sessionID string
	access    *service.AccessToken
	refresh   string
}

func (h *pipelineHarness) login(t *testing.T, userID string) loginState {
	t.Helper()
	info, err := h.sessions.Create(context.Background(), userID)
	require.NoError(t, err)
	access, err := h.tokens.IssueAccessToken(userID, info.SessionID)
	require.NoError(t, err)
	refresh, err := h.tokens.IssueRefreshToken(userID, info.SessionID)
	require.NoError(t, err)
	return loginState{sessionID: info.SessionID, access: access, refresh: h.signer.Sign(refresh)}
}

func authedRequest(method, path string, state loginState, withCSRF bool) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+state.access.Token)
	if withCSRF {
		req.Header.Set(XSRFTokenHeader, state.access.CSRFToken)
	}
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: state.refresh})
	return req
}

func (h *pipelineHarness) protectedRouter(reached *SessionContext) *gin.Engine {
	r := gin.New()
	r.GET("/protected", h.pipeline.VerifyTokens(), h.pipeline.VerifySession(), func(c *gin.Context) {
		sc, _ := GetSessionContext(c)
		*reached = sc
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestProtectedRequestWithLiveSession(t *testing.T) {
	h := newHarness(t, false, nil)
	state := h.login(t, "u1")

	var reached SessionContext
	w := httptest.NewRecorder()
	h.protectedRouter(&reached).ServeHTTP(w, authedRequest(http.MethodGet, "/protected", state, true))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u1", reached.UserID)
	assert.Equal(t, state.sessionID, reached.SessionID)
	assert.False(t, reached.Expiry.IsZero())
}

func TestCredentialsFromCookies(t *testing.T) {
	h := newHarness(t, false, nil)
	state := h.login(t, "u1")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.AddCookie(&http.Cookie{Name: AuthTokenCookie, Value: state.access.Token})
	req.AddCookie(&http.Cookie{Name: XSRFTokenCookie, Value: state.access.CSRFToken})
	req.AddCookie(&http.Cookie{Name: RefreshTokenCookie, Value: state.refresh})

	var reached SessionContext
	w := httptest.NewRecorder()
	h.protectedRouter(&reached).ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestExpiredAccessTokenIsRejected(t *testing.T) {
	h := newHarness(t, false, nil)
	state := h.login(t, "u1")

	past := h.tokens.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) })
	expired, err := past.IssueAccessToken("u1", state.sessionID)
	require.NoError(t, err)
	state.access = expired

	reached := SessionContext{UserID: "untouched"}
	w := httptest.NewRecorder()
	h.protectedRouter(&reached).ServeHTTP(w, authedRequest(http.MethodGet, "/protected", state, true))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "untouched", reached.UserID)
}

func TestMissingCSRFIsForbidden(t *testing.T) {
	h := newHarness(t, false, nil)
	state := h.login(t, "u1")

	var reached SessionContext
	w := httptest.NewRecorder()
	h.protectedRouter(&reached).ServeHTTP(w, authedRequest(http.MethodGet, "/protected", state, false))

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"message":"Forbidden: Forbidden Access","code":"FORBIDDEN"}`, w.Body.String())
}

func TestWrongCSRFIsUnauthorized(t *testing.T) {
	h := newHarness(t, false, nil)
	state := h.login(t, "u1")
	other := h.login(t, "u1")
	state.access.CSRFToken = other.access.CSRFToken

	var reached SessionContext
	w := httptest.NewRecorder()
	h.protectedRouter(&reached).ServeHTTP(w, authedRequest(http.MethodGet, "/protected", state, true))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMissingOrTamperedRefreshCookie(t *testing.T) {
	h := newHarness(t, false, nil)
	state := h.login(t, "u1")

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+state.access.Token)
	req.Header.Set(XSRFTokenHeader, state.access.CSRFToken)

	var reached SessionContext
	w := httptest.NewRecorder()
	h.protectedRouter(&reached).ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	state.refresh = "s:forged.c2lnbmF0dXJl"
	w = httptest.NewRecorder()
	h.protectedRouter(&reached).ServeHTTP(w, authedRequest(http.MethodGet, "/protected", state, true))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBoundRefreshTokenMustMatch(t *testing.T) {
	h := newHarness(t, true, nil)
	state := h.login(t, "u1")
	other := h.login(t, "u1")

	var reached SessionContext
	w := httptest.NewRecorder()
	h.protectedRouter(&reached).ServeHTTP(w, authedRequest(http.MethodGet, "/protected", state, true))
	require.Equal(t, http.StatusOK, w.Code)

	state.refresh = other.refresh
	w = httptest.NewRecorder()
	h.protectedRouter(&reached).ServeHTTP(w, authedRequest(http.MethodGet, "/protected", state, true))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnboundRefreshTokenOnlyNeedsSignature(t *testing.T) {
	h := newHarness(t, false, nil)
	state := h.login(t, "u1")
	state.refresh = h.signer.Sign("anything")

	var reached SessionContext
	w := httptest.NewRecorder()
	h.protectedRouter(&reached).ServeHTTP(w, authedRequest(http.MethodGet, "/protected", state, true))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRefreshRotatesSession(t *testing.T) {
	h := newHarness(t, false, nil)
	state := h.login(t, "u1")

	r := gin.New()
	r.GET("/refresh", h.pipeline.VerifyTokens(), h.pipeline.VerifySession(), h.pipeline.GenerateSession(), h.pipeline.GenerateTokens(), func(c *gin.Context) {
		sc, _ := GetSessionContext(c)
		issued, ok := GetIssuedTokens(c)
		require.True(t, ok)
		c.JSON(http.StatusOK, gin.H{"sessionId": sc.SessionID, "expiry": issued.Access.Expiry})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/refresh", state, true))
	require.Equal(t, http.StatusOK, w.Code)

	old, ok := h.store.Get(state.sessionID)
	require.True(t, ok)
	assert.True(t, old.Expired)
	assert.Equal(t, 2, h.store.Len())

	cookies := map[string]*http.Cookie{}
	for _, ck := range w.Result().Cookies() {
		cookies[ck.Name] = ck
	}
	require.Contains(t, cookies, RefreshTokenCookie)
	require.Contains(t, cookies, XSRFTokenCookie)
	require.Contains(t, cookies, AuthTokenCookie)
	assert.True(t, cookies[RefreshTokenCookie].HttpOnly)
	assert.False(t, cookies[XSRFTokenCookie].HttpOnly)

	rawRefresh, err := h.signer.Unsign(cookies[RefreshTokenCookie].Value)
	require.NoError(t, err)
	claims, err := h.tokens.VerifyRefreshToken(rawRefresh)
	require.NoError(t, err)
	assert.NotEqual(t, state.sessionID, claims.SessionID)

	accessClaims, err := h.tokens.VerifyAccessToken(cookies[AuthTokenCookie].Value, cookies[XSRFTokenCookie].Value)
	require.NoError(t, err)
	assert.Equal(t, claims.SessionID, accessClaims.SessionID)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/refresh", state, true))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRotationAbortsWhenExpireFails(t *testing.T) {
	memory := repository.NewMemorySessionRepository()
	h := newHarness(t, false, failingExpireStore{memory})
	state := h.login(t, "u1")
	before := memory.Len()

	nextCalled := false
	r := gin.New()
	r.POST("/rotate", func(c *gin.Context) {
		SetSessionContext(c, SessionContext{UserID: "u1", SessionID: state.sessionID})
		c.Next()
	}, h.pipeline.GenerateSession(), func(c *gin.Context) {
		nextCalled = true
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/rotate", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, nextCalled)
	assert.Equal(t, before, memory.Len())
}

func TestGenerateStagesRequireIdentity(t *testing.T) {
	h := newHarness(t, false, nil)

	r := gin.New()
	r.POST("/session", h.pipeline.GenerateSession())
	r.POST("/tokens", func(c *gin.Context) {
		SetSessionContext(c, SessionContext{UserID: "u1"})
		c.Next()
	}, h.pipeline.GenerateTokens())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/session", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/tokens", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())
}

func assertSessionCookiesCleared(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	cleared := map[string]bool{}
	for _, ck := range w.Result().Cookies() {
		assert.Equal(t, -1, ck.MaxAge, ck.Name)
		assert.Empty(t, ck.Value, ck.Name)
		cleared[ck.Name] = true
	}
	assert.Equal(t, map[string]bool{RefreshTokenCookie: true, XSRFTokenCookie: true, AuthTokenCookie: true}, cleared)
}

func TestLogoutExpiresSessionAndBlocksReplay(t *testing.T) {
	h := newHarness(t, false, nil)
	state := h.login(t, "u1")

	r := gin.New()
	r.POST("/logout", h.pipeline.ExpireSession(), func(c *gin.Context) {
		_, ok := GetSessionContext(c)
		assert.False(t, ok)
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	var reached SessionContext
	r.GET("/protected", h.pipeline.VerifyTokens(), h.pipeline.VerifySession(), func(c *gin.Context) {
		reached, _ = GetSessionContext(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/logout", state, true))
	require.Equal(t, http.StatusOK, w.Code)
	assertSessionCookiesCleared(t, w)

	stored, ok := h.store.Get(state.sessionID)
	require.True(t, ok)
	assert.True(t, stored.Expired)

	_, err := h.tokens.VerifyAccessToken(state.access.Token, state.access.CSRFToken)
	require.NoError(t, err)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodGet, "/protected", state, true))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, reached.UserID)
}

func TestLogoutClearsCookiesOnFailure(t *testing.T) {
	memory := repository.NewMemorySessionRepository()
	h := newHarness(t, false, failingExpireStore{memory})
	state := h.login(t, "u1")

	r := gin.New()
	r.POST("/logout", h.pipeline.ExpireSession())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/logout", state, true))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assertSessionCookiesCleared(t, w)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/logout", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assertSessionCookiesCleared(t, w)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPost, "/logout", state, false))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRenewSessionExtendsExpiry(t *testing.T) {
	h := newHarness(t, false, nil)
	state := h.login(t, "u1")
	before, _ := h.store.Get(state.sessionID)

	var renewed SessionContext
	r := gin.New()
	r.PUT("/session", h.pipeline.VerifyTokens(), h.pipeline.VerifySession(), h.pipeline.RenewSession(), func(c *gin.Context) {
		renewed, _ = GetSessionContext(c)
		c.Status(http.StatusOK)
	})

	time.Sleep(5 * time.Millisecond)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(http.MethodPut, "/session", state, true))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, renewed.Expiry.After(before.ExpiresOn))
}
