package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/arena-session-api/internal/middleware"
	"github.com/noah-isme/arena-session-api/internal/models"
	"github.com/noah-isme/arena-session-api/internal/repository"
	"github.com/noah-isme/arena-session-api/internal/service"
	"github.com/noah-isme/arena-session-api/pkg/config"
	"github.com/noah-isme/arena-session-api/pkg/cookie"
	"github.com/noah-isme/arena-session-api/pkg/jobs"
	"github.com/noah-isme/arena-session-api/pkg/response"
	"github.com/noah-isme/arena-session-api/pkg/storage"
)

// accountStore is an in-memory users and game_settings table.
type accountStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	settings map[string]*models.GameSettings
}

func newAccountStore() *accountStore {
	return &accountStore{users: map[string]*models.User{}, settings: map[string]*models.GameSettings{}}
}

func (a *accountStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if u, ok := a.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (a *accountStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range a.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (a *accountStore) CreateWithSettings(ctx context.Context, user *models.User, settings *models.GameSettings) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, u := range a.users {
		if u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	settings.UserID = user.ID
	a.users[user.ID] = user
	a.settings[user.ID] = settings
	return nil
}

func (a *accountStore) Update(ctx context.Context, id string, update models.UserUpdate) (*models.User, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	u, ok := a.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.Avatar != nil {
		u.Avatar = *update.Avatar
	}
	clone := *u
	return &clone, nil
}

type settingsTable struct{ *accountStore }

func (s settingsTable) FindByUserID(ctx context.Context, userID string) (*models.GameSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gs, ok := s.settings[userID]; ok {
		clone := *gs
		return &clone, nil
	}
	return nil, nil
}

func (s settingsTable) Update(ctx context.Context, userID string, update models.GameSettingsUpdate) (*models.GameSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.settings[userID]
	if !ok {
		return nil, nil
	}
	if update.PlayerName != nil {
		gs.PlayerName = *update.PlayerName
	}
	if update.GameTime != nil {
		gs.GameTime = *update.GameTime
	}
	if update.Won || update.Lost {
		gs.GamesPlayed++
	}
	if update.Won {
		gs.Wins++
	}
	if update.Lost {
		gs.Losses++
	}
	clone := *gs
	return &clone, nil
}

type apiHarness struct {
	router   *gin.Engine
	sessions *repository.MemorySessionRepository
	signer   *cookie.Signer
	gameLogs *service.GameLogService
	store    *storage.LocalStorage
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	metrics := service.NewMetricsService()
	accounts := newAccountStore()
	sessionStore := repository.NewMemorySessionRepository()
	signer := cookie.NewSigner("cookie-secret")

	users := service.NewUserService(accounts, nil, logger, bcrypt.MinCost)
	tokens := service.NewTokenService(service.TokenConfig{Secret: "jwt-secret", AccessTTL: time.Hour, RefreshTTL: 24 * time.Hour})
	sessions := service.NewSessionService(sessionStore, 24*time.Hour, metrics, logger)

	files, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	gameLogs := service.NewGameLogService(files, metrics, logger, jobs.QueueConfig{Workers: 1, RetryDelay: 10 * time.Millisecond})
	gameLogs.Start(context.Background())
	t.Cleanup(gameLogs.Stop)

	settings := service.NewGameSettingsService(settingsTable{accounts}, users, gameLogs, nil, logger)
	pipeline := middleware.NewAuthPipeline(tokens, sessions, signer, middleware.AuthPipelineConfig{
		Cookie: config.CookieConfig{Path: "/", SameSite: http.SameSiteLaxMode},
	}, metrics, logger)

	router := gin.New()
	Register(router.Group("/v1"), Routes{
		Auth:     NewAuthHandler(users, metrics, logger),
		Users:    NewUserHandler(users),
		Game:     NewGameHandler(settings, gameLogs, logger),
		Pipeline: pipeline,
	})

	return &apiHarness{router: router, sessions: sessionStore, signer: signer, gameLogs: gameLogs, store: files}
}

func performRequest(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func cookiesByName(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range w.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

// withSession copies the session cookies of a previous response onto req,
// echoing the CSRF cookie in the header as a browser client does.
func withSession(req *http.Request, cookies map[string]*http.Cookie) *http.Request {
	for _, name := range []string{middleware.RefreshTokenCookie, middleware.AuthTokenCookie, middleware.XSRFTokenCookie} {
		if c, ok := cookies[name]; ok {
			req.AddCookie(&http.Cookie{Name: c.Name, Value: c.Value})
		}
	}
	if c, ok := cookies[middleware.XSRFTokenCookie]; ok {
		req.Header.Set(middleware.XSRFTokenHeader, c.Value)
	}
	return req
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := response.Envelope{Data: out}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
}

const signupBody = `{"name":"Player One","email":"player@example.com","password":"hunter22","avatar":"ninja"}`
const loginBody = `{"email":"player@example.com","password":"hunter22"}`

func (h *apiHarness) signupAndLogin(t *testing.T) map[string]*http.Cookie {
	t.Helper()
	w := performRequest(h.router, jsonRequest(http.MethodPost, "/v1/signup", signupBody))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(h.router, jsonRequest(http.MethodPost, "/v1/login", loginBody))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return cookiesByName(w)
}

func TestLoginOpensSessionAndSetsCookies(t *testing.T) {
	h := newAPIHarness(t)
	w := performRequest(h.router, jsonRequest(http.MethodPost, "/v1/signup", signupBody))
	require.Equal(t, http.StatusOK, w.Code)

	before := time.Now()
	w = performRequest(h.router, jsonRequest(http.MethodPost, "/v1/login", loginBody))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body models.SessionResponse
	decodeData(t, w, &body)
	assert.True(t, body.OK)
	assert.Equal(t, "Player One", body.Session.Name)
	assert.Equal(t, models.AvatarNinja, body.Session.Avatar)
	assert.InDelta(t, before.Add(time.Hour).UnixMilli(), body.Session.Expiry, float64(5*time.Second/time.Millisecond))

	cookies := cookiesByName(w)
	require.Contains(t, cookies, middleware.RefreshTokenCookie)
	require.Contains(t, cookies, middleware.XSRFTokenCookie)
	require.Contains(t, cookies, middleware.AuthTokenCookie)
	assert.True(t, cookies[middleware.RefreshTokenCookie].HttpOnly)
	assert.Len(t, cookies[middleware.XSRFTokenCookie].Value, 24)
	assert.Equal(t, 1, h.sessions.Len())

	w = performRequest(h.router, withSession(httptest.NewRequest(http.MethodGet, "/v1/user", nil), cookies))
	require.Equal(t, http.StatusOK, w.Code)
	var user models.UserResponse
	decodeData(t, w, &user)
	assert.Equal(t, "player@example.com", user.User.Email)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	h := newAPIHarness(t)
	performRequest(h.router, jsonRequest(http.MethodPost, "/v1/signup", signupBody))

	w := performRequest(h.router, jsonRequest(http.MethodPost, "/v1/login", `{"email":"player@example.com","password":"wrong-one"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, w.Result().Cookies())

	w = performRequest(h.router, jsonRequest(http.MethodPost, "/v1/login", `{"email":"ghost@example.com","password":"hunter22"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(h.router, jsonRequest(http.MethodPost, "/v1/login", `{"email":"player@example.com","password":"hunt"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")
	assert.Empty(t, w.Result().Cookies())
	assert.Equal(t, 0, h.sessions.Len())
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	h := newAPIHarness(t)
	w := performRequest(h.router, jsonRequest(http.MethodPost, "/v1/signup", signupBody))
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(h.router, jsonRequest(http.MethodPost, "/v1/signup", signupBody))
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRefreshRotatesSessionAndTokens(t *testing.T) {
	h := newAPIHarness(t)
	first := h.signupAndLogin(t)

	w := performRequest(h.router, withSession(httptest.NewRequest(http.MethodGet, "/v1/refresh", nil), first))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body models.SessionResponse
	decodeData(t, w, &body)
	assert.Equal(t, "Player One", body.Session.Name)

	second := cookiesByName(w)
	assert.NotEqual(t, first[middleware.AuthTokenCookie].Value, second[middleware.AuthTokenCookie].Value)
	assert.NotEqual(t, first[middleware.XSRFTokenCookie].Value, second[middleware.XSRFTokenCookie].Value)
	assert.Equal(t, 2, h.sessions.Len())

	w = performRequest(h.router, withSession(httptest.NewRequest(http.MethodGet, "/v1/user", nil), first))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(h.router, withSession(httptest.NewRequest(http.MethodGet, "/v1/user", nil), second))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRenewAndLogout(t *testing.T) {
	h := newAPIHarness(t)
	cookies := h.signupAndLogin(t)

	w := performRequest(h.router, withSession(httptest.NewRequest(http.MethodPut, "/v1/session", nil), cookies))
	require.Equal(t, http.StatusOK, w.Code)
	var renewed models.SessionResponse
	decodeData(t, w, &renewed)
	assert.Greater(t, renewed.Session.Expiry, time.Now().Add(23*time.Hour).UnixMilli())

	w = performRequest(h.router, withSession(httptest.NewRequest(http.MethodPost, "/v1/logout", nil), cookies))
	require.Equal(t, http.StatusOK, w.Code)
	var out models.OKResponse
	decodeData(t, w, &out)
	assert.True(t, out.OK)
	for _, c := range w.Result().Cookies() {
		assert.Equal(t, -1, c.MaxAge, c.Name)
	}

	w = performRequest(h.router, withSession(httptest.NewRequest(http.MethodGet, "/v1/game-settings", nil), cookies))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUpdateUser(t *testing.T) {
	h := newAPIHarness(t)
	cookies := h.signupAndLogin(t)

	w := performRequest(h.router, withSession(jsonRequest(http.MethodPut, "/v1/update-user", `{"name":"  Player Two "}`), cookies))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var user models.UserResponse
	decodeData(t, w, &user)
	assert.Equal(t, "Player Two", user.User.Name)

	w = performRequest(h.router, withSession(jsonRequest(http.MethodPut, "/v1/update-user", `{}`), cookies))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGameSettingsAndLogDownload(t *testing.T) {
	h := newAPIHarness(t)
	cookies := h.signupAndLogin(t)

	w := performRequest(h.router, withSession(httptest.NewRequest(http.MethodGet, "/v1/game-settings", nil), cookies))
	require.Equal(t, http.StatusOK, w.Code)
	var settings models.GameSettingsResponse
	decodeData(t, w, &settings)
	assert.Equal(t, models.DefaultGameTime, settings.Settings.GameTime)

	w = performRequest(h.router, withSession(jsonRequest(http.MethodPut, "/v1/update-game-settings", `{"won":true,"commentary":"close match"}`), cookies))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeData(t, w, &settings)
	assert.Equal(t, 1, settings.Settings.GamesPlayed)
	assert.Equal(t, 1, settings.Settings.Wins)

	name := service.GameLogFileName(settings.Settings.UserID, 1)
	require.Eventually(t, func() bool {
		ok, err := h.store.Exists(name)
		return err == nil && ok
	}, 2*time.Second, 10*time.Millisecond)

	w = performRequest(h.router, withSession(httptest.NewRequest(http.MethodGet, "/v1/download-game-log?game=1", nil), cookies))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), name)
	assert.Contains(t, w.Body.String(), "close match")

	w = performRequest(h.router, withSession(httptest.NewRequest(http.MethodGet, "/v1/download-game-log?game=7", nil), cookies))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(h.router, withSession(httptest.NewRequest(http.MethodGet, "/v1/download-game-log?game=../etc", nil), cookies))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(h.router, withSession(jsonRequest(http.MethodPut, "/v1/update-game-settings", `{}`), cookies))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesRequireCSRF(t *testing.T) {
	h := newAPIHarness(t)
	cookies := h.signupAndLogin(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/user", nil)
	req.AddCookie(&http.Cookie{Name: middleware.RefreshTokenCookie, Value: cookies[middleware.RefreshTokenCookie].Value})
	req.Header.Set("Authorization", "Bearer "+cookies[middleware.AuthTokenCookie].Value)

	w := performRequest(h.router, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
