package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/arena-session-api/internal/models"
	"github.com/noah-isme/arena-session-api/internal/service"
	appErrors "github.com/noah-isme/arena-session-api/pkg/errors"
	"github.com/noah-isme/arena-session-api/pkg/response"
)

// GameHandler serves game settings and game log downloads.
type GameHandler struct {
	settings *service.GameSettingsService
	logs     *service.GameLogService
	logger   *zap.Logger
}

// NewGameHandler constructs a game handler.
func NewGameHandler(settings *service.GameSettingsService, logs *service.GameLogService, logger *zap.Logger) *GameHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameHandler{settings: settings, logs: logs, logger: logger}
}

// Settings godoc
// @Summary Get game settings
// @Tags Game
// @Produce json
// @Param X-XSRF-Token header string true "CSRF token"
// @Success 200 {object} models.GameSettingsResponse
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /game-settings [get]
func (h *GameHandler) Settings(c *gin.Context) {
	sc, ok := sessionFromContext(c)
	if !ok {
		return
	}

	settings, err := h.settings.Get(c.Request.Context(), sc.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, models.GameSettingsResponse{OK: true, Settings: settings})
}

// UpdateSettings godoc
// @Summary Update game settings
// @Description Changes settings, records a finished game and appends its commentary to the game log
// @Tags Game
// @Accept json
// @Produce json
// @Param X-XSRF-Token header string true "CSRF token"
// @Param payload body models.UpdateGameSettingsRequest true "Settings update"
// @Success 200 {object} models.GameSettingsResponse
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /update-game-settings [put]
func (h *GameHandler) UpdateSettings(c *gin.Context) {
	sc, ok := sessionFromContext(c)
	if !ok {
		return
	}

	var req models.UpdateGameSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err))
		return
	}

	settings, err := h.settings.Update(c.Request.Context(), sc.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, models.GameSettingsResponse{OK: true, Settings: settings})
}

// DownloadLog godoc
// @Summary Download a game log
// @Tags Game
// @Produce plain
// @Param X-XSRF-Token header string true "CSRF token"
// @Param game query int true "Game number"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /download-game-log [get]
func (h *GameHandler) DownloadLog(c *gin.Context) {
	sc, ok := sessionFromContext(c)
	if !ok {
		return
	}

	var query models.DownloadGameLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, invalidBody(err))
		return
	}

	file, name, err := h.logs.Open(sc.UserID, query.Game)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.KindInternal, appErrors.ErrInternal.Code, "failed to read game log"))
		return
	}

	h.logger.Debug("game log download", zap.String("user_id", sc.UserID), zap.String("file", name))
	c.DataFromReader(http.StatusOK, info.Size(), "text/plain; charset=utf-8", file, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", name),
	})
}
