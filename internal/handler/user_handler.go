package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arena-session-api/internal/models"
	"github.com/noah-isme/arena-session-api/internal/service"
	"github.com/noah-isme/arena-session-api/pkg/response"
)

// UserHandler serves the profile of the logged in user.
type UserHandler struct {
	service *service.UserService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{service: svc}
}

// Get godoc
// @Summary Get current user
// @Tags Users
// @Produce json
// @Param X-XSRF-Token header string true "CSRF token"
// @Success 200 {object} models.UserResponse
// @Failure 401 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /user [get]
func (h *UserHandler) Get(c *gin.Context) {
	sc, ok := sessionFromContext(c)
	if !ok {
		return
	}

	profile, err := h.service.Get(c.Request.Context(), sc.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, models.UserResponse{OK: true, User: *profile})
}

// Update godoc
// @Summary Update current user
// @Tags Users
// @Accept json
// @Produce json
// @Param X-XSRF-Token header string true "CSRF token"
// @Param payload body models.UpdateUserRequest true "Fields to change"
// @Success 200 {object} models.UserResponse
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /update-user [put]
func (h *UserHandler) Update(c *gin.Context) {
	sc, ok := sessionFromContext(c)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidBody(err))
		return
	}

	profile, err := h.service.Update(c.Request.Context(), sc.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, models.UserResponse{OK: true, User: *profile})
}
