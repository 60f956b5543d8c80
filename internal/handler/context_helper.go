package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arena-session-api/internal/middleware"
	appErrors "github.com/noah-isme/arena-session-api/pkg/errors"
	"github.com/noah-isme/arena-session-api/pkg/response"
)

// sessionFromContext returns the verified session of the request, answering
// 401 when the auth stages did not run.
func sessionFromContext(c *gin.Context) (middleware.SessionContext, bool) {
	sc, ok := middleware.GetSessionContext(c)
	if !ok {
		response.Abort(c, appErrors.ErrUnauthorized)
		return middleware.SessionContext{}, false
	}
	return sc, true
}

func invalidBody(err error) error {
	return appErrors.Wrap(err, appErrors.KindBadRequest, appErrors.ErrValidation.Code, "invalid payload")
}
