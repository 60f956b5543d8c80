package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arena-session-api/internal/middleware"
)

// Routes bundles everything needed to mount the API.
type Routes struct {
	Auth     *AuthHandler
	Users    *UserHandler
	Game     *GameHandler
	Pipeline *middleware.AuthPipeline
}

// Register mounts the API endpoints on group. Protected routes run the token
// check followed by the session check.
func Register(group gin.IRouter, r Routes) {
	p := r.Pipeline

	group.POST("/signup", r.Auth.Signup)
	group.POST("/login", r.Auth.Login, p.GenerateSession(), p.GenerateTokens(), r.Auth.Session)
	group.POST("/logout", p.ExpireSession(), r.Auth.Logout)

	protected := group.Group("")
	protected.Use(p.VerifyTokens(), p.VerifySession())
	{
		protected.GET("/refresh", r.Auth.LoadProfile, p.GenerateSession(), p.GenerateTokens(), r.Auth.Session)
		protected.PUT("/session", p.RenewSession(), r.Auth.Renewed)

		protected.GET("/user", r.Users.Get)
		protected.PUT("/update-user", r.Users.Update)

		protected.GET("/game-settings", r.Game.Settings)
		protected.PUT("/update-game-settings", r.Game.UpdateSettings)
		protected.GET("/download-game-log", r.Game.DownloadLog)
	}
}
