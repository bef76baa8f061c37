package api

import (
	"github.com/gin-gonic/gin"

	"github.com/goout-id/goout/internal/handlers"
)

type authRouteDeps struct {
	AuthHandler *handlers.AuthHandler
	OIDCHandler *handlers.OIDCHandler
	RequireAuth gin.HandlerFunc
}

func registerAuthRoutes(engine *gin.Engine, deps authRouteDeps) {
	auth := engine.Group("/api/auth")
	{
		auth.POST("/register", deps.AuthHandler.Register)
		auth.GET("/resend", deps.AuthHandler.IssueTicket)
		auth.POST("/resend", deps.AuthHandler.Resend)
		auth.POST("/verify", deps.AuthHandler.Verify)
		auth.POST("/login", deps.AuthHandler.Login)
		auth.GET("/me", deps.RequireAuth, deps.AuthHandler.Me)
	}

	if deps.OIDCHandler != nil {
		auth.GET("/oidc/login", deps.OIDCHandler.Login)
		auth.GET("/oidc/callback", deps.OIDCHandler.Callback)
	}
}
