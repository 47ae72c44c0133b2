// SPDX-License-Identifier: GPL-3.0-only

package routes

import (
	"time"
	"vulnmgr-server/commons"
	"vulnmgr-server/handlers"
	"vulnmgr-server/middlewares"
	"vulnmgr-server/models"
	"vulnmgr-server/ratelimit"
	"vulnmgr-server/sessions"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	commons.Logger.Debug("Registering routes")

	manager := sessions.NewManager()
	limiter := ratelimit.New()

	sessionAuth := middlewares.SessionAuth(manager)
	adminOnly := middlewares.RequireRole(models.RoleAdmin)
	editorOrAdmin := middlewares.RequireRole(models.RoleEditor, models.RoleAdmin)

	e.GET("/", handlers.RootHandler)
	e.GET("/health", handlers.HealthHandler)

	api := e.Group("/api")

	api.POST("/auth/login", handlers.LoginHandler, middlewares.RateLimit(limiter, "login", 0, time.Minute))
	api.POST("/auth/logout", handlers.LogoutHandler)
	api.GET("/auth/me", handlers.MeHandler, sessionAuth)
	api.GET("/auth/sessions", handlers.GetSessionsHandler, sessionAuth)
	api.DELETE("/auth/sessions/:session_id", handlers.RevokeSessionHandler, sessionAuth)

	api.POST("/tokens", handlers.CreateTokenHandler, sessionAuth, adminOnly)
	api.GET("/tokens", handlers.ListTokensHandler, sessionAuth, adminOnly)
	api.GET("/tokens/:token_id", handlers.GetTokenHandler, sessionAuth, adminOnly)
	api.DELETE("/tokens/:token_id", handlers.RevokeTokenHandler, sessionAuth, adminOnly)
	api.POST("/tokens/:token_id/rotate", handlers.RotateTokenHandler, sessionAuth, adminOnly)
	api.HEAD("/tokens/validate", handlers.ValidateTokenHandler, middlewares.TokenAuth(""))

	api.GET("/users", handlers.ListUsersHandler, sessionAuth, adminOnly)
	api.POST("/users", handlers.CreateUserHandler, sessionAuth, adminOnly)
	api.PUT("/users/:user_id", handlers.UpdateUserHandler, sessionAuth, adminOnly)
	api.DELETE("/users/:user_id", handlers.DeleteUserHandler, sessionAuth, adminOnly)
	api.PUT("/users/me/password", handlers.ChangeMyPasswordHandler, sessionAuth)

	api.GET("/vulns", handlers.SearchVulnerabilitiesHandler, sessionAuth)
	api.GET("/vulns/bulk", handlers.BulkVulnerabilitiesHandler, middlewares.TokenAuth("read:vulns"))
	api.GET("/vulns/:vuln_id", handlers.GetVulnerabilityHandler, sessionAuth)
	api.GET("/vulns/:vuln_id/exportdoc", handlers.ExportVulnerabilityDocHandler, middlewares.TokenAuth("export:doc"))
	api.POST("/vulns", handlers.CreateVulnerabilityHandler, sessionAuth, editorOrAdmin)
	api.PUT("/vulns/:vuln_id", handlers.UpdateVulnerabilityHandler, sessionAuth, editorOrAdmin)
	api.DELETE("/vulns/:vuln_id", handlers.DeleteVulnerabilityHandler, sessionAuth, editorOrAdmin)

	commons.Logger.Info("Routes registered successfully")
}
