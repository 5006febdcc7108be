// Package router wires HTTP routes to handlers and applies the auth and
// role middleware per group. Route registration is split by audience:
// public, auth, student self-service, librarian and admin.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-api/internal/handler"
	"github.com/openshelf/library-api/internal/middleware"
	"github.com/openshelf/library-api/internal/model"
)

// RegisterRoutes registers routes that require no authentication at all.
// Currently that is only the health check used by load balancers.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the /v1/auth endpoints plus the authenticated
// /v1/me probe. Logout lives outside the protected group because it
// authenticates via the refresh token in the body (or a bearer token for
// the all-sessions variant) rather than the JWT middleware.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.Use(middleware.RequireRole(model.RoleAdmin, model.RoleLibrarian, model.RoleStudent))
	auth.GET("/me", a.Me)
}
