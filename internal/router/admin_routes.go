package router

import (
	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-api/internal/handler"
	"github.com/openshelf/library-api/internal/middleware"
	"github.com/openshelf/library-api/internal/model"
)

// RegisterAdmin registers user administration and reporting, admin only.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)

	g.GET("/users", h.ListUsers)
	g.PUT("/users/:id/role", h.UpdateRole)
	g.PUT("/users/:id/active", h.SetActive)

	g.GET("/reports/overview", h.ReportOverview)
	g.GET("/reports/top-books", h.TopBooks)
	g.GET("/reports/fines", h.FinesReport)
}
