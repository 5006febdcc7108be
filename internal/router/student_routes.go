package router

import (
	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-api/internal/handler"
	"github.com/openshelf/library-api/internal/middleware"
	"github.com/openshelf/library-api/internal/model"
)

// RegisterStudent registers the self-service endpoints under /v1/my. Any
// authenticated role may use them; they always act on the caller's own
// records, so staff see their own loans here just like students do.
func RegisterStudent(e *echo.Echo, h *handler.StudentHandler, jwtSecret string) {
	g := e.Group(
		"/v1/my",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleLibrarian, model.RoleStudent),
	)
	g.GET("/borrowings", h.MyBorrowings)

	g.GET("/holds", h.MyHolds)
	g.POST("/holds", h.PlaceHold)
	g.DELETE("/holds/:id", h.CancelHold)

	g.GET("/book-requests", h.MyRequests)
	g.POST("/book-requests", h.CreateRequest)

	g.PUT("/books/:id/rating", h.RateBook)

	g.GET("/notifications", h.MyNotifications)
	g.POST("/notifications/read-all", h.MarkAllNotificationsRead)
	g.POST("/notifications/:id/read", h.MarkNotificationRead)
}
