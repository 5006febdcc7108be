package router

import (
	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-api/internal/handler"
	"github.com/openshelf/library-api/internal/middleware"
	"github.com/openshelf/library-api/internal/model"
)

// RegisterLibrarian registers the staff endpoints: catalog management,
// loan desk and acquisition request triage. Admins are accepted
// everywhere librarians are.
func RegisterLibrarian(e *echo.Echo, b *handler.BookHandler, br *handler.BorrowHandler,
	rq *handler.RequestHandler, jwtSecret string) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin, model.RoleLibrarian),
	)

	g.POST("/books", b.Create)
	g.PUT("/books/:id", b.Update)
	g.DELETE("/books/:id", b.Delete)

	g.GET("/borrowings", br.List)
	g.POST("/borrowings", br.Issue)
	// Static segment before /borrowings/:id, same as the catalog group.
	g.POST("/borrowings/sweep-overdue", br.SweepOverdue)
	g.GET("/borrowings/:id", br.Get)
	g.POST("/borrowings/:id/return", br.Return)

	g.GET("/book-requests", rq.List)
	g.POST("/book-requests/:id/approve", rq.Approve)
	g.POST("/book-requests/:id/reject", rq.Reject)
}
