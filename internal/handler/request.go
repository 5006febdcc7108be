package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-api/internal/queue"
	"github.com/openshelf/library-api/internal/repository"
	queue_publisher "github.com/openshelf/library-api/internal/service"
)

// RequestHandler covers staff triage of student acquisition requests.
type RequestHandler struct {
	Requests *repository.RequestRepo
}

func NewRequestHandler(rq *repository.RequestRepo) *RequestHandler {
	return &RequestHandler{Requests: rq}
}

// List handles GET /v1/book-requests?status= for staff.
func (h *RequestHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Requests.List(ctx, c.QueryParam("status"))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": list})
}

// Approve handles POST /v1/book-requests/:id/approve.
func (h *RequestHandler) Approve(c echo.Context) error {
	return h.decide(c, true)
}

// Reject handles POST /v1/book-requests/:id/reject.
func (h *RequestHandler) Reject(c echo.Context) error {
	return h.decide(c, false)
}

// decide moves a PENDING request to its final state. A request is decided
// at most once; a second decision is a 409 no matter which way it went.
func (h *RequestHandler) decide(c echo.Context, approve bool) error {
	deciderID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Requests.Decide(ctx, id, deciderID, approve)
	if err != nil {
		switch err {
		case repository.ErrRequestNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "request not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "request already decided"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "decide failed"})
	}

	_ = queue_publisher.PublishLibraryEvent(ctx, queue.LibraryEvent{
		Kind:       queue.KindRequestDecided,
		UserID:     d.UserID,
		BookTitle:  d.Title,
		RequestID:  d.ID,
		Decision:   d.Status,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	})

	return c.JSON(http.StatusOK, d)
}
