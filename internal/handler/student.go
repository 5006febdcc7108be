package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-api/internal/config"
	"github.com/openshelf/library-api/internal/model"
	"github.com/openshelf/library-api/internal/repository"
)

// StudentHandler covers the authenticated self-service surface: own
// loans, holds, acquisition requests, ratings and notifications. Every
// endpoint scopes to the caller's ID from the JWT; there is no way to
// address another user's data here.
type StudentHandler struct {
	Cfg           config.Config
	Borrows       *repository.BorrowRepo
	Books         *repository.BookRepo
	Holds         *repository.HoldRepo
	Requests      *repository.RequestRepo
	Ratings       *repository.RatingRepo
	Notifications *repository.NotificationRepo
}

func NewStudentHandler(cfg config.Config, br *repository.BorrowRepo, b *repository.BookRepo,
	h *repository.HoldRepo, rq *repository.RequestRepo, rt *repository.RatingRepo,
	n *repository.NotificationRepo) *StudentHandler {
	return &StudentHandler{Cfg: cfg, Borrows: br, Books: b, Holds: h,
		Requests: rq, Ratings: rt, Notifications: n}
}

// MyBorrowings handles GET /v1/my/borrowings: the caller's full loan
// history with live overdue/fine previews on open loans.
func (h *StudentHandler) MyBorrowings(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, err := h.Borrows.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	now := time.Now().UTC()
	for i := range rows {
		previewFine(&rows[i], now, h.Cfg.FinePerDayCents)
	}
	return c.JSON(http.StatusOK, echo.Map{"borrowings": rows})
}

type holdReq struct {
	BookID uint64 `json:"book_id"`
}

// PlaceHold handles POST /v1/my/holds. Holds exist only for books with no
// available copies; when a copy is on the shelf the student should just
// borrow it. The check and the insert share a transaction with the book
// row locked so a concurrent return cannot invalidate the decision.
func (h *StudentHandler) PlaceHold(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req holdReq
	if err := c.Bind(&req); err != nil || req.BookID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "book_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Books.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	book, err := h.Books.GetForUpdateTx(ctx, tx, req.BookID)
	if err != nil {
		if err == repository.ErrBookNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lock book failed"})
	}
	if err := h.Holds.ExpireForBookTx(ctx, tx, book.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "expire holds failed"})
	}
	if book.Available > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "copies are available, borrow instead"})
	}

	hold := model.Hold{
		BookID:    book.ID,
		UserID:    uid,
		ExpiresAt: time.Now().UTC().AddDate(0, 0, h.Cfg.HoldTTLDays),
	}
	if err := h.Holds.CreateTx(ctx, tx, &hold); err != nil {
		if err == repository.ErrHoldExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "active hold already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create hold failed"})
	}
	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	return c.JSON(http.StatusCreated, echo.Map{
		"id":         hold.ID,
		"book_id":    hold.BookID,
		"expires_at": hold.ExpiresAt,
		"status":     hold.Status,
	})
}

// CancelHold handles DELETE /v1/my/holds/:id. Only the owner may cancel
// and only while the hold is still active.
func (h *StudentHandler) CancelHold(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid hold id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Holds.Cancel(ctx, id, uid); err != nil {
		switch err {
		case repository.ErrHoldNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "hold not found"})
		case repository.ErrForbidden:
			return c.JSON(http.StatusForbidden, echo.Map{"error": "not your hold"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "hold is no longer active"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "cancel failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// MyHolds handles GET /v1/my/holds.
func (h *StudentHandler) MyHolds(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Holds.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"holds": list})
}

type requestReq struct {
	Title  string `json:"title"`
	Author string `json:"author"`
	Note   string `json:"note"`
}

// CreateRequest handles POST /v1/my/book-requests: ask the library to
// acquire a title not in the catalog.
func (h *StudentHandler) CreateRequest(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req requestReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "title required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	br := model.BookRequest{
		UserID: uid,
		Title:  req.Title,
		Author: strings.TrimSpace(req.Author),
		Note:   strings.TrimSpace(req.Note),
	}
	if err := h.Requests.Create(ctx, &br); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create request failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id":     br.ID,
		"title":  br.Title,
		"author": br.Author,
		"note":   br.Note,
		"status": br.Status,
	})
}

// MyRequests handles GET /v1/my/book-requests.
func (h *StudentHandler) MyRequests(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Requests.ListByUser(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"requests": list})
}

type rateReq struct {
	Rating uint8  `json:"rating"`
	Review string `json:"review"`
}

// RateBook handles PUT /v1/my/books/:id/rating. Only users who have
// borrowed the book at least once may rate it; re-rating replaces the
// previous value.
func (h *StudentHandler) RateBook(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	bookID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	var req rateReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Rating < 1 || req.Rating > 5 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "rating must be 1..5"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Books.GetByID(ctx, bookID); err != nil {
		if err == repository.ErrBookNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	borrowed, err := h.Borrows.HasEverBorrowed(ctx, uid, bookID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !borrowed {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only borrowers may rate this book"})
	}
	if err := h.Ratings.Upsert(ctx, bookID, uid, req.Rating, strings.TrimSpace(req.Review)); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "save rating failed"})
	}
	d, err := h.Ratings.GetForUser(ctx, bookID, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, d)
}

// MyNotifications handles GET /v1/my/notifications?unread=1.
func (h *StudentHandler) MyNotifications(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	unreadOnly := false
	if v := c.QueryParam("unread"); v == "1" || v == "true" {
		unreadOnly = true
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	list, err := h.Notifications.ListByUser(ctx, uid, unreadOnly)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]echo.Map, 0, len(list))
	for _, n := range list {
		out = append(out, echo.Map{
			"id":         n.ID,
			"message":    n.Message,
			"type":       n.Type,
			"is_read":    n.IsRead,
			"created_at": n.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"notifications": out})
}

// MarkNotificationRead handles POST /v1/my/notifications/:id/read.
// Idempotent; re-reading an already-read notification is fine.
func (h *StudentHandler) MarkNotificationRead(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Notifications.MarkRead(ctx, id, uid); err != nil {
		if err == repository.ErrNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// MarkAllNotificationsRead handles POST /v1/my/notifications/read-all.
func (h *StudentHandler) MarkAllNotificationsRead(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Notifications.MarkAllRead(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"marked": n})
}
