package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-api/internal/config"
	"github.com/openshelf/library-api/internal/model"
	"github.com/openshelf/library-api/internal/queue"
	"github.com/openshelf/library-api/internal/repository"
	queue_publisher "github.com/openshelf/library-api/internal/service"
)

// BorrowHandler orchestrates loan issue and return. Both flows run in a
// single transaction that locks the book row (and for returns, the loan
// row first), so the availability counter and the borrowing rows cannot
// drift apart even when two librarians race for the last copy.
type BorrowHandler struct {
	Cfg     config.Config
	Borrows *repository.BorrowRepo
	Books   *repository.BookRepo
	Holds   *repository.HoldRepo
	Users   *repository.UserRepo
}

func NewBorrowHandler(cfg config.Config, br *repository.BorrowRepo, b *repository.BookRepo,
	h *repository.HoldRepo, u *repository.UserRepo) *BorrowHandler {
	return &BorrowHandler{Cfg: cfg, Borrows: br, Books: b, Holds: h, Users: u}
}

type issueReq struct {
	BookID uint64 `json:"book_id"`
	UserID uint64 `json:"user_id"`
}

// Issue handles POST /v1/borrowings: a librarian checks a copy out to a
// user. Inside one transaction: lock the book, lazily expire holds,
// enforce the per-user limits, take a copy off the shelf, insert the loan
// and fulfil the borrower's hold if one exists.
func (h *BorrowHandler) Issue(c echo.Context) error {
	issuerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req issueReq
	if err := c.Bind(&req); err != nil || req.BookID == 0 || req.UserID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "book_id and user_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	borrower, err := h.Users.GetByID(ctx, req.UserID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if !borrower.IsActive {
		return c.JSON(http.StatusConflict, echo.Map{"error": "user account is deactivated"})
	}

	tx, err := h.Borrows.DB().BeginTx(ctx, nil)
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
	// Lapsed holds must not count against today's availability decision.
	if err := h.Holds.ExpireForBookTx(ctx, tx, book.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "expire holds failed"})
	}

	open, err := h.Borrows.HasOpenTx(ctx, tx, req.UserID, req.BookID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if open {
		return c.JSON(http.StatusConflict, echo.Map{"error": "user already has this book on loan"})
	}
	n, err := h.Borrows.CountOpenByUserTx(ctx, tx, req.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if n >= h.Cfg.MaxOpenLoans {
		return c.JSON(http.StatusConflict, echo.Map{"error": "open loan limit reached"})
	}
	if book.Available == 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "no copies available"})
	}
	if err := h.Books.DecrementAvailableTx(ctx, tx, book.ID); err != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "no copies available"})
	}

	now := time.Now().UTC()
	loan := model.Borrowing{
		BookID:     book.ID,
		UserID:     req.UserID,
		IssuedBy:   issuerID,
		BorrowedAt: now,
		DueAt:      now.AddDate(0, 0, h.Cfg.LoanPeriodDays),
	}
	if err := h.Borrows.CreateTx(ctx, tx, &loan); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create borrowing failed"})
	}
	// Issuing to a holder consumes the hold.
	if err := h.Holds.FulfillTx(ctx, tx, book.ID, req.UserID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "fulfil hold failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	// Best effort; the publisher logs its own failures.
	_ = queue_publisher.PublishLibraryEvent(ctx, queue.LibraryEvent{
		Kind:        queue.KindLoanIssued,
		UserID:      loan.UserID,
		BookID:      book.ID,
		BookTitle:   book.Title,
		BorrowingID: loan.ID,
		DueAt:       loan.DueAt.Format("2006-01-02"),
		OccurredAt:  now.Format(time.RFC3339),
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"id":          loan.ID,
		"book_id":     loan.BookID,
		"user_id":     loan.UserID,
		"issued_by":   loan.IssuedBy,
		"borrowed_at": loan.BorrowedAt,
		"due_at":      loan.DueAt,
		"status":      loan.Status,
	})
}

// Return handles POST /v1/borrowings/:id/return. The loan row is locked
// before the book row; that order is used everywhere two-row locks occur.
// The fine is computed once here and never changes afterwards.
func (h *BorrowHandler) Return(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid borrowing id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	tx, err := h.Borrows.DB().BeginTx(ctx, nil)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "begin tx failed"})
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	loan, err := h.Borrows.GetForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == repository.ErrLoanNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "borrowing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lock borrowing failed"})
	}
	if loan.ReturnedAt != nil {
		return c.JSON(http.StatusConflict, echo.Map{"error": "borrowing already returned"})
	}

	book, err := h.Books.GetForUpdateTx(ctx, tx, loan.BookID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "lock book failed"})
	}

	now := time.Now().UTC()
	fine := repository.FineCents(loan.DueAt, now, h.Cfg.FinePerDayCents)

	if err := h.Borrows.MarkReturnedTx(ctx, tx, loan.ID, now, fine); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "close borrowing failed"})
	}
	if err := h.Books.IncrementAvailableTx(ctx, tx, book.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "restock failed"})
	}

	// Pick who to tell that a copy is back: the longest-waiting holder.
	if err := h.Holds.ExpireForBookTx(ctx, tx, book.ID); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "expire holds failed"})
	}
	var holderID uint64
	if hold, err := h.Holds.OldestActiveTx(ctx, tx, book.ID); err == nil {
		holderID = hold.UserID
	} else if err != repository.ErrHoldNotFound {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query holds failed"})
	}

	if err := tx.Commit(); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "commit failed"})
	}
	committed = true

	occurred := now.Format(time.RFC3339)
	_ = queue_publisher.PublishLibraryEvent(ctx, queue.LibraryEvent{
		Kind:        queue.KindLoanReturned,
		UserID:      loan.UserID,
		BookID:      book.ID,
		BookTitle:   book.Title,
		BorrowingID: loan.ID,
		FineCents:   fine,
		OccurredAt:  occurred,
	})
	if holderID != 0 {
		_ = queue_publisher.PublishLibraryEvent(ctx, queue.LibraryEvent{
			Kind:       queue.KindBookAvailable,
			UserID:     holderID,
			BookID:     book.ID,
			BookTitle:  book.Title,
			OccurredAt: occurred,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{
		"id":          loan.ID,
		"book_id":     loan.BookID,
		"user_id":     loan.UserID,
		"returned_at": now,
		"fine_cents":  fine,
		"status":      model.BorrowStatusReturned,
	})
}

// List handles GET /v1/borrowings for staff with filters and pagination.
// Open loans past due are reported as OVERDUE with a live fine preview
// even before a sweep persists the status.
func (h *BorrowHandler) List(c echo.Context) error {
	q := repository.BorrowListQuery{
		Status: c.QueryParam("status"),
	}
	q.UserID, _ = strconv.ParseUint(c.QueryParam("user_id"), 10, 64)
	q.BookID, _ = strconv.ParseUint(c.QueryParam("book_id"), 10, 64)
	if v := c.QueryParam("overdue"); v == "1" || v == "true" {
		q.OnlyOverdue = true
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, total, err := h.Borrows.List(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	now := time.Now().UTC()
	for i := range rows {
		previewFine(&rows[i], now, h.Cfg.FinePerDayCents)
	}
	return c.JSON(http.StatusOK, echo.Map{"borrowings": rows, "total": total})
}

// Get handles GET /v1/borrowings/:id for staff.
func (h *BorrowHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid borrowing id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Borrows.GetDetail(ctx, id)
	if err != nil {
		if err == repository.ErrLoanNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "borrowing not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	previewFine(d, time.Now().UTC(), h.Cfg.FinePerDayCents)
	return c.JSON(http.StatusOK, d)
}

// SweepOverdue handles POST /v1/borrowings/sweep-overdue: persists the
// OVERDUE status on open loans past due and emits one notification per
// loan newly flipped. Safe to call repeatedly.
func (h *BorrowHandler) SweepOverdue(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	now := time.Now().UTC()
	swept, err := h.Borrows.SweepOverdue(ctx, now)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "sweep failed"})
	}
	occurred := now.Format(time.RFC3339)
	for _, o := range swept {
		_ = queue_publisher.PublishLibraryEvent(ctx, queue.LibraryEvent{
			Kind:        queue.KindLoanOverdue,
			UserID:      o.UserID,
			BookID:      o.BookID,
			BookTitle:   o.BookTitle,
			BorrowingID: o.ID,
			DueAt:       o.DueAt.Format("2006-01-02"),
			OccurredAt:  occurred,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"swept": len(swept)})
}

// previewFine overlays the derived overdue state on an open loan: status
// OVERDUE and the fine that would be charged if it were returned now.
func previewFine(d *repository.BorrowDetail, now time.Time, ratePerDayCents int) {
	if d.ReturnedAt != nil || !now.After(d.DueAt) {
		return
	}
	d.Status = model.BorrowStatusOverdue
	d.FineCents = repository.FineCents(d.DueAt, now, ratePerDayCents)
	d.FineIsPreview = true
}
