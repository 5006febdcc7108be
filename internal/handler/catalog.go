package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-api/internal/repository"
)

// CatalogHandler serves the public, read-only catalog endpoints. No auth
// required; responses are cache- and rate-limit friendly.
type CatalogHandler struct {
	Books   *repository.BookRepo
	Ratings *repository.RatingRepo
}

func NewCatalogHandler(b *repository.BookRepo, rt *repository.RatingRepo) *CatalogHandler {
	return &CatalogHandler{Books: b, Ratings: rt}
}

// ListBooks handles GET /books?q=&category=&author=&available=&page=&page_size=.
func (h *CatalogHandler) ListBooks(c echo.Context) error {
	q := repository.BookSearchQuery{
		Q:        c.QueryParam("q"),
		Category: c.QueryParam("category"),
		Author:   c.QueryParam("author"),
	}
	if v := c.QueryParam("available"); v == "1" || v == "true" {
		q.OnlyAvailable = true
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rows, total, err := h.Books.Search(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "search failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"books": rows,
		"total": total,
	})
}

// GetBook handles GET /books/:id.
func (h *CatalogHandler) GetBook(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	d, err := h.Books.GetDetail(ctx, id)
	if err != nil {
		if err == repository.ErrBookNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, d)
}

// ListRatings handles GET /books/:id/ratings.
func (h *CatalogHandler) ListRatings(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Books.GetByID(ctx, id); err != nil {
		if err == repository.ErrBookNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	list, err := h.Ratings.ListByBook(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"ratings": list})
}

// Categories handles GET /books/categories.
func (h *CatalogHandler) Categories(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	cats, err := h.Books.Categories(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"categories": cats})
}
