package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-api/internal/model"
	"github.com/openshelf/library-api/internal/repository"
)

// BookHandler covers librarian catalog management: create, update and
// delete. Reads live on the public CatalogHandler.
type BookHandler struct {
	Books *repository.BookRepo
}

func NewBookHandler(b *repository.BookRepo) *BookHandler {
	return &BookHandler{Books: b}
}

type bookReq struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Category        string `json:"category"`
	PublicationYear uint16 `json:"publication_year"`
	Description     string `json:"description"`
	CoverURL        string `json:"cover_url"`
	Quantity        uint32 `json:"quantity"`
}

func (r *bookReq) validate() string {
	r.Title = strings.TrimSpace(r.Title)
	r.Author = strings.TrimSpace(r.Author)
	r.ISBN = strings.TrimSpace(r.ISBN)
	r.Category = strings.TrimSpace(r.Category)
	switch {
	case r.Title == "":
		return "title required"
	case r.Author == "":
		return "author required"
	case r.ISBN == "":
		return "isbn required"
	case r.Quantity == 0:
		return "quantity must be at least 1"
	}
	return ""
}

type bookResp struct {
	ID              uint64 `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	ISBN            string `json:"isbn"`
	Category        string `json:"category"`
	PublicationYear uint16 `json:"publication_year"`
	Description     string `json:"description,omitempty"`
	CoverURL        string `json:"cover_url,omitempty"`
	Quantity        uint32 `json:"quantity"`
	Available       uint32 `json:"available"`
}

func toBookResp(b model.Book) bookResp {
	return bookResp{
		ID: b.ID, Title: b.Title, Author: b.Author, ISBN: b.ISBN,
		Category: b.Category, PublicationYear: b.PublicationYear,
		Description: b.Description, CoverURL: b.CoverURL,
		Quantity: b.Quantity, Available: b.Available,
	}
}

// Create handles POST /v1/books. Available starts equal to quantity.
func (h *BookHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b := model.Book{
		Title: req.Title, Author: req.Author, ISBN: req.ISBN,
		Category: req.Category, PublicationYear: req.PublicationYear,
		Description: req.Description, CoverURL: req.CoverURL,
		Quantity: req.Quantity, AddedBy: uid,
	}
	if err := h.Books.Create(ctx, &b); err != nil {
		if err == repository.ErrISBNExists {
			return c.JSON(http.StatusConflict, echo.Map{"error": "isbn already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create failed"})
	}
	return c.JSON(http.StatusCreated, toBookResp(b))
}

// Update handles PUT /v1/books/:id. Quantity changes move `available` by
// the same delta; shrinking below the number of borrowed copies is a 409.
func (h *BookHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	var req bookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if msg := req.validate(); msg != "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	b := model.Book{
		ID: id, Title: req.Title, Author: req.Author, ISBN: req.ISBN,
		Category: req.Category, PublicationYear: req.PublicationYear,
		Description: req.Description, CoverURL: req.CoverURL,
		Quantity: req.Quantity,
	}
	if err := h.Books.Update(ctx, &b); err != nil {
		switch err {
		case repository.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "quantity below borrowed copies"})
		case repository.ErrISBNExists:
			return c.JSON(http.StatusConflict, echo.Map{"error": "isbn already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, toBookResp(b))
}

// Delete handles DELETE /v1/books/:id. Books with open loans cannot go.
func (h *BookHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid book id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Books.Delete(ctx, id); err != nil {
		switch err {
		case repository.ErrBookNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"error": "book not found"})
		case repository.ErrConflict:
			return c.JSON(http.StatusConflict, echo.Map{"error": "book has open borrowings"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
