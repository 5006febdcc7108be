package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/openshelf/library-api/internal/model"
	"github.com/openshelf/library-api/internal/repository"
)

// AdminHandler covers user administration and the reporting endpoints.
type AdminHandler struct {
	Users   *repository.UserRepo
	Tokens  *repository.TokenRepo
	Reports *repository.ReportRepo
}

func NewAdminHandler(u *repository.UserRepo, t *repository.TokenRepo, rp *repository.ReportRepo) *AdminHandler {
	return &AdminHandler{Users: u, Tokens: t, Reports: rp}
}

type adminUserResp struct {
	ID        uint64    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toAdminUserResp(u model.User) adminUserResp {
	return adminUserResp{ID: u.ID, Email: u.Email, FullName: u.FullName,
		Role: u.Role, IsActive: u.IsActive, CreatedAt: u.CreatedAt}
}

// ListUsers handles GET /v1/users?role=&q=&page=&page_size=.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	q := repository.UserListQuery{
		Role: c.QueryParam("role"),
		Q:    c.QueryParam("q"),
	}
	q.Page, _ = strconv.Atoi(c.QueryParam("page"))
	q.PageSize, _ = strconv.Atoi(c.QueryParam("page_size"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, total, err := h.Users.List(ctx, q)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]adminUserResp, 0, len(users))
	for _, u := range users {
		out = append(out, toAdminUserResp(u))
	}
	return c.JSON(http.StatusOK, echo.Map{"users": out, "total": total})
}

type roleReq struct {
	Role string `json:"role"`
}

// UpdateRole handles PUT /v1/users/:id/role. The new role takes effect on
// the user's next access token; outstanding tokens keep their old claim
// until they expire.
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := strings.ToUpper(strings.TrimSpace(req.Role))
	switch role {
	case model.RoleAdmin, model.RoleLibrarian, model.RoleStudent:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err := h.Users.UpdateRole(ctx, id, role); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	u.Role = role
	return c.JSON(http.StatusOK, toAdminUserResp(u))
}

type activeReq struct {
	Active *bool `json:"active"`
}

// SetActive handles PUT /v1/users/:id/active. Deactivation also revokes
// every refresh token the user holds so the account is locked out as soon
// as the current access token expires.
func (h *AdminHandler) SetActive(c echo.Context) error {
	callerID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	var req activeReq
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "active required"})
	}
	if id == callerID && !*req.Active {
		return c.JSON(http.StatusConflict, echo.Map{"error": "cannot deactivate yourself"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err := h.Users.SetActive(ctx, id, *req.Active); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if !*req.Active {
		if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "revoke sessions failed"})
		}
	}
	u.IsActive = *req.Active
	return c.JSON(http.StatusOK, toAdminUserResp(u))
}

// ReportOverview handles GET /v1/reports/overview.
func (h *AdminHandler) ReportOverview(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	o, err := h.Reports.Overview(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, o)
}

// TopBooks handles GET /v1/reports/top-books?limit=.
func (h *AdminHandler) TopBooks(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	list, err := h.Reports.TopBooks(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"top_books": list})
}

// FinesReport handles GET /v1/reports/fines?from=YYYY-MM-DD&to=YYYY-MM-DD.
// Both bounds are inclusive calendar days; the default window is the last
// 30 days.
func (h *AdminHandler) FinesReport(c echo.Context) error {
	now := time.Now().UTC()
	from := now.AddDate(0, 0, -30)
	to := now
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid from date"})
		}
		from = t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid to date"})
		}
		to = t
	}
	if to.Before(from) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "to before from"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	// Repo window is [from, to); push `to` past the end of its day.
	buckets, err := h.Reports.FinesBetween(ctx,
		from.Truncate(24*time.Hour),
		to.Truncate(24*time.Hour).AddDate(0, 0, 1))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"fines": buckets})
}
