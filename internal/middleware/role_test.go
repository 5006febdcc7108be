package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roleRequest(t *testing.T, role interface{}, allowed ...string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if role != nil {
		c.Set("role", role)
	}
	h := RequireRole(allowed...)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec
}

func TestRequireRoleAllows(t *testing.T) {
	rec := roleRequest(t, "LIBRARIAN", "ADMIN", "LIBRARIAN")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleRejectsWrongRole(t *testing.T) {
	rec := roleRequest(t, "STUDENT", "ADMIN", "LIBRARIAN")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleRejectsMissingRole(t *testing.T) {
	rec := roleRequest(t, nil, "ADMIN")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequireRoleRejectsNonStringRole(t *testing.T) {
	rec := roleRequest(t, 42, "ADMIN")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
