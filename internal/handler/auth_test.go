package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"

	"github.com/openshelf/library-api/internal/config"
	"github.com/openshelf/library-api/internal/model"
	"github.com/openshelf/library-api/internal/repository"
	"github.com/openshelf/library-api/internal/utils"
)

func newAuthHandler(t *testing.T) (*AuthHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := config.Config{
		JWTSecret:      "test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
	}
	return NewAuthHandler(cfg, repository.NewUserRepo(db), repository.NewTokenRepo(db)), mock
}

func postJSON(t *testing.T, h echo.HandlerFunc, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	require.NoError(t, h(e.NewContext(req, rec)))
	return rec
}

func userRow(t *testing.T, password string, active bool) *sqlmock.Rows {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	now := time.Now()
	return sqlmock.
		NewRows([]string{"id", "email", "password_hash", "full_name", "role",
			"is_active", "created_at", "updated_at"}).
		AddRow(5, "ada@uni.edu", hash, "Ada L", model.RoleStudent, active, now, now)
}

func TestRegisterRequiresEmailAndPassword(t *testing.T) {
	h, _ := newAuthHandler(t)
	rec := postJSON(t, h.Register, `{"email":"","password":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	h, mock := newAuthHandler(t)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WithArgs("ghost@uni.edu").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	rec := postJSON(t, h.Login, `{"email":"ghost@uni.edu","password":"pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	h, mock := newAuthHandler(t)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WithArgs("ada@uni.edu").
		WillReturnRows(userRow(t, "correct-pw", true))

	rec := postJSON(t, h.Login, `{"email":"ada@uni.edu","password":"wrong-pw"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	h, mock := newAuthHandler(t)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WithArgs("ada@uni.edu").
		WillReturnRows(userRow(t, "pw", false))

	rec := postJSON(t, h.Login, `{"email":"ada@uni.edu","password":"pw"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginIssuesTokenPair(t *testing.T) {
	h, mock := newAuthHandler(t)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE email=").
		WithArgs("ada@uni.edu").
		WillReturnRows(userRow(t, "pw", true))
	mock.ExpectExec("INSERT INTO refresh_tokens").
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := postJSON(t, h.Login, `{"email":"ada@uni.edu","password":"pw"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		User struct {
			ID   uint64 `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
		Access struct {
			Token string `json:"token"`
		} `json:"access"`
		Refresh struct {
			Token string `json:"token"`
		} `json:"refresh"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(5), resp.User.ID)
	assert.Equal(t, model.RoleStudent, resp.User.Role)
	assert.NotEmpty(t, resp.Access.Token)
	assert.Len(t, resp.Refresh.Token, 96)
	assert.NoError(t, mock.ExpectationsWereMet())
}
