package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRefresh(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	future := time.Now().UTC().Add(time.Hour)
	past := time.Now().UTC().Add(-time.Hour)
	cols := []string{"user_id", "expires_at", "revoked_at"}

	// live token
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs("h-live").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(11, future, nil))
	// revoked token
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs("h-revoked").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(11, future, past))
	// expired token
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs("h-expired").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(11, past, nil))
	// unknown hash
	mock.ExpectQuery("SELECT user_id, expires_at, revoked_at FROM refresh_tokens").
		WithArgs("h-unknown").
		WillReturnRows(sqlmock.NewRows(cols))

	repo := NewTokenRepo(db)

	uid, err := repo.ValidateRefresh(context.Background(), "h-live")
	require.NoError(t, err)
	assert.Equal(t, uint64(11), uid)

	for _, hash := range []string{"h-revoked", "h-expired", "h-unknown"} {
		_, err = repo.ValidateRefresh(context.Background(), hash)
		assert.ErrorIs(t, err, ErrRefreshInvalid, hash)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRevokeAllForUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP\\(\\) WHERE user_id=").
		WithArgs(uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := NewTokenRepo(db)
	require.NoError(t, repo.RevokeAllForUser(context.Background(), 11))
	assert.NoError(t, mock.ExpectationsWereMet())
}
