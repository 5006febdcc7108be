package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/library-api/internal/model"
)

func TestDecideApprovesPendingRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectExec("UPDATE book_requests SET status=(.+) WHERE id=(.+) AND status=(.+)").
		WithArgs(model.RequestStatusApproved, uint64(2), uint64(10), model.RequestStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("SELECT r.id, r.user_id, u.email").
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "email", "title", "author",
			"note", "status", "decided_by", "decided_at", "created_at"}).
			AddRow(10, 5, "s@uni.edu", "Dune", "Herbert", "", model.RequestStatusApproved, 2, now, now))

	repo := NewRequestRepo(db)
	d, err := repo.Decide(context.Background(), 10, 2, true)
	require.NoError(t, err)
	assert.Equal(t, model.RequestStatusApproved, d.Status)
	require.NotNil(t, d.DecidedBy)
	assert.Equal(t, uint64(2), *d.DecidedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideAlreadyDecided(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE book_requests SET status=").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM book_requests").
		WithArgs(uint64(10)).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(model.RequestStatusRejected))

	repo := NewRequestRepo(db)
	_, err = repo.Decide(context.Background(), 10, 2, true)
	assert.ErrorIs(t, err, ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecideMissingRequest(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE book_requests SET status=").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM book_requests").
		WithArgs(uint64(99)).
		WillReturnError(sql.ErrNoRows)

	repo := NewRequestRepo(db)
	_, err = repo.Decide(context.Background(), 99, 2, false)
	assert.ErrorIs(t, err, ErrRequestNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
