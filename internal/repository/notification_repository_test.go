package repository

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkReadIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// UPDATE touches nothing because the row is already read; the follow-up
	// SELECT confirms it exists, so the call still succeeds.
	mock.ExpectExec("UPDATE notifications SET is_read = 1").
		WithArgs(uint64(7), uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT is_read FROM notifications").
		WithArgs(uint64(7), uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"is_read"}).AddRow(true))

	repo := NewNotificationRepo(db)
	assert.NoError(t, repo.MarkRead(context.Background(), 7, 5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE notifications SET is_read = 1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT is_read FROM notifications").
		WillReturnError(sql.ErrNoRows)

	repo := NewNotificationRepo(db)
	assert.ErrorIs(t, repo.MarkRead(context.Background(), 99, 5), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
