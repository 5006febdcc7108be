package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openshelf/library-api/internal/model"
)

func bookColumns() []string {
	return []string{"id", "title", "author", "isbn", "category", "publication_year",
		"description", "cover_url", "quantity", "available", "added_by",
		"created_at", "updated_at"}
}

func TestBookCreateDuplicateISBN(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO books").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry '978' for key 'isbn'"))

	repo := NewBookRepo(db)
	b := model.Book{Title: "Dune", Author: "Herbert", ISBN: "978", Quantity: 2, AddedBy: 1}
	assert.ErrorIs(t, repo.Create(context.Background(), &b), ErrISBNExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementAvailableTxConflictWhenEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	// available = 0: the guarded UPDATE touches no rows.
	mock.ExpectExec("UPDATE books SET available = available - 1").
		WithArgs(uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := db.Begin()
	require.NoError(t, err)

	repo := NewBookRepo(db)
	assert.ErrorIs(t, repo.DecrementAvailableTx(context.Background(), tx, 3), ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookUpdateRejectsQuantityBelowBorrowed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	// quantity 5, available 2: three copies are out on loan.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM books WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(bookColumns()).
			AddRow(9, "Dune", "Herbert", "978", "SCIFI", 1965, "", "", 5, 2, 1, now, now))
	mock.ExpectRollback()

	repo := NewBookRepo(db)
	b := model.Book{ID: 9, Title: "Dune", Author: "Herbert", ISBN: "978", Quantity: 2}
	assert.ErrorIs(t, repo.Update(context.Background(), &b), ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookUpdateShiftsAvailableWithQuantity(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	// quantity 5, available 2 -> raising quantity to 8 leaves 6 on the shelf.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT (.+) FROM books WHERE id=(.+) FOR UPDATE").
		WithArgs(uint64(9)).
		WillReturnRows(sqlmock.NewRows(bookColumns()).
			AddRow(9, "Dune", "Herbert", "978", "SCIFI", 1965, "", "", 5, 2, 1, now, now))
	mock.ExpectExec("UPDATE books SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewBookRepo(db)
	b := model.Book{ID: 9, Title: "Dune", Author: "Herbert", ISBN: "978", Quantity: 8}
	require.NoError(t, repo.Update(context.Background(), &b))
	assert.Equal(t, uint32(6), b.Available)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookDeleteBlockedByOpenLoans(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT(.+) FROM borrowings").
		WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	repo := NewBookRepo(db)
	assert.ErrorIs(t, repo.Delete(context.Background(), 4), ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}
