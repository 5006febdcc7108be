package repository

import (
	"context"
	"errors"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"

	"github.com/openshelf/library-api/internal/model"
)

func TestUserCreateNormalizesEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WithArgs("ada@uni.edu", sqlmock.AnyArg(), "Ada L", model.RoleStudent).
		WillReturnResult(sqlmock.NewResult(12, 1))

	repo := NewUserRepo(db)
	id, err := repo.Create(context.Background(), "  Ada@Uni.EDU ", "pw", "Ada L",
		model.RoleStudent, bcrypt.MinCost)
	require.NoError(t, err)
	assert.Equal(t, uint64(12), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserCreateDuplicateEmail(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'ada@uni.edu'"))

	repo := NewUserRepo(db)
	_, err = repo.Create(context.Background(), "ada@uni.edu", "pw", "Ada L",
		model.RoleStudent, bcrypt.MinCost)
	assert.ErrorIs(t, err, ErrEmailExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}
