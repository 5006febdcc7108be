package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinesBetweenFormatsCalendarDays(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// With parseTime enabled the driver hands DATE() back as time.Time.
	mock.ExpectQuery("SELECT DATE\\(returned_at\\)").
		WithArgs("2025-03-01 00:00:00", "2025-04-01 00:00:00").
		WillReturnRows(sqlmock.NewRows([]string{"day", "fines"}).
			AddRow(time.Date(2025, 3, 20, 0, 0, 0, 0, time.UTC), 150).
			AddRow(time.Date(2025, 3, 22, 0, 0, 0, 0, time.UTC), 300))

	repo := NewReportRepo(db)
	buckets, err := repo.FinesBetween(context.Background(),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, "2025-03-20", buckets[0].Day)
	assert.Equal(t, int64(150), buckets[0].FinesCents)
	assert.Equal(t, "2025-03-22", buckets[1].Day)
	assert.Equal(t, int64(300), buckets[1].FinesCents)
	assert.NoError(t, mock.ExpectationsWereMet())
}
