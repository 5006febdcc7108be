package handler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/openshelf/library-api/internal/model"
	"github.com/openshelf/library-api/internal/repository"
)

func TestPreviewFineOnOpenOverdueLoan(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	d := repository.BorrowDetail{
		Status: model.BorrowStatusBorrowed,
		DueAt:  now.AddDate(0, 0, -3),
	}
	previewFine(&d, now, 50)

	assert.Equal(t, model.BorrowStatusOverdue, d.Status)
	assert.Equal(t, int64(150), d.FineCents)
	assert.True(t, d.FineIsPreview)
}

func TestPreviewFineLeavesOpenLoanBeforeDue(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	d := repository.BorrowDetail{
		Status: model.BorrowStatusBorrowed,
		DueAt:  now.AddDate(0, 0, 3),
	}
	previewFine(&d, now, 50)

	assert.Equal(t, model.BorrowStatusBorrowed, d.Status)
	assert.Zero(t, d.FineCents)
	assert.False(t, d.FineIsPreview)
}

func TestPreviewFineLeavesClosedLoanAlone(t *testing.T) {
	now := time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC)
	returned := now.AddDate(0, 0, -1)
	d := repository.BorrowDetail{
		Status:     model.BorrowStatusReturned,
		DueAt:      now.AddDate(0, 0, -5),
		ReturnedAt: &returned,
		FineCents:  200, // persisted at return, must not be recomputed
	}
	previewFine(&d, now, 50)

	assert.Equal(t, model.BorrowStatusReturned, d.Status)
	assert.Equal(t, int64(200), d.FineCents)
	assert.False(t, d.FineIsPreview)
}
