package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritmo-app/ritmo-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestInstallmentRepositoryListByEnrollment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstallmentRepository(db)

	due := time.Date(2025, time.July, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "enrollment_id", "amount", "due_date", "status", "payment_date", "created_at"}).
		AddRow("inst-1", "enr-1", int64(18000), due, "PENDING", nil, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, enrollment_id, amount, due_date, status, payment_date, created_at\n        FROM installments WHERE enrollment_id = $1 ORDER BY due_date")).
		WithArgs("enr-1").
		WillReturnRows(rows)

	installments, err := repo.ListByEnrollment(context.Background(), "enr-1")
	require.NoError(t, err)
	require.Len(t, installments, 1)
	assert.Equal(t, int64(18000), installments[0].Amount)
	assert.Equal(t, models.InstallmentStatusPending, installments[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstallmentRepositoryMarkPaid(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstallmentRepository(db)

	paidAt := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE installments SET status = $2, payment_date = $3 WHERE id = $1")).
		WithArgs("inst-1", models.InstallmentStatusPaid, paidAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkPaid(context.Background(), db, "inst-1", paidAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstallmentRepositoryCancelPendingSkipsPaid(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstallmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE installments SET status = $2 WHERE enrollment_id = $1 AND status = $3")).
		WithArgs("enr-1", models.InstallmentStatusCanceled, models.InstallmentStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 3))

	err := repo.CancelPending(context.Background(), db, "enr-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInstallmentRepositoryBulkCreate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewInstallmentRepository(db)

	mock.ExpectExec("INSERT INTO installments").
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	installments := []models.Installment{{
		EnrollmentID: "enr-1",
		Amount:       18000,
		DueDate:      time.Date(2025, time.July, 5, 0, 0, 0, 0, time.UTC),
	}}
	err := repo.BulkCreate(context.Background(), db, installments)
	require.NoError(t, err)
	assert.NotEmpty(t, installments[0].ID)
	assert.Equal(t, models.InstallmentStatusPending, installments[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
