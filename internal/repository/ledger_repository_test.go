package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritmo-app/ritmo-api/internal/models"
)

func TestLedgerRepositorySettleByInstallment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	settledAt := time.Date(2025, time.July, 10, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE ledger_entries SET status = $2, date = $3, updated_at = $4 WHERE installment_id = $1 AND status = $5")).
		WithArgs("inst-1", models.LedgerStatusSettled, settledAt, sqlmock.AnyArg(), models.LedgerStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SettleByInstallment(context.Background(), db, "inst-1", settledAt)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryRemovePendingByEnrollment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ledger_entries USING installments i\n        WHERE ledger_entries.installment_id = i.id AND i.enrollment_id = $1 AND ledger_entries.status = $2")).
		WithArgs("enr-1", models.LedgerStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 5))

	err := repo.RemovePendingByEnrollment(context.Background(), db, "enr-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositorySumByMonth(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectQuery("SELECT COALESCE").
		WithArgs(models.LedgerTypeIncome, models.LedgerStatusSettled, 7, 2025).
		WillReturnRows(sqlmock.NewRows([]string{"coalesce"}).AddRow(int64(250000)))

	total, err := repo.SumByMonth(context.Background(), models.LedgerTypeIncome, models.LedgerStatusSettled, 7, 2025)
	require.NoError(t, err)
	assert.Equal(t, int64(250000), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ledger_entries WHERE id = $1")).
		WithArgs("led-missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "led-missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLedgerRepositoryCreateDefaultsPendingStatus(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewLedgerRepository(db)

	mock.ExpectExec("INSERT INTO ledger_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.LedgerEntry{
		Type:        models.LedgerTypeIncome,
		Description: "Tuition installment due 2025-07-05",
		Amount:      18000,
		Date:        time.Date(2025, time.July, 5, 0, 0, 0, 0, time.UTC),
	}
	err := repo.CreateTx(context.Background(), db, entry)
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, models.LedgerStatusPending, entry.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
