package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ritmo-app/ritmo-api/internal/models"
)

// LedgerRepository handles persistence of cash-flow ledger entries.
type LedgerRepository struct {
	db *sqlx.DB
}

// NewLedgerRepository constructs the repository.
func NewLedgerRepository(db *sqlx.DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

const ledgerColumns = `id, type, description, amount, date, status, installment_id, created_at, updated_at`

// List returns ledger entries filtered by the provided criteria.
func (r *LedgerRepository) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, int, error) {
	base := "FROM ledger_entries"
	var conditions []string
	var args []interface{}

	if filter.Type != "" {
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)+1))
		args = append(args, filter.Type)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Month > 0 {
		conditions = append(conditions, fmt.Sprintf("EXTRACT(MONTH FROM date) = $%d", len(args)+1))
		args = append(args, filter.Month)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM date) = $%d", len(args)+1))
		args = append(args, filter.Year)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY date DESC LIMIT %d OFFSET %d",
		ledgerColumns, base+clause, size, offset)

	var entries []models.LedgerEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list ledger entries: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}
	return entries, total, nil
}

// FindByID returns a ledger entry by its ID.
func (r *LedgerRepository) FindByID(ctx context.Context, id string) (*models.LedgerEntry, error) {
	query := fmt.Sprintf("SELECT %s FROM ledger_entries WHERE id = $1", ledgerColumns)
	var entry models.LedgerEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Create persists a manual ledger entry.
func (r *LedgerRepository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.CreateTx(ctx, r.db, entry)
}

// CreateTx persists a ledger entry inside the caller's transaction.
func (r *LedgerRepository) CreateTx(ctx context.Context, exec sqlx.ExtContext, entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = models.LedgerStatusPending
	}
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	const query = `INSERT INTO ledger_entries (id, type, description, amount, date, status, installment_id, created_at, updated_at)
        VALUES (:id, :type, :description, :amount, :date, :status, :installment_id, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, entry); err != nil {
		return fmt.Errorf("create ledger entry: %w", err)
	}
	return nil
}

// BulkCreate inserts mirrored installment entries inside the caller's transaction.
func (r *LedgerRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, entries []models.LedgerEntry) error {
	for i := range entries {
		if err := r.CreateTx(ctx, exec, &entries[i]); err != nil {
			return err
		}
	}
	return nil
}

// Update persists changes to an existing ledger entry.
func (r *LedgerRepository) Update(ctx context.Context, entry *models.LedgerEntry) error {
	entry.UpdatedAt = time.Now().UTC()
	const query = `UPDATE ledger_entries SET type = :type, description = :description, amount = :amount, date = :date,
        status = :status, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("update ledger entry: %w", err)
	}
	return nil
}

// Delete removes a ledger entry row.
func (r *LedgerRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM ledger_entries WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete ledger entry: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// SettleByInstallment marks the entry linked to an installment as settled
// inside the caller's transaction.
func (r *LedgerRepository) SettleByInstallment(ctx context.Context, exec sqlx.ExtContext, installmentID string, settledAt time.Time) error {
	const query = `UPDATE ledger_entries SET status = $2, date = $3, updated_at = $4 WHERE installment_id = $1 AND status = $5`
	if _, err := exec.ExecContext(ctx, query, installmentID, models.LedgerStatusSettled, settledAt, time.Now().UTC(), models.LedgerStatusPending); err != nil {
		return fmt.Errorf("settle ledger entry: %w", err)
	}
	return nil
}

// RemovePendingByEnrollment drops pending entries mirroring an enrollment's
// installments inside the caller's transaction. Settled entries stay.
func (r *LedgerRepository) RemovePendingByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) error {
	const query = `DELETE FROM ledger_entries USING installments i
        WHERE ledger_entries.installment_id = i.id AND i.enrollment_id = $1 AND ledger_entries.status = $2`
	if _, err := exec.ExecContext(ctx, query, enrollmentID, models.LedgerStatusPending); err != nil {
		return fmt.Errorf("remove pending ledger entries: %w", err)
	}
	return nil
}

// SumByMonth totals entries of a type and status within a month.
func (r *LedgerRepository) SumByMonth(ctx context.Context, entryType models.LedgerType, status models.LedgerStatus, month, year int) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM ledger_entries
        WHERE type = $1 AND status = $2 AND EXTRACT(MONTH FROM date) = $3 AND EXTRACT(YEAR FROM date) = $4`
	var total int64
	if err := r.db.GetContext(ctx, &total, query, entryType, status, month, year); err != nil {
		return 0, fmt.Errorf("sum ledger entries: %w", err)
	}
	return total, nil
}
