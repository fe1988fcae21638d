package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ritmo-app/ritmo-api/internal/models"
)

// InstallmentRepository handles persistence of tuition installments.
type InstallmentRepository struct {
	db *sqlx.DB
}

// NewInstallmentRepository constructs the repository.
func NewInstallmentRepository(db *sqlx.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

// List returns installments with student context filtered by the provided criteria.
func (r *InstallmentRepository) List(ctx context.Context, filter models.InstallmentFilter) ([]models.InstallmentDetail, int, error) {
	base := `FROM installments i
LEFT JOIN enrollments e ON e.id = i.enrollment_id
LEFT JOIN students s ON s.id = e.student_id`
	var conditions []string
	var args []interface{}

	if filter.EnrollmentID != "" {
		conditions = append(conditions, fmt.Sprintf("i.enrollment_id = $%d", len(args)+1))
		args = append(args, filter.EnrollmentID)
	}
	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("i.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Month > 0 {
		conditions = append(conditions, fmt.Sprintf("EXTRACT(MONTH FROM i.due_date) = $%d", len(args)+1))
		args = append(args, filter.Month)
	}
	if filter.Year > 0 {
		conditions = append(conditions, fmt.Sprintf("EXTRACT(YEAR FROM i.due_date) = $%d", len(args)+1))
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

	query := fmt.Sprintf(`SELECT i.id, i.enrollment_id, i.amount, i.due_date, i.status, i.payment_date, i.created_at,
        e.student_id AS student_id, s.full_name AS student_name
        %s ORDER BY i.due_date LIMIT %d OFFSET %d`, base+clause, size, offset)

	var installments []models.InstallmentDetail
	if err := r.db.SelectContext(ctx, &installments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list installments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count installments: %w", err)
	}
	return installments, total, nil
}

// ListByEnrollment returns an enrollment's installments ordered by due date.
func (r *InstallmentRepository) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Installment, error) {
	const query = `SELECT id, enrollment_id, amount, due_date, status, payment_date, created_at
        FROM installments WHERE enrollment_id = $1 ORDER BY due_date`
	var installments []models.Installment
	if err := r.db.SelectContext(ctx, &installments, query, enrollmentID); err != nil {
		return nil, fmt.Errorf("list enrollment installments: %w", err)
	}
	return installments, nil
}

// FindByID returns an installment by its ID.
func (r *InstallmentRepository) FindByID(ctx context.Context, id string) (*models.Installment, error) {
	const query = `SELECT id, enrollment_id, amount, due_date, status, payment_date, created_at FROM installments WHERE id = $1`
	var installment models.Installment
	if err := r.db.GetContext(ctx, &installment, query, id); err != nil {
		return nil, err
	}
	return &installment, nil
}

// BulkCreate inserts a batch of installments inside the caller's transaction.
func (r *InstallmentRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, installments []models.Installment) error {
	now := time.Now().UTC()
	for i := range installments {
		if installments[i].ID == "" {
			installments[i].ID = uuid.NewString()
		}
		if installments[i].Status == "" {
			installments[i].Status = models.InstallmentStatusPending
		}
		installments[i].CreatedAt = now
		const query = `INSERT INTO installments (id, enrollment_id, amount, due_date, status, payment_date, created_at)
            VALUES (:id, :enrollment_id, :amount, :due_date, :status, :payment_date, :created_at)`
		if _, err := sqlx.NamedExecContext(ctx, exec, query, installments[i]); err != nil {
			return fmt.Errorf("insert installment: %w", err)
		}
	}
	return nil
}

// MarkPaid flips a pending installment to paid inside the caller's transaction.
func (r *InstallmentRepository) MarkPaid(ctx context.Context, exec sqlx.ExtContext, id string, paidAt time.Time) error {
	const query = `UPDATE installments SET status = $2, payment_date = $3 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, models.InstallmentStatusPaid, paidAt); err != nil {
		return fmt.Errorf("mark installment paid: %w", err)
	}
	return nil
}

// CancelPending cancels an enrollment's pending installments inside the
// caller's transaction. Paid installments are left untouched.
func (r *InstallmentRepository) CancelPending(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) error {
	const query = `UPDATE installments SET status = $2 WHERE enrollment_id = $1 AND status = $3`
	if _, err := exec.ExecContext(ctx, query, enrollmentID, models.InstallmentStatusCanceled, models.InstallmentStatusPending); err != nil {
		return fmt.Errorf("cancel pending installments: %w", err)
	}
	return nil
}
