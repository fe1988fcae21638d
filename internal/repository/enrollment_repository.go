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

// EnrollmentRepository handles persistence of enrollments and their class links.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

const enrollmentColumns = `e.id, e.student_id, e.status, e.tuition, e.discount, e.due_date, e.contract_end_date, e.fee_waiver, e.scholarship, e.created_at, e.updated_at`

// List returns enrollments with student detail filtered by the provided criteria.
func (r *EnrollmentRepository) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	base := `FROM enrollments e
LEFT JOIN students s ON s.id = e.student_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("e.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("e.id IN (SELECT enrollment_id FROM enrollment_classes WHERE class_id = $%d)", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("e.status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name
        %s ORDER BY e.created_at %s LIMIT %d OFFSET %d`, enrollmentColumns, base+clause, order, size, offset)

	var enrollments []models.EnrollmentDetail
	if err := r.db.SelectContext(ctx, &enrollments, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list enrollments: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count enrollments: %w", err)
	}
	return enrollments, total, nil
}

// FindByID returns an enrollment by its ID.
func (r *EnrollmentRepository) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	const query = `SELECT id, student_id, status, tuition, discount, due_date, contract_end_date, fee_waiver, scholarship, created_at, updated_at
        FROM enrollments WHERE id = $1`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, id); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// FindDetailByID returns an enrollment with student and class context.
func (r *EnrollmentRepository) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	query := fmt.Sprintf(`SELECT %s, s.full_name AS student_name
        FROM enrollments e
        LEFT JOIN students s ON s.id = e.student_id
        WHERE e.id = $1`, enrollmentColumns)
	var detail models.EnrollmentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}

	const classQuery = `SELECT ec.class_id, c.name FROM enrollment_classes ec
        LEFT JOIN classes c ON c.id = ec.class_id WHERE ec.enrollment_id = $1 ORDER BY c.name`
	rows, err := r.db.QueryxContext(ctx, classQuery, id)
	if err != nil {
		return nil, fmt.Errorf("list enrollment classes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var classID, className string
		if err := rows.Scan(&classID, &className); err != nil {
			return nil, fmt.Errorf("scan enrollment class: %w", err)
		}
		detail.ClassIDs = append(detail.ClassIDs, classID)
		detail.ClassNames = append(detail.ClassNames, className)
	}
	return &detail, nil
}

// Create persists a new enrollment row inside the caller's transaction.
func (r *EnrollmentRepository) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if enrollment.ID == "" {
		enrollment.ID = uuid.NewString()
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusActive
	}
	now := time.Now().UTC()
	enrollment.CreatedAt = now
	enrollment.UpdatedAt = now
	const query = `INSERT INTO enrollments (id, student_id, status, tuition, discount, due_date, contract_end_date, fee_waiver, scholarship, created_at, updated_at)
        VALUES (:id, :student_id, :status, :tuition, :discount, :due_date, :contract_end_date, :fee_waiver, :scholarship, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, enrollment); err != nil {
		return fmt.Errorf("create enrollment: %w", err)
	}
	return nil
}

// LinkClasses records the enrollment's class associations inside the caller's transaction.
func (r *EnrollmentRepository) LinkClasses(ctx context.Context, exec sqlx.ExtContext, enrollmentID string, classIDs []string) error {
	for _, classID := range classIDs {
		const query = `INSERT INTO enrollment_classes (enrollment_id, class_id) VALUES ($1, $2)`
		if _, err := exec.ExecContext(ctx, query, enrollmentID, classID); err != nil {
			return fmt.Errorf("link enrollment class: %w", err)
		}
	}
	return nil
}

// ReplaceClassLinks swaps the enrollment's class associations inside the
// caller's transaction.
func (r *EnrollmentRepository) ReplaceClassLinks(ctx context.Context, exec sqlx.ExtContext, enrollmentID string, classIDs []string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM enrollment_classes WHERE enrollment_id = $1`, enrollmentID); err != nil {
		return fmt.Errorf("unlink enrollment classes: %w", err)
	}
	return r.LinkClasses(ctx, exec, enrollmentID, classIDs)
}

// Update persists enrollment field changes inside the caller's transaction.
func (r *EnrollmentRepository) Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	enrollment.UpdatedAt = time.Now().UTC()
	const query = `UPDATE enrollments SET status = :status, tuition = :tuition, discount = :discount, due_date = :due_date,
        contract_end_date = :contract_end_date, fee_waiver = :fee_waiver, scholarship = :scholarship, updated_at = :updated_at
        WHERE id = :id`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, enrollment); err != nil {
		return fmt.Errorf("update enrollment: %w", err)
	}
	return nil
}

// Delete removes an enrollment row; installments and class links go with it
// via foreign-key cascade.
func (r *EnrollmentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM enrollments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete enrollment: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountActive returns the number of active enrollments.
func (r *EnrollmentRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM enrollments WHERE status = $1", models.EnrollmentStatusActive); err != nil {
		return 0, fmt.Errorf("count active enrollments: %w", err)
	}
	return total, nil
}
