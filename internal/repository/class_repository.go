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

// ClassRepository handles persistence of classes and their weekly slots.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs the repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// List returns classes with teacher info filtered by the provided criteria.
func (r *ClassRepository) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error) {
	base := `FROM classes c
LEFT JOIN teachers t ON t.id = c.teacher_id`
	var conditions []string
	var args []interface{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("c.name ILIKE $%d", len(args)+1))
		args = append(args, "%"+filter.Search+"%")
	}
	if filter.Modality != "" {
		conditions = append(conditions, fmt.Sprintf("c.modality = $%d", len(args)+1))
		args = append(args, filter.Modality)
	}
	if filter.Level != "" {
		conditions = append(conditions, fmt.Sprintf("c.level = $%d", len(args)+1))
		args = append(args, filter.Level)
	}
	if filter.TeacherID != "" {
		conditions = append(conditions, fmt.Sprintf("c.teacher_id = $%d", len(args)+1))
		args = append(args, filter.TeacherID)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
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

	query := fmt.Sprintf(`SELECT c.id, c.name, c.modality, c.level, c.teacher_id, c.capacity, c.monthly_rate, c.created_at, c.updated_at,
        t.full_name AS teacher_name
        %s ORDER BY c.name %s LIMIT %d OFFSET %d`, base+clause, order, size, offset)

	var classes []models.ClassDetail
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list classes: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count classes: %w", err)
	}
	return classes, total, nil
}

// FindByID returns a class by its ID.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.Class, error) {
	const query = `SELECT id, name, modality, level, teacher_id, capacity, monthly_rate, created_at, updated_at FROM classes WHERE id = $1`
	var class models.Class
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		return nil, err
	}
	return &class, nil
}

// FindManyByIDs returns the classes matching the given IDs.
func (r *ClassRepository) FindManyByIDs(ctx context.Context, ids []string) ([]models.Class, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT id, name, modality, level, teacher_id, capacity, monthly_rate, created_at, updated_at
        FROM classes WHERE id IN (%s)`, strings.Join(placeholders, ","))
	var classes []models.Class
	if err := r.db.SelectContext(ctx, &classes, query, args...); err != nil {
		return nil, fmt.Errorf("find classes: %w", err)
	}
	return classes, nil
}

// Create persists a new class record.
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	if class.ID == "" {
		class.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	class.CreatedAt = now
	class.UpdatedAt = now
	const query = `INSERT INTO classes (id, name, modality, level, teacher_id, capacity, monthly_rate, created_at, updated_at)
        VALUES (:id, :name, :modality, :level, :teacher_id, :capacity, :monthly_rate, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("create class: %w", err)
	}
	return nil
}

// Update persists changes to an existing class.
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	const query = `UPDATE classes SET name = :name, modality = :modality, level = :level, teacher_id = :teacher_id,
        capacity = :capacity, monthly_rate = :monthly_rate, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, class); err != nil {
		return fmt.Errorf("update class: %w", err)
	}
	return nil
}

// Delete removes a class row.
func (r *ClassRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM classes WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete class: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListSlots returns the weekly slot templates of a class.
func (r *ClassRepository) ListSlots(ctx context.Context, classID string) ([]models.WeeklySlot, error) {
	const query = `SELECT id, class_id, weekday, start_time FROM class_slots WHERE class_id = $1 ORDER BY weekday, start_time`
	var slots []models.WeeklySlot
	if err := r.db.SelectContext(ctx, &slots, query, classID); err != nil {
		return nil, fmt.Errorf("list class slots: %w", err)
	}
	return slots, nil
}

// ReplaceSlots swaps a class's slot set wholesale inside the caller's transaction.
func (r *ClassRepository) ReplaceSlots(ctx context.Context, exec sqlx.ExtContext, classID string, slots []models.WeeklySlot) error {
	if _, err := exec.ExecContext(ctx, "DELETE FROM class_slots WHERE class_id = $1", classID); err != nil {
		return fmt.Errorf("clear class slots: %w", err)
	}
	for i := range slots {
		if slots[i].ID == "" {
			slots[i].ID = uuid.NewString()
		}
		slots[i].ClassID = classID
		const query = `INSERT INTO class_slots (id, class_id, weekday, start_time)
            VALUES (:id, :class_id, :weekday, :start_time)`
		if _, err := sqlx.NamedExecContext(ctx, exec, query, slots[i]); err != nil {
			return fmt.Errorf("insert class slot: %w", err)
		}
	}
	return nil
}
