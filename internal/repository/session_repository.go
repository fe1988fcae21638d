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

// SessionRepository handles persistence of generated class sessions.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, class_id, title, starts_at, ends_at, status, substitute_teacher_id, notes, created_at, updated_at`

// List returns sessions matching the filter, ordered by start time.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	base := "FROM sessions"
	var conditions []string
	var args []interface{}

	if filter.ClassID != "" {
		conditions = append(conditions, fmt.Sprintf("class_id = $%d", len(args)+1))
		args = append(args, filter.ClassID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.From != nil {
		conditions = append(conditions, fmt.Sprintf("starts_at >= $%d", len(args)+1))
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conditions = append(conditions, fmt.Sprintf("starts_at < $%d", len(args)+1))
		args = append(args, *filter.To)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf("SELECT %s %s ORDER BY starts_at", sessionColumns, base+clause)
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// FindByID returns a session by its ID.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := fmt.Sprintf("SELECT %s FROM sessions WHERE id = $1", sessionColumns)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteFuturePlanned removes a class's not-yet-occurred planned sessions
// inside the caller's transaction. Held, canceled and makeup sessions, and
// anything already started, are preserved.
func (r *SessionRepository) DeleteFuturePlanned(ctx context.Context, exec sqlx.ExtContext, classID string, from time.Time) error {
	const query = `DELETE FROM sessions WHERE class_id = $1 AND starts_at >= $2 AND status = $3`
	if _, err := exec.ExecContext(ctx, query, classID, from, models.SessionStatusPlanned); err != nil {
		return fmt.Errorf("delete future planned sessions: %w", err)
	}
	return nil
}

// BulkCreate inserts generated sessions inside the caller's transaction.
func (r *SessionRepository) BulkCreate(ctx context.Context, exec sqlx.ExtContext, sessions []models.Session) error {
	now := time.Now().UTC()
	for i := range sessions {
		if sessions[i].ID == "" {
			sessions[i].ID = uuid.NewString()
		}
		sessions[i].CreatedAt = now
		sessions[i].UpdatedAt = now
		const query = `INSERT INTO sessions (id, class_id, title, starts_at, ends_at, status, substitute_teacher_id, notes, created_at, updated_at)
            VALUES (:id, :class_id, :title, :starts_at, :ends_at, :status, :substitute_teacher_id, :notes, :created_at, :updated_at)`
		if _, err := sqlx.NamedExecContext(ctx, exec, query, sessions[i]); err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	}
	return nil
}

// Update persists a single session edit.
func (r *SessionRepository) Update(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now().UTC()
	const query = `UPDATE sessions SET title = :title, starts_at = :starts_at, ends_at = :ends_at, status = :status,
        substitute_teacher_id = :substitute_teacher_id, notes = :notes, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, session); err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

// CountHeldInMonth returns how many sessions were held in a month.
func (r *SessionRepository) CountHeldInMonth(ctx context.Context, month, year int) (int, error) {
	const query = `SELECT COUNT(*) FROM sessions
        WHERE status = $1 AND EXTRACT(MONTH FROM starts_at) = $2 AND EXTRACT(YEAR FROM starts_at) = $3`
	var total int
	if err := r.db.GetContext(ctx, &total, query, models.SessionStatusHeld, month, year); err != nil {
		return 0, fmt.Errorf("count held sessions: %w", err)
	}
	return total, nil
}
