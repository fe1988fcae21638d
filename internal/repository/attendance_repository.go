package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/ritmo-app/ritmo-api/internal/models"
)

// AttendanceRepository handles persistence of session attendance marks.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs the repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert records or overwrites one (session, student) attendance mark.
func (r *AttendanceRepository) Upsert(ctx context.Context, attendance *models.Attendance) error {
	if attendance.ID == "" {
		attendance.ID = uuid.NewString()
	}
	attendance.CreatedAt = time.Now().UTC()
	const query = `INSERT INTO attendance (id, session_id, student_id, present, note, created_at)
        VALUES (:id, :session_id, :student_id, :present, :note, :created_at)
        ON CONFLICT (session_id, student_id) DO UPDATE SET present = EXCLUDED.present, note = EXCLUDED.note`
	if _, err := r.db.NamedExecContext(ctx, query, attendance); err != nil {
		return fmt.Errorf("upsert attendance: %w", err)
	}
	return nil
}

// ListBySession returns attendance marks for one session with student names.
func (r *AttendanceRepository) ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceDetail, error) {
	const query = `SELECT a.id, a.session_id, a.student_id, a.present, a.note, a.created_at, s.full_name AS student_name
        FROM attendance a
        LEFT JOIN students s ON s.id = a.student_id
        WHERE a.session_id = $1 ORDER BY s.full_name`
	var marks []models.AttendanceDetail
	if err := r.db.SelectContext(ctx, &marks, query, sessionID); err != nil {
		return nil, fmt.Errorf("list session attendance: %w", err)
	}
	return marks, nil
}
