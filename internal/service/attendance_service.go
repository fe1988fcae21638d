package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ritmo-app/ritmo-api/internal/models"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
)

type attendanceStore interface {
	Upsert(ctx context.Context, attendance *models.Attendance) error
	ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceDetail, error)
}

type attendanceSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
}

type attendanceStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// MarkAttendanceRequest marks one student's presence at a session. Marking
// twice overwrites the previous record.
type MarkAttendanceRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	Present   bool   `json:"present"`
	Note      string `json:"note" validate:"omitempty,max=255"`
}

// AttendanceService records per-session attendance.
type AttendanceService struct {
	attendance attendanceStore
	sessions   attendanceSessionReader
	students   attendanceStudentReader
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewAttendanceService creates an AttendanceService.
func NewAttendanceService(
	attendance attendanceStore,
	sessions attendanceSessionReader,
	students attendanceStudentReader,
	validate *validator.Validate,
	logger *zap.Logger,
) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		attendance: attendance,
		sessions:   sessions,
		students:   students,
		validator:  validate,
		logger:     logger,
	}
}

// ListBySession returns the attendance sheet of one session.
func (s *AttendanceService) ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceDetail, error) {
	if _, err := s.sessions.FindByID(ctx, sessionID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	records, err := s.attendance.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// Mark records presence for a student at a session, replacing any earlier
// mark for the same pair. Attendance can only be taken on sessions that are
// not canceled.
func (s *AttendanceService) Mark(ctx context.Context, sessionID string, req MarkAttendanceRequest) (*models.Attendance, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if session.Status == models.SessionStatusCanceled {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "session is canceled")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	attendance := &models.Attendance{
		SessionID: sessionID,
		StudentID: req.StudentID,
		Present:   req.Present,
		Note:      req.Note,
	}
	if err := s.attendance.Upsert(ctx, attendance); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	s.logger.Info("attendance marked",
		zap.String("session_id", sessionID),
		zap.String("student_id", req.StudentID),
		zap.Bool("present", req.Present),
	)
	return attendance, nil
}
