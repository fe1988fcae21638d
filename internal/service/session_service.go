package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ritmo-app/ritmo-api/internal/models"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
)

type sessionClassReader interface {
	FindByID(ctx context.Context, id string) (*models.Class, error)
}

type slotStore interface {
	ListSlots(ctx context.Context, classID string) ([]models.WeeklySlot, error)
	ReplaceSlots(ctx context.Context, exec sqlx.ExtContext, classID string, slots []models.WeeklySlot) error
}

type sessionStore interface {
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	DeleteFuturePlanned(ctx context.Context, exec sqlx.ExtContext, classID string, from time.Time) error
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, sessions []models.Session) error
	Update(ctx context.Context, session *models.Session) error
}

type sessionTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// WeeklySlotRequest is one (weekday, start time) template entry. Weekday
// follows time.Weekday numbering (0 = Sunday).
type WeeklySlotRequest struct {
	Weekday   int    `json:"weekday" validate:"gte=0,lte=6"`
	StartTime string `json:"start_time" validate:"required"`
}

// ReplaceSlotsRequest carries a class's replacement slot set.
type ReplaceSlotsRequest struct {
	Slots []WeeklySlotRequest `json:"slots" validate:"required,dive"`
}

// UpdateSessionRequest describes a single-session edit.
type UpdateSessionRequest struct {
	Status              *models.SessionStatus `json:"status" validate:"omitempty,oneof=PLANNED HELD CANCELED MAKEUP"`
	SubstituteTeacherID *string               `json:"substitute_teacher_id"`
	Notes               *string               `json:"notes"`
	StartsAt            *time.Time            `json:"starts_at"`
	EndsAt              *time.Time            `json:"ends_at"`
}

// SessionService materializes concrete sessions from weekly slot templates
// and handles individual session edits. Regeneration is idempotent: future
// planned sessions are cleared and re-expanded inside one transaction while
// held, canceled, makeup and past sessions are preserved.
type SessionService struct {
	classes  sessionClassReader
	slots    slotStore
	sessions sessionStore
	teachers sessionTeacherReader
	tx       txProvider
	horizon  int
	duration time.Duration
	// now is stubbed in tests.
	now       func() time.Time
	validator *validator.Validate
	logger    *zap.Logger
}

// SessionServiceConfig tunes session generation.
type SessionServiceConfig struct {
	HorizonDays int
	Duration    time.Duration
}

// NewSessionService wires the generator dependencies.
func NewSessionService(
	classes sessionClassReader,
	slots slotStore,
	sessions sessionStore,
	teachers sessionTeacherReader,
	tx txProvider,
	cfg SessionServiceConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *SessionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 90
	}
	if cfg.Duration <= 0 {
		cfg.Duration = time.Hour
	}
	return &SessionService{
		classes:   classes,
		slots:     slots,
		sessions:  sessions,
		teachers:  teachers,
		tx:        tx,
		horizon:   cfg.HorizonDays,
		duration:  cfg.Duration,
		now:       time.Now,
		validator: validate,
		logger:    logger,
	}
}

// ListSlots returns the stored weekly slot templates of a class.
func (s *SessionService) ListSlots(ctx context.Context, classID string) ([]models.WeeklySlot, error) {
	if _, err := s.classes.FindByID(ctx, classID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	slots, err := s.slots.ListSlots(ctx, classID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list class slots")
	}
	return slots, nil
}

// ReplaceSlots swaps a class's weekly slot set and regenerates its future
// planned sessions over the configured horizon, all in one transaction.
func (s *SessionService) ReplaceSlots(ctx context.Context, classID string, req ReplaceSlotsRequest) ([]models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slots payload")
	}
	for _, slot := range req.Slots {
		if _, err := parseClock(slot.StartTime); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("start_time %q must be formatted as HH:MM", slot.StartTime))
		}
	}

	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	today := startOfDay(s.now())
	generated := ExpandSlots(class, req.Slots, today, s.horizon, s.duration)

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.sessions.DeleteFuturePlanned(ctx, tx, classID, today); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear planned sessions")
		return nil, err
	}

	slots := make([]models.WeeklySlot, 0, len(req.Slots))
	for _, slot := range req.Slots {
		slots = append(slots, models.WeeklySlot{ClassID: classID, Weekday: slot.Weekday, StartTime: slot.StartTime})
	}
	if err = s.slots.ReplaceSlots(ctx, tx, classID, slots); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace class slots")
		return nil, err
	}

	if err = s.sessions.BulkCreate(ctx, tx, generated); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create sessions")
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit slot replacement")
		return nil, err
	}

	s.logger.Info("sessions regenerated",
		zap.String("class_id", classID),
		zap.Int("slots", len(slots)),
		zap.Int("sessions", len(generated)),
	)
	return generated, nil
}

// ListSessions returns sessions matching the filter.
func (s *SessionService) ListSessions(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	return sessions, nil
}

// GetSession returns one session.
func (s *SessionService) GetSession(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// UpdateSession edits one session in place. Edits survive later
// regenerations once the session is no longer future-planned.
func (s *SessionService) UpdateSession(ctx context.Context, id string, req UpdateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}

	if req.SubstituteTeacherID != nil && *req.SubstituteTeacherID != "" {
		if _, err := s.teachers.FindByID(ctx, *req.SubstituteTeacherID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "substitute teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}
	}

	if req.Status != nil {
		session.Status = *req.Status
	}
	if req.SubstituteTeacherID != nil {
		if *req.SubstituteTeacherID == "" {
			session.SubstituteTeacherID = nil
		} else {
			session.SubstituteTeacherID = req.SubstituteTeacherID
		}
	}
	if req.Notes != nil {
		session.Notes = *req.Notes
	}
	if req.StartsAt != nil {
		session.StartsAt = *req.StartsAt
	}
	if req.EndsAt != nil {
		session.EndsAt = *req.EndsAt
	}
	if !session.EndsAt.After(session.StartsAt) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "ends_at must be after starts_at")
	}

	if err := s.sessions.Update(ctx, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session")
	}
	return session, nil
}

// ExpandSlots maps slot templates onto every matching calendar day from
// "from" through "from + horizonDays" inclusive. The result is a pure
// function of the slots and the from date.
func ExpandSlots(class *models.Class, slots []WeeklySlotRequest, from time.Time, horizonDays int, duration time.Duration) []models.Session {
	var sessions []models.Session
	for offset := 0; offset <= horizonDays; offset++ {
		day := from.AddDate(0, 0, offset)
		for _, slot := range slots {
			if int(day.Weekday()) != slot.Weekday {
				continue
			}
			clock, err := parseClock(slot.StartTime)
			if err != nil {
				continue
			}
			start := day.Add(clock)
			sessions = append(sessions, models.Session{
				ClassID:  class.ID,
				Title:    class.Name,
				StartsAt: start,
				EndsAt:   start.Add(duration),
				Status:   models.SessionStatusPlanned,
			})
		}
	}
	return sessions
}

// parseClock converts "HH:MM" into an offset from midnight.
func parseClock(raw string) (time.Duration, error) {
	t, err := time.Parse("15:04", raw)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}

func startOfDay(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}
