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

type classStore interface {
	List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Class, error)
	Create(ctx context.Context, class *models.Class) error
	Update(ctx context.Context, class *models.Class) error
	Delete(ctx context.Context, id string) error
}

type classTeacherReader interface {
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
}

// CreateClassRequest carries the fields accepted on class creation.
// MonthlyRate is cents.
type CreateClassRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=120"`
	Modality    string  `json:"modality" validate:"required,max=60"`
	Level       string  `json:"level" validate:"omitempty,max=60"`
	TeacherID   *string `json:"teacher_id"`
	Capacity    int     `json:"capacity" validate:"gte=0"`
	MonthlyRate int64   `json:"monthly_rate" validate:"gte=0"`
}

// UpdateClassRequest carries partial class updates.
type UpdateClassRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=2,max=120"`
	Modality    *string `json:"modality" validate:"omitempty,max=60"`
	Level       *string `json:"level" validate:"omitempty,max=60"`
	TeacherID   *string `json:"teacher_id"`
	Capacity    *int    `json:"capacity" validate:"omitempty,gte=0"`
	MonthlyRate *int64  `json:"monthly_rate" validate:"omitempty,gte=0"`
}

// ClassService implements the class catalog.
type ClassService struct {
	classes   classStore
	teachers  classTeacherReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassService creates a ClassService.
func NewClassService(classes classStore, teachers classTeacherReader, validate *validator.Validate, logger *zap.Logger) *ClassService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassService{classes: classes, teachers: teachers, validator: validate, logger: logger}
}

// List returns classes with teacher names and pagination metadata.
func (s *ClassService) List(ctx context.Context, filter models.ClassFilter) ([]models.ClassDetail, *models.Pagination, error) {
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	classes, total, err := s.classes.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list classes")
	}
	return classes, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one class.
func (s *ClassService) Get(ctx context.Context, id string) (*models.Class, error) {
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

// Create registers a new class.
func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	if err := s.checkTeacher(ctx, req.TeacherID); err != nil {
		return nil, err
	}
	class := &models.Class{
		Name:        req.Name,
		Modality:    req.Modality,
		Level:       req.Level,
		TeacherID:   req.TeacherID,
		Capacity:    req.Capacity,
		MonthlyRate: req.MonthlyRate,
	}
	if err := s.classes.Create(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create class")
	}
	s.logger.Info("class created", zap.String("class_id", class.ID), zap.String("name", class.Name))
	return class, nil
}

// Update applies a partial update to a class. Changing the monthly rate does
// not touch installments already generated from existing enrollments.
func (s *ClassService) Update(ctx context.Context, id string, req UpdateClassRequest) (*models.Class, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid class payload")
	}
	class, err := s.classes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	if req.TeacherID != nil && *req.TeacherID != "" {
		if err := s.checkTeacher(ctx, req.TeacherID); err != nil {
			return nil, err
		}
	}
	if req.Name != nil {
		class.Name = *req.Name
	}
	if req.Modality != nil {
		class.Modality = *req.Modality
	}
	if req.Level != nil {
		class.Level = *req.Level
	}
	if req.TeacherID != nil {
		if *req.TeacherID == "" {
			class.TeacherID = nil
		} else {
			class.TeacherID = req.TeacherID
		}
	}
	if req.Capacity != nil {
		class.Capacity = *req.Capacity
	}
	if req.MonthlyRate != nil {
		class.MonthlyRate = *req.MonthlyRate
	}
	if err := s.classes.Update(ctx, class); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update class")
	}
	return class, nil
}

// Delete removes a class record.
func (s *ClassService) Delete(ctx context.Context, id string) error {
	if err := s.classes.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete class")
	}
	s.logger.Info("class deleted", zap.String("class_id", id))
	return nil
}

func (s *ClassService) checkTeacher(ctx context.Context, teacherID *string) error {
	if teacherID == nil || *teacherID == "" {
		return nil
	}
	if _, err := s.teachers.FindByID(ctx, *teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	return nil
}
