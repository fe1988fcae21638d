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

type billingEnrollmentStore interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error)
	Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	LinkClasses(ctx context.Context, exec sqlx.ExtContext, enrollmentID string, classIDs []string) error
	ReplaceClassLinks(ctx context.Context, exec sqlx.ExtContext, enrollmentID string, classIDs []string) error
	Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error
	Delete(ctx context.Context, id string) error
}

type billingInstallmentStore interface {
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, installments []models.Installment) error
	ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Installment, error)
	CancelPending(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) error
}

type billingLedgerStore interface {
	BulkCreate(ctx context.Context, exec sqlx.ExtContext, entries []models.LedgerEntry) error
	RemovePendingByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) error
}

type billingStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type billingClassReader interface {
	FindManyByIDs(ctx context.Context, ids []string) ([]models.Class, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// CreateEnrollmentRequest describes enrollment creation payload. Dates are
// ISO "2006-01-02"; monetary values are cents.
type CreateEnrollmentRequest struct {
	StudentID       string   `json:"student_id" validate:"required"`
	ClassIDs        []string `json:"class_ids" validate:"required,min=1,dive,required"`
	Discount        int64    `json:"discount" validate:"gte=0"`
	DueDate         string   `json:"due_date" validate:"required"`
	ContractEndDate string   `json:"contract_end_date" validate:"required"`
	FeeWaiver       bool     `json:"fee_waiver"`
	Scholarship     bool     `json:"scholarship"`
	Tuition         *int64   `json:"tuition" validate:"omitempty,gte=0"`
}

// UpdateEnrollmentRequest describes enrollment update payload. Supplied
// fields follow the same constraints as on create.
type UpdateEnrollmentRequest struct {
	Status          *models.EnrollmentStatus `json:"status" validate:"omitempty,oneof=ACTIVE INACTIVE"`
	ClassIDs        []string                 `json:"class_ids" validate:"omitempty,min=1,dive,required"`
	Discount        *int64                   `json:"discount" validate:"omitempty,gte=0"`
	Tuition         *int64                   `json:"tuition" validate:"omitempty,gte=0"`
	DueDate         *string                  `json:"due_date"`
	ContractEndDate *string                  `json:"contract_end_date"`
	FeeWaiver       *bool                    `json:"fee_waiver"`
	Scholarship     *bool                    `json:"scholarship"`
}

// EnrollmentResult bundles an enrollment with its installment schedule.
type EnrollmentResult struct {
	Enrollment   *models.EnrollmentDetail `json:"enrollment"`
	Installments []models.Installment     `json:"installments"`
}

// BillingService is the enrollment billing engine: it turns an enrollment
// request into a persisted enrollment plus its full installment schedule and
// keeps that schedule consistent on update and cancellation.
type BillingService struct {
	enrollments  billingEnrollmentStore
	installments billingInstallmentStore
	ledger       billingLedgerStore
	students     billingStudentReader
	classes      billingClassReader
	tx           txProvider
	mirrorLedger bool
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewBillingService wires the billing engine dependencies.
func NewBillingService(
	enrollments billingEnrollmentStore,
	installments billingInstallmentStore,
	ledger billingLedgerStore,
	students billingStudentReader,
	classes billingClassReader,
	tx txProvider,
	mirrorLedger bool,
	validate *validator.Validate,
	logger *zap.Logger,
) *BillingService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BillingService{
		enrollments:  enrollments,
		installments: installments,
		ledger:       ledger,
		students:     students,
		classes:      classes,
		tx:           tx,
		mirrorLedger: mirrorLedger,
		validator:    validate,
		logger:       logger,
	}
}

// List returns enrollments with pagination metadata.
func (s *BillingService) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, *models.Pagination, error) {
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	enrollments, total, err := s.enrollments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrollments")
	}
	return enrollments, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

func normalizePagination(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	return page, size
}

// Get returns one enrollment with its installments.
func (s *BillingService) Get(ctx context.Context, id string) (*EnrollmentResult, error) {
	detail, err := s.enrollments.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	installments, err := s.installments.ListByEnrollment(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list installments")
	}
	return &EnrollmentResult{Enrollment: detail, Installments: installments}, nil
}

// Create registers an enrollment and materializes its installment schedule
// in one transaction. When no explicit tuition is supplied it is computed as
// the sum of the class monthly rates minus the discount, floored at zero.
func (s *BillingService) Create(ctx context.Context, req CreateEnrollmentRequest) (*EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "due_date must be formatted as YYYY-MM-DD")
	}
	endDate, err := parseDate(req.ContractEndDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "contract_end_date must be formatted as YYYY-MM-DD")
	}
	if endDate.Before(dueDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "contract_end_date must not precede due_date")
	}

	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	classIDs := uniqueStrings(req.ClassIDs)
	classes, err := s.classes.FindManyByIDs(ctx, classIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	if len(classes) != len(classIDs) {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more classes not found")
	}

	tuition := ComputeTuition(classes, req.Discount)
	if req.Tuition != nil {
		tuition = *req.Tuition
	}

	enrollment := &models.Enrollment{
		StudentID:       req.StudentID,
		Status:          models.EnrollmentStatusActive,
		Tuition:         tuition,
		Discount:        req.Discount,
		DueDate:         dueDate,
		ContractEndDate: endDate,
		FeeWaiver:       req.FeeWaiver,
		Scholarship:     req.Scholarship,
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.enrollments.Create(ctx, tx, enrollment); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
		return nil, err
	}
	if err = s.enrollments.LinkClasses(ctx, tx, enrollment.ID, classIDs); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to link enrollment classes")
		return nil, err
	}

	installments := buildInstallments(enrollment.ID, tuition, dueDate, endDate)
	if err = s.installments.BulkCreate(ctx, tx, installments); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create installments")
		return nil, err
	}

	if s.mirrorLedger && s.ledger != nil {
		entries := make([]models.LedgerEntry, 0, len(installments))
		for i := range installments {
			installmentID := installments[i].ID
			entries = append(entries, models.LedgerEntry{
				Type:          models.LedgerTypeIncome,
				Description:   fmt.Sprintf("Tuition installment due %s", installments[i].DueDate.Format("2006-01-02")),
				Amount:        installments[i].Amount,
				Date:          installments[i].DueDate,
				Status:        models.LedgerStatusPending,
				InstallmentID: &installmentID,
			})
		}
		if err = s.ledger.BulkCreate(ctx, tx, entries); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mirror ledger entries")
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit enrollment")
		return nil, err
	}

	detail, err := s.enrollments.FindDetailByID(ctx, enrollment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment detail")
	}
	s.logger.Info("enrollment created",
		zap.String("enrollment_id", enrollment.ID),
		zap.Int64("tuition", tuition),
		zap.Int("installments", len(installments)),
	)
	return &EnrollmentResult{Enrollment: detail, Installments: installments}, nil
}

// Update applies field changes. A transition to INACTIVE cancels the
// enrollment's pending installments and drops their pending ledger mirrors
// in the same transaction; paid installments are untouched. Tuition,
// discount, class and date edits never rewrite installments already
// generated: they are locked at generation time.
func (s *BillingService) Update(ctx context.Context, id string, req UpdateEnrollmentRequest) (*EnrollmentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	enrollment, err := s.enrollments.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}

	if req.DueDate != nil {
		dueDate, parseErr := parseDate(*req.DueDate)
		if parseErr != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "due_date must be formatted as YYYY-MM-DD")
		}
		enrollment.DueDate = dueDate
	}
	if req.ContractEndDate != nil {
		endDate, parseErr := parseDate(*req.ContractEndDate)
		if parseErr != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "contract_end_date must be formatted as YYYY-MM-DD")
		}
		enrollment.ContractEndDate = endDate
	}
	if enrollment.ContractEndDate.Before(enrollment.DueDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "contract_end_date must not precede due_date")
	}

	var classIDs []string
	if len(req.ClassIDs) > 0 {
		classIDs = uniqueStrings(req.ClassIDs)
		classes, lookupErr := s.classes.FindManyByIDs(ctx, classIDs)
		if lookupErr != nil {
			return nil, appErrors.Wrap(lookupErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
		}
		if len(classes) != len(classIDs) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "one or more classes not found")
		}
	}

	deactivating := req.Status != nil && *req.Status == models.EnrollmentStatusInactive && enrollment.Status == models.EnrollmentStatusActive
	if req.Status != nil {
		enrollment.Status = *req.Status
	}
	if req.Discount != nil {
		enrollment.Discount = *req.Discount
	}
	if req.Tuition != nil {
		enrollment.Tuition = *req.Tuition
	}
	if req.FeeWaiver != nil {
		enrollment.FeeWaiver = *req.FeeWaiver
	}
	if req.Scholarship != nil {
		enrollment.Scholarship = *req.Scholarship
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.enrollments.Update(ctx, tx, enrollment); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update enrollment")
		return nil, err
	}
	if len(classIDs) > 0 {
		if err = s.enrollments.ReplaceClassLinks(ctx, tx, id, classIDs); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to replace enrollment classes")
			return nil, err
		}
	}

	if deactivating {
		if s.ledger != nil {
			if err = s.ledger.RemovePendingByEnrollment(ctx, tx, id); err != nil {
				err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove pending ledger entries")
				return nil, err
			}
		}
		if err = s.installments.CancelPending(ctx, tx, id); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel pending installments")
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit enrollment update")
		return nil, err
	}

	return s.Get(ctx, id)
}

// Delete removes the enrollment; installments follow via store cascade.
func (s *BillingService) Delete(ctx context.Context, id string) error {
	if err := s.enrollments.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "enrollment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete enrollment")
	}
	return nil
}

// ComputeTuition sums the monthly rate of every class and subtracts the
// discount, flooring at zero.
func ComputeTuition(classes []models.Class, discount int64) int64 {
	var total int64
	for _, class := range classes {
		total += class.MonthlyRate
	}
	total -= discount
	if total < 0 {
		return 0
	}
	return total
}

// buildInstallments expands one pending installment per monthly period from
// the due date through the contract end, anchored to the due date's
// day-of-month (clamped in shorter months).
func buildInstallments(enrollmentID string, amount int64, dueDate, endDate time.Time) []models.Installment {
	anchor := dueDate.Day()
	var installments []models.Installment
	for d := dueDate; !d.After(endDate); d = nextMonthlyDueDate(d, anchor) {
		installments = append(installments, models.Installment{
			EnrollmentID: enrollmentID,
			Amount:       amount,
			DueDate:      d,
			Status:       models.InstallmentStatusPending,
		})
	}
	return installments
}

// nextMonthlyDueDate advances one calendar month keeping the anchor day,
// clamping to the last day of shorter months.
func nextMonthlyDueDate(current time.Time, anchor int) time.Time {
	year, month, _ := current.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	day := anchor
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, current.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	result := make([]string, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
