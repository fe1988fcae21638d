package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ritmo-app/ritmo-api/internal/models"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
)

type ledgerStore interface {
	List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, int, error)
	FindByID(ctx context.Context, id string) (*models.LedgerEntry, error)
	Create(ctx context.Context, entry *models.LedgerEntry) error
	Update(ctx context.Context, entry *models.LedgerEntry) error
	Delete(ctx context.Context, id string) error
	SumByMonth(ctx context.Context, entryType models.LedgerType, status models.LedgerStatus, month, year int) (int64, error)
}

// CreateLedgerEntryRequest carries a manual cash-flow entry. Amount is cents.
type CreateLedgerEntryRequest struct {
	Type        models.LedgerType   `json:"type" validate:"required,oneof=INCOME EXPENSE"`
	Description string              `json:"description" validate:"required,max=255"`
	Amount      int64               `json:"amount" validate:"gt=0"`
	Date        string              `json:"date" validate:"required"`
	Status      models.LedgerStatus `json:"status" validate:"omitempty,oneof=PENDING SETTLED"`
}

// UpdateLedgerEntryRequest carries partial edits to a manual entry.
type UpdateLedgerEntryRequest struct {
	Description *string              `json:"description" validate:"omitempty,max=255"`
	Amount      *int64               `json:"amount" validate:"omitempty,gt=0"`
	Date        *string              `json:"date"`
	Status      *models.LedgerStatus `json:"status" validate:"omitempty,oneof=PENDING SETTLED"`
}

// MonthlySummary aggregates the ledger for one month. Amounts are cents.
type MonthlySummary struct {
	Month           int   `json:"month"`
	Year            int   `json:"year"`
	IncomeSettled   int64 `json:"income_settled"`
	IncomePending   int64 `json:"income_pending"`
	ExpensesSettled int64 `json:"expenses_settled"`
	Net             int64 `json:"net"`
}

// LedgerService manages the cash-flow ledger. Entries mirrored from
// installments are managed by the billing and payment cascades; manual
// entries are managed here.
type LedgerService struct {
	ledger    ledgerStore
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLedgerService creates a LedgerService.
func NewLedgerService(ledger ledgerStore, validate *validator.Validate, logger *zap.Logger) *LedgerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{ledger: ledger, validator: validate, logger: logger}
}

// List returns ledger entries matching the filter.
func (s *LedgerService) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, *models.Pagination, error) {
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	entries, total, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ledger entries")
	}
	return entries, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// Get returns one ledger entry.
func (s *LedgerService) Get(ctx context.Context, id string) (*models.LedgerEntry, error) {
	entry, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ledger entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger entry")
	}
	return entry, nil
}

// Create records a manual cash-flow entry. Status defaults to SETTLED.
func (s *LedgerService) Create(ctx context.Context, req CreateLedgerEntryRequest) (*models.LedgerEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ledger payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
	}
	status := req.Status
	if status == "" {
		status = models.LedgerStatusSettled
	}
	entry := &models.LedgerEntry{
		Type:        req.Type,
		Description: req.Description,
		Amount:      req.Amount,
		Date:        date,
		Status:      status,
	}
	if err := s.ledger.Create(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create ledger entry")
	}
	s.logger.Info("ledger entry created",
		zap.String("ledger_id", entry.ID),
		zap.String("type", string(entry.Type)),
		zap.Int64("amount", entry.Amount),
	)
	return entry, nil
}

// Update edits a manual ledger entry. Entries linked to an installment are
// managed by the billing cascades and cannot be edited directly.
func (s *LedgerService) Update(ctx context.Context, id string, req UpdateLedgerEntryRequest) (*models.LedgerEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ledger payload")
	}
	entry, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "ledger entry not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger entry")
	}
	if entry.InstallmentID != nil {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "ledger entry is managed by billing")
	}
	if req.Description != nil {
		entry.Description = *req.Description
	}
	if req.Amount != nil {
		entry.Amount = *req.Amount
	}
	if req.Date != nil {
		date, err := parseDate(*req.Date)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD")
		}
		entry.Date = date
	}
	if req.Status != nil {
		entry.Status = *req.Status
	}
	if err := s.ledger.Update(ctx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update ledger entry")
	}
	return entry, nil
}

// Delete removes a manual ledger entry.
func (s *LedgerService) Delete(ctx context.Context, id string) error {
	entry, err := s.ledger.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "ledger entry not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ledger entry")
	}
	if entry.InstallmentID != nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "ledger entry is managed by billing")
	}
	if err := s.ledger.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete ledger entry")
	}
	s.logger.Info("ledger entry deleted", zap.String("ledger_id", id))
	return nil
}

// Summary aggregates settled income, pending income, settled expenses and
// net for one month. Month and year default to the current month.
func (s *LedgerService) Summary(ctx context.Context, month, year int) (*MonthlySummary, error) {
	now := time.Now()
	if month < 1 || month > 12 {
		month = int(now.Month())
	}
	if year <= 0 {
		year = now.Year()
	}
	incomeSettled, err := s.ledger.SumByMonth(ctx, models.LedgerTypeIncome, models.LedgerStatusSettled, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum settled income")
	}
	incomePending, err := s.ledger.SumByMonth(ctx, models.LedgerTypeIncome, models.LedgerStatusPending, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum pending income")
	}
	expensesSettled, err := s.ledger.SumByMonth(ctx, models.LedgerTypeExpense, models.LedgerStatusSettled, month, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sum settled expenses")
	}
	return &MonthlySummary{
		Month:           month,
		Year:            year,
		IncomeSettled:   incomeSettled,
		IncomePending:   incomePending,
		ExpensesSettled: expensesSettled,
		Net:             incomeSettled - expensesSettled,
	}, nil
}
