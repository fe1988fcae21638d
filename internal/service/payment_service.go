package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/ritmo-app/ritmo-api/internal/models"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
)

type paymentStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, payment *models.Payment) error
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
}

type paymentInstallmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Installment, error)
	List(ctx context.Context, filter models.InstallmentFilter) ([]models.InstallmentDetail, int, error)
	MarkPaid(ctx context.Context, exec sqlx.ExtContext, id string, paidAt time.Time) error
}

type paymentLedgerStore interface {
	SettleByInstallment(ctx context.Context, exec sqlx.ExtContext, installmentID string, settledAt time.Time) error
}

// CreatePaymentRequest records a payment against a pending installment.
// PaidAt defaults to now when omitted.
type CreatePaymentRequest struct {
	InstallmentID string `json:"installment_id" validate:"required"`
	Amount        *int64 `json:"amount" validate:"omitempty,gt=0"`
	Method        string `json:"method" validate:"required,oneof=CASH TRANSFER CARD"`
	PaidAt        string `json:"paid_at" validate:"omitempty"`
}

// PaymentResult bundles the recorded payment with the installment it
// settled, reflecting the post-cascade state.
type PaymentResult struct {
	Payment     *models.Payment     `json:"payment"`
	Installment *models.Installment `json:"installment"`
}

// PaymentService applies the payment cascade: installments flip to PAID and
// their mirrored ledger entries settle in the same transaction as the
// payment row.
type PaymentService struct {
	payments     paymentStore
	installments paymentInstallmentStore
	ledger       paymentLedgerStore
	tx           txProvider
	now          func() time.Time
	validator    *validator.Validate
	logger       *zap.Logger
}

// NewPaymentService wires the payment cascade dependencies.
func NewPaymentService(
	payments paymentStore,
	installments paymentInstallmentStore,
	ledger paymentLedgerStore,
	tx txProvider,
	validate *validator.Validate,
	logger *zap.Logger,
) *PaymentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		payments:     payments,
		installments: installments,
		ledger:       ledger,
		tx:           tx,
		now:          time.Now,
		validator:    validate,
		logger:       logger,
	}
}

// ListPayments returns payments matching the filter.
func (s *PaymentService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	payments, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list payments")
	}
	return payments, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// ListInstallments returns installments with student context, filterable by
// month, year, status, student and enrollment.
func (s *PaymentService) ListInstallments(ctx context.Context, filter models.InstallmentFilter) ([]models.InstallmentDetail, *models.Pagination, error) {
	filter.Page, filter.PageSize = normalizePagination(filter.Page, filter.PageSize)
	installments, total, err := s.installments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list installments")
	}
	return installments, models.NewPagination(filter.Page, filter.PageSize, total), nil
}

// RecordPayment creates the payment and cascades: the target installment is
// marked PAID and its pending ledger entry settles, atomically. Paying an
// installment that is already PAID is a conflict, CANCELED a precondition
// failure. Returns the payment together with the updated installment.
func (s *PaymentService) RecordPayment(ctx context.Context, req CreatePaymentRequest) (*PaymentResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}

	installment, err := s.installments.FindByID(ctx, req.InstallmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "installment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load installment")
	}
	switch installment.Status {
	case models.InstallmentStatusPaid:
		return nil, appErrors.ErrAlreadyPaid
	case models.InstallmentStatusCanceled:
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "installment is canceled")
	}

	paidAt := s.now()
	if req.PaidAt != "" {
		paidAt, err = parseDate(req.PaidAt)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "paid_at must be formatted as YYYY-MM-DD")
		}
	}
	amount := installment.Amount
	if req.Amount != nil {
		amount = *req.Amount
	}

	payment := &models.Payment{
		InstallmentID: installment.ID,
		Amount:        amount,
		Method:        req.Method,
		PaidAt:        paidAt,
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

	if err = s.payments.Create(ctx, tx, payment); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create payment")
		return nil, err
	}
	if err = s.installments.MarkPaid(ctx, tx, installment.ID, paidAt); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark installment paid")
		return nil, err
	}
	if err = s.ledger.SettleByInstallment(ctx, tx, installment.ID, paidAt); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to settle ledger entry")
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit payment")
		return nil, err
	}

	installment.Status = models.InstallmentStatusPaid
	installment.PaymentDate = &paidAt

	s.logger.Info("payment recorded",
		zap.String("installment_id", installment.ID),
		zap.Int64("amount", amount),
		zap.String("method", req.Method),
	)
	return &PaymentResult{Payment: payment, Installment: installment}, nil
}
