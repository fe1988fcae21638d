package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ritmo-app/ritmo-api/internal/models"
	"github.com/ritmo-app/ritmo-api/internal/service"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
	"github.com/ritmo-app/ritmo-api/pkg/response"
)

// PaymentHandler exposes installment and payment endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler constructs PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// ListInstallments godoc
// @Summary List installments
// @Tags Payments
// @Produce json
// @Param enrollmentId query string false "Filter by enrollment"
// @Param studentId query string false "Filter by student"
// @Param status query string false "Filter by status"
// @Param month query int false "Due month (1-12)"
// @Param year query int false "Due year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /installments [get]
func (h *PaymentHandler) ListInstallments(c *gin.Context) {
	var filter models.InstallmentFilter
	filter.EnrollmentID = c.Query("enrollmentId")
	filter.StudentID = c.Query("studentId")
	filter.Status = models.InstallmentStatus(c.Query("status"))
	filter.Month = parseIntQuery(c, "month", 0)
	filter.Year = parseIntQuery(c, "year", 0)
	filter.Page = parseIntQuery(c, "page", 1)
	filter.PageSize = parseIntQuery(c, "limit", 20)

	installments, pagination, err := h.payments.ListInstallments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, installments, pagination)
}

// ListPayments godoc
// @Summary List payments
// @Tags Payments
// @Produce json
// @Param installmentId query string false "Filter by installment"
// @Param studentId query string false "Filter by student"
// @Param month query int false "Paid month (1-12)"
// @Param year query int false "Paid year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /payments [get]
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	var filter models.PaymentFilter
	filter.InstallmentID = c.Query("installmentId")
	filter.StudentID = c.Query("studentId")
	filter.Month = parseIntQuery(c, "month", 0)
	filter.Year = parseIntQuery(c, "year", 0)
	filter.Page = parseIntQuery(c, "page", 1)
	filter.PageSize = parseIntQuery(c, "limit", 20)

	payments, pagination, err := h.payments.ListPayments(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payments, pagination)
}

// Create godoc
// @Summary Record payment
// @Description Marks the installment paid and settles its ledger entry
// @Tags Payments
// @Accept json
// @Produce json
// @Param payload body service.CreatePaymentRequest true "Payment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /payments [post]
func (h *PaymentHandler) Create(c *gin.Context) {
	var req service.CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.payments.RecordPayment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}
