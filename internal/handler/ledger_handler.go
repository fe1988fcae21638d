package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ritmo-app/ritmo-api/internal/models"
	"github.com/ritmo-app/ritmo-api/internal/service"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
	"github.com/ritmo-app/ritmo-api/pkg/response"
)

// LedgerHandler exposes cash-flow ledger endpoints.
type LedgerHandler struct {
	ledger *service.LedgerService
}

// NewLedgerHandler constructs LedgerHandler.
func NewLedgerHandler(ledger *service.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledger: ledger}
}

// List godoc
// @Summary List ledger entries
// @Tags Ledger
// @Produce json
// @Param type query string false "Filter by type (INCOME, EXPENSE)"
// @Param status query string false "Filter by status (PENDING, SETTLED)"
// @Param month query int false "Month (1-12)"
// @Param year query int false "Year"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /ledger [get]
func (h *LedgerHandler) List(c *gin.Context) {
	var filter models.LedgerFilter
	filter.Type = models.LedgerType(c.Query("type"))
	filter.Status = models.LedgerStatus(c.Query("status"))
	filter.Month = parseIntQuery(c, "month", 0)
	filter.Year = parseIntQuery(c, "year", 0)
	filter.Page = parseIntQuery(c, "page", 1)
	filter.PageSize = parseIntQuery(c, "limit", 20)

	entries, pagination, err := h.ledger.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get ledger entry
// @Tags Ledger
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Success 200 {object} response.Envelope
// @Router /ledger/{id} [get]
func (h *LedgerHandler) Get(c *gin.Context) {
	entry, err := h.ledger.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Create godoc
// @Summary Create manual ledger entry
// @Tags Ledger
// @Accept json
// @Produce json
// @Param payload body service.CreateLedgerEntryRequest true "Ledger payload"
// @Success 201 {object} response.Envelope
// @Router /ledger [post]
func (h *LedgerHandler) Create(c *gin.Context) {
	var req service.CreateLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.ledger.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Update godoc
// @Summary Update manual ledger entry
// @Tags Ledger
// @Accept json
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Param payload body service.UpdateLedgerEntryRequest true "Ledger payload"
// @Success 200 {object} response.Envelope
// @Router /ledger/{id} [put]
func (h *LedgerHandler) Update(c *gin.Context) {
	var req service.UpdateLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.ledger.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete manual ledger entry
// @Tags Ledger
// @Produce json
// @Param id path string true "Ledger entry ID"
// @Success 204
// @Router /ledger/{id} [delete]
func (h *LedgerHandler) Delete(c *gin.Context) {
	if err := h.ledger.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Summary godoc
// @Summary Monthly ledger summary
// @Tags Ledger
// @Produce json
// @Param month query int false "Month (1-12), defaults to current"
// @Param year query int false "Year, defaults to current"
// @Success 200 {object} response.Envelope
// @Router /ledger/summary [get]
func (h *LedgerHandler) Summary(c *gin.Context) {
	summary, err := h.ledger.Summary(c.Request.Context(), parseIntQuery(c, "month", 0), parseIntQuery(c, "year", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
