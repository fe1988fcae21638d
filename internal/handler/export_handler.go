package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ritmo-app/ritmo-api/internal/service"
	"github.com/ritmo-app/ritmo-api/pkg/response"
)

// ExportHandler exposes finance export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Ledger godoc
// @Summary Export ledger
// @Tags Exports
// @Produce text/csv
// @Param month query int false "Month (1-12), defaults to current"
// @Param year query int false "Year, defaults to current"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Router /exports/ledger [get]
func (h *ExportHandler) Ledger(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	result, err := h.exports.Ledger(c.Request.Context(), parseIntQuery(c, "month", 0), parseIntQuery(c, "year", 0), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, result)
}

// Installments godoc
// @Summary Export installments
// @Tags Exports
// @Produce text/csv
// @Param month query int false "Month (1-12), defaults to current"
// @Param year query int false "Year, defaults to current"
// @Param format query string false "csv or pdf (default csv)"
// @Success 200 {file} binary
// @Router /exports/installments [get]
func (h *ExportHandler) Installments(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	result, err := h.exports.Installments(c.Request.Context(), parseIntQuery(c, "month", 0), parseIntQuery(c, "year", 0), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeExport(c, result)
}

func writeExport(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(200, result.ContentType, result.Content)
}
