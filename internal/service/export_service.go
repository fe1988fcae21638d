package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ritmo-app/ritmo-api/internal/models"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
	"github.com/ritmo-app/ritmo-api/pkg/export"
)

type exportLedgerReader interface {
	List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, int, error)
}

type exportInstallmentReader interface {
	List(ctx context.Context, filter models.InstallmentFilter) ([]models.InstallmentDetail, int, error)
}

// ExportFormat selects the rendered output.
type ExportFormat string

// Supported export formats.
const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

// ExportResult holds rendered bytes and response metadata.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders ledger and installment reports as CSV or PDF.
type ExportService struct {
	ledger       exportLedgerReader
	installments exportInstallmentReader
	csv          *export.CSVExporter
	pdf          *export.PDFExporter
	logger       *zap.Logger
}

// NewExportService creates an ExportService.
func NewExportService(ledger exportLedgerReader, installments exportInstallmentReader, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		ledger:       ledger,
		installments: installments,
		csv:          export.NewCSVExporter(),
		pdf:          export.NewPDFExporter(),
		logger:       logger,
	}
}

// Ledger exports the cash-flow ledger for one month.
func (s *ExportService) Ledger(ctx context.Context, month, year int, format ExportFormat) (*ExportResult, error) {
	if err := validateFormat(format); err != nil {
		return nil, err
	}
	now := time.Now()
	if month < 1 || month > 12 {
		month = int(now.Month())
	}
	if year <= 0 {
		year = now.Year()
	}
	entries, _, err := s.ledger.List(ctx, models.LedgerFilter{Month: month, Year: year, Page: 1, PageSize: 10000})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ledger entries")
	}

	dataset := export.Dataset{
		Headers: []string{"Date", "Type", "Description", "Amount", "Status"},
	}
	for _, entry := range entries {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Date":        entry.Date.Format("2006-01-02"),
			"Type":        string(entry.Type),
			"Description": entry.Description,
			"Amount":      formatCents(entry.Amount),
			"Status":      string(entry.Status),
		})
	}

	name := fmt.Sprintf("ledger-%04d-%02d", year, month)
	return s.render(dataset, name, fmt.Sprintf("Cash Flow %04d-%02d", year, month), format)
}

// Installments exports the installments due in one month.
func (s *ExportService) Installments(ctx context.Context, month, year int, format ExportFormat) (*ExportResult, error) {
	if err := validateFormat(format); err != nil {
		return nil, err
	}
	now := time.Now()
	if month < 1 || month > 12 {
		month = int(now.Month())
	}
	if year <= 0 {
		year = now.Year()
	}
	installments, _, err := s.installments.List(ctx, models.InstallmentFilter{Month: month, Year: year, Page: 1, PageSize: 10000})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list installments")
	}

	dataset := export.Dataset{
		Headers: []string{"Student", "Due Date", "Amount", "Status"},
	}
	for _, installment := range installments {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Student":  installment.StudentName,
			"Due Date": installment.DueDate.Format("2006-01-02"),
			"Amount":   formatCents(installment.Amount),
			"Status":   string(installment.Status),
		})
	}

	name := fmt.Sprintf("installments-%04d-%02d", year, month)
	return s.render(dataset, name, fmt.Sprintf("Installments %04d-%02d", year, month), format)
}

func (s *ExportService) render(dataset export.Dataset, name, title string, format ExportFormat) (*ExportResult, error) {
	switch format {
	case FormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: name + ".pdf"}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: name + ".csv"}, nil
	}
}

func validateFormat(format ExportFormat) error {
	switch format {
	case FormatCSV, FormatPDF:
		return nil
	default:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// formatCents renders a cent amount as a decimal string.
func formatCents(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return sign + strconv.FormatInt(amount/100, 10) + "." + fmt.Sprintf("%02d", amount%100)
}
