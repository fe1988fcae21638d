package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritmo-app/ritmo-api/internal/models"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
)

type mockExportLedger struct {
	entries []models.LedgerEntry
}

func (m *mockExportLedger) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, int, error) {
	return m.entries, len(m.entries), nil
}

type mockExportInstallments struct {
	installments []models.InstallmentDetail
}

func (m *mockExportInstallments) List(ctx context.Context, filter models.InstallmentFilter) ([]models.InstallmentDetail, int, error) {
	return m.installments, len(m.installments), nil
}

func TestFormatCents(t *testing.T) {
	assert.Equal(t, "180.00", formatCents(18000))
	assert.Equal(t, "0.05", formatCents(5))
	assert.Equal(t, "-12.50", formatCents(-1250))
}

func TestExportServiceLedgerCSV(t *testing.T) {
	ledger := &mockExportLedger{entries: []models.LedgerEntry{{
		Type:        models.LedgerTypeIncome,
		Description: "Tuition installment due 2025-07-05",
		Amount:      18000,
		Date:        time.Date(2025, time.July, 5, 0, 0, 0, 0, time.UTC),
		Status:      models.LedgerStatusSettled,
	}}}
	svc := NewExportService(ledger, &mockExportInstallments{}, nil)

	result, err := svc.Ledger(context.Background(), 7, 2025, FormatCSV)
	require.NoError(t, err)

	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "ledger-2025-07.csv", result.Filename)
	body := string(result.Content)
	assert.True(t, strings.HasPrefix(body, "Date,Type,Description,Amount,Status"))
	assert.Contains(t, body, "2025-07-05,INCOME,Tuition installment due 2025-07-05,180.00,SETTLED")
}

func TestExportServiceInstallmentsPDF(t *testing.T) {
	installments := &mockExportInstallments{installments: []models.InstallmentDetail{{
		Installment: models.Installment{
			Amount:  18000,
			DueDate: time.Date(2025, time.July, 5, 0, 0, 0, 0, time.UTC),
			Status:  models.InstallmentStatusPending,
		},
		StudentName: "Marina Costa",
	}}}
	svc := NewExportService(&mockExportLedger{}, installments, nil)

	result, err := svc.Installments(context.Background(), 7, 2025, FormatPDF)
	require.NoError(t, err)

	assert.Equal(t, "application/pdf", result.ContentType)
	assert.Equal(t, "installments-2025-07.pdf", result.Filename)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(&mockExportLedger{}, &mockExportInstallments{}, nil)

	_, err := svc.Ledger(context.Background(), 7, 2025, ExportFormat("xlsx"))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
