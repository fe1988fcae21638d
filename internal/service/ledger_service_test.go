package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritmo-app/ritmo-api/internal/models"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
)

type mockLedgerStore struct {
	entries map[string]models.LedgerEntry
	sums    map[string]int64
	deleted []string
}

func sumKey(entryType models.LedgerType, status models.LedgerStatus) string {
	return string(entryType) + "/" + string(status)
}

func (m *mockLedgerStore) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, int, error) {
	result := make([]models.LedgerEntry, 0, len(m.entries))
	for _, e := range m.entries {
		result = append(result, e)
	}
	return result, len(result), nil
}

func (m *mockLedgerStore) FindByID(ctx context.Context, id string) (*models.LedgerEntry, error) {
	if e, ok := m.entries[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockLedgerStore) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if m.entries == nil {
		m.entries = make(map[string]models.LedgerEntry)
	}
	entry.ID = "led-new"
	m.entries[entry.ID] = *entry
	return nil
}

func (m *mockLedgerStore) Update(ctx context.Context, entry *models.LedgerEntry) error {
	m.entries[entry.ID] = *entry
	return nil
}

func (m *mockLedgerStore) Delete(ctx context.Context, id string) error {
	delete(m.entries, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockLedgerStore) SumByMonth(ctx context.Context, entryType models.LedgerType, status models.LedgerStatus, month, year int) (int64, error) {
	return m.sums[sumKey(entryType, status)], nil
}

func TestLedgerServiceCreateDefaultsToSettled(t *testing.T) {
	store := &mockLedgerStore{}
	svc := NewLedgerService(store, nil, nil)

	entry, err := svc.Create(context.Background(), CreateLedgerEntryRequest{
		Type:        models.LedgerTypeExpense,
		Description: "Studio rent",
		Amount:      120000,
		Date:        "2025-07-01",
	})
	require.NoError(t, err)
	assert.Equal(t, models.LedgerStatusSettled, entry.Status)
	assert.Equal(t, time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC), entry.Date)
}

func TestLedgerServiceCreateRejectsBadDate(t *testing.T) {
	svc := NewLedgerService(&mockLedgerStore{}, nil, nil)

	_, err := svc.Create(context.Background(), CreateLedgerEntryRequest{
		Type:        models.LedgerTypeIncome,
		Description: "Workshop fee",
		Amount:      5000,
		Date:        "01/07/2025",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestLedgerServiceUpdateRefusesBillingManagedEntry(t *testing.T) {
	installmentID := "inst-1"
	store := &mockLedgerStore{entries: map[string]models.LedgerEntry{
		"led-1": {ID: "led-1", Type: models.LedgerTypeIncome, InstallmentID: &installmentID},
	}}
	svc := NewLedgerService(store, nil, nil)

	desc := "edited"
	_, err := svc.Update(context.Background(), "led-1", UpdateLedgerEntryRequest{Description: &desc})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestLedgerServiceDeleteRefusesBillingManagedEntry(t *testing.T) {
	installmentID := "inst-1"
	store := &mockLedgerStore{entries: map[string]models.LedgerEntry{
		"led-1": {ID: "led-1", Type: models.LedgerTypeIncome, InstallmentID: &installmentID},
	}}
	svc := NewLedgerService(store, nil, nil)

	err := svc.Delete(context.Background(), "led-1")
	require.Error(t, err)
	assert.Empty(t, store.deleted)
}

func TestLedgerServiceDeleteManualEntry(t *testing.T) {
	store := &mockLedgerStore{entries: map[string]models.LedgerEntry{
		"led-1": {ID: "led-1", Type: models.LedgerTypeExpense},
	}}
	svc := NewLedgerService(store, nil, nil)

	require.NoError(t, svc.Delete(context.Background(), "led-1"))
	assert.Equal(t, []string{"led-1"}, store.deleted)
}

func TestLedgerServiceSummary(t *testing.T) {
	store := &mockLedgerStore{sums: map[string]int64{
		sumKey(models.LedgerTypeIncome, models.LedgerStatusSettled):  250000,
		sumKey(models.LedgerTypeIncome, models.LedgerStatusPending):  80000,
		sumKey(models.LedgerTypeExpense, models.LedgerStatusSettled): 140000,
	}}
	svc := NewLedgerService(store, nil, nil)

	summary, err := svc.Summary(context.Background(), 7, 2025)
	require.NoError(t, err)
	assert.Equal(t, 7, summary.Month)
	assert.Equal(t, 2025, summary.Year)
	assert.Equal(t, int64(250000), summary.IncomeSettled)
	assert.Equal(t, int64(80000), summary.IncomePending)
	assert.Equal(t, int64(140000), summary.ExpensesSettled)
	assert.Equal(t, int64(110000), summary.Net)
}

func TestLedgerServiceSummaryDefaultsToCurrentMonth(t *testing.T) {
	svc := NewLedgerService(&mockLedgerStore{}, nil, nil)

	summary, err := svc.Summary(context.Background(), 0, 0)
	require.NoError(t, err)
	now := time.Now()
	assert.Equal(t, int(now.Month()), summary.Month)
	assert.Equal(t, now.Year(), summary.Year)
}
