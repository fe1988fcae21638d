package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritmo-app/ritmo-api/internal/models"
	"github.com/ritmo-app/ritmo-api/internal/service"
)

type fakeLedgerStore struct {
	entries map[string]models.LedgerEntry
	sums    map[string]int64
}

func ledgerSumKey(entryType models.LedgerType, status models.LedgerStatus) string {
	return string(entryType) + "/" + string(status)
}

func (f *fakeLedgerStore) List(ctx context.Context, filter models.LedgerFilter) ([]models.LedgerEntry, int, error) {
	result := make([]models.LedgerEntry, 0, len(f.entries))
	for _, e := range f.entries {
		result = append(result, e)
	}
	return result, len(result), nil
}

func (f *fakeLedgerStore) FindByID(ctx context.Context, id string) (*models.LedgerEntry, error) {
	if e, ok := f.entries[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLedgerStore) Create(ctx context.Context, entry *models.LedgerEntry) error {
	if f.entries == nil {
		f.entries = make(map[string]models.LedgerEntry)
	}
	entry.ID = "led-new"
	f.entries[entry.ID] = *entry
	return nil
}

func (f *fakeLedgerStore) Update(ctx context.Context, entry *models.LedgerEntry) error {
	f.entries[entry.ID] = *entry
	return nil
}

func (f *fakeLedgerStore) Delete(ctx context.Context, id string) error {
	delete(f.entries, id)
	return nil
}

func (f *fakeLedgerStore) SumByMonth(ctx context.Context, entryType models.LedgerType, status models.LedgerStatus, month, year int) (int64, error) {
	return f.sums[ledgerSumKey(entryType, status)], nil
}

func newLedgerHandler(store *fakeLedgerStore) *LedgerHandler {
	return NewLedgerHandler(service.NewLedgerService(store, nil, nil))
}

func TestLedgerHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeLedgerStore{}
	handler := newLedgerHandler(store)

	body := `{"type":"EXPENSE","description":"Studio rent","amount":120000,"date":"2025-07-01"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/ledger", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, store.entries, "led-new")
	assert.Equal(t, models.LedgerStatusSettled, store.entries["led-new"].Status)
}

func TestLedgerHandlerCreateInvalidPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newLedgerHandler(&fakeLedgerStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/ledger", strings.NewReader("{not json"))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLedgerHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newLedgerHandler(&fakeLedgerStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/ledger/led-missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "led-missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLedgerHandlerUpdateBillingManagedConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	installmentID := "inst-1"
	store := &fakeLedgerStore{entries: map[string]models.LedgerEntry{
		"led-1": {ID: "led-1", Type: models.LedgerTypeIncome, InstallmentID: &installmentID},
	}}
	handler := newLedgerHandler(store)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPut, "/ledger/led-1", strings.NewReader(`{"description":"edited"}`))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: "led-1"}}

	handler.Update(c)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
}

func TestLedgerHandlerSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeLedgerStore{sums: map[string]int64{
		ledgerSumKey(models.LedgerTypeIncome, models.LedgerStatusSettled):  250000,
		ledgerSumKey(models.LedgerTypeIncome, models.LedgerStatusPending):  80000,
		ledgerSumKey(models.LedgerTypeExpense, models.LedgerStatusSettled): 140000,
	}}
	handler := newLedgerHandler(store)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/ledger/summary?month=7&year=2025", nil)

	handler.Summary(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	var envelope struct {
		Data service.MonthlySummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, int64(250000), envelope.Data.IncomeSettled)
	assert.Equal(t, int64(110000), envelope.Data.Net)
}
