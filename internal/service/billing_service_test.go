package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritmo-app/ritmo-api/internal/models"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
)

type txProviderMock struct {
	db   *sqlx.DB
	mock sqlmock.Sqlmock
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb, mock: mock}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}

type mockEnrollmentStore struct {
	enrollments map[string]models.Enrollment
	linked      map[string][]string
	relinked    map[string][]string
	updated     []models.Enrollment
	deleted     []string
}

func (m *mockEnrollmentStore) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	details := make([]models.EnrollmentDetail, 0, len(m.enrollments))
	for _, e := range m.enrollments {
		details = append(details, models.EnrollmentDetail{Enrollment: e})
	}
	return details, len(details), nil
}

func (m *mockEnrollmentStore) FindByID(ctx context.Context, id string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[id]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentStore) FindDetailByID(ctx context.Context, id string) (*models.EnrollmentDetail, error) {
	if e, ok := m.enrollments[id]; ok {
		return &models.EnrollmentDetail{Enrollment: e, ClassIDs: m.linked[id]}, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentStore) Create(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = fmt.Sprintf("enr-%d", len(m.enrollments)+1)
	}
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *mockEnrollmentStore) LinkClasses(ctx context.Context, exec sqlx.ExtContext, enrollmentID string, classIDs []string) error {
	if m.linked == nil {
		m.linked = make(map[string][]string)
	}
	m.linked[enrollmentID] = classIDs
	return nil
}

func (m *mockEnrollmentStore) ReplaceClassLinks(ctx context.Context, exec sqlx.ExtContext, enrollmentID string, classIDs []string) error {
	if m.linked == nil {
		m.linked = make(map[string][]string)
	}
	if m.relinked == nil {
		m.relinked = make(map[string][]string)
	}
	m.linked[enrollmentID] = classIDs
	m.relinked[enrollmentID] = classIDs
	return nil
}

func (m *mockEnrollmentStore) Update(ctx context.Context, exec sqlx.ExtContext, enrollment *models.Enrollment) error {
	m.updated = append(m.updated, *enrollment)
	m.enrollments[enrollment.ID] = *enrollment
	return nil
}

func (m *mockEnrollmentStore) Delete(ctx context.Context, id string) error {
	if _, ok := m.enrollments[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.enrollments, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockInstallmentStore struct {
	installments []models.Installment
	canceled     []string
}

func (m *mockInstallmentStore) BulkCreate(ctx context.Context, exec sqlx.ExtContext, installments []models.Installment) error {
	for i := range installments {
		if installments[i].ID == "" {
			installments[i].ID = fmt.Sprintf("inst-%d", len(m.installments)+i+1)
		}
	}
	m.installments = append(m.installments, installments...)
	return nil
}

func (m *mockInstallmentStore) ListByEnrollment(ctx context.Context, enrollmentID string) ([]models.Installment, error) {
	var result []models.Installment
	for _, inst := range m.installments {
		if inst.EnrollmentID == enrollmentID {
			result = append(result, inst)
		}
	}
	return result, nil
}

func (m *mockInstallmentStore) CancelPending(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) error {
	m.canceled = append(m.canceled, enrollmentID)
	for i, inst := range m.installments {
		if inst.EnrollmentID == enrollmentID && inst.Status == models.InstallmentStatusPending {
			m.installments[i].Status = models.InstallmentStatusCanceled
		}
	}
	return nil
}

type mockBillingLedger struct {
	entries        []models.LedgerEntry
	removedPending []string
}

func (m *mockBillingLedger) BulkCreate(ctx context.Context, exec sqlx.ExtContext, entries []models.LedgerEntry) error {
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *mockBillingLedger) RemovePendingByEnrollment(ctx context.Context, exec sqlx.ExtContext, enrollmentID string) error {
	m.removedPending = append(m.removedPending, enrollmentID)
	return nil
}

type mockStudentReader struct {
	students map[string]models.Student
}

func (m *mockStudentReader) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

type mockClassReader struct {
	classes map[string]models.Class
}

func (m *mockClassReader) FindManyByIDs(ctx context.Context, ids []string) ([]models.Class, error) {
	var result []models.Class
	for _, id := range ids {
		if c, ok := m.classes[id]; ok {
			result = append(result, c)
		}
	}
	return result, nil
}

func newBillingFixture(t *testing.T) (*BillingService, *mockEnrollmentStore, *mockInstallmentStore, *mockBillingLedger, sqlmock.Sqlmock) {
	tx, mock := newTxProviderMock(t)
	enrollments := &mockEnrollmentStore{}
	installments := &mockInstallmentStore{}
	ledger := &mockBillingLedger{}
	students := &mockStudentReader{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", FullName: "Marina Costa", Active: true},
	}}
	classes := &mockClassReader{classes: map[string]models.Class{
		"cls-ballet": {ID: "cls-ballet", Name: "Ballet Teens", MonthlyRate: 18000},
		"cls-jazz":   {ID: "cls-jazz", Name: "Jazz Adults", MonthlyRate: 15000},
	}}
	svc := NewBillingService(enrollments, installments, ledger, students, classes, tx, true, nil, nil)
	return svc, enrollments, installments, ledger, mock
}

func TestComputeTuition(t *testing.T) {
	classes := []models.Class{{MonthlyRate: 18000}, {MonthlyRate: 15000}}
	assert.Equal(t, int64(30000), ComputeTuition(classes, 3000))
	assert.Equal(t, int64(33000), ComputeTuition(classes, 0))
}

func TestComputeTuitionFloorsAtZero(t *testing.T) {
	classes := []models.Class{{MonthlyRate: 10000}}
	assert.Equal(t, int64(0), ComputeTuition(classes, 25000))
}

func TestBuildInstallmentsMonthlyCadence(t *testing.T) {
	due := time.Date(2024, time.October, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.September, 5, 0, 0, 0, 0, time.UTC)

	installments := buildInstallments("enr-1", 18000, due, end)

	require.Len(t, installments, 12)
	assert.Equal(t, due, installments[0].DueDate)
	assert.Equal(t, end, installments[11].DueDate)
	for _, inst := range installments {
		assert.Equal(t, 5, inst.DueDate.Day())
		assert.Equal(t, int64(18000), inst.Amount)
		assert.Equal(t, models.InstallmentStatusPending, inst.Status)
	}
}

func TestBuildInstallmentsClampsShortMonths(t *testing.T) {
	due := time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC)

	installments := buildInstallments("enr-1", 10000, due, end)

	require.Len(t, installments, 4)
	assert.Equal(t, time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), installments[1].DueDate)
	assert.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), installments[2].DueDate)
	assert.Equal(t, time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC), installments[3].DueDate)
}

func TestBillingServiceCreateGeneratesScheduleAndMirrorsLedger(t *testing.T) {
	svc, enrollments, installments, ledger, mock := newBillingFixture(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID:       "stu-1",
		ClassIDs:        []string{"cls-ballet", "cls-jazz"},
		Discount:        3000,
		DueDate:         "2024-10-05",
		ContractEndDate: "2025-09-05",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Enrollment)

	assert.Equal(t, int64(30000), result.Enrollment.Tuition)
	assert.Equal(t, models.EnrollmentStatusActive, result.Enrollment.Status)
	assert.Len(t, result.Installments, 12)
	assert.Len(t, installments.installments, 12)
	assert.Equal(t, []string{"cls-ballet", "cls-jazz"}, enrollments.linked[result.Enrollment.ID])

	require.Len(t, ledger.entries, 12)
	for _, entry := range ledger.entries {
		assert.Equal(t, models.LedgerTypeIncome, entry.Type)
		assert.Equal(t, models.LedgerStatusPending, entry.Status)
		assert.Equal(t, int64(30000), entry.Amount)
		require.NotNil(t, entry.InstallmentID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingServiceCreateHonoursExplicitTuition(t *testing.T) {
	svc, _, _, _, mock := newBillingFixture(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	explicit := int64(12000)
	result, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID:       "stu-1",
		ClassIDs:        []string{"cls-ballet"},
		DueDate:         "2025-01-10",
		ContractEndDate: "2025-03-10",
		Tuition:         &explicit,
	})
	require.NoError(t, err)
	assert.Equal(t, explicit, result.Enrollment.Tuition)
	for _, inst := range result.Installments {
		assert.Equal(t, explicit, inst.Amount)
	}
}

func TestBillingServiceCreateRejectsInvertedDates(t *testing.T) {
	svc, _, _, _, _ := newBillingFixture(t)

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID:       "stu-1",
		ClassIDs:        []string{"cls-ballet"},
		DueDate:         "2025-09-05",
		ContractEndDate: "2025-01-05",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestBillingServiceCreateUnknownStudent(t *testing.T) {
	svc, _, _, _, _ := newBillingFixture(t)

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID:       "stu-missing",
		ClassIDs:        []string{"cls-ballet"},
		DueDate:         "2025-01-10",
		ContractEndDate: "2025-06-10",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestBillingServiceCreateUnknownClass(t *testing.T) {
	svc, _, _, _, _ := newBillingFixture(t)

	_, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID:       "stu-1",
		ClassIDs:        []string{"cls-ballet", "cls-missing"},
		DueDate:         "2025-01-10",
		ContractEndDate: "2025-06-10",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestBillingServiceDeactivationCancelsPendingOnly(t *testing.T) {
	svc, enrollments, installments, ledger, mock := newBillingFixture(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID:       "stu-1",
		ClassIDs:        []string{"cls-ballet"},
		DueDate:         "2025-01-05",
		ContractEndDate: "2025-03-05",
	})
	require.NoError(t, err)
	require.Len(t, result.Installments, 3)
	id := result.Enrollment.ID

	// First installment was paid before deactivation.
	installments.installments[0].Status = models.InstallmentStatusPaid

	mock.ExpectBegin()
	mock.ExpectCommit()

	inactive := models.EnrollmentStatusInactive
	updated, err := svc.Update(context.Background(), id, UpdateEnrollmentRequest{Status: &inactive})
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentStatusInactive, updated.Enrollment.Status)
	assert.Equal(t, []string{id}, installments.canceled)
	assert.Equal(t, []string{id}, ledger.removedPending)

	assert.Equal(t, models.InstallmentStatusPaid, installments.installments[0].Status)
	assert.Equal(t, models.InstallmentStatusCanceled, installments.installments[1].Status)
	assert.Equal(t, models.InstallmentStatusCanceled, installments.installments[2].Status)
	assert.Equal(t, models.EnrollmentStatusInactive, enrollments.enrollments[id].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingServiceUpdateWithoutDeactivationKeepsInstallments(t *testing.T) {
	svc, _, installments, ledger, mock := newBillingFixture(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID:       "stu-1",
		ClassIDs:        []string{"cls-ballet"},
		DueDate:         "2025-01-05",
		ContractEndDate: "2025-03-05",
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	discount := int64(2000)
	_, err = svc.Update(context.Background(), result.Enrollment.ID, UpdateEnrollmentRequest{Discount: &discount})
	require.NoError(t, err)

	assert.Empty(t, installments.canceled)
	assert.Empty(t, ledger.removedPending)
	for _, inst := range installments.installments {
		assert.Equal(t, models.InstallmentStatusPending, inst.Status)
		assert.Equal(t, result.Installments[0].Amount, inst.Amount)
	}
}

func TestBillingServiceUpdateReplacesClassListAndDates(t *testing.T) {
	svc, enrollments, installments, _, mock := newBillingFixture(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID:       "stu-1",
		ClassIDs:        []string{"cls-ballet"},
		DueDate:         "2025-01-05",
		ContractEndDate: "2025-03-05",
	})
	require.NoError(t, err)
	require.Len(t, result.Installments, 3)
	id := result.Enrollment.ID

	mock.ExpectBegin()
	mock.ExpectCommit()

	dueDate := "2025-02-10"
	endDate := "2025-08-10"
	updated, err := svc.Update(context.Background(), id, UpdateEnrollmentRequest{
		ClassIDs:        []string{"cls-jazz"},
		DueDate:         &dueDate,
		ContractEndDate: &endDate,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"cls-jazz"}, enrollments.relinked[id])
	assert.Equal(t, []string{"cls-jazz"}, updated.Enrollment.ClassIDs)
	assert.Equal(t, time.Date(2025, time.February, 10, 0, 0, 0, 0, time.UTC), updated.Enrollment.DueDate)
	assert.Equal(t, time.Date(2025, time.August, 10, 0, 0, 0, 0, time.UTC), updated.Enrollment.ContractEndDate)

	// Installments stay as generated under the original class list.
	require.Len(t, installments.installments, 3)
	for _, inst := range installments.installments {
		assert.Equal(t, models.InstallmentStatusPending, inst.Status)
		assert.Equal(t, int64(18000), inst.Amount)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBillingServiceUpdateUnknownClass(t *testing.T) {
	svc, enrollments, _, _, mock := newBillingFixture(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID:       "stu-1",
		ClassIDs:        []string{"cls-ballet"},
		DueDate:         "2025-01-05",
		ContractEndDate: "2025-03-05",
	})
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), result.Enrollment.ID, UpdateEnrollmentRequest{
		ClassIDs: []string{"cls-missing"},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Empty(t, enrollments.relinked)
}

func TestBillingServiceUpdateRejectsInvertedDates(t *testing.T) {
	svc, _, _, _, mock := newBillingFixture(t)

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Create(context.Background(), CreateEnrollmentRequest{
		StudentID:       "stu-1",
		ClassIDs:        []string{"cls-ballet"},
		DueDate:         "2025-01-05",
		ContractEndDate: "2025-03-05",
	})
	require.NoError(t, err)

	endDate := "2024-12-01"
	_, err = svc.Update(context.Background(), result.Enrollment.ID, UpdateEnrollmentRequest{
		ContractEndDate: &endDate,
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestBillingServiceGetNotFound(t *testing.T) {
	svc, _, _, _, _ := newBillingFixture(t)

	_, err := svc.Get(context.Background(), "enr-missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
