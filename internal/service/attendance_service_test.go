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

type mockAttendanceStore struct {
	records map[string]models.Attendance
}

func attendanceKey(sessionID, studentID string) string {
	return sessionID + "/" + studentID
}

func (m *mockAttendanceStore) Upsert(ctx context.Context, attendance *models.Attendance) error {
	if m.records == nil {
		m.records = make(map[string]models.Attendance)
	}
	m.records[attendanceKey(attendance.SessionID, attendance.StudentID)] = *attendance
	return nil
}

func (m *mockAttendanceStore) ListBySession(ctx context.Context, sessionID string) ([]models.AttendanceDetail, error) {
	var result []models.AttendanceDetail
	for _, a := range m.records {
		if a.SessionID == sessionID {
			result = append(result, models.AttendanceDetail{Attendance: a})
		}
	}
	return result, nil
}

type mockAttendanceSessions struct {
	sessions map[string]models.Session
}

func (m *mockAttendanceSessions) FindByID(ctx context.Context, id string) (*models.Session, error) {
	if s, ok := m.sessions[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func newAttendanceFixture() (*AttendanceService, *mockAttendanceStore) {
	store := &mockAttendanceStore{}
	starts := time.Date(2025, time.June, 9, 18, 0, 0, 0, time.UTC)
	sessions := &mockAttendanceSessions{sessions: map[string]models.Session{
		"ses-1": {ID: "ses-1", ClassID: "cls-1", Status: models.SessionStatusHeld,
			StartsAt: starts, EndsAt: starts.Add(time.Hour)},
		"ses-canceled": {ID: "ses-canceled", ClassID: "cls-1", Status: models.SessionStatusCanceled,
			StartsAt: starts, EndsAt: starts.Add(time.Hour)},
	}}
	students := &mockStudentReader{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", FullName: "Marina Costa", Active: true},
	}}
	return NewAttendanceService(store, sessions, students, nil, nil), store
}

func TestAttendanceServiceMark(t *testing.T) {
	svc, store := newAttendanceFixture()

	attendance, err := svc.Mark(context.Background(), "ses-1", MarkAttendanceRequest{
		StudentID: "stu-1",
		Present:   true,
	})
	require.NoError(t, err)
	assert.True(t, attendance.Present)
	assert.Contains(t, store.records, attendanceKey("ses-1", "stu-1"))
}

func TestAttendanceServiceMarkOverwritesPrevious(t *testing.T) {
	svc, store := newAttendanceFixture()

	_, err := svc.Mark(context.Background(), "ses-1", MarkAttendanceRequest{StudentID: "stu-1", Present: true})
	require.NoError(t, err)
	_, err = svc.Mark(context.Background(), "ses-1", MarkAttendanceRequest{StudentID: "stu-1", Present: false, Note: "left early"})
	require.NoError(t, err)

	require.Len(t, store.records, 1)
	record := store.records[attendanceKey("ses-1", "stu-1")]
	assert.False(t, record.Present)
	assert.Equal(t, "left early", record.Note)
}

func TestAttendanceServiceMarkCanceledSession(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Mark(context.Background(), "ses-canceled", MarkAttendanceRequest{StudentID: "stu-1", Present: true})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErr.Code)
}

func TestAttendanceServiceMarkUnknownStudent(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.Mark(context.Background(), "ses-1", MarkAttendanceRequest{StudentID: "stu-missing", Present: true})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestAttendanceServiceListUnknownSession(t *testing.T) {
	svc, _ := newAttendanceFixture()

	_, err := svc.ListBySession(context.Background(), "ses-missing")
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
