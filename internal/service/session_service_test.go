package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritmo-app/ritmo-api/internal/models"
	appErrors "github.com/ritmo-app/ritmo-api/pkg/errors"
)

type mockSessionClassReader struct {
	classes map[string]models.Class
}

func (m *mockSessionClassReader) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

type mockSlotStore struct {
	slots map[string][]models.WeeklySlot
}

func (m *mockSlotStore) ListSlots(ctx context.Context, classID string) ([]models.WeeklySlot, error) {
	return m.slots[classID], nil
}

func (m *mockSlotStore) ReplaceSlots(ctx context.Context, exec sqlx.ExtContext, classID string, slots []models.WeeklySlot) error {
	if m.slots == nil {
		m.slots = make(map[string][]models.WeeklySlot)
	}
	m.slots[classID] = slots
	return nil
}

type mockSessionStore struct {
	sessions     []models.Session
	clearedFrom  []time.Time
	clearedClass []string
	updated      []models.Session
}

func (m *mockSessionStore) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	return m.sessions, nil
}

func (m *mockSessionStore) FindByID(ctx context.Context, id string) (*models.Session, error) {
	for _, s := range m.sessions {
		if s.ID == id {
			found := s
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockSessionStore) DeleteFuturePlanned(ctx context.Context, exec sqlx.ExtContext, classID string, from time.Time) error {
	m.clearedClass = append(m.clearedClass, classID)
	m.clearedFrom = append(m.clearedFrom, from)
	kept := m.sessions[:0]
	for _, s := range m.sessions {
		if s.ClassID == classID && s.Status == models.SessionStatusPlanned && !s.StartsAt.Before(from) {
			continue
		}
		kept = append(kept, s)
	}
	m.sessions = kept
	return nil
}

func (m *mockSessionStore) BulkCreate(ctx context.Context, exec sqlx.ExtContext, sessions []models.Session) error {
	m.sessions = append(m.sessions, sessions...)
	return nil
}

func (m *mockSessionStore) Update(ctx context.Context, session *models.Session) error {
	m.updated = append(m.updated, *session)
	for i, s := range m.sessions {
		if s.ID == session.ID {
			m.sessions[i] = *session
		}
	}
	return nil
}

type mockTeacherReader struct {
	teachers map[string]models.Teacher
}

func (m *mockTeacherReader) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func newSessionFixture(t *testing.T, now time.Time) (*SessionService, *mockSessionStore, *mockSlotStore, sqlmock.Sqlmock) {
	tx, mock := newTxProviderMock(t)
	classes := &mockSessionClassReader{classes: map[string]models.Class{
		"cls-ballet": {ID: "cls-ballet", Name: "Ballet Teens"},
	}}
	slots := &mockSlotStore{}
	sessions := &mockSessionStore{}
	teachers := &mockTeacherReader{teachers: map[string]models.Teacher{
		"tea-1": {ID: "tea-1", FullName: "Ana Duarte"},
	}}
	svc := NewSessionService(classes, slots, sessions, teachers, tx, SessionServiceConfig{HorizonDays: 14, Duration: time.Hour}, nil, nil)
	svc.now = func() time.Time { return now }
	return svc, sessions, slots, mock
}

func TestExpandSlots(t *testing.T) {
	class := &models.Class{ID: "cls-ballet", Name: "Ballet Teens"}
	// 2025-06-02 is a Monday.
	from := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	slots := []WeeklySlotRequest{
		{Weekday: 1, StartTime: "18:00"},
		{Weekday: 3, StartTime: "19:30"},
	}

	sessions := ExpandSlots(class, slots, from, 13, time.Hour)

	require.Len(t, sessions, 4)
	assert.Equal(t, time.Date(2025, time.June, 2, 18, 0, 0, 0, time.UTC), sessions[0].StartsAt)
	assert.Equal(t, time.Date(2025, time.June, 4, 19, 30, 0, 0, time.UTC), sessions[1].StartsAt)
	assert.Equal(t, time.Date(2025, time.June, 9, 18, 0, 0, 0, time.UTC), sessions[2].StartsAt)
	assert.Equal(t, time.Date(2025, time.June, 11, 19, 30, 0, 0, time.UTC), sessions[3].StartsAt)
	for _, s := range sessions {
		assert.Equal(t, "cls-ballet", s.ClassID)
		assert.Equal(t, "Ballet Teens", s.Title)
		assert.Equal(t, models.SessionStatusPlanned, s.Status)
		assert.Equal(t, s.StartsAt.Add(time.Hour), s.EndsAt)
	}
}

func TestExpandSlotsIncludesHorizonBoundary(t *testing.T) {
	class := &models.Class{ID: "cls-ballet", Name: "Ballet Teens"}
	from := time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC) // Monday
	slots := []WeeklySlotRequest{{Weekday: 1, StartTime: "10:00"}}

	// Horizon of exactly 7 days lands on the next Monday inclusive.
	sessions := ExpandSlots(class, slots, from, 7, time.Hour)
	require.Len(t, sessions, 2)
	assert.Equal(t, time.Date(2025, time.June, 9, 10, 0, 0, 0, time.UTC), sessions[1].StartsAt)
}

func TestSessionServiceReplaceSlotsRegenerates(t *testing.T) {
	now := time.Date(2025, time.June, 2, 11, 30, 0, 0, time.UTC) // Monday mid-morning
	svc, sessions, slots, mock := newSessionFixture(t, now)

	// A held session and a past planned one must survive regeneration.
	sessions.sessions = []models.Session{
		{ID: "ses-held", ClassID: "cls-ballet", Status: models.SessionStatusHeld,
			StartsAt: time.Date(2025, time.June, 9, 18, 0, 0, 0, time.UTC)},
		{ID: "ses-past", ClassID: "cls-ballet", Status: models.SessionStatusPlanned,
			StartsAt: time.Date(2025, time.May, 26, 18, 0, 0, 0, time.UTC)},
		{ID: "ses-stale", ClassID: "cls-ballet", Status: models.SessionStatusPlanned,
			StartsAt: time.Date(2025, time.June, 16, 18, 0, 0, 0, time.UTC)},
	}

	mock.ExpectBegin()
	mock.ExpectCommit()

	generated, err := svc.ReplaceSlots(context.Background(), "cls-ballet", ReplaceSlotsRequest{
		Slots: []WeeklySlotRequest{{Weekday: 1, StartTime: "18:00"}},
	})
	require.NoError(t, err)
	require.Len(t, generated, 3) // Mondays June 2, 9, 16 within the 14-day horizon

	assert.Equal(t, []string{"cls-ballet"}, sessions.clearedClass)
	assert.Equal(t, time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC), sessions.clearedFrom[0])

	var ids []string
	for _, s := range sessions.sessions {
		if s.ID != "" {
			ids = append(ids, s.ID)
		}
	}
	assert.ElementsMatch(t, []string{"ses-held", "ses-past"}, ids)

	require.Len(t, slots.slots["cls-ballet"], 1)
	assert.Equal(t, 1, slots.slots["cls-ballet"][0].Weekday)
	assert.Equal(t, "18:00", slots.slots["cls-ballet"][0].StartTime)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionServiceReplaceSlotsTwiceIsIdempotent(t *testing.T) {
	now := time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC) // Monday
	svc, sessions, _, mock := newSessionFixture(t, now)

	req := ReplaceSlotsRequest{Slots: []WeeklySlotRequest{
		{Weekday: 1, StartTime: "18:00"},
		{Weekday: 3, StartTime: "19:30"},
	}}

	mock.ExpectBegin()
	mock.ExpectCommit()
	first, err := svc.ReplaceSlots(context.Background(), "cls-ballet", req)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	mock.ExpectBegin()
	mock.ExpectCommit()
	second, err := svc.ReplaceSlots(context.Background(), "cls-ballet", req)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, first[i].StartsAt, second[i].StartsAt)
		assert.Equal(t, first[i].EndsAt, second[i].EndsAt)
		assert.Equal(t, models.SessionStatusPlanned, second[i].Status)
	}

	// The store holds exactly one copy of each generated session.
	require.Len(t, sessions.sessions, len(second))
	seen := make(map[time.Time]int)
	for _, s := range sessions.sessions {
		seen[s.StartsAt]++
	}
	for start, count := range seen {
		assert.Equalf(t, 1, count, "duplicate session at %s", start)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionServiceReplaceSlotsEmptySetClearsSchedule(t *testing.T) {
	now := time.Date(2025, time.June, 2, 8, 0, 0, 0, time.UTC)
	svc, sessions, _, mock := newSessionFixture(t, now)
	sessions.sessions = []models.Session{
		{ID: "ses-stale", ClassID: "cls-ballet", Status: models.SessionStatusPlanned,
			StartsAt: time.Date(2025, time.June, 9, 18, 0, 0, 0, time.UTC)},
	}

	mock.ExpectBegin()
	mock.ExpectCommit()

	generated, err := svc.ReplaceSlots(context.Background(), "cls-ballet", ReplaceSlotsRequest{
		Slots: []WeeklySlotRequest{},
	})
	require.NoError(t, err)
	assert.Empty(t, generated)
	assert.Empty(t, sessions.sessions)
}

func TestSessionServiceReplaceSlotsRejectsBadClock(t *testing.T) {
	svc, _, _, _ := newSessionFixture(t, time.Now())

	_, err := svc.ReplaceSlots(context.Background(), "cls-ballet", ReplaceSlotsRequest{
		Slots: []WeeklySlotRequest{{Weekday: 1, StartTime: "25:99"}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSessionServiceReplaceSlotsUnknownClass(t *testing.T) {
	svc, _, _, _ := newSessionFixture(t, time.Now())

	_, err := svc.ReplaceSlots(context.Background(), "cls-missing", ReplaceSlotsRequest{
		Slots: []WeeklySlotRequest{{Weekday: 1, StartTime: "18:00"}},
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestSessionServiceUpdateSession(t *testing.T) {
	svc, sessions, _, _ := newSessionFixture(t, time.Now())
	starts := time.Date(2025, time.June, 9, 18, 0, 0, 0, time.UTC)
	sessions.sessions = []models.Session{
		{ID: "ses-1", ClassID: "cls-ballet", Status: models.SessionStatusPlanned,
			StartsAt: starts, EndsAt: starts.Add(time.Hour)},
	}

	held := models.SessionStatusHeld
	substitute := "tea-1"
	notes := "covered by Ana"
	updated, err := svc.UpdateSession(context.Background(), "ses-1", UpdateSessionRequest{
		Status:              &held,
		SubstituteTeacherID: &substitute,
		Notes:               &notes,
	})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusHeld, updated.Status)
	require.NotNil(t, updated.SubstituteTeacherID)
	assert.Equal(t, "tea-1", *updated.SubstituteTeacherID)
	assert.Equal(t, "covered by Ana", updated.Notes)
	require.Len(t, sessions.updated, 1)
}

func TestSessionServiceUpdateSessionClearsSubstitute(t *testing.T) {
	svc, sessions, _, _ := newSessionFixture(t, time.Now())
	starts := time.Date(2025, time.June, 9, 18, 0, 0, 0, time.UTC)
	sub := "tea-1"
	sessions.sessions = []models.Session{
		{ID: "ses-1", ClassID: "cls-ballet", Status: models.SessionStatusPlanned,
			SubstituteTeacherID: &sub, StartsAt: starts, EndsAt: starts.Add(time.Hour)},
	}

	empty := ""
	updated, err := svc.UpdateSession(context.Background(), "ses-1", UpdateSessionRequest{SubstituteTeacherID: &empty})
	require.NoError(t, err)
	assert.Nil(t, updated.SubstituteTeacherID)
}

func TestSessionServiceUpdateSessionRejectsInvertedTimes(t *testing.T) {
	svc, sessions, _, _ := newSessionFixture(t, time.Now())
	starts := time.Date(2025, time.June, 9, 18, 0, 0, 0, time.UTC)
	sessions.sessions = []models.Session{
		{ID: "ses-1", ClassID: "cls-ballet", Status: models.SessionStatusPlanned,
			StartsAt: starts, EndsAt: starts.Add(time.Hour)},
	}

	badEnd := starts.Add(-time.Hour)
	_, err := svc.UpdateSession(context.Background(), "ses-1", UpdateSessionRequest{EndsAt: &badEnd})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestSessionServiceUpdateSessionUnknownSubstitute(t *testing.T) {
	svc, sessions, _, _ := newSessionFixture(t, time.Now())
	starts := time.Date(2025, time.June, 9, 18, 0, 0, 0, time.UTC)
	sessions.sessions = []models.Session{
		{ID: "ses-1", ClassID: "cls-ballet", Status: models.SessionStatusPlanned,
			StartsAt: starts, EndsAt: starts.Add(time.Hour)},
	}

	substitute := "tea-missing"
	_, err := svc.UpdateSession(context.Background(), "ses-1", UpdateSessionRequest{SubstituteTeacherID: &substitute})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}
