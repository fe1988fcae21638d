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

type fakeStudentStore struct {
	students   map[string]models.Student
	lastFilter models.StudentFilter
}

func (f *fakeStudentStore) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	f.lastFilter = filter
	result := make([]models.Student, 0, len(f.students))
	for _, s := range f.students {
		result = append(result, s)
	}
	return result, len(result), nil
}

func (f *fakeStudentStore) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := f.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeStudentStore) Create(ctx context.Context, student *models.Student) error {
	if f.students == nil {
		f.students = make(map[string]models.Student)
	}
	student.ID = "stu-new"
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentStore) Update(ctx context.Context, student *models.Student) error {
	f.students[student.ID] = *student
	return nil
}

func (f *fakeStudentStore) Delete(ctx context.Context, id string) error {
	if _, ok := f.students[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.students, id)
	return nil
}

func newStudentHandler(store *fakeStudentStore) *StudentHandler {
	return NewStudentHandler(service.NewStudentService(store, nil, nil))
}

func TestStudentHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeStudentStore{}
	handler := newStudentHandler(store)

	body := `{"full_name":"Marina Costa","email":"marina@example.com"}`
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, store.students, "stu-new")
	assert.True(t, store.students["stu-new"].Active)
}

func TestStudentHandlerCreateValidation(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newStudentHandler(&fakeStudentStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/students", strings.NewReader(`{"full_name":"X"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	handler.Create(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStudentHandlerListPassesFilter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeStudentStore{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", FullName: "Marina Costa", Active: true},
	}}
	handler := newStudentHandler(store)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students?search=marina&active=true&page=2&limit=10", nil)

	handler.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "marina", store.lastFilter.Search)
	require.NotNil(t, store.lastFilter.Active)
	assert.True(t, *store.lastFilter.Active)
	assert.Equal(t, 2, store.lastFilter.Page)
	assert.Equal(t, 10, store.lastFilter.PageSize)

	var envelope struct {
		Data       []models.Student   `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Len(t, envelope.Data, 1)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestStudentHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := newStudentHandler(&fakeStudentStore{})

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/stu-missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-missing"}}

	handler.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStudentHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	store := &fakeStudentStore{students: map[string]models.Student{
		"stu-1": {ID: "stu-1", FullName: "Marina Costa"},
	}}
	handler := newStudentHandler(store)

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodDelete, "/students/stu-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	handler.Delete(c)
	// gin buffers the status until a body write; flush it so the
	// recorder sees the 204 a real engine would send.
	c.Writer.WriteHeaderNow()

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, store.students, "stu-1")
}
