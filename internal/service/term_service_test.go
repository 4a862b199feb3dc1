package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registro-sv/academico-api/internal/models"
	appErrors "github.com/registro-sv/academico-api/pkg/errors"
)

type mockTermRepo struct {
	terms   map[int64]models.Term
	rows    map[int64]int
	nextID  int64
	deleted []int64
}

func (m *mockTermRepo) List(ctx context.Context, filter models.TermFilter) ([]models.TermDetail, int, error) {
	return nil, 0, nil
}

func (m *mockTermRepo) FindByID(ctx context.Context, id int64) (*models.Term, error) {
	if t, ok := m.terms[id]; ok {
		return &t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTermRepo) ListByStudent(ctx context.Context, studentID string) ([]models.Term, error) {
	var list []models.Term
	for _, t := range m.terms {
		if t.StudentID == studentID {
			list = append(list, t)
		}
	}
	return list, nil
}

func (m *mockTermRepo) Create(ctx context.Context, term *models.Term) error {
	if m.terms == nil {
		m.terms = make(map[int64]models.Term)
	}
	m.nextID++
	term.ID = m.nextID
	m.terms[term.ID] = *term
	return nil
}

func (m *mockTermRepo) Update(ctx context.Context, term *models.Term) error {
	m.terms[term.ID] = *term
	return nil
}

func (m *mockTermRepo) Delete(ctx context.Context, id int64) error {
	delete(m.terms, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockTermRepo) CountRegistrationRows(ctx context.Context, id int64) (int, error) {
	return m.rows[id], nil
}

type mockTermStudents struct {
	students map[string]*models.Student
}

func (m *mockTermStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func newTermFixture(t *testing.T) (*TermService, *mockTermRepo) {
	t.Helper()
	repo := &mockTermRepo{terms: make(map[int64]models.Term)}
	students := &mockTermStudents{students: map[string]*models.Student{
		"stu-1": {ID: "stu-1", Code: "ABCD123456", FullName: "Ana Morales"},
	}}
	return NewTermService(repo, students, nil, nil), repo
}

func createReq(at time.Time) CreateTermRequest {
	return CreateTermRequest{
		StudentID:  "stu-1",
		EnrolledAt: at,
		Cycle:      "01-2026",
		Active:     true,
		Career:     "Ingeniería",
		Admission:  "Nuevo",
	}
}

func TestTermServiceCreateEnforcesSpacing(t *testing.T) {
	svc, repo := newTermFixture(t)
	base := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	first, err := svc.Create(context.Background(), createReq(base))
	require.NoError(t, err)
	assert.Equal(t, models.TermStatusActive, first.Status)
	assert.NotZero(t, first.Hash)

	// 179 days later in either direction conflicts.
	_, err = svc.Create(context.Background(), createReq(base.AddDate(0, 0, 179)))
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrTermSpacing.Code, appErr.Code)

	_, err = svc.Create(context.Background(), createReq(base.AddDate(0, 0, -179)))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTermSpacing.Code, appErrors.FromError(err).Code)

	// 181 days clears the rule.
	second, err := svc.Create(context.Background(), createReq(base.AddDate(0, 0, 181)))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, repo.terms, 2)
}

func TestTermServiceUpdateExcludesSelf(t *testing.T) {
	svc, _ := newTermFixture(t)
	base := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	term, err := svc.Create(context.Background(), createReq(base))
	require.NoError(t, err)

	// Moving the only term a few days never conflicts with itself.
	updated, err := svc.Update(context.Background(), term.ID, UpdateTermRequest{
		EnrolledAt: base.AddDate(0, 0, 3),
		Cycle:      "01-2026",
		Active:     false,
		Career:     "Ingeniería",
		Admission:  "Antiguo",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TermStatusInactive, updated.Status)
	assert.Equal(t, models.AdmissionReturning, updated.Admission)
}

func TestTermServiceUpdateConflictsWithOtherTerm(t *testing.T) {
	svc, _ := newTermFixture(t)
	base := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	_, err := svc.Create(context.Background(), createReq(base))
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), createReq(base.AddDate(0, 0, 200)))
	require.NoError(t, err)

	_, err = svc.Update(context.Background(), second.ID, UpdateTermRequest{
		EnrolledAt: base.AddDate(0, 0, 30),
		Cycle:      "01-2026",
		Active:     true,
		Career:     "Ingeniería",
		Admission:  "Nuevo",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTermSpacing.Code, appErrors.FromError(err).Code)
}

func TestTermServiceCreateUnknownStudent(t *testing.T) {
	svc, _ := newTermFixture(t)
	req := createReq(time.Now())
	req.StudentID = "missing"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTermServiceDeleteGuardsRegisteredCourses(t *testing.T) {
	svc, repo := newTermFixture(t)
	term, err := svc.Create(context.Background(), createReq(time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	repo.rows = map[int64]int{term.ID: 3}
	err = svc.Delete(context.Background(), term.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	repo.rows[term.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), term.ID))
	assert.Equal(t, []int64{term.ID}, repo.deleted)
}
