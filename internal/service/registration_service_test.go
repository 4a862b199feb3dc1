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

type mockRegRepo struct {
	rows   []models.RegistrationRow
	nextID int64
}

func (m *mockRegRepo) ListByTerm(ctx context.Context, termID int64) ([]models.RegistrationRow, error) {
	var list []models.RegistrationRow
	for _, row := range m.rows {
		if row.TermID == termID {
			list = append(list, row)
		}
	}
	return list, nil
}

func (m *mockRegRepo) ListByEvent(ctx context.Context, termID int64, at time.Time) ([]models.RegistrationRow, error) {
	var list []models.RegistrationRow
	for _, row := range m.rows {
		if row.TermID == termID && row.RegisteredAt.Equal(at) {
			list = append(list, row)
		}
	}
	return list, nil
}

func (m *mockRegRepo) CountEvents(ctx context.Context, termID int64) (int, error) {
	seen := make(map[string]bool)
	for _, row := range m.rows {
		if row.TermID == termID {
			seen[row.EventKey()] = true
		}
	}
	return len(seen), nil
}

func (m *mockRegRepo) CreateEvent(ctx context.Context, termID int64, courseIDs []string, at time.Time) ([]models.RegistrationRow, error) {
	var created []models.RegistrationRow
	for _, id := range courseIDs {
		m.nextID++
		row := models.RegistrationRow{ID: m.nextID, TermID: termID, CourseID: id, RegisteredAt: at}
		m.rows = append(m.rows, row)
		created = append(created, row)
	}
	return created, nil
}

func (m *mockRegRepo) ReconcileEvent(ctx context.Context, termID int64, at time.Time, deleteRowIDs []int64, addCourseIDs []string) ([]models.RegistrationRow, error) {
	doomed := make(map[int64]bool, len(deleteRowIDs))
	for _, id := range deleteRowIDs {
		doomed[id] = true
	}
	kept := m.rows[:0]
	for _, row := range m.rows {
		if !doomed[row.ID] {
			kept = append(kept, row)
		}
	}
	m.rows = kept
	for _, id := range addCourseIDs {
		m.nextID++
		m.rows = append(m.rows, models.RegistrationRow{ID: m.nextID, TermID: termID, CourseID: id, RegisteredAt: at})
	}
	return m.ListByEvent(ctx, termID, at)
}

func (m *mockRegRepo) DeleteEvent(ctx context.Context, termID int64, at time.Time) error {
	kept := m.rows[:0]
	for _, row := range m.rows {
		if row.TermID == termID && row.RegisteredAt.Equal(at) {
			continue
		}
		kept = append(kept, row)
	}
	m.rows = kept
	return nil
}

type mockRegTerms struct {
	terms map[int64]*models.Term
}

func (m *mockRegTerms) FindByID(ctx context.Context, id int64) (*models.Term, error) {
	if t, ok := m.terms[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

type mockRegStudents struct{}

func (m *mockRegStudents) FindByID(ctx context.Context, id string) (*models.Student, error) {
	return &models.Student{ID: id, Code: "ABCD123456", FullName: "Ana Morales"}, nil
}

type mockRegCourses struct {
	missing map[string]bool
}

func (m *mockRegCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if m.missing[id] {
		return nil, sql.ErrNoRows
	}
	return &models.Course{ID: id, Code: "MAT101", Name: "Matemática I", CreditUnits: 4}, nil
}

func newRegistrationFixture(status models.TermStatus) (*RegistrationService, *mockRegRepo) {
	repo := &mockRegRepo{}
	terms := &mockRegTerms{terms: map[int64]*models.Term{
		1: {ID: 1, StudentID: "stu-1", Status: status},
	}}
	return NewRegistrationService(repo, terms, &mockRegStudents{}, &mockRegCourses{}, nil, nil, nil), repo
}

func TestGroupEventsByTimestamp(t *testing.T) {
	early := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := []models.RegistrationRow{
		{ID: 2, TermID: 1, CourseID: "c-b", RegisteredAt: early},
		{ID: 5, TermID: 1, CourseID: "c-d", RegisteredAt: late},
		{ID: 1, TermID: 1, CourseID: "c-a", RegisteredAt: early},
		{ID: 9, TermID: 2, CourseID: "c-x", RegisteredAt: early},
	}

	events := GroupEvents(rows, 1)
	require.Len(t, events, 2)
	assert.True(t, events[0].RegisteredAt.Equal(late))
	assert.Len(t, events[0].Rows, 1)
	require.Len(t, events[1].Rows, 2)
	assert.Equal(t, int64(1), events[1].Rows[0].ID)
	assert.Equal(t, int64(2), events[1].Rows[1].ID)

	// Grouping is a pure derivation: repeating it changes nothing.
	again := GroupEvents(rows, 1)
	assert.Equal(t, events, again)
}

func TestCreateEventSharesTimestamp(t *testing.T) {
	svc, repo := newRegistrationFixture(models.TermStatusActive)
	event, err := svc.CreateEvent(context.Background(), 1, SaveEventRequest{CourseIDs: []string{"c-a", "c-b", "c-c"}})
	require.NoError(t, err)
	require.Len(t, event.Rows, 3)
	for _, row := range event.Rows {
		assert.True(t, row.RegisteredAt.Equal(event.RegisteredAt))
	}

	events := GroupEvents(repo.rows, 1)
	require.Len(t, events, 1)
	assert.Len(t, events[0].Rows, 3)
}

func TestCreateEventGuards(t *testing.T) {
	svc, _ := newRegistrationFixture(models.TermStatusActive)
	_, err := svc.CreateEvent(context.Background(), 1, SaveEventRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmptySelection.Code, appErrors.FromError(err).Code)

	_, err = svc.CreateEvent(context.Background(), 1, SaveEventRequest{CourseIDs: []string{"c-a", "c-a"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateCourse.Code, appErrors.FromError(err).Code)

	inactive, _ := newRegistrationFixture(models.TermStatusInactive)
	_, err = inactive.CreateEvent(context.Background(), 1, SaveEventRequest{CourseIDs: []string{"c-a"}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTermInactive.Code, appErrors.FromError(err).Code)
}

func TestUpdateEventReconcilesDiff(t *testing.T) {
	svc, repo := newRegistrationFixture(models.TermStatusActive)
	event, err := svc.CreateEvent(context.Background(), 1, SaveEventRequest{CourseIDs: []string{"c-a", "c-b", "c-c"}})
	require.NoError(t, err)

	keptIDs := make(map[string]int64)
	for _, row := range event.Rows {
		keptIDs[row.CourseID] = row.ID
	}

	updated, err := svc.UpdateEvent(context.Background(), 1, event.RegisteredAt, SaveEventRequest{CourseIDs: []string{"c-b", "c-c", "c-d"}})
	require.NoError(t, err)
	require.Len(t, updated.Rows, 3)

	byCourse := make(map[string]models.RegistrationRow)
	for _, row := range updated.Rows {
		byCourse[row.CourseID] = row
		assert.True(t, row.RegisteredAt.Equal(event.RegisteredAt))
	}
	// Surviving courses keep their original rows; only the delta moved.
	assert.Equal(t, keptIDs["c-b"], byCourse["c-b"].ID)
	assert.Equal(t, keptIDs["c-c"], byCourse["c-c"].ID)
	assert.NotContains(t, byCourse, "c-a")
	assert.Contains(t, byCourse, "c-d")
	assert.Len(t, repo.rows, 3)
}

func TestUpdateEventRejectsEmptySelection(t *testing.T) {
	svc, repo := newRegistrationFixture(models.TermStatusActive)
	event, err := svc.CreateEvent(context.Background(), 1, SaveEventRequest{CourseIDs: []string{"c-a"}})
	require.NoError(t, err)

	_, err = svc.UpdateEvent(context.Background(), 1, event.RegisteredAt, SaveEventRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmptySelection.Code, appErrors.FromError(err).Code)

	// The guard fires before any branching, so inactive terms cannot have
	// their rows drained through an empty edit either.
	inactive, _ := newRegistrationFixture(models.TermStatusInactive)
	inactive.repo = repo

	_, err = inactive.UpdateEvent(context.Background(), 1, event.RegisteredAt, SaveEventRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmptySelection.Code, appErrors.FromError(err).Code)
	assert.Len(t, repo.rows, 1)
}

func TestDeleteEventLastEventGuard(t *testing.T) {
	svc, _ := newRegistrationFixture(models.TermStatusActive)
	event, err := svc.CreateEvent(context.Background(), 1, SaveEventRequest{CourseIDs: []string{"c-a"}})
	require.NoError(t, err)

	err = svc.DeleteEvent(context.Background(), 1, event.RegisteredAt)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrLastEventGuard.Code, appErrors.FromError(err).Code)
}

func TestDeleteEventWithSiblingSucceeds(t *testing.T) {
	svc, repo := newRegistrationFixture(models.TermStatusActive)
	first, err := svc.CreateEvent(context.Background(), 1, SaveEventRequest{CourseIDs: []string{"c-a"}})
	require.NoError(t, err)

	// A second event at a distinct timestamp.
	later := first.RegisteredAt.Add(time.Hour)
	_, err = repo.CreateEvent(context.Background(), 1, []string{"c-b"}, later)
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEvent(context.Background(), 1, first.RegisteredAt))
	events := GroupEvents(repo.rows, 1)
	require.Len(t, events, 1)
	assert.True(t, events[0].RegisteredAt.Equal(later))
}

func TestDeleteEventInactiveTermSkipsGuard(t *testing.T) {
	active, repo := newRegistrationFixture(models.TermStatusActive)
	event, err := active.CreateEvent(context.Background(), 1, SaveEventRequest{CourseIDs: []string{"c-a"}})
	require.NoError(t, err)

	inactive, _ := newRegistrationFixture(models.TermStatusInactive)
	inactive.repo = repo
	require.NoError(t, inactive.DeleteEvent(context.Background(), 1, event.RegisteredAt))
	assert.Empty(t, repo.rows)
}

func TestListEventDetails(t *testing.T) {
	svc, _ := newRegistrationFixture(models.TermStatusActive)
	_, err := svc.CreateEvent(context.Background(), 1, SaveEventRequest{CourseIDs: []string{"c-a", "c-b"}})
	require.NoError(t, err)

	details, err := svc.ListEventDetails(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "ABCD123456", details[0].StudentCode)
	assert.Len(t, details[0].CourseCodes, 2)
}
