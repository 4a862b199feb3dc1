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

type mockWorkflowTerms struct {
	terms map[int64]*models.Term
}

func (m *mockWorkflowTerms) FindByID(ctx context.Context, id int64) (*models.Term, error) {
	if t, ok := m.terms[id]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

type mockWorkflowCourses struct{}

func (m *mockWorkflowCourses) FindByID(ctx context.Context, id string) (*models.Course, error) {
	if id == "missing" {
		return nil, sql.ErrNoRows
	}
	instructor := "doc-1"
	return &models.Course{ID: id, Code: "MAT101", Name: "Matemática I", CreditUnits: 4, InstructorID: &instructor}, nil
}

type mockWorkflowInstructors struct{}

func (m *mockWorkflowInstructors) FindByID(ctx context.Context, id string) (*models.Instructor, error) {
	return &models.Instructor{ID: id, FullName: "Carlos Pineda"}, nil
}

type mockEventWriter struct {
	created   []SaveEventRequest
	updated   []SaveEventRequest
	updatedAt []time.Time
	existing  map[string][]models.RegistrationRow
}

func (m *mockEventWriter) GetEvent(ctx context.Context, termID int64, at time.Time) (*models.RegistrationEvent, error) {
	rows, ok := m.existing[at.UTC().Format(models.EventTimeLayout)]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration event not found")
	}
	return &models.RegistrationEvent{TermID: termID, RegisteredAt: at, Rows: rows}, nil
}

func (m *mockEventWriter) CreateEvent(ctx context.Context, termID int64, req SaveEventRequest) (*models.RegistrationEvent, error) {
	m.created = append(m.created, req)
	return &models.RegistrationEvent{TermID: termID, RegisteredAt: time.Now().UTC()}, nil
}

func (m *mockEventWriter) UpdateEvent(ctx context.Context, termID int64, at time.Time, req SaveEventRequest) (*models.RegistrationEvent, error) {
	m.updated = append(m.updated, req)
	m.updatedAt = append(m.updatedAt, at)
	return &models.RegistrationEvent{TermID: termID, RegisteredAt: at}, nil
}

func newWorkflowFixture(status models.TermStatus) (*WorkflowService, *mockEventWriter) {
	terms := &mockWorkflowTerms{terms: map[int64]*models.Term{
		1: {ID: 1, StudentID: "stu-1", Status: status},
	}}
	events := &mockEventWriter{existing: make(map[string][]models.RegistrationRow)}
	svc := NewWorkflowService(terms, &mockWorkflowCourses{}, &mockWorkflowInstructors{}, events, time.Minute, time.Minute, 5, nil, nil)
	return svc, events
}

func TestWorkflowFullSelection(t *testing.T) {
	svc, events := newWorkflowFixture(models.TermStatusActive)
	ctx := context.Background()

	session, err := svc.Start(ctx, 1, nil)
	require.NoError(t, err)
	require.NotEmpty(t, session.ID)

	_, err = svc.SetSlotCount(ctx, session.ID, 2, false)
	require.NoError(t, err)

	preview, err := svc.Preview(ctx, session.ID, 0, "c-a")
	require.NoError(t, err)
	assert.Equal(t, "MAT101", preview.CourseCode)
	assert.Equal(t, "Carlos Pineda", preview.InstructorName)

	_, err = svc.Confirm(ctx, session.ID, 0)
	require.NoError(t, err)
	_, err = svc.Preview(ctx, session.ID, 1, "c-b")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, session.ID, 1)
	require.NoError(t, err)

	event, err := svc.Save(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), event.TermID)
	require.Len(t, events.created, 1)
	assert.Equal(t, []string{"c-a", "c-b"}, events.created[0].CourseIDs)

	// Saving closes the session.
	_, err = svc.Get(ctx, session.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestWorkflowStartRequiresActiveTerm(t *testing.T) {
	svc, _ := newWorkflowFixture(models.TermStatusInactive)
	_, err := svc.Start(context.Background(), 1, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTermInactive.Code, appErrors.FromError(err).Code)
}

func TestWorkflowEditPrefillsAndReconciles(t *testing.T) {
	svc, events := newWorkflowFixture(models.TermStatusActive)
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	events.existing[at.Format(models.EventTimeLayout)] = []models.RegistrationRow{
		{ID: 1, TermID: 1, CourseID: "c-a", RegisteredAt: at},
		{ID: 2, TermID: 1, CourseID: "c-b", RegisteredAt: at},
	}

	session, err := svc.Start(ctx, 1, &at)
	require.NoError(t, err)
	assert.True(t, session.Workflow.Edit)
	assert.Equal(t, []string{"c-a", "c-b"}, session.Workflow.ConfirmedCourseIDs())

	_, err = svc.Remove(ctx, session.ID, 0)
	require.NoError(t, err)
	_, err = svc.Preview(ctx, session.ID, 0, "c-c")
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, session.ID, 0)
	require.NoError(t, err)

	_, err = svc.Save(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, events.updated, 1)
	assert.ElementsMatch(t, []string{"c-b", "c-c"}, events.updated[0].CourseIDs)
	assert.True(t, events.updatedAt[0].Equal(at))
}

func TestWorkflowSaveRequiresSelection(t *testing.T) {
	svc, events := newWorkflowFixture(models.TermStatusActive)
	ctx := context.Background()
	session, err := svc.Start(ctx, 1, nil)
	require.NoError(t, err)

	_, err = svc.Save(ctx, session.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmptySelection.Code, appErrors.FromError(err).Code)
	assert.Empty(t, events.created)
}

func TestWorkflowSaveRequiresSelectionOnEdit(t *testing.T) {
	svc, events := newWorkflowFixture(models.TermStatusInactive)
	ctx := context.Background()
	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	events.existing[at.Format(models.EventTimeLayout)] = []models.RegistrationRow{
		{ID: 1, TermID: 1, CourseID: "c-a", RegisteredAt: at},
	}

	session, err := svc.Start(ctx, 1, &at)
	require.NoError(t, err)
	_, err = svc.Remove(ctx, session.ID, 0)
	require.NoError(t, err)

	// An edit drained to zero confirmed slots cannot be saved; deleting the
	// event is a separate operation.
	_, err = svc.Save(ctx, session.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrEmptySelection.Code, appErrors.FromError(err).Code)
	assert.Empty(t, events.updated)
}

func TestWorkflowCancelDiscardsSession(t *testing.T) {
	svc, _ := newWorkflowFixture(models.TermStatusActive)
	ctx := context.Background()
	session, err := svc.Start(ctx, 1, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, session.ID))
	_, err = svc.Get(ctx, session.ID)
	require.Error(t, err)
}

func TestWorkflowSingleOperationLatch(t *testing.T) {
	svc, _ := newWorkflowFixture(models.TermStatusActive)
	ctx := context.Background()
	session, err := svc.Start(ctx, 1, nil)
	require.NoError(t, err)

	entry, err := svc.entry(session.ID)
	require.NoError(t, err)
	require.NoError(t, entry.acquire())

	_, err = svc.SetSlotCount(ctx, session.ID, 2, false)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrOperationInFlight.Code, appErrors.FromError(err).Code)

	entry.release()
	_, err = svc.SetSlotCount(ctx, session.ID, 2, false)
	require.NoError(t, err)
}
