package service

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/registro-sv/academico-api/internal/models"
	appErrors "github.com/registro-sv/academico-api/pkg/errors"
)

type workflowTermReader interface {
	FindByID(ctx context.Context, id int64) (*models.Term, error)
}

type workflowCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type workflowInstructorReader interface {
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
}

type eventWriter interface {
	GetEvent(ctx context.Context, termID int64, at time.Time) (*models.RegistrationEvent, error)
	CreateEvent(ctx context.Context, termID int64, req SaveEventRequest) (*models.RegistrationEvent, error)
	UpdateEvent(ctx context.Context, termID int64, at time.Time, req SaveEventRequest) (*models.RegistrationEvent, error)
}

// WorkflowSession pairs a session id with its selection state.
type WorkflowSession struct {
	ID       string        `json:"id"`
	Workflow *SlotWorkflow `json:"workflow"`
}

// WorkflowPreview is the resolved course shown for a staged slot.
type WorkflowPreview struct {
	Slot           int    `json:"slot"`
	CourseID       string `json:"idMateria"`
	CourseCode     string `json:"codigo"`
	CourseName     string `json:"nombre"`
	CreditUnits    int    `json:"uv"`
	InstructorName string `json:"docente,omitempty"`
}

type workflowEntry struct {
	mu       sync.Mutex
	busy     bool
	workflow *SlotWorkflow
}

func (e *workflowEntry) acquire() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.busy {
		return appErrors.Clone(appErrors.ErrOperationInFlight, "a previous operation on this workflow has not completed")
	}
	e.busy = true
	return nil
}

func (e *workflowEntry) release() {
	e.mu.Lock()
	e.busy = false
	e.mu.Unlock()
}

// WorkflowService hosts slot selection sessions. Sessions live in an
// in-process TTL cache; an abandoned selection expires on its own without
// touching storage. Each session accepts one operation at a time.
type WorkflowService struct {
	sessions    *gocache.Cache
	terms       workflowTermReader
	courses     workflowCourseReader
	instructors workflowInstructorReader
	events      eventWriter
	maxSlots    int
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewWorkflowService constructs WorkflowService.
func NewWorkflowService(terms workflowTermReader, courses workflowCourseReader, instructors workflowInstructorReader, events eventWriter, sessionTTL, cleanupInterval time.Duration, maxSlots int, metrics *MetricsService, logger *zap.Logger) *WorkflowService {
	if sessionTTL <= 0 {
		sessionTTL = 30 * time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 5 * time.Minute
	}
	if maxSlots < 1 {
		maxSlots = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &WorkflowService{
		sessions:    gocache.New(sessionTTL, cleanupInterval),
		terms:       terms,
		courses:     courses,
		instructors: instructors,
		events:      events,
		maxSlots:    maxSlots,
		metrics:     metrics,
		logger:      logger,
	}
	svc.sessions.OnEvicted(func(string, interface{}) {
		svc.metrics.SessionClosed()
	})
	return svc
}

// Start opens a new selection session for a term. When eventAt is given the
// session edits that event, prefilled with its current courses; otherwise it
// builds a new event and requires the term to be active.
func (s *WorkflowService) Start(ctx context.Context, termID int64, eventAt *time.Time) (*WorkflowSession, error) {
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	active := term.Status == models.TermStatusActive

	var workflow *SlotWorkflow
	if eventAt != nil {
		event, err := s.events.GetEvent(ctx, termID, *eventAt)
		if err != nil {
			return nil, err
		}
		courseIDs := make([]string, 0, len(event.Rows))
		for _, row := range event.Rows {
			courseIDs = append(courseIDs, row.CourseID)
		}
		workflow = NewEditWorkflow(termID, active, s.maxSlots, event.RegisteredAt, courseIDs)
	} else {
		if !active {
			return nil, appErrors.Clone(appErrors.ErrTermInactive, "registrations can only be added while the term is active")
		}
		workflow = NewSlotWorkflow(termID, active, s.maxSlots)
	}

	id := uuid.NewString()
	s.sessions.SetDefault(id, &workflowEntry{workflow: workflow})
	s.metrics.SessionOpened()
	s.logger.Debug("workflow session started", zap.String("session_id", id), zap.Int64("term_id", termID), zap.Bool("edit", workflow.Edit))
	return &WorkflowSession{ID: id, Workflow: workflow}, nil
}

// Get returns the session's current state.
func (s *WorkflowService) Get(ctx context.Context, sessionID string) (*WorkflowSession, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	return &WorkflowSession{ID: sessionID, Workflow: entry.workflow}, nil
}

// SetSlotCount resizes the session's slot list.
func (s *WorkflowService) SetSlotCount(ctx context.Context, sessionID string, count int, force bool) (*WorkflowSession, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	if err := entry.acquire(); err != nil {
		return nil, err
	}
	defer entry.release()
	if err := entry.workflow.SetSlotCount(count, force); err != nil {
		return nil, err
	}
	return &WorkflowSession{ID: sessionID, Workflow: entry.workflow}, nil
}

// Preview stages a course in a slot and resolves its details for display.
func (s *WorkflowService) Preview(ctx context.Context, sessionID string, slot int, courseID string) (*WorkflowPreview, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	if err := entry.acquire(); err != nil {
		return nil, err
	}
	defer entry.release()

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	if err := entry.workflow.PreviewCourse(slot, courseID); err != nil {
		return nil, err
	}

	preview := &WorkflowPreview{
		Slot:        slot,
		CourseID:    course.ID,
		CourseCode:  course.Code,
		CourseName:  course.Name,
		CreditUnits: course.CreditUnits,
	}
	if course.InstructorID != nil {
		instructor, err := s.instructors.FindByID(ctx, *course.InstructorID)
		if err == nil {
			preview.InstructorName = instructor.FullName
		} else if err != sql.ErrNoRows {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
		}
	}
	return preview, nil
}

// Confirm promotes the slot's previewed course.
func (s *WorkflowService) Confirm(ctx context.Context, sessionID string, slot int) (*WorkflowSession, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	if err := entry.acquire(); err != nil {
		return nil, err
	}
	defer entry.release()
	if err := entry.workflow.ConfirmPreview(slot); err != nil {
		return nil, err
	}
	return &WorkflowSession{ID: sessionID, Workflow: entry.workflow}, nil
}

// Remove clears a slot.
func (s *WorkflowService) Remove(ctx context.Context, sessionID string, slot int) (*WorkflowSession, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	if err := entry.acquire(); err != nil {
		return nil, err
	}
	defer entry.release()
	if err := entry.workflow.RemoveSlot(slot); err != nil {
		return nil, err
	}
	return &WorkflowSession{ID: sessionID, Workflow: entry.workflow}, nil
}

// Save persists the confirmed selection as a registration event and closes
// the session. New sessions create an event; edit sessions reconcile the one
// they were opened on.
func (s *WorkflowService) Save(ctx context.Context, sessionID string) (*models.RegistrationEvent, error) {
	entry, err := s.entry(sessionID)
	if err != nil {
		return nil, err
	}
	if err := entry.acquire(); err != nil {
		return nil, err
	}
	defer entry.release()

	courseIDs := entry.workflow.ConfirmedCourseIDs()
	if len(courseIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrEmptySelection, "select at least one course before saving")
	}

	var event *models.RegistrationEvent
	if entry.workflow.Edit {
		event, err = s.events.UpdateEvent(ctx, entry.workflow.TermID, entry.workflow.EventAt, SaveEventRequest{CourseIDs: courseIDs})
	} else {
		event, err = s.events.CreateEvent(ctx, entry.workflow.TermID, SaveEventRequest{CourseIDs: courseIDs})
	}
	if err != nil {
		return nil, err
	}
	s.sessions.Delete(sessionID)
	return event, nil
}

// Cancel discards the session without persisting anything.
func (s *WorkflowService) Cancel(ctx context.Context, sessionID string) error {
	if _, err := s.entry(sessionID); err != nil {
		return err
	}
	s.sessions.Delete(sessionID)
	return nil
}

func (s *WorkflowService) entry(sessionID string) (*workflowEntry, error) {
	value, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "workflow session not found or expired")
	}
	return value.(*workflowEntry), nil
}
