package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/registro-sv/academico-api/internal/models"
	appErrors "github.com/registro-sv/academico-api/pkg/errors"
)

type registrationRepository interface {
	ListByTerm(ctx context.Context, termID int64) ([]models.RegistrationRow, error)
	ListByEvent(ctx context.Context, termID int64, at time.Time) ([]models.RegistrationRow, error)
	CountEvents(ctx context.Context, termID int64) (int, error)
	CreateEvent(ctx context.Context, termID int64, courseIDs []string, at time.Time) ([]models.RegistrationRow, error)
	ReconcileEvent(ctx context.Context, termID int64, at time.Time, deleteRowIDs []int64, addCourseIDs []string) ([]models.RegistrationRow, error)
	DeleteEvent(ctx context.Context, termID int64, at time.Time) error
}

type registrationTermReader interface {
	FindByID(ctx context.Context, id int64) (*models.Term, error)
}

type registrationStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

type registrationCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

// SaveEventRequest carries the confirmed course set for a create or edit.
type SaveEventRequest struct {
	CourseIDs []string `json:"materias" validate:"required,min=1,dive,required"`
}

// RegistrationService derives events from stored rows and reconciles edits
// against them. Events are recomputed from rows on every call; no grouping
// result survives a mutation.
type RegistrationService struct {
	repo      registrationRepository
	terms     registrationTermReader
	students  registrationStudentReader
	courses   registrationCourseReader
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewRegistrationService constructs RegistrationService.
func NewRegistrationService(repo registrationRepository, terms registrationTermReader, students registrationStudentReader, courses registrationCourseReader, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *RegistrationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{repo: repo, terms: terms, students: students, courses: courses, validator: validate, metrics: metrics, logger: logger}
}

// ListEvents groups the term's rows into events, most recent first.
func (s *RegistrationService) ListEvents(ctx context.Context, termID int64) ([]models.RegistrationEvent, error) {
	if _, err := s.loadTerm(ctx, termID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByTerm(ctx, termID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list registrations")
	}
	return GroupEvents(rows, termID), nil
}

// GetEvent returns the single event saved at the given timestamp.
func (s *RegistrationService) GetEvent(ctx context.Context, termID int64, at time.Time) (*models.RegistrationEvent, error) {
	if _, err := s.loadTerm(ctx, termID); err != nil {
		return nil, err
	}
	rows, err := s.repo.ListByEvent(ctx, termID, at)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration event not found")
	}
	return &models.RegistrationEvent{TermID: termID, RegisteredAt: rows[0].RegisteredAt, Rows: rows}, nil
}

// ListEventDetails enriches the term's events with student and course
// context for table views and exports.
func (s *RegistrationService) ListEventDetails(ctx context.Context, termID int64) ([]models.RegistrationEventDetail, error) {
	term, err := s.loadTerm(ctx, termID)
	if err != nil {
		return nil, err
	}
	student, err := s.students.FindByID(ctx, term.StudentID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	events, err := s.ListEvents(ctx, termID)
	if err != nil {
		return nil, err
	}
	codes := make(map[string]string)
	details := make([]models.RegistrationEventDetail, 0, len(events))
	for _, event := range events {
		detail := models.RegistrationEventDetail{
			RegistrationEvent: event,
			StudentCode:       student.Code,
			StudentName:       student.FullName,
		}
		for _, row := range event.Rows {
			code, ok := codes[row.CourseID]
			if !ok {
				course, err := s.courses.FindByID(ctx, row.CourseID)
				if err != nil {
					if err == sql.ErrNoRows {
						code = row.CourseID
					} else {
						return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
					}
				} else {
					code = course.Code
				}
				codes[row.CourseID] = code
			}
			detail.CourseCodes = append(detail.CourseCodes, code)
		}
		details = append(details, detail)
	}
	return details, nil
}

// CreateEvent stores the confirmed selection as one event. Every row gets
// the same timestamp so the grouper reads them back as a single event.
func (s *RegistrationService) CreateEvent(ctx context.Context, termID int64, req SaveEventRequest) (*models.RegistrationEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordGuardRejection(appErrors.ErrEmptySelection.Code)
		return nil, appErrors.Clone(appErrors.ErrEmptySelection, "select at least one course before saving")
	}
	term, err := s.loadTerm(ctx, termID)
	if err != nil {
		return nil, err
	}
	if term.Status != models.TermStatusActive {
		s.metrics.RecordGuardRejection(appErrors.ErrTermInactive.Code)
		return nil, appErrors.Clone(appErrors.ErrTermInactive, "registrations can only be added while the term is active")
	}
	if err := s.checkCourses(ctx, req.CourseIDs); err != nil {
		return nil, err
	}
	at := time.Now().UTC()
	rows, err := s.repo.CreateEvent(ctx, termID, req.CourseIDs, at)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save registrations")
	}
	s.metrics.RecordEventSaved("create")
	return &models.RegistrationEvent{TermID: termID, RegisteredAt: at, Rows: rows}, nil
}

// UpdateEvent reconciles the event at the given timestamp against the
// confirmed course set: rows whose course left the set are deleted, courses
// new to the set are inserted under the event's original timestamp, and rows
// whose course stayed are untouched.
func (s *RegistrationService) UpdateEvent(ctx context.Context, termID int64, at time.Time, req SaveEventRequest) (*models.RegistrationEvent, error) {
	if err := s.validator.Struct(req); err != nil {
		s.metrics.RecordGuardRejection(appErrors.ErrEmptySelection.Code)
		return nil, appErrors.Clone(appErrors.ErrEmptySelection, "select at least one course before saving")
	}
	if _, err := s.loadTerm(ctx, termID); err != nil {
		return nil, err
	}
	existing, err := s.repo.ListByEvent(ctx, termID, at)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if len(existing) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "registration event not found")
	}
	if err := s.checkCourses(ctx, req.CourseIDs); err != nil {
		return nil, err
	}

	confirmed := make(map[string]bool, len(req.CourseIDs))
	for _, id := range req.CourseIDs {
		confirmed[id] = true
	}
	held := make(map[string]bool, len(existing))
	deleteIDs := make([]int64, 0)
	for _, row := range existing {
		held[row.CourseID] = true
		if !confirmed[row.CourseID] {
			deleteIDs = append(deleteIDs, row.ID)
		}
	}
	addIDs := make([]string, 0)
	for _, id := range req.CourseIDs {
		if !held[id] {
			addIDs = append(addIDs, id)
		}
	}

	rows, err := s.repo.ReconcileEvent(ctx, termID, at, deleteIDs, addIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile event")
	}
	s.metrics.RecordEventSaved("edit")
	return &models.RegistrationEvent{TermID: termID, RegisteredAt: at, Rows: rows}, nil
}

// DeleteEvent removes every row of the event. The last remaining event of an
// active term cannot be deleted.
func (s *RegistrationService) DeleteEvent(ctx context.Context, termID int64, at time.Time) error {
	term, err := s.loadTerm(ctx, termID)
	if err != nil {
		return err
	}
	rows, err := s.repo.ListByEvent(ctx, termID, at)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	if len(rows) == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "registration event not found")
	}
	if term.Status == models.TermStatusActive {
		count, err := s.repo.CountEvents(ctx, termID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count events")
		}
		if count <= 1 {
			s.metrics.RecordGuardRejection(appErrors.ErrLastEventGuard.Code)
			return appErrors.Clone(appErrors.ErrLastEventGuard, "cannot delete the last registration event while the term is active")
		}
	}
	if err := s.repo.DeleteEvent(ctx, termID, at); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete event")
	}
	return nil
}

func (s *RegistrationService) loadTerm(ctx context.Context, termID int64) (*models.Term, error) {
	term, err := s.terms.FindByID(ctx, termID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}

func (s *RegistrationService) checkCourses(ctx context.Context, courseIDs []string) error {
	seen := make(map[string]bool, len(courseIDs))
	for _, id := range courseIDs {
		if seen[id] {
			return appErrors.Clone(appErrors.ErrDuplicateCourse, fmt.Sprintf("course %s appears more than once in the selection", id))
		}
		seen[id] = true
		if _, err := s.courses.FindByID(ctx, id); err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", id))
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
		}
	}
	return nil
}
