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

// TermSpacing is the minimum gap enforced between two enrollment terms of
// the same student. Measured as a fixed duration, not calendar months.
const TermSpacing = 180 * 24 * time.Hour

type termRepository interface {
	List(ctx context.Context, filter models.TermFilter) ([]models.TermDetail, int, error)
	FindByID(ctx context.Context, id int64) (*models.Term, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.Term, error)
	Create(ctx context.Context, term *models.Term) error
	Update(ctx context.Context, term *models.Term) error
	Delete(ctx context.Context, id int64) error
	CountRegistrationRows(ctx context.Context, id int64) (int, error)
}

type termStudentReader interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
}

// CreateTermRequest describes a term creation payload.
type CreateTermRequest struct {
	StudentID  string    `json:"id" validate:"required"`
	EnrolledAt time.Time `json:"fechaMatricula" validate:"required"`
	Cycle      string    `json:"ciclo" validate:"required"`
	Active     bool      `json:"activo"`
	Career     string    `json:"carrera" validate:"required"`
	Admission  string    `json:"ingreso" validate:"required,oneof=Nuevo Antiguo"`
}

// UpdateTermRequest describes a term update payload.
type UpdateTermRequest struct {
	EnrolledAt time.Time `json:"fechaMatricula" validate:"required"`
	Cycle      string    `json:"ciclo" validate:"required"`
	Active     bool      `json:"activo"`
	Career     string    `json:"carrera" validate:"required"`
	Admission  string    `json:"ingreso" validate:"required,oneof=Nuevo Antiguo"`
}

// TermService manages enrollment terms and the spacing rule between them.
type TermService struct {
	repo      termRepository
	students  termStudentReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTermService constructs TermService.
func NewTermService(repo termRepository, students termStudentReader, validate *validator.Validate, logger *zap.Logger) *TermService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TermService{repo: repo, students: students, validator: validate, logger: logger}
}

// List returns terms with pagination metadata.
func (s *TermService) List(ctx context.Context, filter models.TermFilter) ([]models.TermDetail, *models.Pagination, error) {
	terms, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list terms")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return terms, pagination, nil
}

// Get loads one term by id.
func (s *TermService) Get(ctx context.Context, id int64) (*models.Term, error) {
	term, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	return term, nil
}

// Create registers a new enrollment term after checking the spacing rule
// against every other term the student already holds.
func (s *TermService) Create(ctx context.Context, req CreateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	if _, err := s.students.FindByID(ctx, req.StudentID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := s.checkSpacing(ctx, req.StudentID, req.EnrolledAt, 0); err != nil {
		return nil, err
	}
	term := &models.Term{
		StudentID:  req.StudentID,
		EnrolledAt: req.EnrolledAt.UTC(),
		Cycle:      req.Cycle,
		Status:     statusFromActive(req.Active),
		Career:     req.Career,
		Admission:  models.AdmissionType(req.Admission),
		Hash:       time.Now().UnixMilli(),
	}
	if err := s.repo.Create(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create term")
	}
	return term, nil
}

// Update edits an existing term. The spacing rule runs against the student's
// other terms; the term being edited never conflicts with itself.
func (s *TermService) Update(ctx context.Context, id int64, req UpdateTermRequest) (*models.Term, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid term payload")
	}
	term, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	if err := s.checkSpacing(ctx, term.StudentID, req.EnrolledAt, id); err != nil {
		return nil, err
	}
	term.EnrolledAt = req.EnrolledAt.UTC()
	term.Cycle = req.Cycle
	term.Status = statusFromActive(req.Active)
	term.Career = req.Career
	term.Admission = models.AdmissionType(req.Admission)
	if err := s.repo.Update(ctx, term); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update term")
	}
	return term, nil
}

// Delete removes a term. Terms that still own registration rows are kept.
func (s *TermService) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "term not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load term")
	}
	count, err := s.repo.CountRegistrationRows(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "term still has registered courses")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete term")
	}
	return nil
}

// checkSpacing rejects the candidate date when any other term of the student
// falls within TermSpacing of it, in either direction.
func (s *TermService) checkSpacing(ctx context.Context, studentID string, at time.Time, excludeID int64) error {
	terms, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student terms")
	}
	for _, other := range terms {
		if other.ID == excludeID {
			continue
		}
		diff := at.Sub(other.EnrolledAt)
		if diff < 0 {
			diff = -diff
		}
		if diff < TermSpacing {
			msg := fmt.Sprintf("student already enrolled on %s, terms must be at least six months apart", other.EnrolledAt.UTC().Format("2006-01-02"))
			return appErrors.Clone(appErrors.ErrTermSpacing, msg)
		}
	}
	return nil
}

func statusFromActive(active bool) models.TermStatus {
	if active {
		return models.TermStatusActive
	}
	return models.TermStatusInactive
}
