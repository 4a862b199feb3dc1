package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/registro-sv/academico-api/internal/models"
	appErrors "github.com/registro-sv/academico-api/pkg/errors"
	"github.com/registro-sv/academico-api/pkg/mask"
)

type studentRepository interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentTermCounter interface {
	CountActiveByStudent(ctx context.Context, studentID string) (int, error)
}

type regionProvider interface {
	Contains(department, municipality string) bool
}

// SaveStudentRequest describes create and update payloads for students. The
// code and phone fields accept free-form input and are normalized through
// the masking rules before validation.
type SaveStudentRequest struct {
	Code         string    `json:"codigo" validate:"required"`
	FullName     string    `json:"nombre" validate:"required"`
	Department   string    `json:"departamento" validate:"required"`
	Municipality string    `json:"municipio" validate:"required"`
	BirthDate    time.Time `json:"fechaNacimiento" validate:"required"`
	Gender       string    `json:"sexo" validate:"required,oneof=Masculino Femenino"`
	Phone        string    `json:"telefono" validate:"required"`
	Address      string    `json:"direccion" validate:"required"`
}

// StudentService manages the student registry.
type StudentService struct {
	repo      studentRepository
	terms     studentTermCounter
	regions   regionProvider
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(repo studentRepository, terms studentTermCounter, regions regionProvider, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{repo: repo, terms: terms, regions: regions, validator: validate, logger: logger}
}

// List returns students with pagination metadata.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error) {
	students, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
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
	return students, pagination, nil
}

// Get loads one student by id.
func (s *StudentService) Get(ctx context.Context, id string) (*models.Student, error) {
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

// Create registers a new student.
func (s *StudentService) Create(ctx context.Context, req SaveStudentRequest) (*models.Student, error) {
	normalized, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, normalized.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student code already registered")
	}
	student := &models.Student{
		Code:         normalized.Code,
		FullName:     normalized.FullName,
		Department:   normalized.Department,
		Municipality: normalized.Municipality,
		BirthDate:    normalized.BirthDate,
		Gender:       normalized.Gender,
		Phone:        normalized.Phone,
		Address:      normalized.Address,
	}
	student.Hash = studentDigest(student)
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	return student, nil
}

// Update edits an existing student.
func (s *StudentService) Update(ctx context.Context, id string, req SaveStudentRequest) (*models.Student, error) {
	normalized, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	student, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	exists, err := s.repo.ExistsByCode(ctx, normalized.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate student code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "student code already registered")
	}
	student.Code = normalized.Code
	student.FullName = normalized.FullName
	student.Department = normalized.Department
	student.Municipality = normalized.Municipality
	student.BirthDate = normalized.BirthDate
	student.Gender = normalized.Gender
	student.Phone = normalized.Phone
	student.Address = normalized.Address
	student.Hash = studentDigest(student)
	if err := s.repo.Update(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
	}
	return student, nil
}

// Delete removes a student. Students holding active terms are kept.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	count, err := s.terms.CountActiveByStudent(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count student terms")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "student still holds active enrollment terms")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	return nil
}

// studentDigest is the record-integrity digest stored alongside the row,
// recomputed on every save.
func studentDigest(s *models.Student) string {
	return integrityDigest(s.Code, s.FullName, s.Department, s.Municipality,
		s.BirthDate.UTC().Format(time.RFC3339), s.Gender, s.Phone, s.Address)
}

func (s *StudentService) normalize(req SaveStudentRequest) (SaveStudentRequest, error) {
	req.Code = mask.StudentCode(req.Code)
	req.Phone = mask.Phone(req.Phone)
	if err := s.validator.Struct(req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	if !mask.ValidStudentCode(req.Code) {
		return req, appErrors.Clone(appErrors.ErrValidation, "student code must be four letters followed by six digits")
	}
	if !mask.ValidPhone(req.Phone) {
		return req, appErrors.Clone(appErrors.ErrValidation, "phone must have eight digits")
	}
	if !s.regions.Contains(req.Department, req.Municipality) {
		return req, appErrors.Clone(appErrors.ErrValidation, "municipality does not belong to the department")
	}
	return req, nil
}
