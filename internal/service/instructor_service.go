package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/registro-sv/academico-api/internal/models"
	appErrors "github.com/registro-sv/academico-api/pkg/errors"
	"github.com/registro-sv/academico-api/pkg/mask"
)

type instructorRepository interface {
	List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, int, error)
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	CountCourses(ctx context.Context, id string) (int, error)
	Create(ctx context.Context, instructor *models.Instructor) error
	Update(ctx context.Context, instructor *models.Instructor) error
	Delete(ctx context.Context, id string) error
}

// SaveInstructorRequest describes create and update payloads for
// instructors. Code, phone and national id pass through the masking rules.
type SaveInstructorRequest struct {
	Code       string `json:"codigo" validate:"required"`
	FullName   string `json:"nombre" validate:"required"`
	Address    string `json:"direccion" validate:"required"`
	Email      string `json:"email" validate:"required,email"`
	Phone      string `json:"telefono" validate:"required"`
	NationalID string `json:"dui" validate:"required"`
	Payscale   string `json:"escalafon" validate:"required"`
}

// InstructorService manages the instructor registry.
type InstructorService struct {
	repo      instructorRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewInstructorService constructs InstructorService.
func NewInstructorService(repo instructorRepository, validate *validator.Validate, logger *zap.Logger) *InstructorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstructorService{repo: repo, validator: validate, logger: logger}
}

// List returns instructors with pagination metadata.
func (s *InstructorService) List(ctx context.Context, filter models.InstructorFilter) ([]models.Instructor, *models.Pagination, error) {
	instructors, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instructors")
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
	return instructors, pagination, nil
}

// Get loads one instructor by id.
func (s *InstructorService) Get(ctx context.Context, id string) (*models.Instructor, error) {
	instructor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	return instructor, nil
}

// Create registers a new instructor.
func (s *InstructorService) Create(ctx context.Context, req SaveInstructorRequest) (*models.Instructor, error) {
	normalized, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, normalized.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate instructor code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "instructor code already registered")
	}
	instructor := &models.Instructor{
		Code:       normalized.Code,
		FullName:   normalized.FullName,
		Address:    normalized.Address,
		Email:      normalized.Email,
		Phone:      normalized.Phone,
		NationalID: normalized.NationalID,
		Payscale:   normalized.Payscale,
	}
	instructor.Hash = instructorDigest(instructor)
	if err := s.repo.Create(ctx, instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instructor")
	}
	return instructor, nil
}

// Update edits an existing instructor.
func (s *InstructorService) Update(ctx context.Context, id string, req SaveInstructorRequest) (*models.Instructor, error) {
	normalized, err := s.normalize(req)
	if err != nil {
		return nil, err
	}
	instructor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	exists, err := s.repo.ExistsByCode(ctx, normalized.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate instructor code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "instructor code already registered")
	}
	instructor.Code = normalized.Code
	instructor.FullName = normalized.FullName
	instructor.Address = normalized.Address
	instructor.Email = normalized.Email
	instructor.Phone = normalized.Phone
	instructor.NationalID = normalized.NationalID
	instructor.Payscale = normalized.Payscale
	instructor.Hash = instructorDigest(instructor)
	if err := s.repo.Update(ctx, instructor); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update instructor")
	}
	return instructor, nil
}

// Delete removes an instructor. Instructors still assigned to courses are
// kept.
func (s *InstructorService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
	}
	count, err := s.repo.CountCourses(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count assigned courses")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "instructor still assigned to courses")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete instructor")
	}
	return nil
}

// instructorDigest is the record-integrity digest stored alongside the row,
// recomputed on every save.
func instructorDigest(i *models.Instructor) string {
	return integrityDigest(i.Code, i.FullName, i.Address, i.Email, i.Phone, i.NationalID, i.Payscale)
}

func (s *InstructorService) normalize(req SaveInstructorRequest) (SaveInstructorRequest, error) {
	req.Code = mask.InstructorCode(req.Code)
	req.Phone = mask.Phone(req.Phone)
	req.NationalID = mask.NationalID(req.NationalID)
	if err := s.validator.Struct(req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instructor payload")
	}
	if !mask.ValidInstructorCode(req.Code) {
		return req, appErrors.Clone(appErrors.ErrValidation, "instructor code must be four letters followed by six digits")
	}
	if !mask.ValidPhone(req.Phone) {
		return req, appErrors.Clone(appErrors.ErrValidation, "phone must have eight digits")
	}
	if !mask.ValidNationalID(req.NationalID) {
		return req, appErrors.Clone(appErrors.ErrValidation, "national id must have nine digits")
	}
	return req, nil
}
