package service

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/registro-sv/academico-api/internal/models"
	appErrors "github.com/registro-sv/academico-api/pkg/errors"
	"github.com/registro-sv/academico-api/pkg/mask"
)

type courseRepository interface {
	List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ExistsByCode(ctx context.Context, code, excludeID string) (bool, error)
	CountRegistrations(ctx context.Context, id string) (int, error)
	Create(ctx context.Context, course *models.Course) error
	Update(ctx context.Context, course *models.Course) error
	Delete(ctx context.Context, id string) error
}

type courseInstructorReader interface {
	FindByID(ctx context.Context, id string) (*models.Instructor, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// SaveCourseRequest describes create and update payloads for courses.
type SaveCourseRequest struct {
	Code         string  `json:"codigo" validate:"required"`
	Name         string  `json:"nombre" validate:"required"`
	CreditUnits  int     `json:"uv" validate:"required,min=1,max=32"`
	InstructorID *string `json:"idDocente"`
}

type cachedCourseList struct {
	Courses []models.CourseDetail `json:"courses"`
	Total   int                   `json:"total"`
}

// CourseService manages the course catalog. List reads go through the cache
// and every mutation invalidates it: a listing never reflects a stale
// catalog after a write.
type CourseService struct {
	repo        courseRepository
	instructors courseInstructorReader
	cache       catalogCache
	cacheTTL    time.Duration
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewCourseService constructs CourseService.
func NewCourseService(repo courseRepository, instructors courseInstructorReader, cache catalogCache, cacheTTL time.Duration, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *CourseService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &CourseService{repo: repo, instructors: instructors, cache: cache, cacheTTL: cacheTTL, validator: validate, metrics: metrics, logger: logger}
}

// List returns courses with pagination metadata, served from the catalog
// cache when possible.
func (s *CourseService) List(ctx context.Context, filter models.CourseFilter) ([]models.CourseDetail, *models.Pagination, error) {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}

	key := fmt.Sprintf("courses:list:%s:%s:%d:%d:%s:%s", filter.Search, filter.InstructorID, page, size, filter.SortBy, filter.SortOrder)
	if s.cache != nil {
		var cached cachedCourseList
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordCacheLookup(true)
			return cached.Courses, &models.Pagination{Page: page, PageSize: size, TotalCount: cached.Total}, nil
		}
		s.metrics.RecordCacheLookup(false)
	}

	courses, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list courses")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, cachedCourseList{Courses: courses, Total: total}, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache course list", zap.Error(err))
		}
	}
	return courses, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get loads one course by id.
func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Create registers a new course.
func (s *CourseService) Create(ctx context.Context, req SaveCourseRequest) (*models.Course, error) {
	normalized, err := s.normalize(ctx, req)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByCode(ctx, normalized.Code, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already registered")
	}
	course := &models.Course{
		Code:         normalized.Code,
		Name:         normalized.Name,
		CreditUnits:  normalized.CreditUnits,
		InstructorID: normalized.InstructorID,
	}
	course.Hash = courseDigest(course)
	if err := s.repo.Create(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create course")
	}
	s.invalidate(ctx)
	return course, nil
}

// Update edits an existing course.
func (s *CourseService) Update(ctx context.Context, id string, req SaveCourseRequest) (*models.Course, error) {
	normalized, err := s.normalize(ctx, req)
	if err != nil {
		return nil, err
	}
	course, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	exists, err := s.repo.ExistsByCode(ctx, normalized.Code, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate course code")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "course code already registered")
	}
	course.Code = normalized.Code
	course.Name = normalized.Name
	course.CreditUnits = normalized.CreditUnits
	course.InstructorID = normalized.InstructorID
	course.Hash = courseDigest(course)
	if err := s.repo.Update(ctx, course); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update course")
	}
	s.invalidate(ctx)
	return course, nil
}

// Delete removes a course. Courses referenced by registration rows are kept.
func (s *CourseService) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	count, err := s.repo.CountRegistrations(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count registrations")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrConflict, "course still referenced by registrations")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete course")
	}
	s.invalidate(ctx)
	return nil
}

// courseDigest is the record-integrity digest stored alongside the row,
// recomputed on every save.
func courseDigest(c *models.Course) string {
	instructor := ""
	if c.InstructorID != nil {
		instructor = *c.InstructorID
	}
	return integrityDigest(c.Code, c.Name, strconv.Itoa(c.CreditUnits), instructor)
}

func (s *CourseService) normalize(ctx context.Context, req SaveCourseRequest) (SaveCourseRequest, error) {
	req.Code = mask.CourseCode(req.Code)
	if err := s.validator.Struct(req); err != nil {
		return req, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid course payload")
	}
	if !mask.ValidCourseCode(req.Code) {
		return req, appErrors.Clone(appErrors.ErrValidation, "course code must be three letters followed by three digits")
	}
	if req.InstructorID != nil && *req.InstructorID != "" {
		if _, err := s.instructors.FindByID(ctx, *req.InstructorID); err != nil {
			if err == sql.ErrNoRows {
				return req, appErrors.Clone(appErrors.ErrNotFound, "instructor not found")
			}
			return req, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instructor")
		}
	} else {
		req.InstructorID = nil
	}
	return req, nil
}

func (s *CourseService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, "courses:list:*"); err != nil {
		s.logger.Warn("failed to invalidate course cache", zap.Error(err))
	}
}
