package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/registro-sv/academico-api/internal/models"
	"github.com/registro-sv/academico-api/internal/refdata"
	appErrors "github.com/registro-sv/academico-api/pkg/errors"
)

type mockStudentRepo struct {
	students map[string]models.Student
	codes    map[string]string
	deleted  []string
}

func (m *mockStudentRepo) List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error) {
	return nil, 0, nil
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*models.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockStudentRepo) ExistsByCode(ctx context.Context, code, excludeID string) (bool, error) {
	owner, ok := m.codes[code]
	if !ok {
		return false, nil
	}
	return owner != excludeID, nil
}

func (m *mockStudentRepo) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]models.Student)
	}
	if m.codes == nil {
		m.codes = make(map[string]string)
	}
	student.ID = "stu-new"
	m.students[student.ID] = *student
	m.codes[student.Code] = student.ID
	return nil
}

func (m *mockStudentRepo) Update(ctx context.Context, student *models.Student) error {
	m.students[student.ID] = *student
	return nil
}

func (m *mockStudentRepo) Delete(ctx context.Context, id string) error {
	delete(m.students, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockStudentTerms struct {
	active map[string]int
}

func (m *mockStudentTerms) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	return m.active[studentID], nil
}

func newStudentFixture() (*StudentService, *mockStudentRepo, *mockStudentTerms) {
	repo := &mockStudentRepo{students: make(map[string]models.Student), codes: make(map[string]string)}
	terms := &mockStudentTerms{active: make(map[string]int)}
	return NewStudentService(repo, terms, refdata.NewProvider(), nil, nil), repo, terms
}

func studentReq() SaveStudentRequest {
	return SaveStudentRequest{
		Code:         "us s s0 37323a",
		FullName:     "Ana Morales",
		Department:   "San Salvador",
		Municipality: "San Salvador Este",
		BirthDate:    time.Date(2004, 5, 12, 0, 0, 0, 0, time.UTC),
		Gender:       "Femenino",
		Phone:        "71234567",
		Address:      "Col. Escalón, San Salvador",
	}
}

func TestStudentServiceCreateNormalizesInput(t *testing.T) {
	svc, repo, _ := newStudentFixture()
	student, err := svc.Create(context.Background(), studentReq())
	require.NoError(t, err)
	assert.Equal(t, "USSS037323", student.Code)
	assert.Equal(t, "7123-4567", student.Phone)
	assert.Contains(t, repo.codes, "USSS037323")
}

func TestStudentServiceSaveWritesIntegrityDigest(t *testing.T) {
	svc, repo, _ := newStudentFixture()
	created, err := svc.Create(context.Background(), studentReq())
	require.NoError(t, err)
	require.NotEmpty(t, created.Hash)
	assert.Equal(t, studentDigest(created), created.Hash)
	assert.Equal(t, created.Hash, repo.students[created.ID].Hash)

	req := studentReq()
	req.FullName = "Ana Beatriz Morales"
	updated, err := svc.Update(context.Background(), created.ID, req)
	require.NoError(t, err)
	assert.NotEqual(t, created.Hash, updated.Hash)
	assert.Equal(t, studentDigest(updated), updated.Hash)
}

func TestStudentServiceCreateRejectsShortCode(t *testing.T) {
	svc, _, _ := newStudentFixture()
	req := studentReq()
	req.Code = "ab12"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateRejectsForeignMunicipality(t *testing.T) {
	svc, _, _ := newStudentFixture()
	req := studentReq()
	req.Department = "La Libertad"
	req.Municipality = "San Salvador Este"
	_, err := svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceCreateDuplicateCode(t *testing.T) {
	svc, _, _ := newStudentFixture()
	_, err := svc.Create(context.Background(), studentReq())
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), studentReq())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestStudentServiceUpdateKeepsOwnCode(t *testing.T) {
	svc, _, _ := newStudentFixture()
	created, err := svc.Create(context.Background(), studentReq())
	require.NoError(t, err)

	req := studentReq()
	req.FullName = "Ana Beatriz Morales"
	updated, err := svc.Update(context.Background(), created.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Ana Beatriz Morales", updated.FullName)
	assert.Equal(t, created.Code, updated.Code)
}

func TestStudentServiceDeleteGuardsActiveTerms(t *testing.T) {
	svc, repo, terms := newStudentFixture()
	created, err := svc.Create(context.Background(), studentReq())
	require.NoError(t, err)

	terms.active[created.ID] = 1
	err = svc.Delete(context.Background(), created.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)

	terms.active[created.ID] = 0
	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Equal(t, []string{created.ID}, repo.deleted)
}
