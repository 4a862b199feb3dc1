package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/registro-sv/academico-api/internal/models"
)

func newTermRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestTermRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	enrolled := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id_matricula", "student_id", "fecha_matricula", "ciclo", "estado", "carrera", "ingreso", "hash"}).
		AddRow(int64(7), "stu-1", enrolled, "01-2026", models.TermStatusActive, "Ingeniería", models.AdmissionNew, int64(1700000000000))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id_matricula, student_id, fecha_matricula, ciclo, estado, carrera, ingreso, hash FROM matriculas WHERE id_matricula = $1")).
		WithArgs(int64(7)).
		WillReturnRows(rows)

	term, err := repo.FindByID(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, "stu-1", term.StudentID)
	require.Equal(t, models.TermStatusActive, term.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	rows := sqlmock.NewRows([]string{"id_matricula", "student_id", "fecha_matricula", "ciclo", "estado", "carrera", "ingreso", "hash"}).
		AddRow(int64(1), "stu-1", time.Now(), "01-2026", models.TermStatusActive, "Ingeniería", models.AdmissionNew, int64(1)).
		AddRow(int64(2), "stu-1", time.Now(), "02-2026", models.TermStatusInactive, "Ingeniería", models.AdmissionReturning, int64(2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id_matricula, student_id, fecha_matricula, ciclo, estado, carrera, ingreso, hash FROM matriculas WHERE student_id = $1 ORDER BY id_matricula")).
		WithArgs("stu-1").
		WillReturnRows(rows)

	terms, err := repo.ListByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, terms, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryCreateReturnsID(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	term := &models.Term{
		StudentID:  "stu-1",
		EnrolledAt: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Cycle:      "01-2026",
		Status:     models.TermStatusActive,
		Career:     "Ingeniería",
		Admission:  models.AdmissionNew,
		Hash:       1700000000000,
	}
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO matriculas (student_id, fecha_matricula, ciclo, estado, carrera, ingreso, hash)")).
		WithArgs(term.StudentID, term.EnrolledAt, term.Cycle, term.Status, term.Career, term.Admission, term.Hash).
		WillReturnRows(sqlmock.NewRows([]string{"id_matricula"}).AddRow(int64(42)))

	require.NoError(t, repo.Create(context.Background(), term))
	require.Equal(t, int64(42), term.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryCountActiveByStudent(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM matriculas WHERE student_id = $1 AND estado = $2")).
		WithArgs("stu-1", models.TermStatusActive).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountActiveByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTermRepositoryDelete(t *testing.T) {
	db, mock, cleanup := newTermRepoMock(t)
	defer cleanup()
	repo := NewTermRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM matriculas WHERE id_matricula = $1")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Delete(context.Background(), 7))
	require.NoError(t, mock.ExpectationsWereMet())
}
