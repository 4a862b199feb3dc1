package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newRegistrationRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var registrationCols = []string{"id_inscripcion", "id_matricula", "id_materia", "fecha_inscripcion"}

func TestRegistrationRepositoryListByTermOrdering(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(registrationCols).
		AddRow(int64(3), int64(1), "c-a", at).
		AddRow(int64(4), int64(1), "c-b", at)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id_inscripcion, id_matricula, id_materia, fecha_inscripcion FROM inscripciones WHERE id_matricula = $1 ORDER BY fecha_inscripcion DESC, id_inscripcion ASC")).
		WithArgs(int64(1)).
		WillReturnRows(rows)

	list, err := repo.ListByTerm(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCountEvents(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT fecha_inscripcion) FROM inscripciones WHERE id_matricula = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	count, err := repo.CountEvents(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCreateEventTransaction(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	insert := regexp.QuoteMeta("INSERT INTO inscripciones (id_matricula, id_materia, fecha_inscripcion) VALUES ($1, $2, $3)")

	mock.ExpectBegin()
	mock.ExpectQuery(insert).
		WithArgs(int64(1), "c-a", at).
		WillReturnRows(sqlmock.NewRows(registrationCols).AddRow(int64(10), int64(1), "c-a", at))
	mock.ExpectQuery(insert).
		WithArgs(int64(1), "c-b", at).
		WillReturnRows(sqlmock.NewRows(registrationCols).AddRow(int64(11), int64(1), "c-b", at))
	mock.ExpectCommit()

	rows, err := repo.CreateEvent(context.Background(), 1, []string{"c-a", "c-b"}, at)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, int64(10), rows[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryCreateEventRollsBackOnError(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	insert := regexp.QuoteMeta("INSERT INTO inscripciones (id_matricula, id_materia, fecha_inscripcion) VALUES ($1, $2, $3)")

	mock.ExpectBegin()
	mock.ExpectQuery(insert).
		WithArgs(int64(1), "c-a", at).
		WillReturnRows(sqlmock.NewRows(registrationCols).AddRow(int64(10), int64(1), "c-a", at))
	mock.ExpectQuery(insert).
		WithArgs(int64(1), "c-bad", at).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	_, err := repo.CreateEvent(context.Background(), 1, []string{"c-a", "c-bad"}, at)
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryReconcileEvent(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	insert := regexp.QuoteMeta("INSERT INTO inscripciones (id_matricula, id_materia, fecha_inscripcion) VALUES ($1, $2, $3)")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM inscripciones WHERE id_inscripcion IN ($1)")).
		WithArgs(int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insert).
		WithArgs(int64(1), "c-d", at).
		WillReturnRows(sqlmock.NewRows(registrationCols).AddRow(int64(12), int64(1), "c-d", at))
	mock.ExpectCommit()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id_inscripcion, id_matricula, id_materia, fecha_inscripcion FROM inscripciones WHERE id_matricula = $1 AND fecha_inscripcion = $2 ORDER BY id_inscripcion ASC")).
		WithArgs(int64(1), at).
		WillReturnRows(sqlmock.NewRows(registrationCols).
			AddRow(int64(11), int64(1), "c-b", at).
			AddRow(int64(12), int64(1), "c-d", at))

	rows, err := repo.ReconcileEvent(context.Background(), 1, at, []int64{10}, []string{"c-d"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationRepositoryDeleteEvent(t *testing.T) {
	db, mock, cleanup := newRegistrationRepoMock(t)
	defer cleanup()
	repo := NewRegistrationRepository(db)

	at := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM inscripciones WHERE id_matricula = $1 AND fecha_inscripcion = $2")).
		WithArgs(int64(1), at).
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.DeleteEvent(context.Background(), 1, at))
	require.NoError(t, mock.ExpectationsWereMet())
}
