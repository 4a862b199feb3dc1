package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/registro-sv/academico-api/internal/models"
)

// RegistrationRepository handles persistence of registration rows
// (inscripciones). Multi-row event mutations run inside a single
// transaction so an event is never persisted half-written.
type RegistrationRepository struct {
	db *sqlx.DB
}

// NewRegistrationRepository constructs the repository.
func NewRegistrationRepository(db *sqlx.DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

const registrationColumns = `id_inscripcion, id_matricula, id_materia, fecha_inscripcion`

// ListByTerm returns every registration row of a term, newest first with a
// stable row-id tiebreak, so grouping output is deterministic.
func (r *RegistrationRepository) ListByTerm(ctx context.Context, termID int64) ([]models.RegistrationRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM inscripciones WHERE id_matricula = $1 ORDER BY fecha_inscripcion DESC, id_inscripcion ASC`, registrationColumns)
	var rows []models.RegistrationRow
	if err := r.db.SelectContext(ctx, &rows, query, termID); err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return rows, nil
}

// ListByEvent returns the rows of one event, identified by its shared timestamp.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, termID int64, at time.Time) ([]models.RegistrationRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM inscripciones WHERE id_matricula = $1 AND fecha_inscripcion = $2 ORDER BY id_inscripcion ASC`, registrationColumns)
	var rows []models.RegistrationRow
	if err := r.db.SelectContext(ctx, &rows, query, termID, at); err != nil {
		return nil, fmt.Errorf("list event rows: %w", err)
	}
	return rows, nil
}

// CountEvents returns the number of distinct registration events of a term.
func (r *RegistrationRepository) CountEvents(ctx context.Context, termID int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(DISTINCT fecha_inscripcion) FROM inscripciones WHERE id_matricula = $1`, termID); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// CreateEvent inserts one row per course, all sharing the given timestamp,
// atomically. The returned rows carry their store-assigned identifiers.
func (r *RegistrationRepository) CreateEvent(ctx context.Context, termID int64, courseIDs []string, at time.Time) ([]models.RegistrationRow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin create event tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	rows, err := insertEventRows(ctx, tx, termID, courseIDs, at)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit create event tx: %w", err)
	}
	return rows, nil
}

// ReconcileEvent deletes the removed rows and inserts the added courses of an
// edited event in one transaction, reusing the event's original timestamp.
// Rows untouched by the diff keep their identifiers.
func (r *RegistrationRepository) ReconcileEvent(ctx context.Context, termID int64, at time.Time, deleteRowIDs []int64, addCourseIDs []string) ([]models.RegistrationRow, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin reconcile tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if len(deleteRowIDs) > 0 {
		placeholders := make([]string, len(deleteRowIDs))
		args := make([]interface{}, len(deleteRowIDs))
		for i, id := range deleteRowIDs {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args[i] = id
		}
		query := fmt.Sprintf("DELETE FROM inscripciones WHERE id_inscripcion IN (%s)", strings.Join(placeholders, ","))
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("delete removed rows: %w", err)
		}
	}

	if _, err = insertEventRows(ctx, tx, termID, addCourseIDs, at); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit reconcile tx: %w", err)
	}

	return r.ListByEvent(ctx, termID, at)
}

// DeleteEvent removes every row of one event.
func (r *RegistrationRepository) DeleteEvent(ctx context.Context, termID int64, at time.Time) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM inscripciones WHERE id_matricula = $1 AND fecha_inscripcion = $2`, termID, at); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func insertEventRows(ctx context.Context, tx *sqlx.Tx, termID int64, courseIDs []string, at time.Time) ([]models.RegistrationRow, error) {
	rows := make([]models.RegistrationRow, 0, len(courseIDs))
	for _, courseID := range courseIDs {
		var row models.RegistrationRow
		err := tx.GetContext(ctx, &row,
			`INSERT INTO inscripciones (id_matricula, id_materia, fecha_inscripcion) VALUES ($1, $2, $3)
             RETURNING id_inscripcion, id_matricula, id_materia, fecha_inscripcion`,
			termID, courseID, at)
		if err != nil {
			return nil, fmt.Errorf("insert registration row: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}
