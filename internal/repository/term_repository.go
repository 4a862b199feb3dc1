package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/registro-sv/academico-api/internal/models"
)

// TermRepository handles persistence of enrollment terms (matrículas).
type TermRepository struct {
	db *sqlx.DB
}

// NewTermRepository constructs the repository.
func NewTermRepository(db *sqlx.DB) *TermRepository {
	return &TermRepository{db: db}
}

const termColumns = `m.id_matricula, m.student_id, m.fecha_matricula, m.ciclo, m.estado, m.carrera, m.ingreso, m.hash`

// List returns enrollment terms joined with student context.
func (r *TermRepository) List(ctx context.Context, filter models.TermFilter) ([]models.TermDetail, int, error) {
	base := `FROM matriculas m
LEFT JOIN alumnos a ON a.id = m.student_id`
	var conditions []string
	var args []interface{}

	if filter.StudentID != "" {
		conditions = append(conditions, fmt.Sprintf("m.student_id = $%d", len(args)+1))
		args = append(args, filter.StudentID)
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("m.estado = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if filter.Cycle != "" {
		conditions = append(conditions, fmt.Sprintf("m.ciclo = $%d", len(args)+1))
		args = append(args, filter.Cycle)
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"fecha_matricula": "m.fecha_matricula",
		"ciclo":           "m.ciclo",
		"student_name":    "a.nombre",
	}
	orderBy := allowedSorts[filter.SortBy]
	if orderBy == "" {
		orderBy = "m.fecha_matricula"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s, a.codigo AS student_code, a.nombre AS student_name
        %s ORDER BY %s %s LIMIT %d OFFSET %d`, termColumns, base+clause, orderBy, order, size, offset)

	var terms []models.TermDetail
	if err := r.db.SelectContext(ctx, &terms, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list terms: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count terms: %w", err)
	}
	return terms, total, nil
}

// FindByID loads an enrollment term by identifier.
func (r *TermRepository) FindByID(ctx context.Context, id int64) (*models.Term, error) {
	const query = `SELECT id_matricula, student_id, fecha_matricula, ciclo, estado, carrera, ingreso, hash FROM matriculas WHERE id_matricula = $1`
	var term models.Term
	if err := r.db.GetContext(ctx, &term, query, id); err != nil {
		return nil, err
	}
	return &term, nil
}

// ListByStudent returns all enrollment terms of a student ordered by identifier.
func (r *TermRepository) ListByStudent(ctx context.Context, studentID string) ([]models.Term, error) {
	const query = `SELECT id_matricula, student_id, fecha_matricula, ciclo, estado, carrera, ingreso, hash FROM matriculas WHERE student_id = $1 ORDER BY id_matricula`
	var terms []models.Term
	if err := r.db.SelectContext(ctx, &terms, query, studentID); err != nil {
		return nil, fmt.Errorf("list student terms: %w", err)
	}
	return terms, nil
}

// CountActiveByStudent returns the number of Activo terms held by a student.
func (r *TermRepository) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM matriculas WHERE student_id = $1 AND estado = $2`, studentID, models.TermStatusActive); err != nil {
		return 0, fmt.Errorf("count active terms: %w", err)
	}
	return count, nil
}

// Create inserts a term and backfills the store-assigned identifier.
func (r *TermRepository) Create(ctx context.Context, term *models.Term) error {
	const query = `INSERT INTO matriculas (student_id, fecha_matricula, ciclo, estado, carrera, ingreso, hash)
        VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id_matricula`
	if err := r.db.GetContext(ctx, &term.ID, query,
		term.StudentID, term.EnrolledAt, term.Cycle, term.Status, term.Career, term.Admission, term.Hash); err != nil {
		return fmt.Errorf("create term: %w", err)
	}
	return nil
}

// Update modifies an existing term.
func (r *TermRepository) Update(ctx context.Context, term *models.Term) error {
	const query = `UPDATE matriculas SET fecha_matricula = :fecha_matricula, ciclo = :ciclo, estado = :estado,
        carrera = :carrera, ingreso = :ingreso WHERE id_matricula = :id_matricula`
	if _, err := r.db.NamedExecContext(ctx, query, term); err != nil {
		return fmt.Errorf("update term: %w", err)
	}
	return nil
}

// Delete removes a term permanently.
func (r *TermRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM matriculas WHERE id_matricula = $1`, id); err != nil {
		return fmt.Errorf("delete term: %w", err)
	}
	return nil
}

// CountRegistrationRows returns the number of registration rows referencing the term.
func (r *TermRepository) CountRegistrationRows(ctx context.Context, id int64) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM inscripciones WHERE id_matricula = $1`, id); err != nil {
		return 0, fmt.Errorf("count term registrations: %w", err)
	}
	return count, nil
}
