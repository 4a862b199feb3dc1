package models

import "time"

// TermStatus gates whether registration mutations are permitted on a term.
type TermStatus string

const (
	TermStatusActive   TermStatus = "Activo"
	TermStatusInactive TermStatus = "Inactivo"
)

// AdmissionType distinguishes first-time from returning students.
type AdmissionType string

const (
	AdmissionNew       AdmissionType = "Nuevo"
	AdmissionReturning AdmissionType = "Antiguo"
)

// Term is one academic-period enrollment record (matrícula) for a student.
// JSON field names follow the persisted record contract: the store-assigned
// key is idMatricula and the student reference is serialized as id.
type Term struct {
	ID         int64         `db:"id_matricula" json:"idMatricula"`
	StudentID  string        `db:"student_id" json:"id"`
	EnrolledAt time.Time     `db:"fecha_matricula" json:"fechaMatricula"`
	Cycle      string        `db:"ciclo" json:"ciclo"`
	Status     TermStatus    `db:"estado" json:"estado"`
	Career     string        `db:"carrera" json:"carrera"`
	Admission  AdmissionType `db:"ingreso" json:"ingreso"`
	Hash       int64         `db:"hash" json:"hash"`
}

// TermDetail enriches Term with student context for table views.
type TermDetail struct {
	Term
	StudentCode string `db:"student_code" json:"codigoAlumno"`
	StudentName string `db:"student_name" json:"nombreAlumno"`
}

// TermFilter defines filters supported by list endpoints.
type TermFilter struct {
	StudentID string
	Status    TermStatus
	Cycle     string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
