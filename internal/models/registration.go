package models

import "time"

// EventTimeLayout renders event timestamps for grouping keys and URL path
// segments. Rows created by the same save share this rendering exactly.
const EventTimeLayout = time.RFC3339Nano

// RegistrationRow is one persisted course registration (inscripción). Rows
// sharing the same term and timestamp form one registration event.
type RegistrationRow struct {
	ID           int64     `db:"id_inscripcion" json:"idInscripcion"`
	TermID       int64     `db:"id_matricula" json:"idMatricula"`
	CourseID     string    `db:"id_materia" json:"idMateria"`
	RegisteredAt time.Time `db:"fecha_inscripcion" json:"fechaInscripcion"`
}

// EventKey returns the grouping key for the row's timestamp.
func (r RegistrationRow) EventKey() string {
	return r.RegisteredAt.UTC().Format(EventTimeLayout)
}

// RegistrationEvent is the derived grouping of rows saved together. It is
// never stored; it exists only as the output of the grouper.
type RegistrationEvent struct {
	TermID       int64             `json:"idMatricula"`
	RegisteredAt time.Time         `json:"fechaInscripcion"`
	Rows         []RegistrationRow `json:"rows"`
}

// RegistrationEventDetail joins an event with student and course context.
type RegistrationEventDetail struct {
	RegistrationEvent
	StudentCode string   `json:"codigoAlumno"`
	StudentName string   `json:"nombreAlumno"`
	CourseCodes []string `json:"materias"`
}
