package models

import "time"

// Course models a subject offering (materia). The instructor reference is
// optional: an unassigned course is valid.
type Course struct {
	ID           string    `db:"id" json:"idMateria"`
	Code         string    `db:"codigo" json:"codigo"`
	Name         string    `db:"nombre" json:"nombre"`
	CreditUnits  int       `db:"uv" json:"uv"`
	InstructorID *string   `db:"id_docente" json:"idDocente,omitempty"`
	Hash         string    `db:"hash" json:"hash"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail enriches Course with the resolved instructor name.
type CourseDetail struct {
	Course
	InstructorName *string `db:"instructor_name" json:"nombreDocente,omitempty"`
}

// CourseFilter defines filters supported by list endpoints.
type CourseFilter struct {
	Search       string
	InstructorID string
	Page         int
	PageSize     int
	SortBy       string
	SortOrder    string
}
