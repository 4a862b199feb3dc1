package models

import "time"

// Instructor models a course instructor (docente).
type Instructor struct {
	ID         string    `db:"id" json:"idDocente"`
	Code       string    `db:"codigo" json:"codigo"`
	FullName   string    `db:"nombre" json:"nombre"`
	Address    string    `db:"direccion" json:"direccion"`
	Email      string    `db:"email" json:"email"`
	Phone      string    `db:"telefono" json:"telefono"`
	NationalID string    `db:"dui" json:"dui"`
	Payscale   string    `db:"escalafon" json:"escalafon"`
	Hash       string    `db:"hash" json:"hash"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// InstructorFilter defines filters supported by list endpoints.
type InstructorFilter struct {
	Search    string
	Payscale  string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
