package models

import "time"

// Student represents a learner registered in the institution. Wire field
// names follow the legacy record layout (codigo, nombre, ...).
type Student struct {
	ID           string    `db:"id" json:"idAlumno"`
	Code         string    `db:"codigo" json:"codigo"`
	FullName     string    `db:"nombre" json:"nombre"`
	Department   string    `db:"departamento" json:"departamento"`
	Municipality string    `db:"municipio" json:"municipio"`
	BirthDate    time.Time `db:"fecha_nacimiento" json:"fechaNacimiento"`
	Gender       string    `db:"sexo" json:"sexo"`
	Phone        string    `db:"telefono" json:"telefono"`
	Address      string    `db:"direccion" json:"direccion"`
	Hash         string    `db:"hash" json:"hash"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search     string
	Department string
	Page       int
	PageSize   int
	SortBy     string
	SortOrder  string
}
