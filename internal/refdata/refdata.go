// Package refdata supplies the static geographic lookup lists used to
// validate student records: departments and their municipalities.
package refdata

import "sort"

var departments = map[string][]string{
	"Ahuachapán": {
		"Ahuachapán Norte", "Ahuachapán Centro", "Ahuachapán Sur",
	},
	"Cabañas": {
		"Cabañas Este", "Cabañas Oeste",
	},
	"Chalatenango": {
		"Chalatenango Norte", "Chalatenango Centro", "Chalatenango Sur",
	},
	"Cuscatlán": {
		"Cuscatlán Norte", "Cuscatlán Sur",
	},
	"La Libertad": {
		"La Libertad Norte", "La Libertad Centro", "La Libertad Oeste",
		"La Libertad Este", "La Libertad Costa", "La Libertad Sur",
	},
	"La Paz": {
		"La Paz Oeste", "La Paz Centro", "La Paz Este",
	},
	"La Unión": {
		"La Unión Norte", "La Unión Sur",
	},
	"Morazán": {
		"Morazán Norte", "Morazán Sur",
	},
	"San Miguel": {
		"San Miguel Norte", "San Miguel Centro", "San Miguel Oeste",
	},
	"San Salvador": {
		"San Salvador Norte", "San Salvador Oeste", "San Salvador Este",
		"San Salvador Centro", "San Salvador Sur",
	},
	"San Vicente": {
		"San Vicente Norte", "San Vicente Sur",
	},
	"Santa Ana": {
		"Santa Ana Norte", "Santa Ana Centro", "Santa Ana Este", "Santa Ana Oeste",
	},
	"Sonsonate": {
		"Sonsonate Norte", "Sonsonate Centro", "Sonsonate Este", "Sonsonate Oeste",
	},
	"Usulután": {
		"Usulután Norte", "Usulután Este", "Usulután Oeste",
	},
}

// Provider serves the static department and municipality lists.
type Provider struct{}

// NewProvider constructs the reference data provider.
func NewProvider() *Provider {
	return &Provider{}
}

// ListDepartments returns all department names, sorted.
func (p *Provider) ListDepartments() []string {
	names := make([]string, 0, len(departments))
	for name := range departments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListMunicipalities returns the municipalities of a department, or nil when
// the department is unknown.
func (p *Provider) ListMunicipalities(department string) []string {
	munis, ok := departments[department]
	if !ok {
		return nil
	}
	out := make([]string, len(munis))
	copy(out, munis)
	return out
}

// Contains reports whether the municipality belongs to the department.
func (p *Provider) Contains(department, municipality string) bool {
	for _, m := range departments[department] {
		if m == municipality {
			return true
		}
	}
	return false
}
