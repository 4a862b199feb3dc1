package refdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListDepartmentsSorted(t *testing.T) {
	p := NewProvider()
	names := p.ListDepartments()
	require.Len(t, names, 14)
	assert.Equal(t, "Ahuachapán", names[0])
	assert.IsIncreasing(t, names)
}

func TestListMunicipalities(t *testing.T) {
	p := NewProvider()
	munis := p.ListMunicipalities("San Salvador")
	require.Len(t, munis, 5)
	assert.Contains(t, munis, "San Salvador Centro")

	assert.Nil(t, p.ListMunicipalities("Atlántida"))
}

func TestContains(t *testing.T) {
	p := NewProvider()
	assert.True(t, p.Contains("La Libertad", "La Libertad Costa"))
	assert.False(t, p.Contains("La Libertad", "San Salvador Sur"))
	assert.False(t, p.Contains("", ""))
}
