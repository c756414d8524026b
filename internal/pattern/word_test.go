package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTerm_NoVariables(t *testing.T) {
	term := ParseTerm("foo.c")
	assert.Empty(t, term.Variables())
	assert.Equal(t, "foo.c", term.Profile())
}

func TestParseTerm_SingleVariable(t *testing.T) {
	term := ParseTerm("%name.o")
	vars := term.Variables()
	require.Len(t, vars, 1)
	assert.Equal(t, "name", vars[0].Name)
	assert.False(t, vars[0].Plural)
	assert.Equal(t, "%.o", term.Profile())
}

func TestParseTerm_PluralVariable(t *testing.T) {
	term := ParseTerm("%@xs.c")
	vars := term.Variables()
	require.Len(t, vars, 1)
	assert.Equal(t, "xs", vars[0].Name)
	assert.True(t, vars[0].Plural)
}

func TestParseTerm_MultipleVariables(t *testing.T) {
	term := ParseTerm("%dir/%@names.%ext")
	vars := term.Variables()
	require.Len(t, vars, 3)
	assert.Equal(t, []VarRef{
		{Name: "dir", Plural: false},
		{Name: "names", Plural: true},
		{Name: "ext", Plural: false},
	}, vars)
	assert.Equal(t, "%/%.%", term.Profile())
}

func TestProfile_SharedStructureMatches(t *testing.T) {
	a := ParseTerm("%x.c")
	b := ParseTerm("%y.c")
	assert.Equal(t, a.Profile(), b.Profile())
}

func TestIsEverythingProfile(t *testing.T) {
	assert.True(t, IsEverythingProfile(ParseTerm("%x").Profile()))
	assert.False(t, IsEverythingProfile(ParseTerm("%x.c").Profile()))
}
