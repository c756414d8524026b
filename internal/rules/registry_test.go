package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toks is a trivial whitespace splitter kept local to the test file so
// tests can write definition calls as plain strings.
func toks(s string) []string {
	var out []string
	field := ""
	for _, r := range s {
		if r == ' ' {
			if field != "" {
				out = append(out, field)
				field = ""
			}
			continue
		}
		field += string(r)
	}
	if field != "" {
		out = append(out, field)
	}
	return out
}

func TestDefine_GroundedRuleWithCommand(t *testing.T) {
	r := NewRegistry()
	err := r.Define(toks("%out.o : %in.c :: cc -c %in.c -o %out.o"))
	require.NoError(t, err)

	rules := r.GroundedRules()
	require.Len(t, rules, 1)
	assert.Equal(t, "cc -c %in.c -o %out.o", rules[0].Command)
	assert.Equal(t, Grounded, rules[0].Kind)
}

func TestDefine_GroundedRuleShorthandWithNoInputs(t *testing.T) {
	r := NewRegistry()
	err := r.Define(toks("clean :: rm -rf build"))
	require.NoError(t, err)

	rules := r.GroundedRules()
	require.Len(t, rules, 1)
	assert.Equal(t, "rm -rf build", rules[0].Command)
	assert.Equal(t, Grounded, rules[0].Kind)
	assert.Empty(t, rules[0].Inputs)
}

func TestDefine_UngroundedRewriteRule(t *testing.T) {
	r := NewRegistry()
	err := r.Define(toks("%out.o = %out.c"))
	require.NoError(t, err)

	rules := r.UngroundedRules()
	require.Len(t, rules, 1)
	assert.Equal(t, "", rules[0].Command)
}

func TestDefine_GlobalBinding(t *testing.T) {
	r := NewRegistry()
	err := r.Define(toks("CFLAGS = -O2 -Wall"))
	require.NoError(t, err)

	assert.Empty(t, r.ListRules())
	values, ok := r.Global("CFLAGS")
	require.True(t, ok)
	assert.Equal(t, []string{"-O2", "-Wall"}, values)
}

func TestDefine_GlobalUpsertByName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(toks("CFLAGS = -O2")))
	require.NoError(t, r.Define(toks("CFLAGS = -O3 -Wall")))

	values, _ := r.Global("CFLAGS")
	assert.Equal(t, []string{"-O3", "-Wall"}, values)
	assert.Len(t, r.Globals(), 1)
}

func TestDefine_EmptyOutsSetsDefaultGoals(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(toks(": all")))
	assert.Equal(t, []string{"all"}, r.DefaultGoals())
}

func TestDefine_MissingSeparatorIsPatternError(t *testing.T) {
	r := NewRegistry()
	err := r.Define(toks("just some words"))
	require.Error(t, err)
	var pe *PatternError
	require.ErrorAs(t, err, &pe)
}

func TestDefine_RepeatedVariableAcrossOutputsIsPatternError(t *testing.T) {
	r := NewRegistry()
	err := r.Define(toks("%x.o %x.h : src"))
	require.Error(t, err)
	var pe *PatternError
	require.ErrorAs(t, err, &pe)
}

func TestDefine_GlobalFromVariablePattern(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(toks("%x = 10")))

	values, ok := r.Global("x")
	require.True(t, ok)
	assert.Equal(t, []string{"10"}, values)
	assert.Empty(t, r.ListRules())
}

func TestDefine_GlobalReferencingEarlierGlobal(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(toks("CFLAGS = -O2")))
	require.NoError(t, r.Define(toks("LDFLAGS = %CFLAGS -lm")))

	values, _ := r.Global("LDFLAGS")
	assert.Equal(t, []string{"-O2", "-lm"}, values)
}

func TestDefine_GlobalLeftHandSideMismatchIsMatchError(t *testing.T) {
	r := NewRegistry()
	err := r.Define(toks("%x.c = 10"))
	require.Error(t, err)
	var me *MatchError
	require.ErrorAs(t, err, &me)
}

func TestDefine_CommandReferencesGlobalSubstitutedAtDefinitionTime(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(toks("CFLAGS = -O2")))
	require.NoError(t, r.Define(toks("%out.o : %in.c :: cc -c %CFLAGS %in.c -o %out.o")))

	rules := r.GroundedRules()
	require.Len(t, rules, 1)
	assert.Equal(t, "cc -c -O2 %in.c -o %out.o", rules[0].Command)
}

func TestDefine_RuleDefinitionOrderPreserved(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(toks("a.o : a.c")))
	require.NoError(t, r.Define(toks("b.o : b.c")))

	rules := r.ListRules()
	require.Len(t, rules, 2)
	assert.Equal(t, "a.o", rules[0].Outputs[0].Raw())
	assert.Equal(t, "b.o", rules[1].Outputs[0].Raw())
}
