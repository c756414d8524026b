package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func terms(raw ...string) []Term {
	out := make([]Term, len(raw))
	for i, r := range raw {
		out[i] = ParseTerm(r)
	}
	return out
}

func TestMatch_SingularBinding(t *testing.T) {
	b, err := Match(terms("%name.o"), []Word{"foo.o"})
	require.NoError(t, err)
	assert.Equal(t, Bindings{"name": {"foo"}}, b)
}

func TestMatch_PluralAcrossDistinctProfiles(t *testing.T) {
	b, err := Match(terms("%@xs.c", "%@ys.h"), []Word{"foo.c", "bar.c", "bif.h"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Word{"foo", "bar"}, b["xs"])
	assert.ElementsMatch(t, []Word{"bif"}, b["ys"])
}

func TestMatch_SharedProfileSplitsPluralAndSingular(t *testing.T) {
	b, err := Match(terms("%@xs.%ext"), []Word{"foo.c", "bar.c", "bif.c"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Word{"foo", "bar", "bif"}, b["xs"])
	assert.Equal(t, []Word{"c"}, b["ext"])
}

func TestMatch_ShadowedTermTakesOnlyOneWord(t *testing.T) {
	// %x.c is shadowed by %@xs.c since they share a profile; the shadowed
	// term must bind at most one word, leaving the rest for the later term.
	b, err := Match(terms("%x.c", "%@xs.c"), []Word{"foo.c", "bar.c", "bif.c"})
	require.NoError(t, err)
	require.Len(t, b["x"], 1)
	assert.Contains(t, []Word{"foo", "bar", "bif"}, b["x"][0])
	assert.Len(t, b["xs"], 2)
}

func TestMatch_NotConsumedWhenWordsAreLeftOver(t *testing.T) {
	_, err := Match(terms("%name.o"), []Word{"foo.o", "bar.txt"})
	require.Error(t, err)
	var me *MatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, NotConsumed, me.Kind)
}

func TestMatch_RepeatedVariableRejected(t *testing.T) {
	_, err := Match(terms("%x.c", "%x.h"), []Word{"foo.c", "foo.h"})
	require.Error(t, err)
	var me *MatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, RepeatedVariable, me.Kind)
}

func TestMatch_EmptyPatternRejected(t *testing.T) {
	_, err := Match(terms("%"), []Word{"foo"})
	require.Error(t, err)
	var me *MatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, EmptyPattern, me.Kind)
}

func TestMatch_LiteralOnlyTermRequiresExactWord(t *testing.T) {
	b, err := Match(terms("clean"), []Word{"clean"})
	require.NoError(t, err)
	assert.Empty(t, b)

	_, err = Match(terms("clean"), []Word{"build"})
	require.Error(t, err)
}

func TestMatch_EverythingProfileBindsAllRemaining(t *testing.T) {
	b, err := Match(terms("%@rest"), []Word{"a", "b", "c"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []Word{"a", "b", "c"}, b["rest"])
}
