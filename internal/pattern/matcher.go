package pattern

import (
	"regexp"
	"strings"
)

// termMatcher holds the precompiled regex for one pattern term: literal
// segments escaped and anchored, variable segments turned into capturing
// groups, in left-to-right order matching Variables().
type termMatcher struct {
	term *Term
	vars []VarRef
	re   *regexp.Regexp
}

func compileTermMatcher(t Term) *termMatcher {
	var b strings.Builder
	b.WriteByte('^')
	for _, s := range t.segments {
		if s.name == "" {
			b.WriteString(regexp.QuoteMeta(s.literal))
			continue
		}
		b.WriteString("(.*)")
	}
	b.WriteByte('$')
	return &termMatcher{
		term: &t,
		vars: t.Variables(),
		re:   regexp.MustCompile(b.String()),
	}
}

// Match implements the matcher: it binds the variables of terms against the
// words of text, consuming text in term order, and succeeds only if every
// text word ends up consumed by some term.
func Match(terms []Term, text []Word) (Bindings, error) {
	if err := validatePattern(terms); err != nil {
		return nil, err
	}

	matchers := make([]*termMatcher, len(terms))
	profiles := newProfileTable()
	profileIDs := make([]int, len(terms))
	for i, t := range terms {
		matchers[i] = compileTermMatcher(t)
		profileIDs[i] = profiles.intern(t.Profile())
	}

	shadowed := make([]bool, len(terms))
	for i := range terms {
		for j := i + 1; j < len(terms); j++ {
			if profileIDs[i] == profileIDs[j] {
				shadowed[i] = true
				break
			}
		}
	}

	remainder := append([]Word(nil), text...)
	bindings := make(Bindings)

	for i, tm := range matchers {
		var err error
		remainder, err = bindTerm(tm, shadowed[i], remainder, bindings)
		if err != nil {
			return nil, err
		}
	}

	if len(remainder) > 0 {
		return nil, newMatchError(NotConsumed, "%d word(s) left unconsumed: %v", len(remainder), remainder)
	}
	return bindings, nil
}

// bindTerm consumes candidate words from remainder for a single term,
// writing the resulting bindings into out, and returns the words that were
// not consumed (in their original relative order).
func bindTerm(tm *termMatcher, shadow bool, remainder []Word, out Bindings) ([]Word, error) {
	n := len(tm.vars)
	bound := make([]*Word, n)   // established singular value per variable index, nil until first seen
	pluralIndex := -1           // index of the variable chosen to expand plurally, -1 if none yet
	var pluralValues []Word

	newRemainder := make([]Word, 0, len(remainder))
	attempted := 0

	for _, w := range remainder {
		if !tm.re.MatchString(w) {
			newRemainder = append(newRemainder, w)
			continue
		}
		if shadow && attempted >= 1 {
			newRemainder = append(newRemainder, w)
			continue
		}
		attempted++

		groups := tm.re.FindStringSubmatch(w)
		if groups == nil {
			return nil, newMatchError(InternalMismatch, "word %q matched term %q's profile but not its regex", w, tm.term.Raw())
		}
		values := groups[1:]
		if len(values) != n {
			return nil, newMatchError(InternalMismatch, "word %q produced %d captures, term %q expects %d", w, len(values), tm.term.Raw(), n)
		}

		introducedPlural := -1
		accept := true
		for i, v := range values {
			if i == pluralIndex {
				continue
			}
			if bound[i] == nil {
				continue
			}
			if *bound[i] == v {
				continue
			}
			if pluralIndex != -1 || introducedPlural != -1 || !tm.vars[i].Plural {
				accept = false
				break
			}
			introducedPlural = i
		}

		if !accept {
			newRemainder = append(newRemainder, w)
			continue
		}

		if introducedPlural != -1 {
			pluralIndex = introducedPlural
			pluralValues = []Word{*bound[pluralIndex], values[pluralIndex]}
		} else if pluralIndex != -1 {
			pluralValues = append(pluralValues, values[pluralIndex])
		}
		for i, v := range values {
			if i == pluralIndex {
				continue
			}
			if bound[i] == nil {
				val := v
				bound[i] = &val
			}
		}
	}

	for i, ref := range tm.vars {
		if i == pluralIndex {
			out[ref.Name] = pluralValues
			continue
		}
		if bound[i] == nil {
			out[ref.Name] = []Word{}
			continue
		}
		out[ref.Name] = []Word{*bound[i]}
	}

	return newRemainder, nil
}

func validatePattern(terms []Term) error {
	seen := make(map[string]bool)
	for _, t := range terms {
		if t.Raw() == "%" {
			return newMatchError(EmptyPattern, "term %q is a bare variable reference with no name", t.Raw())
		}
		for _, ref := range t.Variables() {
			if seen[ref.Name] {
				return newMatchError(RepeatedVariable, "variable %q appears more than once in the pattern", ref.Name)
			}
			seen[ref.Name] = true
		}
	}
	return nil
}
