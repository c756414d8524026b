package pattern

import "regexp"

// Word is a non-empty string of non-space characters.
type Word = string

// varRefRe matches a variable reference token: %name or %@name.
// name is [A-Za-z0-9_]+.
var varRefRe = regexp.MustCompile(`%(@?[A-Za-z0-9_]+)`)

// segment is one literal or variable piece of a parsed pattern term, in
// left-to-right order.
type segment struct {
	literal  string // valid when name == ""
	name     string // variable name without % or @; empty for a literal segment
	plural   bool   // true if the reference was %@name
}

// Term is a parsed pattern term: a word-sized string containing zero or
// more variable references interleaved with literal text.
type Term struct {
	raw      string
	segments []segment
}

// ParseTerm parses a single pattern term.
func ParseTerm(raw string) Term {
	locs := varRefRe.FindAllStringSubmatchIndex(raw, -1)
	if len(locs) == 0 {
		return Term{raw: raw, segments: []segment{{literal: raw}}}
	}

	segs := make([]segment, 0, len(locs)*2+1)
	cursor := 0
	for _, loc := range locs {
		start, end := loc[0], loc[1]
		if start > cursor {
			segs = append(segs, segment{literal: raw[cursor:start]})
		}
		capture := raw[loc[2]:loc[3]]
		plural := false
		name := capture
		if len(name) > 0 && name[0] == '@' {
			plural = true
			name = name[1:]
		}
		segs = append(segs, segment{name: name, plural: plural})
		cursor = end
	}
	if cursor < len(raw) {
		segs = append(segs, segment{literal: raw[cursor:]})
	}
	return Term{raw: raw, segments: segs}
}

// Raw returns the original, unparsed term text.
func (t Term) Raw() string { return t.raw }

// Variables returns the variable names referenced by the term, in order of
// appearance, along with whether each was introduced with %@.
func (t Term) Variables() []VarRef {
	var out []VarRef
	for _, s := range t.segments {
		if s.name != "" {
			out = append(out, VarRef{Name: s.name, Plural: s.plural})
		}
	}
	return out
}

// VarRef is a single variable reference occurrence within a term.
type VarRef struct {
	Name   string
	Plural bool
}

// Profile computes the profile of a term: the term with every variable
// reference replaced by a single '%' character. Two terms share a profile
// iff they match identical literal structure.
func (t Term) Profile() string {
	var b []byte
	for _, s := range t.segments {
		if s.name == "" {
			b = append(b, s.literal...)
			continue
		}
		b = append(b, '%')
	}
	return string(b)
}

// IsEverythingProfile reports whether p is the everything-profile: a bare
// "%" with no literal content, matching any word.
func IsEverythingProfile(p string) bool {
	return p == "%"
}
