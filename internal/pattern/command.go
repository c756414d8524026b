package pattern

import "strings"

// ExpandCommand substitutes bindings into a whitespace-tokenized command
// template, expanding each token the same way a template term expands
// (including cross-multiplication for plural variables), and rejoins the
// result with single spaces.
func ExpandCommand(bindings Bindings, command string) string {
	if command == "" {
		return ""
	}
	fields := strings.Fields(command)
	terms := make([]Term, len(fields))
	for i, f := range fields {
		terms[i] = ParseTerm(f)
	}
	return strings.Join(Expand(bindings, terms), " ")
}

// ConcatBinding joins a variable's bound word list with single spaces, the
// representation used for the synthetic %in and %out command variables.
func ConcatBinding(words []Word) Word {
	return strings.Join(words, " ")
}
