package rules

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadText feeds a line-oriented ruleset into r, one definition call per
// non-blank, non-comment logical line, tokenized on whitespace. A token can
// embed a literal ":", "=", or "::" by wrapping it in double quotes.
// Definition order is preserved.
func (r *Registry) LoadText(src string) error {
	for lineNo, line := range strings.Split(src, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		tokens, err := tokenizeLine(trimmed)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		if err := r.Define(tokens); err != nil {
			return fmt.Errorf("line %d: %w", lineNo+1, err)
		}
	}
	return nil
}

// LoadYAML feeds a ruleset expressed as a YAML list of token lists into r,
// in file order.
//
//	- ["%out.o", ":", "%in.c", "::", "cc", "-c", "%in.c", "-o", "%out.o"]
//	- ["CFLAGS", "=", "-O2", "-Wall"]
func (r *Registry) LoadYAML(src []byte) error {
	var calls [][]string
	if err := yaml.Unmarshal(src, &calls); err != nil {
		return fmt.Errorf("parsing ruleset yaml: %w", err)
	}
	for i, tokens := range calls {
		if err := r.Define(tokens); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

// tokenizeLine splits a definition-call line on whitespace, honoring double
// quotes around a token so that literal ":", "=", and "::" tokens can be
// embedded as ordinary pattern text.
func tokenizeLine(line string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	inQuotes := false
	haveToken := false

	flush := func() {
		if haveToken {
			tokens = append(tokens, cur.String())
			cur.Reset()
			haveToken = false
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			haveToken = true
		case c == ' ' || c == '\t':
			if inQuotes {
				cur.WriteByte(c)
			} else {
				flush()
			}
		default:
			cur.WriteByte(c)
			haveToken = true
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quote")
	}
	flush()
	return tokens, nil
}
