package cli

import (
	"fmt"
	"io"
	"strings"

	"ruleweaver/internal/pattern"
	"ruleweaver/internal/rules"
)

// runList prints every defined rule, then every global, in the order each
// was defined — the same order Registry.ListRules and Registry.Globals
// already preserve.
func runList(reg *rules.Registry, out io.Writer) error {
	for _, r := range reg.ListRules() {
		fmt.Fprintln(out, formatRule(r))
	}
	for _, g := range reg.Globals() {
		fmt.Fprintf(out, "%s = %s\n", g.Name, strings.Join(g.Values, " "))
	}
	return nil
}

func formatRule(r rules.Rule) string {
	outs := formatTerms(r.Outputs)
	ins := formatTerms(r.Inputs)

	sep := ":"
	if r.Kind == rules.Ungrounded {
		sep = "="
	}

	line := fmt.Sprintf("%s %s %s", outs, sep, ins)
	if r.HasCommand() {
		line = fmt.Sprintf("%s :: %s", line, r.Command)
	}
	return line
}

func formatTerms(terms []pattern.Term) string {
	parts := make([]string, len(terms))
	for i, t := range terms {
		parts[i] = t.Raw()
	}
	return strings.Join(parts, " ")
}
