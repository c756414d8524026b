package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"ruleweaver/internal/pattern"
	"ruleweaver/internal/rules"
	"ruleweaver/internal/solver"
)

// runEval expands terms through the ungrounded-rule fixpoint and writes the
// resulting words to out on a single line, separated by spaces. It never
// touches the backend; an ungrounded rule that carries a command still runs
// that command through the shell while the terms are expanded.
func runEval(ctx context.Context, reg *rules.Registry, terms []string, out io.Writer) error {
	goals := make([]pattern.Word, len(terms))
	copy(goals, terms)

	expanded, err := solver.ExpandGoals(ctx, reg, goals)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, strings.Join(expanded, " "))
	return nil
}
