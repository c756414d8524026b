package cli

import (
	"context"
	"fmt"
	"io"

	"ruleweaver/internal/metrics"
	"ruleweaver/internal/pattern"
	"ruleweaver/internal/recovery/state"
	"ruleweaver/internal/rules"
	"ruleweaver/internal/solver"
	"ruleweaver/internal/watch"
)

// runWatch solves goals once to discover which files the resulting plan
// reads from, then rebuilds every time one of those files changes. Each
// rebuild re-solves against reg as loaded at startup; the watched file list
// is computed once and is not updated when a later plan reads other files.
func runWatch(ctx context.Context, reg *rules.Registry, cacheDir string, args []string, jobs int, verbose bool, ledger *state.FailureRecorder, rec metrics.Recorder, stdout, stderr io.Writer) error {
	goals := args
	if len(goals) == 0 {
		goals = reg.DefaultGoals()
	}
	if len(goals) == 0 {
		return invalidInvocationf("no goals given and no default goal set defined")
	}

	plan, err := solver.Solve(ctx, reg, goals)
	if err != nil {
		return err
	}

	w := &watch.Watcher{
		Paths: planInputPaths(reg, plan),
		Rebuild: func(rctx context.Context) error {
			return runBuild(rctx, reg, cacheDir, args, jobs, verbose, ledger, rec, stdout, stderr)
		},
		OnError: func(err error) {
			fmt.Fprintln(stderr, "watch:", err)
		},
	}
	return w.Run(ctx)
}

// planInputPaths expands every step's rule inputs against its own bindings
// and returns the resulting file paths, deduplicated but otherwise in plan
// order.
func planInputPaths(reg *rules.Registry, plan *solver.Plan) []string {
	seen := make(map[string]bool)
	var out []string
	for _, step := range plan.Steps {
		rule, ok := reg.RuleByID(step.RuleID)
		if !ok {
			continue
		}
		for _, word := range pattern.Expand(step.Bindings, rule.Inputs) {
			if seen[word] {
				continue
			}
			seen[word] = true
			out = append(out, word)
		}
	}
	return out
}
