package solver

import (
	"context"

	"ruleweaver/internal/pattern"
	"ruleweaver/internal/rules"
	"ruleweaver/internal/shell"
)

// rewriteBound caps how many fixpoint passes ExpandGoals will take before
// giving up, the same safety valve the grounded search uses against
// pathological rule sets (a rewrite cycle would otherwise loop forever).
func rewriteBound(goalCount int) int {
	return 64 + goalCount*goalCount*goalCount
}

// ExpandGoals repeatedly rewrites words through the registry's ungrounded
// rules until no word changes. Each rule match runs the rule's command
// speculatively with the extra bindings "in" (the word being rewritten) and
// "out" (its replacement words); a non-zero exit rejects that rule and the
// next ungrounded rule is tried against the same word.
func ExpandGoals(ctx context.Context, reg *rules.Registry, goals []pattern.Word) ([]pattern.Word, error) {
	cur := append([]pattern.Word(nil), goals...)
	limit := rewriteBound(len(goals))
	ungrounded := reg.UngroundedRules()

	for pass := 0; pass < limit; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, ErrCancelled
		}
		next, changed, err := rewritePass(ctx, ungrounded, cur)
		if err != nil {
			return nil, err
		}
		if !changed {
			return next, nil
		}
		cur = next
	}
	return nil, &ErrSearchBoundExceeded{Limit: limit}
}

func rewritePass(ctx context.Context, ungrounded []rules.Rule, words []pattern.Word) ([]pattern.Word, bool, error) {
	out := make([]pattern.Word, 0, len(words))
	changed := false
	for _, w := range words {
		replacement, did, err := rewriteWord(ctx, ungrounded, w)
		if err != nil {
			return nil, false, err
		}
		if did {
			out = append(out, replacement...)
			changed = true
			continue
		}
		out = append(out, w)
	}
	return out, changed, nil
}

func rewriteWord(ctx context.Context, ungrounded []rules.Rule, w pattern.Word) ([]pattern.Word, bool, error) {
	for _, rule := range ungrounded {
		bindings, err := pattern.Match(rule.Outputs, []pattern.Word{w})
		if err != nil {
			continue
		}
		replacement := pattern.Expand(bindings, rule.Inputs)
		if !rule.HasCommand() {
			return replacement, true, nil
		}

		cmdBindings := bindings.Merge(pattern.Bindings{
			"in":  {w},
			"out": replacement,
		})
		cmdText := pattern.ExpandCommand(cmdBindings, rule.Command)
		res, err := shell.Run(ctx, cmdText)
		if err != nil {
			return nil, false, err
		}
		if res.ExitCode != 0 {
			continue
		}
		return replacement, true, nil
	}
	return nil, false, nil
}
