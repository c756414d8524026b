// Package solver turns a requested goal set into a grounded, ordered plan
// of (rule, bindings) pairs by repeatedly applying ungrounded rewrite
// rules to a fixpoint and then searching the grounded rule set for a
// derivation of every resulting goal.
package solver

import (
	"context"
	"sort"

	"ruleweaver/internal/pattern"
	"ruleweaver/internal/rules"
)

// Solve expands goals through the registry's ungrounded rules, then
// searches its grounded rules for a plan that produces every resulting
// word. The registry is read-only for the duration of the call.
func Solve(ctx context.Context, reg *rules.Registry, goals []pattern.Word) (*Plan, error) {
	expanded, err := ExpandGoals(ctx, reg, goals)
	if err != nil {
		return nil, err
	}

	s := newSearch(reg, expanded)
	if err := s.run(ctx); err != nil {
		return nil, err
	}
	return s.emitPlan(expanded), nil
}

func newSearch(reg *rules.Registry, goals []pattern.Word) *search {
	s := &search{index: make(map[pattern.Word]int)}
	for _, w := range goals {
		s.addGoal(w)
	}
	s.requiredGoals = len(s.goals)

	for _, r := range reg.GroundedRules() {
		shape := ruleShape{
			id:         r.ID,
			outputs:    r.Outputs,
			inputs:     r.Inputs,
			unary:      isUnary(r.Outputs),
			everything: isEverythingRule(r.Outputs),
			hasCommand: r.HasCommand(),
		}
		if len(r.Inputs) == 0 {
			s.terminalRules = append(s.terminalRules, shape)
		} else {
			s.nonterminalRules = append(s.nonterminalRules, shape)
		}
	}
	// Everything-rules (bare "%" output) match any word, so they sort after
	// every more specific rule within each group; a specific rule that
	// could ground a goal is always tried, and recorded, before its
	// fallback.
	sortFallbackLast(s.terminalRules)
	sortFallbackLast(s.nonterminalRules)
	return s
}

func sortFallbackLast(shapes []ruleShape) {
	sort.SliceStable(shapes, func(i, j int) bool {
		return !shapes[i].everything && shapes[j].everything
	})
}

func (s *search) goalSizeLimit() int {
	return 64 + s.requiredGoals*s.requiredGoals*s.requiredGoals
}

func (s *search) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}

		groundedAny := s.terminalSweep()
		if s.propagate() {
			groundedAny = true
		}
		if s.allRequiredGrounded() {
			return nil
		}

		addedDisjunct := s.expand()
		if s.propagate() {
			groundedAny = true
		}
		if s.allRequiredGrounded() {
			return nil
		}

		if len(s.goals) > s.goalSizeLimit() {
			return &ErrSearchBoundExceeded{Limit: s.goalSizeLimit()}
		}
		if !groundedAny && !addedDisjunct {
			return s.unsatisfiableError()
		}
	}
}

func (s *search) terminalSweep() bool {
	groundedAny := false
	snapshot := s.wordSnapshot()
	for i := range s.goals {
		if s.goals[i].grounded {
			continue
		}
		for _, rule := range s.terminalRules {
			// An everything-rule (bare "%" output) is a fallback: it is
			// only tried against goals the user actually asked for, never
			// against a synthesized prerequisite, or a catchall rule could
			// re-derive its own intermediate output forever.
			if rule.everything && i >= s.requiredGoals {
				continue
			}
			bindings, idxs, ok := s.tryRule(rule, i, snapshot)
			if !ok {
				continue
			}
			s.recordDisjunct(idxs, disjunct{ruleID: rule.id, bindings: bindings, terminal: true, hasCommand: rule.hasCommand, siblings: idxs})
			for _, sib := range idxs {
				if s.ground(sib) {
					groundedAny = true
				}
			}
		}
	}
	return groundedAny
}

// expand advances every still-ungrounded goal's cursor through the full
// nonterminal rule list, recording a disjunct for every rule that matches.
// Goals discovered during this call (new prerequisites) are left for the
// next outer iteration, where their own cursor starts fresh at 0.
func (s *search) expand() bool {
	addedAny := false
	snapshot := s.wordSnapshot()
	n := len(s.goals)
	for i := 0; i < n; i++ {
		if s.goals[i].grounded {
			continue
		}
		for s.goals[i].cursor < len(s.nonterminalRules) {
			rule := s.nonterminalRules[s.goals[i].cursor]
			s.goals[i].cursor++

			if rule.everything && i >= s.requiredGoals {
				continue
			}
			bindings, idxs, ok := s.tryRule(rule, i, snapshot)
			if !ok {
				continue
			}
			prereqWords := pattern.Expand(bindings, rule.inputs)
			prereqIdx := make([]int, 0, len(prereqWords))
			for _, w := range prereqWords {
				prereqIdx = append(prereqIdx, s.addGoal(w))
			}

			d := disjunct{ruleID: rule.id, bindings: bindings, hasCommand: rule.hasCommand, prereqs: prereqIdx, siblings: idxs}
			for _, gi := range idxs {
				s.goals[gi].disjuncts = append(s.goals[gi].disjuncts, d)
			}
			for _, pi := range prereqIdx {
				for _, gi := range idxs {
					s.addParent(pi, gi)
				}
			}
			addedAny = true

			if s.allGrounded(prereqIdx) {
				for _, gi := range idxs {
					if s.ground(gi) {
						addedAny = true
					}
				}
			}
		}
	}
	return addedAny
}

func (s *search) recordDisjunct(idxs []int, d disjunct) {
	for _, gi := range idxs {
		s.goals[gi].disjuncts = append(s.goals[gi].disjuncts, d)
	}
}

// unsatisfiableError reports every goal the search could not ground,
// including intermediate prerequisites: naming the actual missing leaf
// (e.g. a source file that was never registered as terminal) is more
// useful than naming only the top-level goal that depends on it.
func (s *search) unsatisfiableError() error {
	var orphans []string
	for i := range s.goals {
		if !s.goals[i].grounded {
			orphans = append(orphans, s.goals[i].word)
		}
	}
	sort.Strings(orphans)
	return &ErrUnsatisfiableGoal{Orphans: orphans}
}

// emitPlan chooses one disjunct per grounded goal (preferring a terminal
// one, else the earliest discovered) and walks from the required goals
// down through prerequisites, appending each firing after its
// prerequisites so the result is already topologically ordered.
func (s *search) emitPlan(expandedGoals []pattern.Word) *Plan {
	selected := make([]*disjunct, len(s.goals))
	for i := range s.goals {
		g := &s.goals[i]
		if !g.grounded || len(g.disjuncts) == 0 {
			continue
		}
		chosen := &g.disjuncts[0]
		for di := range g.disjuncts {
			if g.disjuncts[di].terminal {
				chosen = &g.disjuncts[di]
				break
			}
		}
		selected[i] = chosen
	}

	visited := make([]bool, len(s.goals))
	depthOf := make([]int, len(s.goals))
	stepsOf := make([][]int, len(s.goals))
	var steps []Step
	// walk returns a goal's depth and the indices, into steps, of the
	// nearest step(s) that produce it: the step itself if its disjunct
	// carries a command, or the union of its prerequisites' nearest
	// steps if the disjunct is a command-less pass-through.
	var walk func(idx int) (int, []int)
	walk = func(idx int) (int, []int) {
		if visited[idx] {
			return depthOf[idx], stepsOf[idx]
		}
		visited[idx] = true
		d := selected[idx]
		if d == nil {
			return 0, nil
		}
		for _, sib := range d.siblings {
			visited[sib] = true
		}

		maxPrereq := 0
		var prereqSteps []int
		seen := make(map[int]bool)
		for _, p := range d.prereqs {
			pd, ps := walk(p)
			if pd > maxPrereq {
				maxPrereq = pd
			}
			for _, si := range ps {
				if !seen[si] {
					seen[si] = true
					prereqSteps = append(prereqSteps, si)
				}
			}
		}

		depth := maxPrereq
		var mine []int
		if d.hasCommand {
			depth = maxPrereq + 1
			steps = append(steps, Step{RuleID: d.ruleID, Bindings: d.bindings, Depth: depth, Prereqs: prereqSteps})
			mine = []int{len(steps) - 1}
		} else {
			mine = prereqSteps
		}
		for _, sib := range d.siblings {
			depthOf[sib] = depth
			stepsOf[sib] = mine
		}
		return depth, mine
	}
	for i := 0; i < s.requiredGoals; i++ {
		walk(i)
	}

	return &Plan{Steps: steps, Goals: expandedGoals}
}
