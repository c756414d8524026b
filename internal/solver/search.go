package solver

import "ruleweaver/internal/pattern"

// disjunct is one candidate derivation for a goal (or, for a multi-output
// rule, for several goals grounded together by the same firing).
type disjunct struct {
	ruleID     int
	bindings   pattern.Bindings
	terminal   bool
	hasCommand bool
	prereqs    []int // goal indices this derivation depends on
	siblings   []int // every goal index grounded by this same firing, including this one
}

// goalNode tracks one word's place in the search: whether it is grounded,
// which rules still remain to try against it, and which other goals
// depend on it.
type goalNode struct {
	word     pattern.Word
	grounded bool
	disjuncts []disjunct
	parents  []int
	cursor   int
}

// search holds all mutable state for a single Solve call.
type search struct {
	goals         []goalNode
	index         map[pattern.Word]int
	requiredGoals int
	queue         []int

	terminalRules    []ruleShape
	nonterminalRules []ruleShape
}

// ruleShape is a grounded rule plus its precomputed unary/everything
// classification, so the hot loop never re-derives it.
type ruleShape struct {
	id         int
	outputs    []pattern.Term
	inputs     []pattern.Term
	unary      bool
	everything bool
	hasCommand bool
}

// isEverythingRule reports whether a rule's single output is the bare "%"
// everything-profile, matching any word whatsoever. Such a rule is a
// fallback: the search orders it after every other rule and tries it only
// on required goals. It is not skipped when a more specific rule also
// matches a goal; both disjuncts are recorded.
func isEverythingRule(outputs []pattern.Term) bool {
	return len(outputs) == 1 && pattern.IsEverythingProfile(outputs[0].Profile())
}

func (s *search) addGoal(word pattern.Word) int {
	if idx, ok := s.index[word]; ok {
		return idx
	}
	idx := len(s.goals)
	s.goals = append(s.goals, goalNode{word: word})
	s.index[word] = idx
	return idx
}

func (s *search) addParent(goalIdx, parentIdx int) {
	for _, p := range s.goals[goalIdx].parents {
		if p == parentIdx {
			return
		}
	}
	s.goals[goalIdx].parents = append(s.goals[goalIdx].parents, parentIdx)
}

func (s *search) wordSnapshot() []pattern.Word {
	out := make([]pattern.Word, len(s.goals))
	for i, g := range s.goals {
		out[i] = g.word
	}
	return out
}

func (s *search) allRequiredGrounded() bool {
	for i := 0; i < s.requiredGoals; i++ {
		if !s.goals[i].grounded {
			return false
		}
	}
	return true
}

func (s *search) allGrounded(idxs []int) bool {
	for _, i := range idxs {
		if !s.goals[i].grounded {
			return false
		}
	}
	return true
}

func (s *search) ground(idx int) bool {
	if s.goals[idx].grounded {
		return false
	}
	s.goals[idx].grounded = true
	s.queue = append(s.queue, idx)
	return true
}

func (s *search) propagate() bool {
	groundedAny := false
	for len(s.queue) > 0 {
		idx := s.queue[0]
		s.queue = s.queue[1:]
		for _, parentIdx := range s.goals[idx].parents {
			if s.goals[parentIdx].grounded {
				continue
			}
			for _, d := range s.goals[parentIdx].disjuncts {
				if s.allGrounded(d.prereqs) {
					if s.ground(parentIdx) {
						groundedAny = true
					}
					break
				}
			}
		}
	}
	return groundedAny
}

// restTerm is the synthetic catch-all variable appended to a rule's
// outputs when testing it against the full goal word list, so that words
// unrelated to this rule's outputs are absorbed instead of blocking the
// match.
var restTerm = pattern.ParseTerm("%@__rest")

// tryRule attempts to derive goalIdx's word from rule. A unary rule is
// matched directly against that one word; a non-unary (multi-output, or
// single-output-with-plural) rule is matched against the full snapshot
// with a trailing %@__rest catch-all, and succeeds only if goalIdx's word
// is among the words its real outputs bind.
func (s *search) tryRule(rule ruleShape, goalIdx int, snapshot []pattern.Word) (pattern.Bindings, []int, bool) {
	if rule.unary {
		b, err := pattern.Match(rule.outputs, []pattern.Word{s.goals[goalIdx].word})
		if err != nil {
			return nil, nil, false
		}
		return b, []int{goalIdx}, true
	}

	outsWithRest := append(append([]pattern.Term{}, rule.outputs...), restTerm)
	b, err := pattern.Match(outsWithRest, snapshot)
	if err != nil {
		return nil, nil, false
	}
	groundedWords := pattern.Expand(b, rule.outputs)

	target := s.goals[goalIdx].word
	found := false
	for _, w := range groundedWords {
		if w == target {
			found = true
			break
		}
	}
	if !found {
		return nil, nil, false
	}

	delete(b, "__rest")
	var idxs []int
	seen := make(map[string]bool, len(groundedWords))
	for _, w := range groundedWords {
		if seen[w] {
			continue
		}
		seen[w] = true
		idxs = append(idxs, s.addGoal(w))
	}
	return b, idxs, true
}

func isUnary(outputs []pattern.Term) bool {
	if len(outputs) != 1 {
		return false
	}
	for _, ref := range outputs[0].Variables() {
		if ref.Plural {
			return false
		}
	}
	return true
}
