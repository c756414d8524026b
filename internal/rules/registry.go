package rules

import (
	"strings"

	"ruleweaver/internal/pattern"
)

// Registry holds every rule and global binding defined so far, plus the
// default goal list if one was set by an empty-outs definition call.
//
// A Registry is mutated only during the definition phase; once the solver
// starts reading it, no further Define calls are made against the same
// instance for that solve.
type Registry struct {
	rules        []Rule
	globals      map[string][]pattern.Word
	globalOrder  []string
	defaultGoals []pattern.Word
	nextID       int
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{globals: make(map[string][]pattern.Word)}
}

// Define parses one definition call, in the "outs : ins :: cmd" /
// "outs = ins" grammar, and records the resulting rule or global binding.
//
// Token scanning runs a small state machine over three states: outs, ins,
// cmd. ":" and "=" both end the outs state and choose groundedness; "::"
// ends the ins state and begins the cmd state. A "::" seen directly from the
// outs state is the terminal shorthand "outs :: cmd" with no ins section: it
// chooses grounded and jumps straight to cmd with ins left empty. Any other
// token is appended to whichever list the current state names.
//
// Before storing, globals already known to the registry are substituted
// into outs, ins, and cmd; a variable name with no matching global is left
// as a pattern reference for the matcher to bind later.
func (r *Registry) Define(tokens []string) error {
	const (
		stateOuts = iota
		stateIns
		stateCmd
	)

	state := stateOuts
	grounded := false
	sawSep := false
	var outs, ins, cmd []string

	for _, tok := range tokens {
		switch state {
		case stateOuts:
			switch tok {
			case ":":
				grounded, sawSep, state = true, true, stateIns
			case "=":
				grounded, sawSep, state = false, true, stateIns
			case "::":
				grounded, sawSep, state = true, true, stateCmd
			default:
				outs = append(outs, tok)
			}
		case stateIns:
			if tok == "::" {
				state = stateCmd
				continue
			}
			ins = append(ins, tok)
		case stateCmd:
			cmd = append(cmd, tok)
		}
	}
	if !sawSep {
		return newPatternError(tokens, "missing ':' or '=' separator")
	}

	if len(outs) == 0 {
		r.defaultGoals = pattern.Expand(r.globalBindings(), parseTerms(ins))
		return nil
	}

	outTerms := r.expandGlobalsInTerms(parseTerms(outs))
	inTerms := r.expandGlobalsInTerms(parseTerms(ins))
	command := r.expandGlobalsInCommand(strings.Join(cmd, " "))

	if grounded {
		if err := checkPattern(tokens, outTerms); err != nil {
			return err
		}
		r.appendRule(Grounded, outTerms, inTerms, command)
		return nil
	}

	if command == "" {
		rhs := pattern.Expand(r.globalBindings(), inTerms)
		if isVariableFree(rhs) {
			return r.defineGlobal(tokens, outTerms, rhs)
		}
	}

	if err := checkPattern(tokens, outTerms); err != nil {
		return err
	}
	r.appendRule(Ungrounded, outTerms, inTerms, command)
	return nil
}

// defineGlobal stores rhs under the name(s) bound by matching outTerms
// against it. A single literal, variable-free outTerm is stored directly
// under its own text; otherwise outTerms is used as a pattern and matched
// against rhs, and every resulting binding is upserted by variable name.
func (r *Registry) defineGlobal(tokens []string, outTerms []pattern.Term, rhs []pattern.Word) error {
	if len(outTerms) == 1 && len(outTerms[0].Variables()) == 0 {
		r.upsertGlobal(outTerms[0].Raw(), rhs)
		return nil
	}
	bound, err := pattern.Match(outTerms, rhs)
	if err != nil {
		return newMatchError(tokens, err)
	}
	for name, values := range bound {
		r.upsertGlobal(name, values)
	}
	return nil
}

func (r *Registry) appendRule(kind RuleKind, outs, ins []pattern.Term, command string) {
	r.nextID++
	r.rules = append(r.rules, Rule{
		ID:      r.nextID,
		Kind:    kind,
		Outputs: outs,
		Inputs:  ins,
		Command: command,
	})
}

func (r *Registry) upsertGlobal(name string, values []pattern.Word) {
	if _, ok := r.globals[name]; !ok {
		r.globalOrder = append(r.globalOrder, name)
	}
	r.globals[name] = values
}

func (r *Registry) globalBindings() pattern.Bindings {
	b := make(pattern.Bindings, len(r.globals))
	for k, v := range r.globals {
		b[k] = v
	}
	return b
}

// expandGlobalsInTerms substitutes known globals into terms, term by term.
// A term whose global reference is plural fans out into several terms; a
// term with no global references at all passes through unchanged.
func (r *Registry) expandGlobalsInTerms(terms []pattern.Term) []pattern.Term {
	gb := r.globalBindings()
	out := make([]pattern.Term, 0, len(terms))
	for _, t := range terms {
		for _, w := range pattern.Expand(gb, []pattern.Term{t}) {
			out = append(out, pattern.ParseTerm(w))
		}
	}
	return out
}

func (r *Registry) expandGlobalsInCommand(cmd string) string {
	return pattern.ExpandCommand(r.globalBindings(), cmd)
}

// Global returns the current value of a global by name.
func (r *Registry) Global(name string) ([]pattern.Word, bool) {
	v, ok := r.globals[name]
	return v, ok
}

// Globals returns every global binding, in definition order.
func (r *Registry) Globals() []NamedBinding {
	out := make([]NamedBinding, 0, len(r.globalOrder))
	for _, name := range r.globalOrder {
		out = append(out, NamedBinding{Name: name, Values: r.globals[name]})
	}
	return out
}

// NamedBinding pairs a global's name with its current value list.
type NamedBinding struct {
	Name   string
	Values []pattern.Word
}

// ListRules returns every grounded and ungrounded rule, in definition order.
func (r *Registry) ListRules() []Rule {
	out := make([]Rule, len(r.rules))
	copy(out, r.rules)
	return out
}

// GroundedRules returns only the grounded rules, in definition order.
func (r *Registry) GroundedRules() []Rule {
	return r.filterByKind(Grounded)
}

// RuleByID returns the rule with the given ID, or false if no rule in this
// registry carries it. IDs are assigned in definition order starting at 1
// and never reused, so a Plan built from this registry's GroundedRules can
// look a step's rule back up here.
func (r *Registry) RuleByID(id int) (Rule, bool) {
	for _, rule := range r.rules {
		if rule.ID == id {
			return rule, true
		}
	}
	return Rule{}, false
}

// UngroundedRules returns only the ungrounded rules, in definition order.
func (r *Registry) UngroundedRules() []Rule {
	return r.filterByKind(Ungrounded)
}

func (r *Registry) filterByKind(kind RuleKind) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Kind == kind {
			out = append(out, rule)
		}
	}
	return out
}

// DefaultGoals returns the goal list set by the last empty-outs definition
// call, or nil if none was ever made.
func (r *Registry) DefaultGoals() []pattern.Word {
	return r.defaultGoals
}

func parseTerms(tokens []string) []pattern.Term {
	out := make([]pattern.Term, len(tokens))
	for i, tok := range tokens {
		out[i] = pattern.ParseTerm(tok)
	}
	return out
}

func isVariableFree(words []pattern.Word) bool {
	for _, w := range words {
		if strings.ContainsRune(w, '%') {
			return false
		}
	}
	return true
}

func checkPattern(tokens []string, outs []pattern.Term) error {
	seen := make(map[string]bool)
	for _, t := range outs {
		if t.Raw() == "%" {
			return newPatternError(tokens, "output term %q is a bare variable reference with no name", t.Raw())
		}
		for _, ref := range t.Variables() {
			if seen[ref.Name] {
				return newPatternError(tokens, "variable %q repeated across a rule's outputs", ref.Name)
			}
			seen[ref.Name] = true
		}
	}
	return nil
}
