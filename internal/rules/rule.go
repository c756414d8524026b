// Package rules implements the definition surface for ruleweaver: parsing
// definition calls into Rule values and Global bindings, and classifying
// each call as Grounded, Ungrounded, or Global.
package rules

import "ruleweaver/internal/pattern"

// RuleKind distinguishes the two kinds of standing rule a definition call
// can produce. Global bindings are not rules at all; they live in the
// Registry's own name table.
type RuleKind int

const (
	// Grounded rules declare a concrete buildable relationship: outputs
	// depend on inputs, optionally built by running Command.
	Grounded RuleKind = iota
	// Ungrounded rules rewrite a goal into a replacement set of goals, with
	// no fixed binding of variables until the solver tries one.
	Ungrounded
)

func (k RuleKind) String() string {
	if k == Grounded {
		return "grounded"
	}
	return "ungrounded"
}

// Rule is one standing rule in the registry: a set of output patterns, a
// set of input patterns, and an optional command template.
type Rule struct {
	ID      int
	Kind    RuleKind
	Outputs []pattern.Term
	Inputs  []pattern.Term
	Command string
}

// HasCommand reports whether the rule carries a command to execute.
func (r Rule) HasCommand() bool { return r.Command != "" }
