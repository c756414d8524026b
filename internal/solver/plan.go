package solver

import "ruleweaver/internal/pattern"

// Step is one grounded rule firing in a Plan: a rule id and the bindings it
// was matched with.
type Step struct {
	RuleID   int
	Bindings pattern.Bindings

	// Depth is the step's distance from the nearest terminal: 1 for a
	// step whose inputs are all terminals, one more than the deepest of
	// its own prerequisite steps otherwise. A runner may execute every
	// step at the same depth in parallel once all lower depths are done.
	Depth int

	// Prereqs holds the indices, into the same Plan's Steps slice, of
	// every step this one directly depends on. A command-less firing
	// between two steps is skipped over: its own prerequisites are
	// attributed directly to whichever step consumes its output, since
	// a command-less firing never appears in Steps itself.
	Prereqs []int
}

// Plan is an ordered list of Steps. Executing them in order, checking the
// Backend for freshness before each, produces every requested goal.
// Independent steps carry no ordering requirement beyond what this slice
// already encodes; a parallel runner is free to reorder them subject to
// the same prerequisite constraints.
type Plan struct {
	Steps []Step
	Goals []pattern.Word
}
