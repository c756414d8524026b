package backend

import (
	"context"

	"ruleweaver/internal/pattern"
)

// Backend is the execution boundary between a solved Plan and the host: it
// decides whether a rule firing's outputs are still fresh given its current
// inputs, runs the firing's command when they are not, and records what
// that run produced so later freshness checks (of this firing or of
// firings downstream of it) have something to compare against.
//
// Matcher, Expander and the solver never consult a Backend; only plan
// execution does, and only here does anything block on an external
// process.
type Backend interface {
	// IsFresh reports whether ruleID's firing with bindings was already
	// built from exactly this set of input fingerprints. A call with a
	// fingerprint set that differs from the last one seen (or with no
	// prior record at all) returns false and replaces the stored set with
	// the one just given, so a repeat of the same call returns true.
	IsFresh(ruleID int, bindings pattern.Bindings, inputFingerprints []string) (bool, error)

	// RecordOutput stores the fingerprints a firing's outputs carried
	// after it ran, keyed by the same (ruleID, bindings) pair IsFresh
	// uses. Downstream firings fingerprint their own inputs by reading
	// the files a prerequisite produced, not by calling back into this
	// method; RecordOutput exists so a diagnostic pass (or --list-style
	// introspection) can answer "what did this step last produce"
	// without re-running it.
	RecordOutput(ruleID int, bindings pattern.Bindings, outputFingerprints []string) error

	// Execute runs a rule's expanded command and returns its exit status.
	// A non-zero status does not stop other independent firings; the
	// caller decides whether to abort the remaining plan.
	Execute(ctx context.Context, ruleID int, commandText string, bindings pattern.Bindings) (int, error)
}
