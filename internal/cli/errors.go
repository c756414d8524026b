package cli

import (
	"errors"
	"fmt"

	"ruleweaver/internal/engine"
	"ruleweaver/internal/rules"
	"ruleweaver/internal/solver"
)

const (
	ExitSuccess           = 0
	ExitUserError         = 1
	ExitInternalInvariant = 2
)

// InvocationError reports a problem with the command line itself, before any
// rule file is even read. It always maps to ExitUserError.
type InvocationError struct {
	Message string
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

func invalidInvocationf(format string, args ...any) error {
	return &InvocationError{Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error from the build path to one of the three exit codes
// the external interface promises: 0 success, 1 user error (bad invocation,
// a malformed definition, or a goal the registry can't satisfy), 2 an
// internal invariant the engine's own bookkeeping caught.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var invErr *InvocationError
	if errors.As(err, &invErr) {
		return ExitUserError
	}

	var patErr *rules.PatternError
	if errors.As(err, &patErr) {
		return ExitUserError
	}
	var matchErr *rules.MatchError
	if errors.As(err, &matchErr) {
		return ExitUserError
	}

	var unsat *solver.ErrUnsatisfiableGoal
	if errors.As(err, &unsat) {
		return ExitUserError
	}
	var bound *solver.ErrSearchBoundExceeded
	if errors.As(err, &bound) {
		return ExitUserError
	}

	var cmdErr *engine.ErrCommandFailed
	if errors.As(err, &cmdErr) {
		return ExitUserError
	}

	var invariant *engine.ErrInternalInvariant
	if errors.As(err, &invariant) {
		return ExitInternalInvariant
	}

	return ExitInternalInvariant
}
