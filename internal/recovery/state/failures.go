package state

import (
	"errors"

	"ruleweaver/internal/engine"
	"ruleweaver/internal/rules"
	"ruleweaver/internal/solver"
)

// failureFromError classifies an error from the pattern/solver/engine
// boundary into the run ledger's four-class taxonomy. An error that
// doesn't match any known §7 type is recorded as internal, the most
// conservative classification available.
func failureFromError(err error) Failure {
	if err == nil {
		return Failure{FailureClass: FailureClassInternal, ErrorMessage: "nil error recorded"}
	}

	var patErr *rules.PatternError
	if errors.As(err, &patErr) {
		return Failure{FailureClass: FailureClassDefinition, ErrorMessage: err.Error()}
	}
	var matchErr *rules.MatchError
	if errors.As(err, &matchErr) {
		return Failure{FailureClass: FailureClassDefinition, ErrorMessage: err.Error()}
	}

	var unsat *solver.ErrUnsatisfiableGoal
	if errors.As(err, &unsat) {
		return Failure{FailureClass: FailureClassSolve, ErrorMessage: err.Error()}
	}
	var bound *solver.ErrSearchBoundExceeded
	if errors.As(err, &bound) {
		return Failure{FailureClass: FailureClassSolve, ErrorMessage: err.Error()}
	}

	var cmdErr *engine.ErrCommandFailed
	if errors.As(err, &cmdErr) {
		stepID := ruleIDStepID(cmdErr.RuleID)
		return Failure{FailureClass: FailureClassExecution, StepID: &stepID, ErrorMessage: err.Error()}
	}

	var invariant *engine.ErrInternalInvariant
	if errors.As(err, &invariant) {
		return Failure{FailureClass: FailureClassInternal, ErrorMessage: err.Error()}
	}

	return Failure{FailureClass: FailureClassInternal, ErrorMessage: err.Error()}
}

func ruleIDStepID(ruleID int) string {
	return "rule-" + itoa(ruleID)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
