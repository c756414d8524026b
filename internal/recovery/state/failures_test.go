package state

import (
	"errors"
	"testing"

	"ruleweaver/internal/engine"
	"ruleweaver/internal/rules"
	"ruleweaver/internal/solver"
)

func TestFailureFromError_ClassifiesDefinitionErrors(t *testing.T) {
	f := failureFromError(&rules.PatternError{Tokens: []string{"%x"}, Message: "bad token"})
	if f.FailureClass != FailureClassDefinition || f.StepID != nil {
		t.Fatalf("unexpected failure: %#v", f)
	}

	f = failureFromError(&rules.MatchError{Tokens: []string{"%x"}, Err: errors.New("no match")})
	if f.FailureClass != FailureClassDefinition || f.StepID != nil {
		t.Fatalf("unexpected failure: %#v", f)
	}
}

func TestFailureFromError_ClassifiesSolveErrors(t *testing.T) {
	f := failureFromError(&solver.ErrUnsatisfiableGoal{Orphans: []string{"foo"}})
	if f.FailureClass != FailureClassSolve || f.StepID != nil {
		t.Fatalf("unexpected failure: %#v", f)
	}

	f = failureFromError(&solver.ErrSearchBoundExceeded{Limit: 10})
	if f.FailureClass != FailureClassSolve || f.StepID != nil {
		t.Fatalf("unexpected failure: %#v", f)
	}
}

func TestFailureFromError_ClassifiesExecutionError(t *testing.T) {
	f := failureFromError(&engine.ErrCommandFailed{RuleID: 3, ExitCode: 1})
	if f.FailureClass != FailureClassExecution {
		t.Fatalf("unexpected failure class: %#v", f)
	}
	if f.StepID == nil || *f.StepID != "rule-3" {
		t.Fatalf("expected step_id rule-3, got: %#v", f)
	}
}

func TestFailureFromError_ClassifiesInternalInvariant(t *testing.T) {
	f := failureFromError(&engine.ErrInternalInvariant{Detail: "bookkeeping broke"})
	if f.FailureClass != FailureClassInternal || f.StepID != nil {
		t.Fatalf("unexpected failure: %#v", f)
	}
}

func TestFailureFromError_UnknownErrorFallsBackToInternal(t *testing.T) {
	f := failureFromError(errors.New("some unclassified problem"))
	if f.FailureClass != FailureClassInternal {
		t.Fatalf("unexpected failure class: %#v", f)
	}
}
