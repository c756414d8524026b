package solver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCancelled is returned when the context passed to Solve or ExpandGoals
// is cancelled mid-search. Partial search state is discarded; there is no
// resume.
var ErrCancelled = errors.New("solve cancelled")

// ErrUnsatisfiableGoal reports that the search terminated with one or more
// required goals still ungrounded.
type ErrUnsatisfiableGoal struct {
	Orphans []string
}

func (e *ErrUnsatisfiableGoal) Error() string {
	return fmt.Sprintf("unsatisfiable goal(s): %s", strings.Join(e.Orphans, ", "))
}

// ErrSearchBoundExceeded reports that the search grew past its safety
// bound without terminating, most likely because of a rewrite cycle or a
// rule set that can never ground its goals.
type ErrSearchBoundExceeded struct {
	Limit int
}

func (e *ErrSearchBoundExceeded) Error() string {
	return fmt.Sprintf("search exceeded bound of %d goals; simplify the rule set", e.Limit)
}

// ErrCommandFailed reports a non-zero exit from a rule's command.
type ErrCommandFailed struct {
	RuleID   int
	ExitCode int
}

func (e *ErrCommandFailed) Error() string {
	return fmt.Sprintf("rule %d: command exited %d", e.RuleID, e.ExitCode)
}
