package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"ruleweaver/internal/backend"
	"ruleweaver/internal/engine"
	"ruleweaver/internal/metrics"
	"ruleweaver/internal/recovery/state"
	"ruleweaver/internal/rules"
	"ruleweaver/internal/solver"
	"ruleweaver/internal/trace"
)

// isDefinitionCall reports whether tokens contains a Define separator,
// mirroring Registry.Define's own outs/ins/cmd state machine well enough to
// route positional args before actually calling Define.
func isDefinitionCall(tokens []string) bool {
	for _, t := range tokens {
		switch t {
		case ":", "=", "::":
			return true
		}
	}
	return false
}

// runBuild is the default command: positional args are either a one-off
// definition call or a goal list. Grounded goals are solved into a Plan and
// executed against the cache directory's backend, with a run-ledger record
// persisted around the whole attempt. rec receives the solve duration, the
// grounded goal count, and every step outcome the executor reports; pass
// metrics.NopRecorder{} to discard them.
func runBuild(ctx context.Context, reg *rules.Registry, cacheDir string, args []string, jobs int, verbose bool, ledger *state.FailureRecorder, rec metrics.Recorder, stdout, stderr io.Writer) error {
	if isDefinitionCall(args) {
		return reg.Define(args)
	}

	goals := args
	if len(goals) == 0 {
		goals = reg.DefaultGoals()
	}
	if len(goals) == 0 {
		return invalidInvocationf("no goals given and no default goal set defined")
	}

	if rec == nil {
		rec = metrics.NopRecorder{}
	}

	runID, run, recordErr := startLedgerRun(ledger, goals)

	solveStart := time.Now()
	plan, err := solver.Solve(ctx, reg, goals)
	rec.ObserveSolveDuration(time.Since(solveStart).Seconds())
	if err != nil {
		finishLedgerRun(ledger, recordErr, runID, run, err)
		return err
	}
	rec.IncGoalsGrounded(len(plan.Goals))

	be := backend.NewFileBackend(cacheDir)
	ex, err := engine.NewExecutor(plan, reg, be)
	if err != nil {
		finishLedgerRun(ledger, recordErr, runID, run, err)
		return err
	}
	ex.Metrics = rec
	if verbose {
		ex.Sink = verboseSink{out: stderr}
	}

	var result *engine.Result
	if jobs > 1 {
		result, err = ex.RunParallel(ctx, jobs)
	} else {
		result, err = ex.RunSerial(ctx)
	}
	if err != nil {
		finishLedgerRun(ledger, recordErr, runID, run, err)
		return err
	}

	if result.Failed() {
		var firstErr error
		for _, stepErr := range result.Failures {
			firstErr = stepErr
			break
		}
		finishLedgerRun(ledger, recordErr, runID, run, firstErr)
		return firstErr
	}

	finishLedgerRun(ledger, recordErr, runID, run, nil)
	fmt.Fprintln(stdout, strings.Join(goals, " "), "up to date")
	return nil
}

func startLedgerRun(ledger *state.FailureRecorder, goals []string) (string, state.Run, error) {
	if ledger == nil {
		return "", state.Run{}, nil
	}
	runID, err := ledger.NewRunID()
	if err != nil {
		return "", state.Run{}, err
	}
	run := state.Run{
		RunID:     runID,
		Goals:     goals,
		StartTime: time.Now().UTC(),
		Status:    state.RunStatusRunning,
	}
	_ = ledger.StartRun(run)
	return runID, run, nil
}

func finishLedgerRun(ledger *state.FailureRecorder, startErr error, runID string, run state.Run, buildErr error) {
	if ledger == nil || startErr != nil || runID == "" {
		return
	}
	if buildErr == nil {
		run.Status = state.RunStatusSucceeded
		run.ExitCode = ExitSuccess
		_ = ledger.StartRun(run)
		return
	}
	run.Status = state.RunStatusFailed
	run.ExitCode = ExitCode(buildErr)
	_ = ledger.StartRun(run)
	_ = ledger.RecordFailure(runID, buildErr)
}

// verboseSink prints each trace event to stderr as it's recorded, for -v.
type verboseSink struct {
	out io.Writer
}

func (s verboseSink) Record(event trace.TraceEvent) {
	line := string(event.Kind) + " step=" + event.StepID
	if event.Reason != "" {
		line += " reason=" + event.Reason
	}
	if event.CauseStepID != "" {
		line += " cause=" + event.CauseStepID
	}
	fmt.Fprintln(s.out, line)
}
