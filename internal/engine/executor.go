package engine

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"ruleweaver/internal/backend"
	"ruleweaver/internal/metrics"
	"ruleweaver/internal/pattern"
	"ruleweaver/internal/rules"
	"ruleweaver/internal/solver"
	"ruleweaver/internal/trace"
)

// Executor runs a solved Plan's steps against a Backend, honoring each
// step's Prereqs and staying within the concurrency a caller asks for.
type Executor struct {
	Plan     *solver.Plan
	Registry *rules.Registry
	Backend  backend.Backend

	// Sink receives one TraceEvent per cache hit, execution, failure, and
	// skip. Defaults to trace.NopSink{} when left nil, so callers that
	// don't care about trace output never have to construct one.
	Sink trace.Sink

	// Metrics receives step-level counts as they happen. Defaults to
	// metrics.NopRecorder{} when left nil.
	Metrics metrics.Recorder

	adj [][]int // outgoing[p] = steps that depend on step p

	mu    sync.Mutex
	state ExecutionState
}

// NewExecutor builds an Executor with every step initialized to Pending.
func NewExecutor(plan *solver.Plan, reg *rules.Registry, be backend.Backend) (*Executor, error) {
	if plan == nil {
		return nil, fmt.Errorf("nil plan")
	}
	if reg == nil {
		return nil, fmt.Errorf("nil registry")
	}
	if be == nil {
		return nil, fmt.Errorf("nil backend")
	}
	state := make(ExecutionState, len(plan.Steps))
	prereqs := make([][]int, len(plan.Steps))
	for i, step := range plan.Steps {
		prereqs[i] = step.Prereqs
	}
	return &Executor{
		Plan: plan, Registry: reg, Backend: be, adj: outgoing(prereqs), state: state,
		Sink: trace.NopSink{}, Metrics: metrics.NopRecorder{},
	}, nil
}

func stepID(i int) string { return strconv.Itoa(i) }

func (e *Executor) record(event trace.TraceEvent) {
	sink := e.Sink
	if sink == nil {
		sink = trace.NopSink{}
	}
	trace.SafeRecord(sink, event)
}

func (e *Executor) metrics() metrics.Recorder {
	if e.Metrics == nil {
		return metrics.NopRecorder{}
	}
	return e.Metrics
}

// StateSnapshot returns a copy of the executor's current per-step state.
func (e *Executor) StateSnapshot() ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(ExecutionState, len(e.state))
	copy(cp, e.state)
	return cp
}

func (e *Executor) depsSatisfied(i int) bool {
	for _, p := range e.Plan.Steps[i].Prereqs {
		if !IsSuccessful(e.state[p]) {
			return false
		}
	}
	return true
}

// readySteps returns every still-Pending step index whose prerequisites
// have all completed successfully, in ascending index order. Ascending
// index order is itself dependency-respecting, since emitPlan only ever
// appends a step after every one of its prerequisite steps.
func (e *Executor) readySteps() []int {
	var ready []int
	for i := range e.state {
		if e.state[i] == Pending && e.depsSatisfied(i) {
			ready = append(ready, i)
		}
	}
	sort.Ints(ready)
	return ready
}

func (e *Executor) allTerminal() bool {
	for _, st := range e.state {
		if !IsTerminal(st) {
			return false
		}
	}
	return true
}

// probeStep fingerprints a step's inputs and asks the backend whether that
// exact set was already built. A cache hit never transitions a step
// through Running at all.
func (e *Executor) probeStep(i int) (bool, error) {
	step := e.Plan.Steps[i]
	rule, ok := e.Registry.RuleByID(step.RuleID)
	if !ok {
		return false, fmt.Errorf("step %d: no rule registered with id %d", i, step.RuleID)
	}
	inputWords := pattern.Expand(step.Bindings, rule.Inputs)
	inputFPs, err := backend.FingerprintPaths(inputWords)
	if err != nil {
		return false, fmt.Errorf("step %d: fingerprinting inputs: %w", i, err)
	}
	return e.Backend.IsFresh(step.RuleID, step.Bindings, inputFPs)
}

// executeStep expands a step's command with its matched bindings plus the
// synthetic %in/%out variables and runs it, recording the resulting output
// fingerprints on success.
func (e *Executor) executeStep(ctx context.Context, i int) (StepState, error) {
	step := e.Plan.Steps[i]
	rule, ok := e.Registry.RuleByID(step.RuleID)
	if !ok {
		return Failed, fmt.Errorf("step %d: no rule registered with id %d", i, step.RuleID)
	}

	inputWords := pattern.Expand(step.Bindings, rule.Inputs)
	outputWords := pattern.Expand(step.Bindings, rule.Outputs)

	cmdBindings := step.Bindings.Merge(pattern.Bindings{
		"in":  {pattern.ConcatBinding(inputWords)},
		"out": {pattern.ConcatBinding(outputWords)},
	})
	commandText := pattern.ExpandCommand(cmdBindings, rule.Command)

	exitCode, err := e.Backend.Execute(ctx, step.RuleID, commandText, step.Bindings)
	if err != nil {
		return Failed, fmt.Errorf("step %d: executing: %w", i, err)
	}
	if exitCode != 0 {
		return Failed, &ErrCommandFailed{RuleID: step.RuleID, ExitCode: exitCode}
	}

	outputFPs, err := backend.FingerprintPaths(outputWords)
	if err != nil {
		return Failed, fmt.Errorf("step %d: fingerprinting outputs: %w", i, err)
	}
	if err := e.Backend.RecordOutput(step.RuleID, step.Bindings, outputFPs); err != nil {
		return Failed, fmt.Errorf("step %d: recording output: %w", i, err)
	}
	return Completed, nil
}

// RunSerial runs every step one at a time, in dependency order. A failing
// step's downstream dependents are marked Skipped and execution continues
// with whatever independent steps remain ready; the returned Result
// reports every failure seen, and the caller decides what exit status that
// warrants.
func (e *Executor) RunSerial(ctx context.Context) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var order []int
	exitCodes := make(map[int]int)
	failures := make(map[int]error)

	for {
		e.mu.Lock()
		ready := e.readySteps()
		if len(ready) == 0 {
			done := e.allTerminal()
			e.mu.Unlock()
			if done {
				return &Result{FinalState: e.StateSnapshot(), ExecutionOrder: order, ExitCode: exitCodes, Failures: failures}, nil
			}
			return nil, &ErrInternalInvariant{Detail: "no ready steps but plan is not finished"}
		}
		next := ready[0]
		e.mu.Unlock()

		fresh, err := e.probeStep(next)
		if err != nil {
			return nil, fmt.Errorf("probing step %d: %w", next, err)
		}

		e.mu.Lock()
		if fresh {
			if err := Transition(e.state, next, Pending, Cached); err != nil {
				e.mu.Unlock()
				return nil, err
			}
			exitCodes[next] = 0
			e.mu.Unlock()
			e.record(trace.TraceEvent{Kind: trace.EventStepCached, StepID: stepID(next)})
			e.metrics().IncStepsCached()
			continue
		}
		if err := Transition(e.state, next, Pending, Running); err != nil {
			e.mu.Unlock()
			return nil, err
		}
		e.mu.Unlock()

		order = append(order, next)
		result, runErr := e.executeStep(ctx, next)

		e.mu.Lock()
		switch result {
		case Completed:
			exitCodes[next] = 0
			if err := Transition(e.state, next, Running, Completed); err != nil {
				e.mu.Unlock()
				return nil, err
			}
			e.mu.Unlock()
			e.record(trace.TraceEvent{Kind: trace.EventStepExecuted, StepID: stepID(next)})
			e.metrics().IncStepsExecuted()
		case Failed:
			failures[next] = runErr
			if cmdErr, ok := runErr.(*ErrCommandFailed); ok {
				exitCodes[next] = cmdErr.ExitCode
			}
			before := make(ExecutionState, len(e.state))
			copy(before, e.state)
			if err := FailAndPropagate(e.state, e.adj, next); err != nil {
				e.mu.Unlock()
				return nil, err
			}
			after := make(ExecutionState, len(e.state))
			copy(after, e.state)
			e.mu.Unlock()
			e.record(trace.TraceEvent{Kind: trace.EventStepFailed, StepID: stepID(next), Reason: runErr.Error()})
			e.metrics().IncStepsFailed()
			e.recordSkips(before, after, next)
		default:
			e.mu.Unlock()
		}
	}
}

// recordSkips compares a before/after snapshot around a FailAndPropagate
// call and emits one EventStepSkipped per step that newly became Skipped,
// attributing each to the step whose failure triggered the cascade.
func (e *Executor) recordSkips(before, after ExecutionState, causeIdx int) {
	for i := range after {
		if after[i] == Skipped && before[i] != Skipped {
			e.record(trace.TraceEvent{
				Kind:        trace.EventStepSkipped,
				StepID:      stepID(i),
				Reason:      "UpstreamFailed",
				CauseStepID: stepID(causeIdx),
			})
		}
	}
}

type workItem struct {
	index int
}

type workResult struct {
	index int
	state StepState
	err   error
}

// RunParallel dispatches steps in increasing Depth order, running every
// step at a given depth concurrently (bounded by concurrency) before
// moving to the next. Depth is precomputed by the solver, so no separate
// graph traversal is needed to find each stage's membership.
func (e *Executor) RunParallel(ctx context.Context, concurrency int) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be > 0")
	}

	maxDepth := 0
	for _, step := range e.Plan.Steps {
		if step.Depth > maxDepth {
			maxDepth = step.Depth
		}
	}
	byDepth := make([][]int, maxDepth+1)
	for i, step := range e.Plan.Steps {
		byDepth[step.Depth] = append(byDepth[step.Depth], i)
	}
	for d := range byDepth {
		sort.Ints(byDepth[d])
	}

	workCh := make(chan workItem, concurrency)
	doneCh := make(chan workResult, concurrency)

	var wg sync.WaitGroup
	var stopOnce sync.Once
	stopWorkers := func() {
		stopOnce.Do(func() {
			close(workCh)
			wg.Wait()
		})
	}
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range workCh {
				st, err := e.executeStep(ctx, item.index)
				doneCh <- workResult{index: item.index, state: st, err: err}
			}
		}()
	}

	var order []int
	exitCodes := make(map[int]int)
	failures := make(map[int]error)
	inFlight := 0

	for depth := 1; depth <= maxDepth; depth++ {
		indices := byDepth[depth]
		nextToStart := 0

		for {
			e.mu.Lock()
			for inFlight < concurrency && nextToStart < len(indices) {
				i := indices[nextToStart]
				st := e.state[i]
				if IsTerminal(st) {
					nextToStart++
					continue
				}
				if st != Pending {
					e.mu.Unlock()
					stopWorkers()
					return nil, &ErrInternalInvariant{Detail: fmt.Sprintf("step %d at depth %d is %s, expected pending", i, depth, st)}
				}
				if !e.depsSatisfied(i) {
					e.mu.Unlock()
					stopWorkers()
					return nil, &ErrInternalInvariant{Detail: fmt.Sprintf("step %d at depth %d is pending with unsatisfied prerequisites", i, depth)}
				}

				fresh, err := e.probeStep(i)
				if err != nil {
					e.mu.Unlock()
					stopWorkers()
					return nil, fmt.Errorf("probing step %d: %w", i, err)
				}
				if fresh {
					if err := Transition(e.state, i, Pending, Cached); err != nil {
						e.mu.Unlock()
						stopWorkers()
						return nil, err
					}
					exitCodes[i] = 0
					nextToStart++
					e.record(trace.TraceEvent{Kind: trace.EventStepCached, StepID: stepID(i)})
					e.metrics().IncStepsCached()
					continue
				}

				if err := Transition(e.state, i, Pending, Running); err != nil {
					e.mu.Unlock()
					stopWorkers()
					return nil, err
				}
				order = append(order, i)
				inFlight++
				nextToStart++
				workCh <- workItem{index: i}
			}

			stageDone := nextToStart >= len(indices) && inFlight == 0
			e.mu.Unlock()
			if stageDone {
				break
			}

			select {
			case <-ctx.Done():
				stopWorkers()
				return nil, fmt.Errorf("execution cancelled: %w", ctx.Err())
			case r := <-doneCh:
				e.mu.Lock()
				switch r.state {
				case Completed:
					exitCodes[r.index] = 0
					if err := Transition(e.state, r.index, Running, Completed); err != nil {
						e.mu.Unlock()
						stopWorkers()
						return nil, err
					}
					e.record(trace.TraceEvent{Kind: trace.EventStepExecuted, StepID: stepID(r.index)})
					e.metrics().IncStepsExecuted()
				case Failed:
					failures[r.index] = r.err
					if cmdErr, ok := r.err.(*ErrCommandFailed); ok {
						exitCodes[r.index] = cmdErr.ExitCode
					}
					before := make(ExecutionState, len(e.state))
					copy(before, e.state)
					if err := FailAndPropagate(e.state, e.adj, r.index); err != nil {
						e.mu.Unlock()
						stopWorkers()
						return nil, err
					}
					after := make(ExecutionState, len(e.state))
					copy(after, e.state)
					e.record(trace.TraceEvent{Kind: trace.EventStepFailed, StepID: stepID(r.index), Reason: r.err.Error()})
					e.metrics().IncStepsFailed()
					e.recordSkips(before, after, r.index)
				}
				inFlight--
				e.mu.Unlock()
			}
		}
	}

	stopWorkers()
	return &Result{FinalState: e.StateSnapshot(), ExecutionOrder: order, ExitCode: exitCodes, Failures: failures}, nil
}
