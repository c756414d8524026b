// Package metrics exposes the prometheus collectors ruleweaver updates
// while solving and executing a plan. A caller that doesn't need metrics
// can use NopRecorder; a caller running an HTTP server can register
// Registry and serve it behind promhttp.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recorder is the minimal set of events recorded around solving (by the
// CLI, which times solver.Solve) and during execution (by the engine).
type Recorder interface {
	ObserveSolveDuration(seconds float64)
	IncGoalsGrounded(n int)
	IncStepsExecuted()
	IncStepsCached()
	IncStepsFailed()
}

// Collectors bundles the prometheus metrics ruleweaver registers. It
// implements Recorder directly so callers can wire it straight into an
// Executor without an adapter.
type Collectors struct {
	SolveDuration prometheus.Histogram
	GoalsGrounded prometheus.Counter
	StepsExecuted prometheus.Counter
	StepsCached   prometheus.Counter
	StepsFailed   prometheus.Counter
}

// NewCollectors builds a fresh set of collectors and registers them on reg.
func NewCollectors(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		SolveDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "ruleweaver",
			Name:      "solve_duration_seconds",
			Help:      "Time spent searching for a plan that satisfies the requested goals.",
			Buckets:   prometheus.DefBuckets,
		}),
		GoalsGrounded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ruleweaver",
			Name:      "goals_grounded_total",
			Help:      "Number of goal terms the solver grounded against a rule.",
		}),
		StepsExecuted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ruleweaver",
			Name:      "steps_executed_total",
			Help:      "Number of plan steps whose command actually ran.",
		}),
		StepsCached: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ruleweaver",
			Name:      "steps_cached_total",
			Help:      "Number of plan steps skipped because the backend reported them fresh.",
		}),
		StepsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ruleweaver",
			Name:      "steps_failed_total",
			Help:      "Number of plan steps whose command exited non-zero or errored.",
		}),
	}
	reg.MustRegister(c.SolveDuration, c.GoalsGrounded, c.StepsExecuted, c.StepsCached, c.StepsFailed)
	return c
}

func (c *Collectors) ObserveSolveDuration(seconds float64) { c.SolveDuration.Observe(seconds) }
func (c *Collectors) IncGoalsGrounded(n int)               { c.GoalsGrounded.Add(float64(n)) }
func (c *Collectors) IncStepsExecuted()                    { c.StepsExecuted.Inc() }
func (c *Collectors) IncStepsCached()                      { c.StepsCached.Inc() }
func (c *Collectors) IncStepsFailed()                      { c.StepsFailed.Inc() }

// NopRecorder discards every observation.
type NopRecorder struct{}

func (NopRecorder) ObserveSolveDuration(float64) {}
func (NopRecorder) IncGoalsGrounded(int)         {}
func (NopRecorder) IncStepsExecuted()            {}
func (NopRecorder) IncStepsCached()              {}
func (NopRecorder) IncStepsFailed()              {}
