package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectors_RegistersAllMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}

	for _, name := range []string{
		"ruleweaver_solve_duration_seconds",
		"ruleweaver_goals_grounded_total",
		"ruleweaver_steps_executed_total",
		"ruleweaver_steps_cached_total",
		"ruleweaver_steps_failed_total",
	} {
		assert.True(t, names[name], "expected %s to be registered", name)
	}

	assert.NotNil(t, c.SolveDuration)
}

func TestCollectors_IncGoalsGrounded_AddsN(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	c.IncGoalsGrounded(3)
	c.IncGoalsGrounded(2)

	assert.Equal(t, float64(5), testutil.ToFloat64(c.GoalsGrounded))
}

func TestCollectors_IncStepsExecutedCachedFailed_IncrementByOne(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	c.IncStepsExecuted()
	c.IncStepsExecuted()
	c.IncStepsCached()
	c.IncStepsFailed()

	assert.Equal(t, float64(2), testutil.ToFloat64(c.StepsExecuted))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.StepsCached))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.StepsFailed))
}

func TestCollectors_ObserveSolveDuration_RecordsSample(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollectors(reg)

	c.ObserveSolveDuration(0.5)

	assert.Equal(t, 1, testutil.CollectAndCount(c.SolveDuration))
}

func TestNopRecorder_MethodsDoNotPanic(t *testing.T) {
	var r Recorder = NopRecorder{}
	assert.NotPanics(t, func() {
		r.ObserveSolveDuration(1.23)
		r.IncGoalsGrounded(4)
		r.IncStepsExecuted()
		r.IncStepsCached()
		r.IncStepsFailed()
	})
}
