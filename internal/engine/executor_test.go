package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ruleweaver/internal/backend"
	"ruleweaver/internal/pattern"
	"ruleweaver/internal/rules"
	"ruleweaver/internal/solver"
	"ruleweaver/internal/trace"
)

// chdir switches the test process into dir for the duration of the test,
// restoring the original working directory on cleanup. Rule bindings in
// these tests are bare filenames, so the steps under test need to see them
// relative to a throwaway directory rather than the module root.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

func toks(s string) []string {
	var out []string
	field := ""
	for _, r := range s {
		if r == ' ' {
			if field != "" {
				out = append(out, field)
				field = ""
			}
			continue
		}
		field += string(r)
	}
	if field != "" {
		out = append(out, field)
	}
	return out
}

func define(t *testing.T, r *rules.Registry, call string) {
	t.Helper()
	require.NoError(t, r.Define(toks(call)))
}

func TestRunSerial_ExecutesChainAndWritesOutput(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.c"), []byte("int main(){}"), 0o644))

	r := rules.NewRegistry()
	define(t, r, "foo.c :")
	define(t, r, "%x.o : %x.c :: cp %in %out")

	plan, err := solver.Solve(context.Background(), r, []pattern.Word{"foo.o"})
	require.NoError(t, err)
	require.Len(t, plan.Steps, 1)

	ex, err := NewExecutor(plan, r, backend.NewMemoryBackend())
	require.NoError(t, err)

	res, err := ex.RunSerial(context.Background())
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, Completed, res.FinalState[0])

	got, err := os.ReadFile(filepath.Join(dir, "foo.o"))
	require.NoError(t, err)
	assert.Equal(t, "int main(){}", string(got))
}

func TestRunSerial_SecondRunIsCached(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.c"), []byte("x"), 0o644))

	r := rules.NewRegistry()
	define(t, r, "foo.c :")
	define(t, r, "%x.o : %x.c :: cp %in %out")

	plan, err := solver.Solve(context.Background(), r, []pattern.Word{"foo.o"})
	require.NoError(t, err)

	be := backend.NewMemoryBackend()

	first, err := NewExecutor(plan, r, be)
	require.NoError(t, err)
	res, err := first.RunSerial(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Completed, res.FinalState[0])

	second, err := NewExecutor(plan, r, be)
	require.NoError(t, err)
	res, err = second.RunSerial(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Cached, res.FinalState[0])
}

func TestRunSerial_FailurePropagatesSkipToDependent(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.c"), []byte("x"), 0o644))

	r := rules.NewRegistry()
	define(t, r, "foo.c :")
	define(t, r, "%bin : %bin.o :: cp %in %out")
	define(t, r, "%x.o : %x.c :: false")

	plan, err := solver.Solve(context.Background(), r, []pattern.Word{"foo"})
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)

	ex, err := NewExecutor(plan, r, backend.NewMemoryBackend())
	require.NoError(t, err)

	res, err := ex.RunSerial(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Failed())
	assert.Equal(t, Failed, res.FinalState[0])
	assert.Equal(t, Skipped, res.FinalState[1])
}

func TestRunParallel_IndependentBranchesBothComplete(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.c"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.c"), []byte("b"), 0o644))

	r := rules.NewRegistry()
	define(t, r, "a.c :")
	define(t, r, "b.c :")
	define(t, r, "%x.o : %x.c :: cp %in %out")

	plan, err := solver.Solve(context.Background(), r, []pattern.Word{"a.o", "b.o"})
	require.NoError(t, err)
	require.Len(t, plan.Steps, 2)

	ex, err := NewExecutor(plan, r, backend.NewMemoryBackend())
	require.NoError(t, err)

	res, err := ex.RunParallel(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, res.Failed())
	assert.Equal(t, Completed, res.FinalState[0])
	assert.Equal(t, Completed, res.FinalState[1])
}

func TestRunSerial_EmitsTraceEventsForExecutionAndSkip(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.c"), []byte("x"), 0o644))

	r := rules.NewRegistry()
	define(t, r, "foo.c :")
	define(t, r, "%bin : %bin.o :: cp %in %out")
	define(t, r, "%x.o : %x.c :: false")

	plan, err := solver.Solve(context.Background(), r, []pattern.Word{"foo"})
	require.NoError(t, err)

	rec := trace.NewRecorder()
	ex, err := NewExecutor(plan, r, backend.NewMemoryBackend())
	require.NoError(t, err)
	ex.Sink = rec

	res, err := ex.RunSerial(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Failed())

	events := rec.Snapshot()
	var sawFailed, sawSkipped bool
	for _, e := range events {
		switch e.Kind {
		case trace.EventStepFailed:
			sawFailed = true
			assert.Equal(t, "0", e.StepID)
		case trace.EventStepSkipped:
			sawSkipped = true
			assert.Equal(t, "1", e.StepID)
			assert.Equal(t, "0", e.CauseStepID)
		}
	}
	assert.True(t, sawFailed, "expected a StepFailed event")
	assert.True(t, sawSkipped, "expected a StepSkipped event")
}
