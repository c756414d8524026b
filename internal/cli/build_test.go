package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"ruleweaver/internal/metrics"
	"ruleweaver/internal/rules"
)

func defineLine(t *testing.T, reg *rules.Registry, line string) {
	t.Helper()
	require.NoError(t, reg.LoadText(line))
}

func TestRunBuild_DefinitionCallStoresRule(t *testing.T) {
	reg := rules.NewRegistry()
	err := runBuild(context.Background(), reg, t.TempDir(), []string{"%bin", ":", "%bin.o", "::", "cp", "%in", "%out"}, 1, false, nil, metrics.NopRecorder{}, nopWriter{}, nopWriter{})
	require.NoError(t, err)
	require.Len(t, reg.ListRules(), 1)
}

func TestRunBuild_BuildsGroundedGoal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "foo.c"), []byte("x"), 0o644))
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(oldWd) })

	reg := rules.NewRegistry()
	defineLine(t, reg, "foo.c :")
	defineLine(t, reg, "foo : foo.c :: cp %in %out")

	err = runBuild(context.Background(), reg, filepath.Join(dir, ".cache"), []string{"foo"}, 1, false, nil, metrics.NopRecorder{}, nopWriter{}, nopWriter{})
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(dir, "foo"))
	require.NoError(t, statErr)
}

func TestIsDefinitionCall(t *testing.T) {
	require.True(t, isDefinitionCall([]string{"%x", ":", "%y"}))
	require.True(t, isDefinitionCall([]string{"CFLAGS", "=", "-O2"}))
	require.False(t, isDefinitionCall([]string{"foo", "bar"}))
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }
