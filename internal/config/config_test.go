package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ruleweaver.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("instance: demo\nrules:\n  - rules.txt\n"), 0o644))

	p, err := Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "demo", p.Instance)
	assert.Equal(t, []string{filepath.Join(dir, "rules.txt")}, p.Rules)
	assert.Equal(t, filepath.Join(dir, ".ruleweaver", "cache"), p.CacheDir)
}

func TestLoad_RejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ruleweaver.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("instance: demo\nrules: [a]\nbogus: true\n"), 0o644))

	_, err := Load(cfgPath)
	assert.Error(t, err)
}

func TestLoad_RequiresInstanceAndRules(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ruleweaver.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("rules: [a]\n"), 0o644))

	_, err := Load(cfgPath)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(cfgPath, []byte("instance: demo\n"), 0o644))

	_, err = Load(cfgPath)
	assert.Error(t, err)
}

func TestDiscover_WalksUpToProjectRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "ruleweaver.yaml"), []byte("instance: demo\nrules: [a]\n"), 0o644))
	sub := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	found, err := Discover(sub)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "ruleweaver.yaml"), found)
}
