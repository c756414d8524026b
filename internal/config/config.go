// Package config loads a project's ruleweaver.yaml: where its ruleset
// lives, where cached build state is kept, and how much parallelism to run
// with by default.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Project is the on-disk project configuration, loaded once per invocation.
type Project struct {
	// Instance names this project. It must be set; no cache or run-ledger
	// path is derived from it.
	Instance string `yaml:"instance"`

	// Rules lists ruleset source paths, relative to the config file's
	// directory, loaded into the registry in order.
	Rules []string `yaml:"rules"`

	// CacheDir holds backend fingerprint state. Relative to the config
	// file's directory; defaults to ".ruleweaver/cache".
	CacheDir string `yaml:"cache_dir"`

	// Concurrency is the default worker count for parallel execution.
	// Zero means "run serially unless -j overrides it".
	Concurrency int `yaml:"concurrency"`
}

const defaultConfigName = "ruleweaver.yaml"

// Load reads and validates a Project from path. Unknown fields are
// rejected so a typo in the config doesn't silently do nothing.
func Load(path string) (Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Project{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	var p Project
	if err := dec.Decode(&p); err != nil {
		return Project{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if p.CacheDir == "" {
		p.CacheDir = filepath.Join(dir, ".ruleweaver", "cache")
	} else if !filepath.IsAbs(p.CacheDir) {
		p.CacheDir = filepath.Join(dir, p.CacheDir)
	}
	for i, r := range p.Rules {
		if !filepath.IsAbs(r) {
			p.Rules[i] = filepath.Join(dir, r)
		}
	}

	if err := p.Validate(); err != nil {
		return Project{}, err
	}
	return p, nil
}

// Validate checks the invariants Load relies on.
func (p Project) Validate() error {
	if strings.TrimSpace(p.Instance) == "" {
		return errors.New("config: instance is required")
	}
	if len(p.Rules) == 0 {
		return errors.New("config: rules must list at least one ruleset source")
	}
	if p.Concurrency < 0 {
		return errors.New("config: concurrency must be >= 0")
	}
	return nil
}

// Discover walks upward from dir looking for ruleweaver.yaml, the way a
// build tool finds its project root from any subdirectory.
func Discover(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, defaultConfigName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found above %s", defaultConfigName, dir)
		}
		dir = parent
	}
}
