package cli

import (
	"os"
	"path/filepath"
	"strings"

	"ruleweaver/internal/config"
	"ruleweaver/internal/rules"
)

// loadedProject bundles the registry built from a project's rule sources
// with the config it was discovered from, so callers have the cache
// directory and instance name available without re-reading the config file.
type loadedProject struct {
	Config   config.Project
	Registry *rules.Registry
}

// loadProject discovers (or loads, if rulesPath is explicit) a project
// config, reads every listed rule source into a fresh Registry in order,
// and registers any --terminal words on top.
func loadProject(workDir, rulesPath string, terminals []string) (*loadedProject, error) {
	reg := rules.NewRegistry()

	var sources []string
	var instance = "default"
	var proj config.Project

	if strings.TrimSpace(rulesPath) != "" {
		sources = []string{rulesPath}
		proj.CacheDir = filepath.Join(filepath.Dir(rulesPath), ".ruleweaver", "cache")
	} else {
		configPath, err := config.Discover(workDir)
		if err != nil {
			return nil, invalidInvocationf("%v", err)
		}
		proj, err = config.Load(configPath)
		if err != nil {
			return nil, invalidInvocationf("%v", err)
		}
		sources = proj.Rules
		instance = proj.Instance
	}

	for _, src := range sources {
		if err := loadRuleSource(reg, src); err != nil {
			return nil, err
		}
	}

	for _, word := range terminals {
		if err := reg.Define([]string{word, ":"}); err != nil {
			return nil, err
		}
	}

	proj.Instance = instance
	return &loadedProject{Config: proj, Registry: reg}, nil
}

func loadRuleSource(reg *rules.Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return invalidInvocationf("reading rule source %s: %v", path, err)
	}
	if strings.EqualFold(filepath.Ext(path), ".yaml") || strings.EqualFold(filepath.Ext(path), ".yml") {
		return reg.LoadYAML(data)
	}
	return reg.LoadText(string(data))
}
