package cli

import (
	"bytes"
	"context"
)

// CLIResult is the outcome of one black-box invocation: the exit code the
// process would have returned, plus whatever it wrote to stdout/stderr.
type CLIResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Run executes the command tree against args (excluding argv[0]) and
// captures its output, for tests and for cmd/ruleweaver's thin main.
func Run(ctx context.Context, args []string) (CLIResult, error) {
	cmd := NewRootCommand()
	cmd.SetArgs(args)

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.ExecuteContext(ctx)
	return CLIResult{
		ExitCode: ExitCode(err),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, err
}
