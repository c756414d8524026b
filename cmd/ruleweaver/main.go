package main

import (
	"context"
	"fmt"
	"os"

	"ruleweaver/internal/cli"
)

func main() {
	result, err := cli.Run(context.Background(), os.Args[1:])
	if result.Stdout != "" {
		fmt.Fprint(os.Stdout, result.Stdout)
	}
	if result.Stderr != "" {
		fmt.Fprint(os.Stderr, result.Stderr)
	}
	if err != nil && result.Stderr == "" {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(result.ExitCode)
}
