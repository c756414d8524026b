package cli

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"ruleweaver/internal/metrics"
	"ruleweaver/internal/recovery/state"
)

// rootFlags holds every flag NewRootCommand registers, read once inside
// RunE after cobra has parsed argv.
type rootFlags struct {
	evalTerms   []string
	list        bool
	terminals   []string
	jobs        int
	verbose     bool
	rulesPath   string
	cacheDir    string
	watch       bool
	metricsAddr string
}

// NewRootCommand builds the ruleweaver command tree: a single command whose
// positional arguments are either a definition call or a goal list,
// governed by the flags in rootFlags.
func NewRootCommand() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:           "ruleweaver [definition-call | goal ...]",
		Short:         "Solve and build goals against a pattern-rule ruleset",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRoot(cmd, &flags, args)
		},
	}

	cmd.Flags().StringSliceVarP(&flags.evalTerms, "eval", "e", nil, "expand terms through the ungrounded-rule fixpoint and print the result")
	cmd.Flags().BoolVarP(&flags.list, "list", "l", false, "print every defined rule and global, in definition order")
	cmd.Flags().StringSliceVarP(&flags.terminals, "terminal", "t", nil, "register each word as a terminal (already-built) grounded rule")
	cmd.Flags().IntVarP(&flags.jobs, "jobs", "j", 1, "concurrency hint forwarded to the parallel execution engine")
	cmd.Flags().BoolVarP(&flags.verbose, "verbose", "v", false, "print each execution event to stderr as it happens")
	cmd.Flags().StringVar(&flags.rulesPath, "rules", "", "rule source file (text or YAML); overrides project config discovery")
	cmd.Flags().StringVar(&flags.cacheDir, "cache-dir", "", "override the cache directory from the project config")
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "rebuild the goal set every time one of its plan's input files changes")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", "", "serve Prometheus metrics over HTTP at this address while building")

	return cmd
}

func runRoot(cmd *cobra.Command, flags *rootFlags, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	proj, err := loadProject(workDir, flags.rulesPath, flags.terminals)
	if err != nil {
		return err
	}

	cacheDir := flags.cacheDir
	if cacheDir == "" {
		cacheDir = proj.Config.CacheDir
	}
	if cacheDir == "" {
		cacheDir = ".ruleweaver/cache"
	}

	jobs := flags.jobs
	if !cmd.Flags().Changed("jobs") && proj.Config.Concurrency > 0 {
		jobs = proj.Config.Concurrency
	}

	switch {
	case len(flags.evalTerms) > 0:
		return runEval(ctx, proj.Registry, flags.evalTerms, out)
	case flags.list:
		return runList(proj.Registry, out)
	default:
		ledger := newLedger(cacheDir)
		rec := startMetrics(flags.metricsAddr, errOut)
		if flags.watch {
			return runWatch(ctx, proj.Registry, cacheDir, args, jobs, flags.verbose, ledger, rec, out, errOut)
		}
		return runBuild(ctx, proj.Registry, cacheDir, args, jobs, flags.verbose, ledger, rec, out, errOut)
	}
}

// startMetrics builds a Collectors registered against a fresh registry and,
// if addr is non-empty, serves it over HTTP in the background for the
// lifetime of the process. The listener's own failures are reported but
// never block the build.
func startMetrics(addr string, errOut io.Writer) metrics.Recorder {
	reg := prometheus.NewRegistry()
	collectors := metrics.NewCollectors(reg)
	if addr == "" {
		return collectors
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			fmt.Fprintln(errOut, "metrics listener:", err)
		}
	}()
	return collectors
}

func newLedger(cacheDir string) *state.FailureRecorder {
	store, err := state.NewStore(cacheDir)
	if err != nil {
		return nil
	}
	return &state.FailureRecorder{Store: store}
}
