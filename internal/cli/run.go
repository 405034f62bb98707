package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelbuild/kestrel/internal/graph"
	"github.com/kestrelbuild/kestrel/internal/logging"
	"github.com/kestrelbuild/kestrel/internal/report"
	"github.com/kestrelbuild/kestrel/internal/runner"
	"github.com/kestrelbuild/kestrel/internal/task"
)

// runFlags holds all parsed flag values for the run command.
type runFlags struct {
	// Jobs is the worker pool width; 0 means one worker per CPU.
	Jobs int

	// Force bypasses the staleness check for every task.
	Force bool

	// Processes selects process-backed workers for fault isolation.
	Processes bool

	// NoProgress suppresses per-task progress lines.
	NoProgress bool

	// Timeout bounds the whole run; zero means no limit.
	Timeout time.Duration

	// DryRun prints the execution plan without running anything.
	DryRun bool
}

// newRunCmd creates the "kestrel run" command.
func newRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run [targets...]",
		Short: "Run target tasks and everything they depend on",
		Long: `Run the named target tasks and, transitively, every task they depend on.
With no targets, the taskfile's default_targets setting is used.

Tasks whose outputs are newer than all of their inputs are skipped as up to
date unless --force is given. Independent tasks run concurrently up to the
--jobs limit; a failed task causes every not-yet-started dependent to be
skipped while unaffected branches keep running.

Exit codes:
  0 - every task succeeded or was up to date
  1 - at least one task failed, was skipped due to a failure, or the run
      was cancelled`,
		Example: `  # Run the default targets
  kestrel run

  # Run specific targets with 8 workers
  kestrel run build test -j 8

  # Ignore staleness and rerun everything
  kestrel run build --force

  # Isolate task actions in worker processes
  kestrel run test --processes`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRun(cmd, args, flags)
		},
		ValidArgsFunction: completeTaskNames,
	}

	cmd.Flags().IntVarP(&flags.Jobs, "jobs", "j", 0, "Number of concurrent workers (0 = one per CPU)")
	cmd.Flags().BoolVar(&flags.Force, "force", false, "Run every task even when its outputs are up to date")
	cmd.Flags().BoolVar(&flags.Processes, "processes", false, "Run task actions in isolated worker processes")
	cmd.Flags().BoolVar(&flags.NoProgress, "no-progress", false, "Suppress per-task progress lines")
	cmd.Flags().DurationVar(&flags.Timeout, "timeout", 0, "Abort the whole run after this duration (0 = no limit)")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Print the execution plan without running anything")

	return cmd
}

func init() {
	rootCmd.AddCommand(newRunCmd())
}

// runRun is the RunE implementation for the run command.
func runRun(cmd *cobra.Command, args []string, flags runFlags) error {
	logger := logging.New("run")

	lt, err := loadTaskfile()
	if err != nil {
		return err
	}
	settings := lt.Config.Settings

	// Target selection: command line beats default_targets.
	targets := args
	if len(targets) == 0 {
		targets = settings.DefaultTargets
	}
	if len(targets) == 0 {
		_ = cmd.Usage()
		return fmt.Errorf("no target tasks specified and %s sets no default_targets", lt.Path)
	}

	g, err := lt.Graph.Restrict(targets)
	if err != nil {
		return err
	}

	// Flags override taskfile settings only when explicitly set.
	jobs := settings.Jobs
	if cmd.Flags().Changed("jobs") {
		jobs = flags.Jobs
	}
	force := settings.Force || flags.Force
	processes := settings.Processes || flags.Processes
	progress := settings.Progress && !flags.NoProgress && !flagQuiet

	checker := &task.Checker{
		Cache: task.NewFingerprintCache(filepath.Join(lt.Dir, settings.FingerprintDir)),
	}

	if flags.DryRun {
		return printPlan(cmd, g, checker, force)
	}

	// The reporter drains the event stream on its own goroutine; the buffer
	// keeps the scheduler's non-blocking sends from dropping events under
	// normal consumption.
	events := make(chan runner.Event, 4*g.Len()+16)
	console := report.NewConsole(cmd.OutOrStdout(), progress)
	reporterDone := make(chan struct{})
	go func() {
		defer close(reporterDone)
		console.Stream(events)
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting run", "taskfile", lt.Path, "targets", targets, "jobs", jobs, "processes", processes)

	rep, runErr := runner.Run(ctx, g, runner.Options{
		Jobs:         jobs,
		Force:        force,
		UseProcesses: processes,
		Timeout:      flags.Timeout,
		Checker:      checker,
		Events:       events,
		Logger:       logging.New("runner"),
	})

	close(events)
	<-reporterDone

	if rep != nil {
		console.PrintSummary(rep)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("run cancelled")
		}
		return runErr
	}
	if !rep.Success() {
		if rep.Aborted {
			return fmt.Errorf("run aborted")
		}
		return fmt.Errorf("run failed: %d of %d tasks did not succeed", len(rep.Failures()), len(rep.Results))
	}
	return nil
}

// printPlan writes the execution plan for a dry run: every task in execution
// order, marked with whether its action would be invoked.
func printPlan(cmd *cobra.Command, g *graph.Graph, checker *task.Checker, force bool) error {
	out := cmd.OutOrStdout()
	for _, name := range g.TopoOrder() {
		t := g.Node(name).Task
		if checker.IsStale(t, force) {
			fmt.Fprintf(out, "run   %s\n", name)
		} else {
			fmt.Fprintf(out, "skip  %s (up to date)\n", name)
		}
	}
	return nil
}

// completeTaskNames provides shell completion for target arguments.
func completeTaskNames(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	lt, err := loadTaskfile()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	var names []string
	for _, t := range lt.Tasks {
		if !t.Hidden() {
			names = append(names, t.Name)
		}
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
