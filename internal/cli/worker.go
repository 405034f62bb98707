package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrelbuild/kestrel/internal/runner"
	"github.com/kestrelbuild/kestrel/internal/task"
)

// workerCmd is the hidden entry point the process-backed pool re-executes
// this binary with. It reads one task from stdin, runs its action, and
// writes the outcome envelope to stdout. Never invoked by users directly.
var workerCmd = &cobra.Command{
	Use:    "worker",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runner.ServeWorker(cmd.Context(), os.Stdin, os.Stdout, task.DefaultRegistry)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
