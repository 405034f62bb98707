// Package cli wires the kestrel command tree: run, list, graph, version,
// completion, and the hidden worker subcommand used by the process-backed
// pool.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/kestrelbuild/kestrel/internal/logging"
)

// Global flag values accessible to all subcommands.
var (
	flagVerbose  bool
	flagQuiet    bool
	flagTaskfile string
	flagDir      string
	flagNoColor  bool
)

// rootCmd is the base command for kestrel.
var rootCmd = &cobra.Command{
	Use:   "kestrel",
	Short: "Declarative task runner with dependency-aware scheduling",
	Long: `Kestrel runs the tasks declared in kestrel.toml. It builds a dependency
graph from the task table, skips tasks whose outputs are already up to date,
and executes the rest concurrently on a bounded worker pool -- in-process by
default, or in isolated worker processes with --processes.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Invoked without a subcommand, print help. `kestrel run` is the verb.
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Check env vars for flags not explicitly set on command line.
		if !cmd.Flags().Changed("verbose") && os.Getenv("KESTREL_VERBOSE") != "" {
			flagVerbose = true
		}
		if !cmd.Flags().Changed("quiet") && os.Getenv("KESTREL_QUIET") != "" {
			flagQuiet = true
		}
		if !cmd.Flags().Changed("no-color") && (os.Getenv("NO_COLOR") != "" || os.Getenv("KESTREL_NO_COLOR") != "") {
			flagNoColor = true
		}

		jsonFormat := os.Getenv("KESTREL_LOG_FORMAT") == "json"
		logging.Setup(flagVerbose, flagQuiet, jsonFormat)

		if flagNoColor {
			lipgloss.SetColorProfile(termenv.Ascii)
		}

		if flagDir != "" {
			if err := os.Chdir(flagDir); err != nil {
				return fmt.Errorf("changing directory to %s: %w", flagDir, err)
			}
		}

		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose (debug) output (env: KESTREL_VERBOSE)")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress all output except errors (env: KESTREL_QUIET)")
	rootCmd.PersistentFlags().StringVarP(&flagTaskfile, "taskfile", "f", "", "Path to kestrel.toml (default: search upward from the working directory)")
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "Override working directory")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output (env: KESTREL_NO_COLOR, NO_COLOR)")
}

// Execute runs the root command and returns the exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// NewRootCmd returns a new instance of the root command for use in external
// tools such as the shell completion generator and man page generator. It
// initialises a fresh cobra command tree with the same persistent flags and
// PersistentPreRunE as the global rootCmd so that generated docs and
// completions include all flags.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:               rootCmd.Use,
		Short:             rootCmd.Short,
		Long:              rootCmd.Long,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: rootCmd.PersistentPreRunE,
	}

	// Register the same persistent flags that the global rootCmd carries.
	// These use local variables (not the package-level flags) so the
	// exported command is safe for concurrent use by generators.
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose (debug) output (env: KESTREL_VERBOSE)")
	cmd.PersistentFlags().BoolP("quiet", "q", false, "Suppress all output except errors (env: KESTREL_QUIET)")
	cmd.PersistentFlags().StringP("taskfile", "f", "", "Path to kestrel.toml (default: search upward from the working directory)")
	cmd.PersistentFlags().String("dir", "", "Override working directory")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output (env: KESTREL_NO_COLOR, NO_COLOR)")

	// Attach all registered subcommands from the global tree.
	for _, child := range rootCmd.Commands() {
		cmd.AddCommand(child)
	}
	return cmd
}
