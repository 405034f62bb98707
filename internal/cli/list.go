package cli

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kestrelbuild/kestrel/internal/task"
)

var listAll bool

// listCmd prints the tasks declared in the taskfile.
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tasks declared in the taskfile",
	Long: `List the tasks declared in kestrel.toml with their descriptions and
dependencies. Tasks whose outputs are current are marked up to date. Helper
tasks named with a leading underscore are hidden unless --all is given.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		lt, err := loadTaskfile()
		if err != nil {
			return err
		}
		checker := &task.Checker{
			Cache: task.NewFingerprintCache(filepath.Join(lt.Dir, lt.Config.Settings.FingerprintDir)),
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 8, 2, ' ', 0)
		defer w.Flush()

		for _, t := range lt.Tasks {
			if t.Hidden() && !listAll {
				continue
			}
			status := ""
			if !checker.IsStale(t, false) {
				status = "up to date"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name, t.Description, depsColumn(t), status)
		}
		return nil
	},
}

func depsColumn(t *task.Task) string {
	if len(t.Dependencies) == 0 {
		return ""
	}
	out := "deps: "
	for i, dep := range t.Dependencies {
		if i > 0 {
			out += ", "
		}
		out += dep
	}
	return out
}

func init() {
	listCmd.Flags().BoolVar(&listAll, "all", false, "Include hidden tasks (names starting with _)")
	rootCmd.AddCommand(listCmd)
}
