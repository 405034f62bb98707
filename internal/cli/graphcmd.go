package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// graphCmd prints the dependency graph in execution order.
var graphCmd = &cobra.Command{
	Use:   "graph [targets...]",
	Short: "Print the dependency graph in execution order",
	Long: `Print the task graph in a valid execution order, one task per line with
its direct dependencies. With targets, only the targets and their transitive
dependencies are shown.`,
	Args:              cobra.ArbitraryArgs,
	ValidArgsFunction: completeTaskNames,
	RunE: func(cmd *cobra.Command, args []string) error {
		lt, err := loadTaskfile()
		if err != nil {
			return err
		}

		g := lt.Graph
		if len(args) > 0 {
			g, err = g.Restrict(args)
			if err != nil {
				return err
			}
		}

		out := cmd.OutOrStdout()
		for _, name := range g.TopoOrder() {
			deps := g.Node(name).Task.Dependencies
			if len(deps) == 0 {
				fmt.Fprintln(out, name)
				continue
			}
			fmt.Fprintf(out, "%s <- %s\n", name, strings.Join(deps, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
}
