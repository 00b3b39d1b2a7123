package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the graph for consistency",
	Long: `Loads the graph file and reports duplicate nodes, duplicate output keys and
malformed actions. Prints the keys the graph expects as input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Graph %q is valid (%d nodes).\n", a.graph.Name, len(a.graph.Nodes))
		fmt.Fprintf(out, "Inputs:  %s\n", strings.Join(a.graph.InputKeys(), ", "))
		fmt.Fprintf(out, "Outputs: %s\n", strings.Join(a.graph.OutputKeys(), ", "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
