package main

import (
	"fmt"

	"github.com/aretw0/agentgraph/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the graph visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the graph's data flow. With --run, nodes
whose outputs are already in that run's memory are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		var overlay *graph.GraphOverlay
		if runID, _ := cmd.Flags().GetString("run"); runID != "" {
			if err := a.openStore(); err != nil {
				return err
			}
			memory, err := a.store.Load(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("run %s: %w", runID, err)
			}
			overlay = graph.OverlayFromMemory(a.graph, memory)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(a.graph, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("run", "", "Highlight progress of this run")
}
