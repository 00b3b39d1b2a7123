package main

import (
	"encoding/json"
	"strings"

	"github.com/aretw0/agentgraph/pkg/runner"
	"github.com/spf13/cobra"
)

var formatCmd = &cobra.Command{
	Use:   "format [request...]",
	Short: "Convert a natural-language request into graph inputs",
	Long: `Asks the model to extract the graph's input keys from the request and prints the
resulting JSON object. Useful for checking what "run" would send.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		llm, err := a.model(cmd.Context())
		if err != nil {
			return err
		}

		description, _ := cmd.Flags().GetString("describe")
		if description == "" {
			description = a.graph.Name
		}

		inputs, err := runner.FormatNaturalLanguage(cmd.Context(), llm, strings.Join(args, " "), a.graph.InputKeys(), description)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(inputs)
	},
}

func init() {
	rootCmd.AddCommand(formatCmd)
	formatCmd.Flags().String("describe", "", "Agent description given to the model (defaults to the graph name)")
}
