package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/agentgraph/internal/presentation/tui"
	"github.com/aretw0/agentgraph/pkg/runner"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the agent graph interactively",
	Long: `Reads one request per line and runs the graph for each. A JSON object is used as
the inputs directly; plain text is converted to inputs by the model.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		runID, _ := cmd.Flags().GetString("run-id")
		once, _ := cmd.Flags().GetBool("once")
		plain, _ := cmd.Flags().GetBool("plain")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		engine, err := a.engine(ctx)
		if err != nil {
			return err
		}

		var handler runner.IOHandler
		if jsonMode {
			handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
		} else {
			handler = newTextHandler(engine.Graph().Name, plain)
		}

		r := runner.New(engine,
			runner.WithInputHandler(handler),
			runner.WithLogger(a.logger),
			runner.WithRunID(runID),
			runner.WithOnce(once),
		)
		return r.Run(ctx)
	},
}

// newTextHandler renders markdown when stdout is a terminal.
func newTextHandler(graphName string, plain bool) *runner.TextHandler {
	fd := int(os.Stdout.Fd())
	if plain || !term.IsTerminal(fd) {
		return runner.NewTextHandler(os.Stdin, os.Stdout)
	}

	tui.PrintBanner(os.Stdout, graphName, versionString())

	width := 0
	if w, _, err := term.GetSize(fd); err == nil {
		width = w
	}
	render, err := tui.NewRenderer(width)
	if err != nil {
		return runner.NewTextHandler(os.Stdin, os.Stdout)
	}
	return runner.NewTextHandler(os.Stdin, os.Stdout, runner.WithTextHandlerRenderer(render))
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	runCmd.Flags().String("run-id", "", "Pin every request to this run so memory accumulates")
	runCmd.Flags().Bool("once", false, "Exit after the first completed run")
	runCmd.Flags().Bool("plain", false, "Disable markdown rendering and the banner")
}
