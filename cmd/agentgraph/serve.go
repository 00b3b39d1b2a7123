package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/agentgraph"
	httpAdapter "github.com/aretw0/agentgraph/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP run API",
	Long:  `Exposes the graph over a JSON API with run persistence, SSE progress events and Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if cmd.Flags().Changed("port") {
			a.cfg.Server.Port, _ = cmd.Flags().GetInt("port")
		}

		streams := httpAdapter.NewStreamManager()
		engine, err := a.engine(cmd.Context(), agentgraph.WithLifecycleHooks(streams.Hooks()))
		if err != nil {
			return err
		}

		handler := httpAdapter.NewHandler(engine,
			httpAdapter.WithStreams(streams),
			httpAdapter.WithFormatter(engine.LLM()),
			httpAdapter.WithMetrics(a.registry),
			httpAdapter.WithLogger(a.logger),
		)

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)

		go func() {
			a.logger.Info("starting agentgraph server", "addr", srv.Addr, "graph", a.graph.Name)
			serverErrors <- srv.ListenAndServe()
		}()

		// Channel to listen for interrupt or terminate signals.
		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			a.logger.Info("start shutdown", "signal", sig.String())

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				a.logger.Warn("graceful shutdown did not complete", "err", err)
				return srv.Close()
			}
			a.logger.Info("agentgraph server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (overrides server.port)")
}
