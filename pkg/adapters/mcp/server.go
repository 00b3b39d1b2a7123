package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/agentgraph"
	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/aretw0/agentgraph/pkg/runner"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const graphURI = "agentgraph://graph"

// RunResponse provides a unified run structure across adapters.
type RunResponse struct {
	RunID     string               `json:"run_id" jsonschema_description:"Identifier of the run"`
	Outputs   map[string]any       `json:"outputs" jsonschema_description:"Values written by the graph"`
	Completed []string             `json:"completed" jsonschema_description:"Nodes that ran to completion"`
	Rejected  []string             `json:"rejected,omitempty" jsonschema_description:"Nodes whose model output could not be parsed"`
	Memory    *domain.SharedMemory `json:"memory,omitempty" jsonschema_description:"Shared memory after the run"`
}

// Engine defines the interface required by the MCP server.
type Engine interface {
	Run(ctx context.Context, runID string, inputs map[string]any) (*agentgraph.Result, error)
	Memory(ctx context.Context, runID string) (*domain.SharedMemory, error)
	Runs(ctx context.Context) ([]string, error)
	Graph() *domain.Graph
}

// Server wraps the engine and exposes it as an MCP Server.
type Server struct {
	engine    Engine
	formatter ports.LLM
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures the Server.
type Option func(*Server)

// WithFormatter lets run_workflow accept free text instead of structured inputs.
func WithFormatter(llm ports.LLM) Option {
	return func(s *Server) {
		s.formatter = llm
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		logger:    logging.NewNop(),
		mcpServer: server.NewMCPServer("agentgraph-mcp", strings.TrimSpace(agentgraph.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx ends.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: run_workflow
	runTool := mcp.NewTool("run_workflow",
		mcp.WithDescription("Run the agent graph once. Inputs seed shared memory; text is converted to inputs by the model."),
		mcp.WithString("run_id", mcp.Description("Run to resume or create (optional, generated when omitted)")),
		mcp.WithString("inputs", mcp.Description("JSON object of input values (optional)")),
		mcp.WithString("text", mcp.Description("Natural-language request (optional)")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(runTool, mcp.NewStructuredToolHandler(s.handleRunWorkflow))

	// TOOL: get_run
	getRunTool := mcp.NewTool("get_run",
		mcp.WithDescription("Get the shared memory of a run."),
		mcp.WithString("run_id", mcp.Required(), mcp.Description("Run identifier")),
		mcp.WithOutputSchema[RunResponse](),
	)
	s.mcpServer.AddTool(getRunTool, mcp.NewStructuredToolHandler(s.handleGetRun))

	// TOOL: list_runs
	s.mcpServer.AddTool(mcp.NewTool("list_runs",
		mcp.WithDescription("List the identifiers of stored runs."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		runs, err := s.engine.Runs(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(runs)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: get_graph
	s.mcpServer.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Get the full graph definition for introspection."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.engine.Graph())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

func (s *Server) handleRunWorkflow(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RunResponse, error) {
	runID, _ := args["run_id"].(string)

	inputs := make(map[string]any)
	if inputStr, ok := args["inputs"].(string); ok && strings.TrimSpace(inputStr) != "" {
		if err := json.Unmarshal([]byte(inputStr), &inputs); err != nil {
			return RunResponse{}, fmt.Errorf("inputs must be a JSON object: %w", err)
		}
	}
	for k, v := range inputs {
		str, ok := v.(string)
		if !ok {
			continue
		}
		clean, err := runner.SanitizeInput(str)
		if err != nil {
			s.logger.Warn("MCP run_workflow: Input rejected", "key", k, "err", err, "size", len(str))
			return RunResponse{}, fmt.Errorf("input %s rejected: %w", k, err)
		}
		inputs[k] = clean
	}

	if text, _ := args["text"].(string); strings.TrimSpace(text) != "" {
		if s.formatter == nil {
			return RunResponse{}, errors.New("text requests are not enabled")
		}
		graph := s.engine.Graph()
		formatted, err := runner.FormatNaturalLanguage(ctx, s.formatter, text, graph.InputKeys(), graph.Name)
		if err != nil {
			return RunResponse{}, fmt.Errorf("format failed: %w", err)
		}
		for k, v := range formatted {
			if _, explicit := inputs[k]; !explicit {
				inputs[k] = v
			}
		}
	}

	result, err := s.engine.Run(ctx, runID, inputs)
	if err != nil {
		s.logger.Error("MCP run_workflow: run failed", "run_id", runID, "err", err)
		return RunResponse{}, fmt.Errorf("run failed: %w", err)
	}

	return RunResponse{
		RunID:     result.RunID,
		Outputs:   result.Outputs,
		Completed: result.Completed,
		Rejected:  result.Rejected,
	}, nil
}

func (s *Server) handleGetRun(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (RunResponse, error) {
	runID, _ := args["run_id"].(string)
	memory, err := s.engine.Memory(ctx, runID)
	if err != nil {
		return RunResponse{}, fmt.Errorf("get run failed: %w", err)
	}
	return RunResponse{RunID: runID, Memory: memory}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: agentgraph://graph
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Current Graph Definition",
		mcp.WithMIMEType("application/json"),
	), s.readGraph)
}

func (s *Server) readGraph(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	jsonBytes, err := json.Marshal(s.engine.Graph())
	if err != nil {
		return nil, fmt.Errorf("failed to encode graph: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      graphURI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}
