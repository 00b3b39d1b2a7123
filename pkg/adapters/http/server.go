package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/agentgraph"
	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/aretw0/agentgraph/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine defines what the HTTP API needs from the agent engine.
type Engine interface {
	Run(ctx context.Context, runID string, inputs map[string]any) (*agentgraph.Result, error)
	Memory(ctx context.Context, runID string) (*domain.SharedMemory, error)
	Runs(ctx context.Context) ([]string, error)
	DeleteRun(ctx context.Context, runID string) error
	Graph() *domain.Graph
}

// Server serves the run API.
type Server struct {
	Engine    Engine
	Streams   *StreamManager
	Formatter ports.LLM
	Logger    *slog.Logger
	gatherer  prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithStreams shares a StreamManager whose hooks are installed on the engine.
func WithStreams(streams *StreamManager) Option {
	return func(s *Server) {
		s.Streams = streams
	}
}

// WithFormatter enables natural-language run requests.
func WithFormatter(llm ports.LLM) Option {
	return func(s *Server) {
		s.Formatter = llm
	}
}

// WithMetrics exposes gatherer on GET /metrics.
func WithMetrics(gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = gatherer
	}
}

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.Logger = logger
	}
}

// NewHandler creates a new HTTP handler for the engine.
func NewHandler(engine Engine, opts ...Option) http.Handler {
	s := &Server{Engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager()
	}
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	return s.Routes()
}

// Routes builds the chi router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/graph", s.GetGraph)
	r.Get("/events", s.SubscribeEvents)

	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.ListRuns)
		r.Post("/", s.StartRun)
		r.Post("/{runID}", s.StartRun)
		r.Get("/{runID}", s.GetRun)
		r.Delete("/{runID}", s.DeleteRun)
	})

	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RunRequest is the body of POST /runs/{runID}.
// Inputs are used as-is; Text is formatted into inputs by the model first.
type RunRequest struct {
	Inputs map[string]any `json:"inputs,omitempty"`
	Text   string         `json:"text,omitempty"`
}

// RunResponse wraps a run result; Error is set when the run stopped early.
type RunResponse struct {
	*agentgraph.Result
	Error       string `json:"error,omitempty"`
	Recoverable bool   `json:"recoverable,omitempty"`
}

// StartRun handles POST /runs and POST /runs/{runID}.
func (s *Server) StartRun(w http.ResponseWriter, r *http.Request) {
	var body RunRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.Logger.Warn("StartRun: Invalid request body", "err", err)
		return
	}

	inputs, err := s.resolveInputs(r.Context(), body)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid input: %v", err), http.StatusBadRequest)
		s.Logger.Warn("StartRun: Input rejected", "err", err)
		return
	}

	runID := chi.URLParam(r, "runID")
	result, err := s.Engine.Run(r.Context(), runID, inputs)
	if err != nil {
		s.Logger.Error("StartRun: run failed", "run_id", runID, "err", err)
		status := http.StatusInternalServerError
		if domain.IsRecoverable(err) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, RunResponse{Result: result, Error: err.Error(), Recoverable: domain.IsRecoverable(err)}, s.Logger)
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Result: result}, s.Logger)
}

// resolveInputs sanitises string inputs, or formats free text when given.
func (s *Server) resolveInputs(ctx context.Context, body RunRequest) (map[string]any, error) {
	inputs := make(map[string]any, len(body.Inputs))
	for k, v := range body.Inputs {
		if str, ok := v.(string); ok {
			clean, err := runner.SanitizeInput(str)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			v = clean
		}
		inputs[k] = v
	}

	if strings.TrimSpace(body.Text) == "" {
		return inputs, nil
	}
	if s.Formatter == nil {
		return nil, errors.New("text requests are not enabled")
	}
	graph := s.Engine.Graph()
	formatted, err := runner.FormatNaturalLanguage(ctx, s.Formatter, body.Text, graph.InputKeys(), graph.Name)
	if err != nil {
		return nil, err
	}
	for k, v := range formatted {
		if _, explicit := inputs[k]; !explicit {
			inputs[k] = v
		}
	}
	return inputs, nil
}

// GetRun handles GET /runs/{runID}.
func (s *Server) GetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	memory, err := s.Engine.Memory(r.Context(), runID)
	if err != nil {
		s.writeStoreError(w, "GetRun", runID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run_id": runID, "memory": memory}, s.Logger)
}

// ListRuns handles GET /runs.
func (s *Server) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.Engine.Runs(r.Context())
	if err != nil {
		s.writeStoreError(w, "ListRuns", "", err)
		return
	}
	if runs == nil {
		runs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs}, s.Logger)
}

// DeleteRun handles DELETE /runs/{runID}.
func (s *Server) DeleteRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	if err := s.Engine.DeleteRun(r.Context(), runID); err != nil {
		s.writeStoreError(w, "DeleteRun", runID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetGraph handles the GET /graph request.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Graph(), s.Logger)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, s.Logger)
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "agentgraph-http",
		"version": agentgraph.Version,
		"graph":   s.Engine.Graph().Name,
	}, s.Logger)
}

func (s *Server) writeStoreError(w http.ResponseWriter, op, runID string, err error) {
	if errors.Is(err, domain.ErrRunNotFound) {
		http.Error(w, "run not found", http.StatusNotFound)
		return
	}
	s.Logger.Error(op+" failed", "run_id", runID, "err", err)
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("response encode failed", "err", err)
	}
}
