package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	NodeVisits    *prometheus.CounterVec
	NodeErrors    *prometheus.CounterVec
	ModelCalls    *prometheus.CounterVec
	ModelErrors   *prometheus.CounterVec
	ModelDuration *prometheus.HistogramVec
	PromptBytes   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		NodeVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentgraph_node_visits_total",
				Help: "Total number of node executions",
			},
			[]string{"node_id", "node_type"},
		),
		NodeErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentgraph_node_errors_total",
				Help: "Total number of node executions that ended in an error",
			},
			[]string{"node_id", "recoverable"},
		),
		ModelCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentgraph_model_calls_total",
				Help: "Total number of model round trips",
			},
			[]string{"node_id", "action_type"},
		),
		ModelErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "agentgraph_model_errors_total",
				Help: "Total number of failed model round trips",
			},
			[]string{"node_id", "action_type"},
		),
		ModelDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentgraph_model_duration_seconds",
				Help:    "Duration of model round trips",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"node_id"},
		),
		PromptBytes: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "agentgraph_prompt_bytes",
				Help:    "Size of assembled prompts, system string included",
				Buckets: prometheus.ExponentialBuckets(256, 4, 7),
			},
			[]string{"node_id"},
		),
	}

	for _, c := range []prometheus.Collector{m.NodeVisits, m.NodeErrors, m.ModelCalls, m.ModelErrors, m.ModelDuration, m.PromptBytes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(e.NodeID, string(e.NodeType)).Inc()
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Err == nil {
				return
			}
			recoverable := "false"
			if domain.IsRecoverable(e.Err) {
				recoverable = "true"
			}
			m.NodeErrors.WithLabelValues(e.NodeID, recoverable).Inc()
		},
		OnModelCall: func(ctx context.Context, e *domain.ModelEvent) {
			m.ModelCalls.WithLabelValues(e.NodeID, actionLabel(e.ActionType)).Inc()
			m.PromptBytes.WithLabelValues(e.NodeID).Observe(float64(e.PromptBytes))
		},
		OnModelReturn: func(ctx context.Context, e *domain.ModelEvent) {
			m.ModelDuration.WithLabelValues(e.NodeID).Observe(e.Duration.Seconds())
			if e.IsError {
				m.ModelErrors.WithLabelValues(e.NodeID, actionLabel(e.ActionType)).Inc()
			}
		},
	}
}

// LogHooks returns lifecycle hooks that log every event at debug level, node errors at warn.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "run_id", e.RunID, "node_id", e.NodeID, "type", e.NodeType)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "node_leave", "run_id", e.RunID, "node_id", e.NodeID, "err", e.Err)
				return
			}
			logger.DebugContext(ctx, "node_leave", "run_id", e.RunID, "node_id", e.NodeID)
		},
		OnModelCall: func(ctx context.Context, e *domain.ModelEvent) {
			logger.DebugContext(ctx, "model_call", "node_id", e.NodeID, "action_type", e.ActionType, "prompt_bytes", e.PromptBytes)
		},
		OnModelReturn: func(ctx context.Context, e *domain.ModelEvent) {
			logger.DebugContext(ctx, "model_return", "node_id", e.NodeID, "duration", e.Duration, "is_error", e.IsError)
		},
	}
}

func actionLabel(t domain.ActionType) string {
	if t == "" {
		return "generate"
	}
	return string(t)
}
