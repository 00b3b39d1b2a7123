package main

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/agentgraph"
	"github.com/aretw0/agentgraph/internal/config"
	"github.com/aretw0/agentgraph/internal/logging"
	"github.com/aretw0/agentgraph/pkg/adapters/eino"
	"github.com/aretw0/agentgraph/pkg/adapters/file"
	"github.com/aretw0/agentgraph/pkg/adapters/memory"
	"github.com/aretw0/agentgraph/pkg/adapters/process"
	"github.com/aretw0/agentgraph/pkg/adapters/redis"
	"github.com/aretw0/agentgraph/pkg/domain"
	"github.com/aretw0/agentgraph/pkg/observability"
	"github.com/aretw0/agentgraph/pkg/persistence/middleware"
	"github.com/aretw0/agentgraph/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app holds everything a command needs, built from flags and configuration.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	graph    *domain.Graph
	llm      ports.LLM
	store    ports.MemoryStore
	locker   ports.DistributedLocker
	registry *prometheus.Registry
	closers  []func() error
}

// loadApp reads configuration and the graph file. The model and store are built lazily.
func loadApp(cmd *cobra.Command) (*app, error) {
	configPath, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}

	graphPath, _ := cmd.Flags().GetString("graph")
	graph, err := file.LoadGraph(graphPath)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		logger: logging.New(logging.ParseLevel(cfg.Log.Level)),
		graph:  graph,
	}, nil
}

// model builds the configured chat model once.
func (a *app) model(ctx context.Context) (ports.LLM, error) {
	if a.llm != nil {
		return a.llm, nil
	}
	llm, err := eino.NewFromConfig(ctx, eino.Config{
		Provider:    a.cfg.LLM.Provider,
		Model:       a.cfg.LLM.Model,
		BaseURL:     a.cfg.LLM.BaseURL,
		APIKey:      a.cfg.LLM.APIKey,
		MaxTokens:   a.cfg.LLM.MaxTokens,
		Temperature: a.cfg.LLM.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model: %w", err)
	}
	a.llm = llm
	return llm, nil
}

// openStore selects the run store, plus a distributed locker for redis.
func (a *app) openStore() error {
	switch a.cfg.Store.Backend {
	case config.StoreFile:
		a.store = file.NewStore(a.cfg.Store.Dir)
	case config.StoreRedis:
		var opts []redis.Option
		if a.cfg.Redis.Prefix != "" {
			opts = append(opts, redis.WithPrefix(a.cfg.Redis.Prefix))
		}
		if a.cfg.Redis.TTL > 0 {
			opts = append(opts, redis.WithTTL(a.cfg.Redis.TTL))
		}
		store := redis.New(a.cfg.Redis.Addr, a.cfg.Redis.Password, a.cfg.Redis.DB, opts...)
		a.store = store
		a.locker = redis.NewLocker(store.Client(), a.cfg.Redis.Prefix)
		a.closers = append(a.closers, store.Close)
	default:
		a.store = memory.NewStore()
	}

	mws, err := a.storeMiddleware()
	if err != nil {
		return err
	}
	a.store = middleware.Chain(a.store, mws...)
	a.logger.Debug("run store ready", "backend", a.cfg.Store.Backend, "middleware", len(mws))
	return nil
}

// storeMiddleware masks redacted keys first, then encrypts what is left.
func (a *app) storeMiddleware() ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if len(a.cfg.Store.Redact) > 0 {
		pii, err := middleware.NewPIIMiddleware(a.cfg.Store.Redact)
		if err != nil {
			return nil, err
		}
		mws = append(mws, pii)
	}
	if a.cfg.Store.EncryptionKey == "" {
		return mws, nil
	}

	active, err := decodeKey(a.cfg.Store.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("store.encryption_key: %w", err)
	}
	var fallbacks [][]byte
	for _, k := range a.cfg.Store.FallbackKeys {
		key, err := decodeKey(k)
		if err != nil {
			return nil, fmt.Errorf("store.fallback_keys: %w", err)
		}
		fallbacks = append(fallbacks, key)
	}
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    active,
		FallbackKeys: fallbacks,
	})
	if err != nil {
		return nil, err
	}
	return append(mws, enc), nil
}

func decodeKey(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

// engine builds the Engine with metrics and log hooks installed.
func (a *app) engine(ctx context.Context, opts ...agentgraph.Option) (*agentgraph.Engine, error) {
	llm, err := a.model(ctx)
	if err != nil {
		return nil, err
	}
	if a.store == nil {
		if err := a.openStore(); err != nil {
			return nil, err
		}
	}

	a.registry = prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(a.registry)
	if err != nil {
		return nil, err
	}

	base := []agentgraph.Option{
		agentgraph.WithStore(a.store),
		agentgraph.WithLogger(a.logger),
		agentgraph.WithLifecycleHooks(metrics.Hooks()),
		agentgraph.WithLifecycleHooks(observability.LogHooks(a.logger)),
	}
	if a.locker != nil {
		base = append(base, agentgraph.WithLocker(a.locker))
	}
	fnOpts, err := a.processFunctions()
	if err != nil {
		return nil, err
	}
	base = append(base, fnOpts...)
	return agentgraph.New(a.graph, llm, append(base, opts...)...)
}

// processFunctions registers the configured external commands as worker functions.
func (a *app) processFunctions() ([]agentgraph.Option, error) {
	if a.cfg.Functions == "" {
		return nil, nil
	}
	functions, err := process.LoadFunctions(a.cfg.Functions)
	if err != nil {
		return nil, err
	}
	runner := process.NewRunner(
		process.WithRegistry(functions),
		process.WithBaseDir(filepath.Dir(a.cfg.Functions)),
	)

	var opts []agentgraph.Option
	for _, name := range runner.Names() {
		opts = append(opts, agentgraph.WithFunction(name, runner.Function(name)))
	}
	a.logger.Debug("process functions registered", "count", len(opts))
	return opts, nil
}

// Close releases store connections.
func (a *app) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
