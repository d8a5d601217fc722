package pipeline

import (
	"context"

	"github.com/gammazero/workerpool"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/foldflow/pipeline/adapters"
	"github.com/foldflow/pipeline/runtime"
	"github.com/foldflow/pipeline/store"
	"github.com/foldflow/pipeline/store/mem"
	"github.com/foldflow/pipeline/store/postgres"
	"github.com/foldflow/pipeline/types"
)

// Engine bundles the orchestrator, the adapter registry and the durable store
// behind one host-facing facade. Runs execute on a worker pool so the host
// stays responsive while multi-minute jobs are polled.
type Engine struct {
	orchestrator *runtime.Orchestrator
	registry     *adapters.Registry
	wp           *workerpool.WorkerPool
}

// NewEngine creates an engine for the given pipeline with the given options.
func NewEngine(p types.Pipeline, opts ...types.EngineOption) (*Engine, error) {
	options := types.NewEngineOptions()
	for _, opt := range opts {
		opt(options)
	}

	var s store.Store
	var err error

	// PostgresConfig takes precedence over MemStore
	if options.PostgresConfig != nil {
		pgConfig := &postgres.Config{
			Host:     options.PostgresConfig.Host,
			Port:     options.PostgresConfig.Port,
			User:     options.PostgresConfig.User,
			Password: options.PostgresConfig.Password,
			Database: options.PostgresConfig.Database,
			SSLMode:  options.PostgresConfig.SSLMode,
		}

		s, err = postgres.NewPostgresStore(pgConfig)
		if err != nil {
			return nil, errors.Annotatef(err, "failed to create PostgreSQL store")
		}
	} else if options.MemStore {
		s = mem.NewMemStore()
	} else {
		// default to mem store if not specified
		s = mem.NewMemStore()
	}

	registry := adapters.NewDefaultRegistry()
	return &Engine{
		orchestrator: runtime.NewOrchestrator(p, registry, s, options),
		registry:     registry,
		wp:           workerpool.New(options.RunWorkers),
	}, nil
}

// Orchestrator exposes the execution core for hosts that drive it directly.
func (e *Engine) Orchestrator() *runtime.Orchestrator {
	return e.orchestrator
}

// RegisterAdapter plugs a custom adapter for a new node type.
func (e *Engine) RegisterAdapter(adapter types.Adapter) {
	e.registry.Register(adapter)
}

// RegisterTransform names a transform for code nodes.
func (e *Engine) RegisterTransform(name string, fn adapters.TransformFunc) {
	e.registry.RegisterTransform(name, fn)
}

// Run executes the pipeline synchronously in resolved order.
func (e *Engine) Run(ctx context.Context) error {
	return errors.Trace(e.orchestrator.RunPipeline(ctx, false))
}

// RunForced re-executes every node, including those already successful.
func (e *Engine) RunForced(ctx context.Context) error {
	return errors.Trace(e.orchestrator.RunPipeline(ctx, true))
}

// Start launches Run on the worker pool and returns immediately. A resolver or
// validation refusal is reported through the returned channel.
func (e *Engine) Start(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)
	e.wp.Submit(func() {
		if err := e.orchestrator.RunPipeline(ctx, false); err != nil {
			log.Errorf("pipeline run refused: %v", err)
			errCh <- err
		}
		close(errCh)
	})
	return errCh
}

// ExecuteNode re-runs a single node without re-running its upstream.
func (e *Engine) ExecuteNode(ctx context.Context, nodeID string) error {
	return errors.Trace(e.orchestrator.ExecuteNode(ctx, nodeID))
}

// Stop aborts the in-flight run; the current session is sealed as stopped.
func (e *Engine) Stop() {
	e.orchestrator.Stop()
}

// Close waits for background runs to finish.
func (e *Engine) Close() {
	e.wp.StopWait()
}
