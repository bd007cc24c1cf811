package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/akozyrev/event-orchestrator/internal/adapters/listener"
	"github.com/akozyrev/event-orchestrator/internal/config"
	"github.com/akozyrev/event-orchestrator/internal/core/coordinator"
	"github.com/akozyrev/event-orchestrator/internal/core/domain"
	"github.com/akozyrev/event-orchestrator/internal/core/pipeline"
	"github.com/akozyrev/event-orchestrator/internal/core/search"
	"github.com/akozyrev/event-orchestrator/internal/core/session"
	"github.com/akozyrev/event-orchestrator/internal/infrastructure/download"
	"github.com/akozyrev/event-orchestrator/internal/infrastructure/embedding/ollama"
	"github.com/akozyrev/event-orchestrator/internal/infrastructure/extractor"
	"github.com/akozyrev/event-orchestrator/internal/infrastructure/queue/nats"
	"github.com/akozyrev/event-orchestrator/internal/infrastructure/repository/postgres"
	"github.com/akozyrev/event-orchestrator/internal/infrastructure/resilience"
	"github.com/akozyrev/event-orchestrator/internal/infrastructure/storage/localfs"
	"github.com/akozyrev/event-orchestrator/internal/infrastructure/vector/qdrant"
	"github.com/akozyrev/event-orchestrator/internal/observability/logging"
	"github.com/akozyrev/event-orchestrator/internal/observability/metrics"
	"github.com/akozyrev/event-orchestrator/internal/runtime"
)

// Orchestrator holds the wired worker binary: everything between the
// queue subscription and the persistence edges.
type Orchestrator struct {
	Config     config.Config
	Logger     *slog.Logger
	Metrics    *metrics.OrchestratorMetrics
	Queue      *nats.Queue
	Dispatcher *runtime.Dispatcher
	Launcher   *runtime.Launcher
	Sessions   *session.Manager
	Runs       *postgres.RunRepository

	db *sql.DB
}

const orchestratorService = "orchestrator"

func NewOrchestrator(ctx context.Context, cfg config.Config) (*Orchestrator, error) {
	logger := logging.NewJSONLogger(orchestratorService, cfg.LogLevel)
	m := metrics.NewOrchestratorMetrics(orchestratorService)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	runs := postgres.NewRunRepository(db)
	if err := runs.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure pipeline_runs schema: %w", err)
	}
	sessionEvents := postgres.NewSessionRepository(db)
	if err := sessionEvents.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure session_events schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	embedder := ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.WithResilience(executor))
	vectors := qdrant.New(cfg.QdrantURL)

	stages := &pipeline.Stages{
		Files:     storage,
		Objects:   storage,
		HTTP:      download.NewFetcher(0),
		Extractor: extractor.New(),
		Embedder:  embedder,
		Vectors:   vectors,
	}
	pipelineExec := pipeline.NewExecutor(stages, runs, logger)

	launcher := runtime.NewLauncher(pipelineExec, logger, runtime.WithRunObserver(
		m.StartPipeline,
		func(result domain.PipelineResult, duration time.Duration) {
			m.FinishPipeline(orchestratorService, result, duration)
		},
	))

	table, err := cfg.RoutingTable()
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("load routing table: %w", err)
	}

	searcher := search.NewService(embedder, vectors, cfg.SearchIndex, 0, logger)
	sessions := session.NewManager(session.Deps{
		Launcher:    launcher,
		Searcher:    searcher,
		Recorder:    sessionEvents,
		Logger:      logger,
		IdleTimeout: cfg.SessionIdleTimeout,
	})
	coord := coordinator.New(cfg.WorkflowsDir, launcher, logger)

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init event queue: %w", err)
	}

	dispatcher := runtime.NewDispatcher(orchestratorService, table, launcher, sessions, coord, m, logger)

	return &Orchestrator{
		Config:     cfg,
		Logger:     logger,
		Metrics:    m,
		Queue:      queue,
		Dispatcher: dispatcher,
		Launcher:   launcher,
		Sessions:   sessions,
		Runs:       runs,
		db:         db,
	}, nil
}

// Close releases the orchestrator's connections after in-flight work has
// been drained by the caller.
func (o *Orchestrator) Close() {
	o.Queue.Close()
	_ = o.db.Close()
}

// Listener holds the wired ingress binary.
type Listener struct {
	Config  config.Config
	Logger  *slog.Logger
	Metrics *metrics.ListenerMetrics
	Queue   *nats.Queue
	Router  *listener.Router
}

const listenerService = "listener"

func NewListener(_ context.Context, cfg config.Config) (*Listener, error) {
	logger := logging.NewJSONLogger(listenerService, cfg.LogLevel)
	m := metrics.NewListenerMetrics(listenerService)

	executor := resilience.NewExecutor(resilience.DefaultConfig())
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init event queue: %w", err)
	}

	router := listener.NewRouter(listenerService, queue, m, listener.Options{
		RatePerSecond: cfg.IngressRatePerSecond,
		Burst:         cfg.IngressRateBurst,
		Logger:        logger,
	})

	return &Listener{
		Config:  cfg,
		Logger:  logger,
		Metrics: m,
		Queue:   queue,
		Router:  router,
	}, nil
}

func (l *Listener) Close() {
	l.Queue.Close()
}
