package di

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"recsys-orchestrator/internal/adapter/embedcache"
	"recsys-orchestrator/internal/adapter/ollama"
	"recsys-orchestrator/internal/adapter/recsys_http"
	"recsys-orchestrator/internal/adapter/report"
	"recsys-orchestrator/internal/adapter/repository"
	"recsys-orchestrator/internal/adapter/source"
	"recsys-orchestrator/internal/adapter/vectorindex"
	"recsys-orchestrator/internal/domain"
	"recsys-orchestrator/internal/infra"
	"recsys-orchestrator/internal/infra/config"
	"recsys-orchestrator/internal/infra/httpclient"
	"recsys-orchestrator/internal/usecase"
	"recsys-orchestrator/internal/usecase/recsys"
	"recsys-orchestrator/internal/usecase/structured"
	"recsys-orchestrator/internal/worker"
)

const (
	BackendMemory   = "memory"
	BackendPGVector = "pgvector"
)

// ApplicationComponents holds all wired dependencies for the application.
type ApplicationComponents struct {
	// Nil unless the database is enabled
	Pool *pgxpool.Pool

	// Ports
	Encoder   domain.VectorEncoder
	Completer domain.StructuredCompleter
	Index     domain.PassageIndexStore
	History   domain.RecommendationHistory
	Clients   domain.ClientSource

	// Usecases
	Indexer   usecase.IndexPublicationsUsecase
	Recommend usecase.RecommendUsecase

	// Worker
	Batch *worker.BatchRunner
}

// PipelineConfig maps the env configuration onto stage parameters.
func PipelineConfig(cfg config.PipelineConfig) recsys.Config {
	return recsys.Config{
		Pool: recsys.PoolConfig{Workers: cfg.Workers, CallTimeout: cfg.CallTimeout},
		Profile: recsys.ProfileConfig{
			HistoryK:         cfg.HistoryK,
			HistoryFetchK:    cfg.HistoryFetchK,
			HistoryThreshold: float32(cfg.HistoryThreshold),
		},
		Query:     recsys.QueryConfig{PerFacet: cfg.QueriesPerFacet},
		Recall:    recsys.RecallConfig{K: cfg.RecallK},
		Aggregate: recsys.AggregateConfig{MaxPassages: cfg.PassagesPerPublication},
		Precision: recsys.PrecisionConfig{
			MinScore:      cfg.PrecisionMinScore,
			MinConfidence: cfg.PrecisionMinConfidence,
			TopN:          cfg.PrecisionTopN,
		},
	}
}

// NewApplicationComponents wires all dependencies from config. The database
// is connected only when enabled or required by the index backend.
func NewApplicationComponents(ctx context.Context, cfg *config.Config, log *slog.Logger) (*ApplicationComponents, error) {
	if cfg.Index.Backend != BackendMemory && cfg.Index.Backend != BackendPGVector {
		return nil, fmt.Errorf("unknown index backend %q", cfg.Index.Backend)
	}

	app := &ApplicationComponents{}

	// Database
	usePG := cfg.Index.Backend == BackendPGVector
	if cfg.DB.Enabled || usePG {
		pool, err := infra.NewPostgresDB(ctx, cfg.DB, usePG)
		if err != nil {
			return nil, err
		}
		if err := repository.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		app.Pool = pool
	}

	// Shared HTTP clients with connection pooling
	completionHTTP := httpclient.NewPooledClient(cfg.Pipeline.CallTimeout)
	embedderHTTP := httpclient.NewPooledClient(cfg.Embedder.Timeout)

	// External clients
	generator := ollama.NewGenerator(cfg.Completion.URL, cfg.Completion.Model, completionHTTP, ollama.GeneratorOptions{
		Temperature: cfg.Completion.Temperature,
		NumPredict:  cfg.Completion.NumPredict,
	})
	app.Completer = structured.NewClient(generator, structured.Options{
		RequestsPerSecond: cfg.Completion.RequestsPerSecond,
		Burst:             cfg.Completion.Burst,
		Timeout:           cfg.Pipeline.CallTimeout,
	})

	var encoder domain.VectorEncoder = ollama.NewEmbedder(cfg.Embedder.URL, cfg.Embedder.Model, embedderHTTP, log)
	if cfg.Embedder.CacheSize > 0 {
		cached, err := embedcache.New(encoder, cfg.Embedder.CacheSize)
		if err != nil {
			app.Close()
			return nil, err
		}
		encoder = cached
	}
	app.Encoder = encoder

	// Passage index
	if usePG {
		app.Index = repository.NewPublicationChunkRepository(app.Pool, repository.NewPostgresTransactionManager(app.Pool))
	} else {
		app.Index = vectorindex.NewFileStore(cfg.Index.Path)
	}

	// Recommendation history is per-run unless enabled
	if cfg.History.Enabled && app.Pool != nil {
		app.History = repository.NewRecommendationHistoryRepository(app.Pool)
		log.Info("recommendation_history_enabled")
	}

	// Domain services
	hasher := domain.NewSourceHashPolicy()
	chunker := domain.NewChunkerWithOptions(domain.ChunkerOptions{
		Size:    cfg.Index.ChunkSize,
		Overlap: cfg.Index.ChunkOverlap,
	})

	// Usecases
	app.Indexer = usecase.NewIndexPublicationsUsecase(
		source.NewPublicationFile(cfg.Sources.PublicationsPath),
		app.Index,
		app.Completer,
		app.Encoder,
		chunker,
		hasher,
		usecase.IndexOptions{
			Workers:     cfg.Pipeline.Workers,
			CallTimeout: cfg.Pipeline.CallTimeout,
			BatchSize:   cfg.Embedder.BatchSize,
		},
		log,
	)
	app.Recommend = usecase.NewRecommendUsecase(
		app.Completer,
		app.Encoder,
		app.Index,
		app.Indexer,
		source.NewChatFile(cfg.Sources.ChatPath, cfg.Sources.ChatCoverageDays),
		app.History,
		report.NewCSVSink(cfg.Report.OutputPath),
		PipelineConfig(cfg.Pipeline),
		log,
	)

	// Worker
	app.Clients = source.NewClientFile(cfg.Sources.ClientsPath)
	app.Batch = worker.NewBatchRunner(app.Clients, app.Recommend, cfg.Server.BatchRegion, cfg.Server.ClientTimeout, log)

	log.Info("components_wired",
		slog.String("index_backend", cfg.Index.Backend),
		slog.Bool("database", app.Pool != nil),
		slog.String("completion_model", generator.Version()),
		slog.String("embedding_model", app.Encoder.Version()))
	return app, nil
}

// ReadinessChecks lists the dependencies /readyz reports on.
func (a *ApplicationComponents) ReadinessChecks() []recsys_http.ReadinessCheck {
	checks := []recsys_http.ReadinessCheck{{
		Name: "index",
		Check: func(ctx context.Context) error {
			ready, err := a.Index.Ready(ctx)
			if err != nil {
				return err
			}
			if !ready {
				return domain.ErrIndexUnavailable
			}
			return nil
		},
	}}
	if a.Pool != nil {
		checks = append(checks, recsys_http.ReadinessCheck{Name: "database", Check: a.Pool.Ping})
	}
	return checks
}

// Close releases the database pool.
func (a *ApplicationComponents) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
