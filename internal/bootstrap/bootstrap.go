package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	httpadapter "github.com/kirillkom/contract-intelligence/internal/adapters/http"
	mcpadapter "github.com/kirillkom/contract-intelligence/internal/adapters/mcp"
	"github.com/kirillkom/contract-intelligence/internal/config"
	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/core/ports"
	"github.com/kirillkom/contract-intelligence/internal/core/usecase"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/cache"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/queue/nats"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/resilience"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/storage/s3"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/vector/qdrant"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/workpool"
	"github.com/kirillkom/contract-intelligence/internal/observability/metrics"
)

type bucketEnsurer interface {
	EnsureBucket(ctx context.Context) error
}

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	SearchUC  *usecase.SearchUseCase
	AnswerUC  *usecase.AnswerUseCase
	IngestUC  *usecase.IngestContractUseCase
	CatalogUC *usecase.CatalogUseCase
	HistoryUC *usecase.HistoryUseCase
	SetupUC   *usecase.SetupUseCase

	historyRepo *postgres.HistoryRepository
	bucket      bucketEnsurer
	bus         *nats.Bus

	closeFn func()
}

// New wires every adapter and use case. service labels the metrics of the process.
func New(ctx context.Context, cfg config.Config, service string) (*App, error) {
	appMetrics := metrics.NewHTTPServerMetrics(service)

	executor := resilience.NewExecutor(resilienceConfig(cfg), resilience.WithStateObserver(appMetrics))

	db, err := postgres.OpenDB(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	historyRepo := postgres.NewHistoryRepository(db)
	if err := historyRepo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure history schema: %w", err)
	}

	storage, bucket, err := newObjectStorage(cfg, executor)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	if bucket != nil {
		if err := bucket.EnsureBucket(ctx); err != nil {
			slog.Warn("bucket_ensure_failed", "bucket", cfg.S3Bucket, "error", err)
		}
	}

	var (
		bus    *nats.Bus
		events ports.EventPublisher
	)
	if cfg.NATSEnabled {
		bus, err = nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init event bus: %w", err)
		}
		events = bus
	}

	pool, err := workpool.New(cfg.BatchWorkers)
	if err != nil {
		closeAll(bus, db)
		return nil, err
	}

	llm := ollama.New(ollama.Config{
		BaseURL:     cfg.OllamaURL,
		GenModel:    cfg.OllamaGenModel,
		EmbedModel:  cfg.OllamaEmbedModel,
		Temperature: cfg.OllamaTemperature,
		MaxTokens:   cfg.OllamaMaxTokens,
	}, executor)
	oracle := ollama.NewOracle(llm)
	embedder := ollama.NewEmbedder(llm)

	qdrantCfg := qdrant.Config{
		BaseURL:    cfg.QdrantURL,
		APIKey:     cfg.QdrantAPIKey,
		VectorSize: cfg.VectorSize,
	}
	store := qdrant.NewGateway(qdrantCfg, executor)
	historyIndex := qdrant.NewHistoryIndex(qdrantCfg, cfg.QdrantHistoryCollection, executor)

	textExtractor := pdftext.NewExtractor(plaintext.NewExtractor())
	contractCache := cache.New(cache.Config{
		ListingTTL: cfg.CacheListingTTL,
		AlertsTTL:  cfg.CacheAlertsTTL,
		Capacity:   cfg.CacheCapacity,
	}, appMetrics)

	urls := usecase.NewURLSigner(storage, cfg.PresignTTL)
	alertEngine := usecase.NewAlertEngine(store, usecase.AlertWindows{
		AlertMaxDays:    cfg.AlertMaxDays,
		ReminderMinDays: cfg.ReminderMinDays,
		ReminderMaxDays: cfg.ReminderMaxDays,
		LoanPaymentDays: cfg.LoanPaymentDays,
	}, usecase.WithLocation(cfg.Location()))
	catalogUC := usecase.NewCatalogUseCase(store, contractCache, alertEngine, urls)

	searchUC := usecase.NewSearchUseCase(usecase.NewQueryPlanner(oracle), embedder, store, usecase.SearchSettings{
		DefaultThreshold:  cfg.SearchThreshold,
		FilteredThreshold: cfg.SearchFilteredThreshold,
		DefaultLimit:      cfg.SearchLimit,
		Targeting:         usecase.ParseCollectionTargeting(cfg.SearchTargeting),
	})
	historyUC := usecase.NewHistoryUseCase(historyRepo, historyIndex, embedder, cfg.VectorSize, cfg.DefaultUserID)
	answerUC := usecase.NewAnswerUseCase(searchUC, oracle, storage, textExtractor, urls, historyUC, pool, usecase.AnswerSettings{
		ContextLimit:    cfg.RAGContextLimit,
		MaxContextChars: cfg.RAGMaxContextChars,
		SummaryDocChars: cfg.SummaryDocChars,
	})
	ingestUC := usecase.NewIngestContractUseCase(
		storage,
		textExtractor,
		usecase.NewStructuredExtractor(oracle, cfg.ExtractorMaxLen),
		embedder,
		store,
		catalogUC,
		events,
	)

	return &App{
		Config:  cfg,
		Metrics: appMetrics,

		SearchUC:  searchUC,
		AnswerUC:  answerUC,
		IngestUC:  ingestUC,
		CatalogUC: catalogUC,
		HistoryUC: historyUC,
		SetupUC:   usecase.NewSetupUseCase(store),

		historyRepo: historyRepo,
		bucket:      bucket,
		bus:         bus,

		closeFn: func() {
			pool.Close()
			closeAll(bus, db)
		},
	}, nil
}

func resilienceConfig(cfg config.Config) resilience.Config {
	upstreams := resilience.DefaultUpstreams()
	llm := upstreams[resilience.UpstreamLLM]
	llm.RetryMaxAttempts = cfg.LLMRetryMaxAttempts
	upstreams[resilience.UpstreamLLM] = llm
	return resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: cfg.RetryInitialBackoff,
		BreakerEnabled:      cfg.BreakerEnabled,
		BreakerOpenTimeout:  cfg.BreakerOpenTimeout,
		Upstreams:           upstreams,
	}
}

func newObjectStorage(cfg config.Config, executor *resilience.Executor) (ports.ObjectStorage, bucketEnsurer, error) {
	switch cfg.StorageBackend {
	case "localfs":
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, nil, err
		}
		return storage, nil, nil
	default:
		storage, err := s3.New(s3.Config{
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			Region:    cfg.S3Region,
			Bucket:    cfg.S3Bucket,
			UseSSL:    cfg.S3UseSSL,
		}, executor)
		if err != nil {
			return nil, nil, err
		}
		return storage, storage, nil
	}
}

func closeAll(bus *nats.Bus, db *sql.DB) {
	if bus != nil {
		bus.Close()
	}
	_ = db.Close()
}

// HTTPServices exposes the use cases through the HTTP adapter's ports.
func (a *App) HTTPServices() httpadapter.Services {
	return httpadapter.Services{
		Ingestor: a.IngestUC,
		Searcher: a.SearchUC,
		Answerer: a.AnswerUC,
		Lister:   a.CatalogUC,
		Alerts:   a.CatalogUC,
		History:  a.HistoryUC,
		Schema:   a.SetupUC,
	}
}

// MCPServices exposes the read-side use cases as MCP tools.
func (a *App) MCPServices() mcpadapter.Services {
	return mcpadapter.Services{
		Searcher: a.SearchUC,
		Answerer: a.AnswerUC,
		Lister:   a.CatalogUC,
		Alerts:   a.CatalogUC,
		History:  a.HistoryUC,
	}
}

// RunInvalidationSubscriber drops cached listings when another replica ingests a contract. It blocks
// until ctx is done and returns immediately when the event bus is disabled.
func (a *App) RunInvalidationSubscriber(ctx context.Context) error {
	if a.bus == nil {
		return nil
	}
	slog.Info("invalidation_subscriber_started", "subject", a.Config.NATSSubject)
	return a.bus.SubscribeContractIngested(ctx, func(_ context.Context, event domain.IngestionEvent) {
		a.Metrics.RecordEventReceived()
		a.CatalogUC.InvalidateCategory(event.Category)
		slog.Info("cache_invalidated_by_event", "contract_id", event.ContractID, "category", event.Category)
	})
}

// ProvisionReport is what a one-shot schema run touched.
type ProvisionReport struct {
	Vector  domain.SetupReport `json:"vector"`
	History string             `json:"history"`
	Bucket  string             `json:"bucket,omitempty"`
}

// Provision creates collections, payload indexes, the history table and the document bucket.
func (a *App) Provision(ctx context.Context) (ProvisionReport, error) {
	report, err := a.SetupUC.Setup(ctx)
	if err != nil {
		return ProvisionReport{}, fmt.Errorf("vector schema: %w", err)
	}
	out := ProvisionReport{Vector: report, History: "chat_history"}
	if err := a.historyRepo.EnsureSchema(ctx); err != nil {
		return out, fmt.Errorf("history schema: %w", err)
	}
	if a.bucket != nil {
		if err := a.bucket.EnsureBucket(ctx); err != nil {
			return out, fmt.Errorf("document bucket: %w", err)
		}
		out.Bucket = a.Config.S3Bucket
	}
	return out, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
