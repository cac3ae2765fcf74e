package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloo-solutions/testcopilot/internal/config"
	"github.com/cloo-solutions/testcopilot/internal/database"
	"github.com/cloo-solutions/testcopilot/internal/domain"
	"github.com/cloo-solutions/testcopilot/internal/gemini"
	"github.com/cloo-solutions/testcopilot/internal/jobs"
	"github.com/cloo-solutions/testcopilot/internal/openai"
	"github.com/cloo-solutions/testcopilot/internal/repository"
	"github.com/cloo-solutions/testcopilot/internal/service"
	"github.com/cloo-solutions/testcopilot/internal/storage"
	"github.com/cloo-solutions/testcopilot/internal/telemetry"
	"github.com/cloo-solutions/testcopilot/internal/vectorstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// provider is what both model backends offer.
type provider interface {
	service.EmbeddingProvider
	service.Generator
}

// app holds the wired dependencies shared by serve and worker.
type app struct {
	cfg       *config.Config
	pool      *pgxpool.Pool
	jobs      *jobs.Orchestrator
	processor *jobs.Processor
	projects  *service.ProjectService
	documents *service.DocumentService
	retriever *service.Retriever
	plans     *service.PlanService
	closers   []func()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func initTelemetry(cfg *config.Config) func() {
	sampleRate := 0.1
	if cfg.Environment == "development" {
		sampleRate = 1.0
	}
	flush, err := telemetry.Init(telemetry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.Environment,
		TracesSampleRate: sampleRate,
		Debug:            cfg.Debug,
	})
	if err != nil {
		slog.Warn("telemetry init failed, continuing without tracing", "error", err)
		return func() {}
	}
	return flush
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	pool, err := database.NewPool(ctx, database.Config{URL: cfg.DatabaseURL, MaxConns: cfg.MaxDBConns})
	if err != nil {
		return nil, err
	}
	a.pool = pool
	a.closers = append(a.closers, pool.Close)

	metric, err := vectorstore.ParseMetric(cfg.DistanceMetric)
	if err != nil {
		a.Close()
		return nil, err
	}

	projectRepo := repository.NewProjectRepository(pool)
	documentRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewChunkRepository(pool, metric)
	jobRepo := repository.NewJobRepository(pool)
	planRepo := repository.NewTestPlanRepository(pool)
	txRunner := repository.NewTxRunner(pool, metric)

	blobs, err := a.newBlobStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	queue, err := a.newQueue(ctx, jobRepo)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.jobs = jobs.NewOrchestrator(jobRepo, queue)

	model, err := a.newProvider(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	batcher := service.NewEmbeddingBatcher(model, service.BatcherConfig{
		BatchSize:   cfg.EmbedBatchSize,
		Concurrency: cfg.EmbedConcurrency,
		Dimensions:  cfg.EmbeddingDim,
	})

	a.projects = service.NewProjectService(projectRepo)
	a.documents = service.NewDocumentService(projectRepo, documentRepo, blobs, a.jobs)
	a.retriever = service.NewRetriever(batcher, chunkRepo, cfg.RAGTopK)
	a.plans = service.NewPlanService(a.projects, planRepo, a.jobs)

	chunkCfg := service.DefaultChunkConfig()
	chunkCfg.MaxSize = cfg.ChunkSize
	chunkCfg.Overlap = cfg.ChunkOverlap

	ingest := service.NewIngestPipeline(documentRepo, blobs, batcher, txRunner, chunkCfg)
	plan := service.NewPlanPipeline(projectRepo, a.retriever, model, planRepo, cfg.RAGTopK)

	a.processor = jobs.NewProcessor(queue, jobRepo, map[domain.JobKind]jobs.Handler{
		domain.JobKindIngest:       jobs.IngestHandler(ingest),
		domain.JobKindPlanGenerate: jobs.PlanHandler(plan),
	})

	return a, nil
}

func (a *app) newBlobStore(ctx context.Context) (service.BlobStore, error) {
	if !a.cfg.HasS3() {
		slog.Info("storing uploads in postgres")
		return repository.NewBlobRepository(a.pool), nil
	}

	client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        a.cfg.S3Endpoint,
		Region:          a.cfg.S3Region,
		AccessKeyID:     a.cfg.S3AccessKey,
		SecretAccessKey: a.cfg.S3SecretKey,
		Bucket:          a.cfg.S3Bucket,
		UsePathStyle:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}
	if err := client.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
	}
	slog.Info("storing uploads in S3", "bucket", a.cfg.S3Bucket)
	return client, nil
}

func (a *app) newQueue(ctx context.Context, repo jobs.JobRepository) (jobs.Queue, error) {
	if a.cfg.QueueBackend != config.QueueBackendRedis {
		return jobs.NewPostgresQueue(repo), nil
	}

	opts, err := redis.ParseURL(a.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	a.closers = append(a.closers, func() { _ = client.Close() })

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	queue, err := jobs.NewRedisQueue(ctx, client, repo, jobs.RedisQueueConfig{
		Stream: a.cfg.RedisStream,
		Block:  a.cfg.WorkerPollInterval,
	})
	if err != nil {
		return nil, err
	}
	slog.Info("using redis job queue", "stream", a.cfg.RedisStream)
	return queue, nil
}

func (a *app) newProvider(ctx context.Context) (provider, error) {
	if !a.cfg.HasProvider() {
		return nil, fmt.Errorf("%w: COPILOT_%s_API_KEY is required when PROVIDER=%s",
			config.ErrInvalidConfig, strings.ToUpper(a.cfg.Provider), a.cfg.Provider)
	}
	switch a.cfg.Provider {
	case config.ProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:         a.cfg.GeminiAPIKey,
			EmbeddingModel: a.cfg.GeminiEmbedModel,
			ChatModel:      a.cfg.GeminiChatModel,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		return client, nil
	default:
		client, err := openai.NewClient(openai.Config{
			APIKey:         a.cfg.OpenAIAPIKey,
			BaseURL:        a.cfg.OpenAIBaseURL,
			EmbeddingModel: a.cfg.OpenAIEmbedModel,
			ChatModel:      a.cfg.OpenAIChatModel,
			Dimensions:     a.cfg.EmbeddingDim,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) newWorker() *jobs.Worker {
	return jobs.NewWorker(a.processor, a.cfg.WorkerPollInterval, a.cfg.WorkerConcurrency)
}
