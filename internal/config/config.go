package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ErrInvalidConfig wraps every validation failure returned by Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

const (
	QueueBackendPostgres = "postgres"
	QueueBackendRedis    = "redis"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	DatabaseURL    string `envconfig:"DATABASE_URL" required:"true"`
	MigrationsPath string `envconfig:"MIGRATIONS_PATH" default:"file://migrations"`
	MaxDBConns     int32  `envconfig:"MAX_DB_CONNS" default:"10"`

	QueueBackend       string        `envconfig:"QUEUE_BACKEND" default:"postgres"`
	RedisURL           string        `envconfig:"REDIS_URL"`
	RedisStream        string        `envconfig:"REDIS_STREAM" default:"copilot:jobs"`
	WorkerConcurrency  int           `envconfig:"WORKER_CONCURRENCY" default:"2"`
	WorkerPollInterval time.Duration `envconfig:"WORKER_POLL_INTERVAL" default:"2s"`

	Provider         string `envconfig:"PROVIDER" default:"openai"`
	OpenAIAPIKey     string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL    string `envconfig:"OPENAI_BASE_URL"`
	OpenAIChatModel  string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`
	OpenAIEmbedModel string `envconfig:"OPENAI_EMBED_MODEL" default:"text-embedding-3-small"`
	GeminiAPIKey     string `envconfig:"GEMINI_API_KEY"`
	GeminiChatModel  string `envconfig:"GEMINI_CHAT_MODEL" default:"gemini-1.5-flash"`
	GeminiEmbedModel string `envconfig:"GEMINI_EMBED_MODEL" default:"text-embedding-004"`

	// EmbeddingDim defaults to the native size of the selected embed model.
	EmbeddingDim     int `envconfig:"EMBEDDING_DIM"`
	EmbedBatchSize   int `envconfig:"EMBED_BATCH_SIZE" default:"64"`
	EmbedConcurrency int `envconfig:"EMBED_CONCURRENCY" default:"1"`

	ChunkSize      int    `envconfig:"CHUNK_SIZE" default:"1200"`
	ChunkOverlap   int    `envconfig:"CHUNK_OVERLAP" default:"200"`
	RAGTopK        int    `envconfig:"RAG_TOP_K" default:"8"`
	DistanceMetric string `envconfig:"DISTANCE_METRIC" default:"cosine"`
	MaxUploadMB    int64  `envconfig:"MAX_UPLOAD_MB" default:"25"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"copilot-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	SentryDSN string `envconfig:"SENTRY_DSN"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("COPILOT", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.EmbeddingDim == 0 {
		cfg.EmbeddingDim = nativeEmbeddingDims[cfg.EmbedModel()]
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks cross-field constraints that envconfig cannot express.
func (c *Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: CHUNK_SIZE must be positive", ErrInvalidConfig)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", ErrInvalidConfig)
	}
	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("%w: EMBEDDING_DIM must be positive (required for embed model %q)", ErrInvalidConfig, c.EmbedModel())
	}
	if err := c.validateEmbeddingDim(); err != nil {
		return err
	}
	if c.EmbedBatchSize <= 0 {
		return fmt.Errorf("%w: EMBED_BATCH_SIZE must be positive", ErrInvalidConfig)
	}
	if c.RAGTopK <= 0 {
		return fmt.Errorf("%w: RAG_TOP_K must be positive", ErrInvalidConfig)
	}
	if c.WorkerConcurrency <= 0 {
		return fmt.Errorf("%w: WORKER_CONCURRENCY must be positive", ErrInvalidConfig)
	}

	switch c.DistanceMetric {
	case "cosine", "l2", "inner_product":
	default:
		return fmt.Errorf("%w: DISTANCE_METRIC must be one of cosine, l2, inner_product", ErrInvalidConfig)
	}

	switch c.QueueBackend {
	case QueueBackendPostgres:
	case QueueBackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL is required when QUEUE_BACKEND=redis", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: QUEUE_BACKEND must be postgres or redis", ErrInvalidConfig)
	}

	switch c.Provider {
	case ProviderOpenAI, ProviderGemini:
	default:
		return fmt.Errorf("%w: PROVIDER must be openai or gemini", ErrInvalidConfig)
	}

	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("%w: LOG_FORMAT must be json or text", ErrInvalidConfig)
	}

	return nil
}

// nativeEmbeddingDims lists the vector size each known embed model returns.
var nativeEmbeddingDims = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"text-embedding-004":     768,
	"embedding-001":          768,
}

// EmbedModel is the embedding model of the selected provider.
func (c *Config) EmbedModel() string {
	if c.Provider == ProviderGemini {
		return c.GeminiEmbedModel
	}
	return c.OpenAIEmbedModel
}

// validateEmbeddingDim rejects sizes a known model cannot produce. OpenAI v3
// models can shorten their vectors; every other model returns its native size.
func (c *Config) validateEmbeddingDim() error {
	model := c.EmbedModel()
	native, ok := nativeEmbeddingDims[model]
	if !ok {
		return nil
	}
	reducible := c.Provider == ProviderOpenAI && strings.HasPrefix(model, "text-embedding-3")
	switch {
	case c.EmbeddingDim == native:
		return nil
	case reducible && c.EmbeddingDim < native:
		return nil
	case reducible:
		return fmt.Errorf("%w: EMBEDDING_DIM=%d exceeds the %d dimensions of %s", ErrInvalidConfig, c.EmbeddingDim, native, model)
	}
	return fmt.Errorf("%w: EMBEDDING_DIM=%d but %s returns %d dimensions", ErrInvalidConfig, c.EmbeddingDim, model, native)
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// HasProvider reports whether the selected provider has credentials.
func (c *Config) HasProvider() bool {
	if c.Provider == ProviderGemini {
		return c.HasGemini()
	}
	return c.HasOpenAI()
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB * 1024 * 1024
}
