package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "DOCCHAT"

// Pipeline holds the model and retrieval settings shared by the server and
// the local CLI mode.
type Pipeline struct {
	OpenAIAPIKey  string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL string `envconfig:"OPENAI_BASE_URL"`

	EmbeddingModel      string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-3-small"`
	EmbeddingDimensions int    `envconfig:"EMBEDDING_DIMENSIONS" default:"768"`
	ChatModel           string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	ChatMaxTokens       int    `envconfig:"CHAT_MAX_TOKENS" default:"2048"`

	IndexName    string `envconfig:"INDEX_NAME" default:"docchat"`
	ChunkSize    int    `envconfig:"CHUNK_SIZE" default:"1000"`
	ChunkOverlap int    `envconfig:"CHUNK_OVERLAP" default:"200"`

	EmbedBatchSize  int           `envconfig:"EMBED_BATCH_SIZE" default:"5"`
	EmbedBatchPause time.Duration `envconfig:"EMBED_BATCH_PAUSE" default:"100ms"`

	RetrievalTopK int `envconfig:"RETRIEVAL_TOP_K" default:"4"`
	// 0 loads the whole conversation.
	HistoryLimit int `envconfig:"HISTORY_LIMIT" default:"0"`

	PromptsFile string `envconfig:"PROMPTS_FILE"`
}

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL      string `envconfig:"DATABASE_URL" required:"true"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	MaxBodyBytes     int64  `envconfig:"MAX_BODY_BYTES" default:"1048576"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docchat-documents"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	UploadURLExpiry time.Duration `envconfig:"UPLOAD_URL_EXPIRY" default:"15m"`

	Pipeline

	// AllowPrivateURLs lets registered download URLs point at internal hosts.
	AllowPrivateURLs bool `envconfig:"ALLOW_PRIVATE_URLS" default:"false"`

	WebhookSecret      string        `envconfig:"WEBHOOK_SECRET"`
	IngestPollInterval time.Duration `envconfig:"INGEST_POLL_INTERVAL" default:"10s"`

	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadPipeline reads only the pipeline settings, so commands that run without
// a database can still be configured from the environment.
func LoadPipeline() (*Pipeline, error) {
	_ = godotenv.Load()

	var p Pipeline
	if err := envconfig.Process(envPrefix, &p); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (p *Pipeline) Validate() error {
	if p.EmbeddingDimensions <= 0 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be positive, got %d", p.EmbeddingDimensions)
	}
	if p.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", p.ChunkSize)
	}
	if p.ChunkOverlap < 0 || p.ChunkOverlap >= p.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", p.ChunkOverlap)
	}
	if p.EmbedBatchSize <= 0 {
		return fmt.Errorf("EMBED_BATCH_SIZE must be positive, got %d", p.EmbedBatchSize)
	}
	if p.RetrievalTopK <= 0 {
		return fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", p.RetrievalTopK)
	}
	if p.HistoryLimit < 0 {
		return fmt.Errorf("HISTORY_LIMIT cannot be negative, got %d", p.HistoryLimit)
	}
	return nil
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (p *Pipeline) HasOpenAI() bool {
	return p.OpenAIAPIKey != ""
}

func (c *Config) HasWebhookSecret() bool {
	return c.WebhookSecret != ""
}
