package admin

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cjgv1809/Chat-with-PDF/internal/chunker"
	"github.com/cjgv1809/Chat-with-PDF/internal/config"
	"github.com/cjgv1809/Chat-with-PDF/internal/database"
	"github.com/cjgv1809/Chat-with-PDF/internal/embedding"
	"github.com/cjgv1809/Chat-with-PDF/internal/history"
	"github.com/cjgv1809/Chat-with-PDF/internal/loader"
	"github.com/cjgv1809/Chat-with-PDF/internal/openai"
	"github.com/cjgv1809/Chat-with-PDF/internal/rag"
	"github.com/cjgv1809/Chat-with-PDF/internal/repository"
	"github.com/cjgv1809/Chat-with-PDF/internal/service"
	"github.com/cjgv1809/Chat-with-PDF/internal/storage"
	"github.com/cjgv1809/Chat-with-PDF/internal/vectorindex"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pipeline holds the model-facing components shared by the server and local
// mode.
type pipeline struct {
	embedder *embedding.Service
	chat     rag.ChatModel
	splitter *chunker.Splitter
	prompts  rag.Prompts
	topK     int
}

func newPipeline(p *config.Pipeline) (*pipeline, error) {
	if !p.HasOpenAI() {
		return nil, errors.New("DOCCHAT_OPENAI_API_KEY is required")
	}

	prompts, err := rag.LoadPrompts(p.PromptsFile)
	if err != nil {
		return nil, err
	}

	oaCfg := openai.Config{
		APIKey:              p.OpenAIAPIKey,
		BaseURL:             p.OpenAIBaseURL,
		EmbeddingModel:      p.EmbeddingModel,
		EmbeddingDimensions: p.EmbeddingDimensions,
		ChatModel:           p.ChatModel,
		ChatMaxTokens:       p.ChatMaxTokens,
	}

	embedder := embedding.NewService(openai.NewClientWithConfig(oaCfg), embedding.Config{
		Dimensions: p.EmbeddingDimensions,
		BatchSize:  p.EmbedBatchSize,
		BatchPause: p.EmbedBatchPause,
	})

	return &pipeline{
		embedder: embedder,
		chat:     openai.NewChatClient(oaCfg),
		splitter: chunker.New(chunker.Config{MaxChars: p.ChunkSize, Overlap: p.ChunkOverlap}),
		prompts:  prompts,
		topK:     p.RetrievalTopK,
	}, nil
}

func (p *pipeline) chain(index *vectorindex.Manager, turns rag.HistorySource) *rag.Chain {
	return rag.NewChain(turns, index, p.chat, rag.Config{TopK: p.topK, Prompts: p.prompts})
}

// app is the fully wired server-side object graph.
type app struct {
	cfg       *config.Config
	pool      *pgxpool.Pool
	docRepo   *repository.DocumentRepository
	jobRepo   *repository.IngestionJobRepository
	index     *vectorindex.Manager
	documents *service.DocumentService
	chat      *service.ChatService
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	pipe, err := newPipeline(&cfg.Pipeline)
	if err != nil {
		return nil, err
	}

	pool, err := database.NewPool(ctx, database.Config{
		URL:      cfg.DatabaseURL,
		MaxConns: cfg.DatabaseMaxConns,
	})
	if err != nil {
		return nil, err
	}
	log.Println("connected to database")

	var (
		storageClient service.StorageClient = noopStorage{}
		objects       loader.ObjectGetter
	)
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
			UploadURLExpiry: cfg.UploadURLExpiry,
		})
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)
		storageClient = s3Client
		objects = s3Client
	} else {
		log.Println("S3 not configured: only documents registered by download URL can be ingested")
	}

	docRepo := repository.NewDocumentRepository(pool)
	jobRepo := repository.NewIngestionJobRepository(pool)
	chatRepo := repository.NewChatRepository(pool)

	index := vectorindex.NewManager(
		repository.NewVectorRepository(pool, cfg.IndexName, cfg.EmbeddingDimensions),
		pipe.embedder,
	)

	documents := service.NewDocumentServiceWithTx(
		docRepo,
		jobRepo,
		storageClient,
		loader.New(objects, loaderOptions(cfg)...),
		index,
		pipe.splitter,
		repository.NewTxRunner(pool),
	)

	turns := history.NewStore(chatRepo, cfg.HistoryLimit)
	chat := service.NewChatService(documents, pipe.chain(index, turns), turns, chatRepo)

	return &app{
		cfg:       cfg,
		pool:      pool,
		docRepo:   docRepo,
		jobRepo:   jobRepo,
		index:     index,
		documents: documents,
		chat:      chat,
	}, nil
}

func (a *app) Close() {
	a.pool.Close()
}

// loadApp loads configuration and wires the app for one-shot commands.
func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newApp(ctx, cfg)
}

// noopStorage stands in when S3 is not configured.
type noopStorage struct{}

var errStorageNotConfigured = errors.New("document storage not configured: DOCCHAT_S3_ENDPOINT required")

func (noopStorage) GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error) {
	return "", errStorageNotConfigured
}

func (noopStorage) HeadObject(ctx context.Context, key string) (*storage.ObjectMetadata, error) {
	return nil, errStorageNotConfigured
}

func (noopStorage) DeleteObject(ctx context.Context, key string) error {
	return errStorageNotConfigured
}

func loaderOptions(cfg *config.Config) []loader.Option {
	if cfg.AllowPrivateURLs {
		return []loader.Option{loader.AllowPrivateHosts()}
	}
	return nil
}
