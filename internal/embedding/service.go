// Package embedding turns text into fixed-length vectors. It never fails on
// model errors: inputs that cannot be embedded get a zero vector so one bad
// chunk does not abort ingestion of the rest.
package embedding

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	DefaultBatchSize  = 5
	DefaultBatchPause = 100 * time.Millisecond
)

// Embedder performs one model call. Safety refusals must be reported as
// domain.ErrContentRejected.
type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type Config struct {
	Dimensions int
	BatchSize  int
	BatchPause time.Duration
}

// Service embeds single texts and batches through a FallbackPolicy.
type Service struct {
	embedder  Embedder
	policy    FallbackPolicy
	batchSize int
	pause     time.Duration
	wait      func(ctx context.Context, d time.Duration) error
}

// NewService creates a Service using the default fallback policy.
func NewService(embedder Embedder, cfg Config) *Service {
	return NewServiceWithPolicy(embedder, cfg, DefaultPolicy(cfg.Dimensions))
}

func NewServiceWithPolicy(embedder Embedder, cfg Config, policy FallbackPolicy) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BatchPause < 0 {
		cfg.BatchPause = 0
	}
	policy.Dimensions = cfg.Dimensions
	return &Service{
		embedder:  embedder,
		policy:    policy,
		batchSize: cfg.BatchSize,
		pause:     cfg.BatchPause,
		wait:      waitContext,
	}
}

// Dimensions returns the length of every vector the service produces.
func (s *Service) Dimensions() int {
	return s.policy.Dimensions
}

// Embed returns the vector for text. The only possible error is the
// context's.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	out := s.run(ctx, text)
	if out.Err != nil {
		return nil, out.Err
	}
	return out.Vector, nil
}

// BatchProgress is called after each batch with the number of texts embedded
// so far.
type BatchProgress func(completed, total int)

// EmbedBatch embeds texts in batches. Texts within a batch are embedded
// concurrently, batches run one after another with a pause in between, and
// result i always belongs to texts[i].
func (s *Service) EmbedBatch(ctx context.Context, texts []string, progress BatchProgress) ([][]float32, error) {
	results := make([][]float32, len(texts))

	for start := 0; start < len(texts); start += s.batchSize {
		end := min(start+s.batchSize, len(texts))

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				out := s.run(gctx, texts[i])
				if out.Err != nil {
					return out.Err
				}
				results[i] = out.Vector
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if progress != nil {
			progress(end, len(texts))
		}

		if end < len(texts) && s.pause > 0 {
			if err := s.wait(ctx, s.pause); err != nil {
				return nil, err
			}
		}
	}

	return results, nil
}

func (s *Service) run(ctx context.Context, text string) Outcome {
	out := s.policy.Run(ctx, text, s.embedder.GenerateEmbedding)
	switch out.Source {
	case SourceEmptyInput:
		log.Printf("embedding: empty text after sanitization, using zero vector")
	case SourceFallback:
		log.Printf("embedding: safety block on input, fallback sanitization succeeded")
	case SourceRejected:
		log.Printf("embedding: safety block on input, using zero vector: %v", out.Cause)
	case SourceFailed:
		log.Printf("embedding: model call failed, using zero vector: %v", out.Cause)
	}
	return out
}

func waitContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
