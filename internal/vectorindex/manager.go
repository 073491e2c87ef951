package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"strings"
	"sync"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/embedding"
	"github.com/cjgv1809/Chat-with-PDF/internal/telemetry"
	"golang.org/x/sync/singleflight"
)

// DefaultUpsertBatchSize bounds the number of records per Upsert call.
const DefaultUpsertBatchSize = 100

// Embedder is the subset of embedding.Service the manager needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string, progress embedding.BatchProgress) ([][]float32, error)
}

// ChunkSource fetches, loads and splits a document. It is only invoked when
// the document's namespace does not exist yet.
type ChunkSource func(ctx context.Context) (iter.Seq[domain.Chunk], error)

// IngestResult describes what EnsureIngested did.
type IngestResult struct {
	DocumentID string
	// Skipped is true when the namespace already existed and nothing was
	// embedded or written.
	Skipped     bool
	Chunks      int
	ZeroVectors int
}

type ingestOptions struct {
	progress func(domain.IngestProgress)
}

// IngestOption configures a single EnsureIngested call.
type IngestOption func(*ingestOptions)

// WithProgress registers a callback for ingestion stage events. The last
// event is always terminal.
func WithProgress(fn func(domain.IngestProgress)) IngestOption {
	return func(o *ingestOptions) {
		o.progress = fn
	}
}

// Manager ingests documents into per-document namespaces and opens them for
// retrieval.
type Manager struct {
	index       Index
	embedder    Embedder
	upsertBatch int
	group       singleflight.Group
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

func WithUpsertBatchSize(n int) ManagerOption {
	return func(m *Manager) {
		if n > 0 {
			m.upsertBatch = n
		}
	}
}

func NewManager(index Index, embedder Embedder, opts ...ManagerOption) *Manager {
	m := &Manager{
		index:       index,
		embedder:    embedder,
		upsertBatch: DefaultUpsertBatchSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// EnsureIngested makes sure documentID has a populated namespace and returns
// a handle to it. If the namespace exists the source is never read.
//
// Concurrent calls for the same document within this process share one
// ingestion; only the caller that started it sees intermediate progress.
// Across processes the existence check and the writes are not atomic: two
// processes may both ingest, and the deterministic record IDs turn the second
// write into an overwrite.
func (m *Manager) EnsureIngested(ctx context.Context, documentID string, source ChunkSource, opts ...IngestOption) (*Handle, *IngestResult, error) {
	var o ingestOptions
	for _, opt := range opts {
		opt(&o)
	}
	// The shared ingestion may outlive this call when ctx is cancelled, so
	// events after the terminal one are dropped.
	var mu sync.Mutex
	finished := false
	emit := func(p domain.IngestProgress) {
		if o.progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if finished {
			return
		}
		finished = p.Terminal()
		p.DocumentID = documentID
		o.progress(p)
	}

	if documentID == "" {
		err := domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "document id is required", domain.ErrMissingRequiredField)
		emit(domain.IngestProgress{Stage: domain.IngestStageError, Err: err})
		return nil, nil, err
	}

	// The shared ingestion is detached from ctx: another caller may be
	// waiting on it after this one gives up.
	shared := context.WithoutCancel(ctx)
	ch := m.group.DoChan(documentID, func() (any, error) {
		return m.ingest(shared, documentID, source, emit)
	})

	var res *IngestResult
	select {
	case <-ctx.Done():
		emit(domain.IngestProgress{Stage: domain.IngestStageError, Err: ctx.Err()})
		return nil, nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			emit(domain.IngestProgress{Stage: domain.IngestStageError, Err: r.Err})
			return nil, nil, r.Err
		}
		res = r.Val.(*IngestResult)
	}

	emit(domain.IngestProgress{Stage: domain.IngestStageDone, Completed: res.Chunks, Total: res.Chunks, Skipped: res.Skipped})
	return m.handle(documentID), res, nil
}

func (m *Manager) ingest(ctx context.Context, documentID string, source ChunkSource, emit func(domain.IngestProgress)) (*IngestResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "vectorindex.ingest", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "ingest",
	})
	defer span.End()

	emit(domain.IngestProgress{Stage: domain.IngestStageChecking})
	exists, err := m.exists(ctx, documentID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	if exists {
		log.Printf("vectorindex: namespace %s already exists, skipping ingestion", documentID)
		span.SetData("skipped", true)
		return &IngestResult{DocumentID: documentID, Skipped: true}, nil
	}

	emit(domain.IngestProgress{Stage: domain.IngestStageLoading})
	chunks, err := source(ctx)
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to load document %s: %w", documentID, err)
	}

	emit(domain.IngestProgress{Stage: domain.IngestStageSplitting})
	var kept []domain.Chunk
	for c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			continue
		}
		kept = append(kept, c)
	}
	if len(kept) == 0 {
		return nil, domain.ErrDocumentEmpty
	}

	texts := make([]string, len(kept))
	for i, c := range kept {
		texts[i] = c.Text
	}

	emit(domain.IngestProgress{Stage: domain.IngestStageEmbedding, Completed: 0, Total: len(texts)})
	vectors, err := m.embedder.EmbedBatch(ctx, texts, func(completed, total int) {
		emit(domain.IngestProgress{Stage: domain.IngestStageEmbedding, Completed: completed, Total: total})
	})
	if err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("failed to embed document %s: %w", documentID, err)
	}

	records := make([]Record, len(kept))
	zero := 0
	for i, c := range kept {
		if isZero(vectors[i]) {
			zero++
		}
		records[i] = Record{
			ID:         c.VectorID(),
			DocumentID: documentID,
			Seq:        c.Seq,
			Text:       c.Text,
			Vector:     vectors[i],
		}
	}

	for start := 0; start < len(records); start += m.upsertBatch {
		end := min(start+m.upsertBatch, len(records))
		emit(domain.IngestProgress{Stage: domain.IngestStageStoring, Completed: start, Total: len(records)})
		if err := m.index.Upsert(ctx, documentID, records[start:end]); err != nil {
			span.SetError(err)
			err = fmt.Errorf("failed to upsert vectors for %s: %w", documentID, err)
			// A namespace only exists once every chunk is stored.
			if delErr := m.index.DeleteAll(context.WithoutCancel(ctx), documentID); delErr != nil {
				err = errors.Join(err, fmt.Errorf("failed to remove partial namespace %s: %w", documentID, delErr))
			}
			return nil, err
		}
	}

	span.SetData("chunks", len(records))
	span.SetData("zero_vectors", zero)
	log.Printf("vectorindex: ingested %s (%d chunks, %d zero vectors)", documentID, len(records), zero)

	return &IngestResult{DocumentID: documentID, Chunks: len(records), ZeroVectors: zero}, nil
}

// Open returns a handle for an already-ingested document.
func (m *Manager) Open(ctx context.Context, documentID string) (*Handle, error) {
	exists, err := m.exists(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrNamespaceNotFound
	}
	return m.handle(documentID), nil
}

// DeleteNamespace removes every vector stored for documentID. Deleting a
// namespace that does not exist succeeds.
func (m *Manager) DeleteNamespace(ctx context.Context, documentID string) error {
	if err := m.index.DeleteAll(ctx, documentID); err != nil {
		return fmt.Errorf("failed to delete namespace %s: %w", documentID, err)
	}
	m.group.Forget(documentID)
	log.Printf("vectorindex: deleted namespace %s", documentID)
	return nil
}

// namespaceChecker is implemented by indexes that can test a single namespace
// without describing the whole index.
type namespaceChecker interface {
	HasNamespace(ctx context.Context, namespace string) (bool, error)
}

func (m *Manager) exists(ctx context.Context, documentID string) (bool, error) {
	if nc, ok := m.index.(namespaceChecker); ok {
		exists, err := nc.HasNamespace(ctx, documentID)
		if err != nil {
			return false, fmt.Errorf("failed to check namespace: %w", err)
		}
		return exists, nil
	}

	stats, err := m.index.DescribeStats(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to describe index: %w", err)
	}
	return stats.HasNamespace(documentID), nil
}

func (m *Manager) handle(documentID string) *Handle {
	return &Handle{documentID: documentID, index: m.index, embedder: m.embedder}
}

// Handle is a retrieval view on one document's namespace.
type Handle struct {
	documentID string
	index      Index
	embedder   Embedder
}

func (h *Handle) DocumentID() string {
	return h.documentID
}

// Similar embeds query and returns up to k chunks ranked by similarity.
func (h *Handle) Similar(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	vec, err := h.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}
	// A zero vector ranks every chunk equally.
	if isZero(vec) {
		return nil, domain.ErrQueryNotEmbedded
	}

	matches, err := h.index.Query(ctx, h.documentID, vec, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query namespace %s: %w", h.documentID, err)
	}

	results := make([]domain.ScoredChunk, 0, len(matches))
	for _, match := range matches {
		results = append(results, domain.ScoredChunk{
			Chunk: domain.Chunk{
				DocumentID: h.documentID,
				Seq:        match.Seq,
				Text:       match.Text,
			},
			Score: match.Score,
		})
	}
	return results, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
