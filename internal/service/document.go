package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/cjgv1809/Chat-with-PDF/internal/chunker"
	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/pagination"
	"github.com/cjgv1809/Chat-with-PDF/internal/storage"
	"github.com/cjgv1809/Chat-with-PDF/internal/telemetry"
	"github.com/cjgv1809/Chat-with-PDF/internal/vectorindex"
	"github.com/google/uuid"
)

// DocumentRepository defines the repository interface for document metadata
type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	ListByOwner(ctx context.Context, ownerID string, cursor *pagination.Cursor, limit int) (*pagination.PageResult[*domain.Document], error)
	UpdateStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	MarkUploaded(ctx context.Context, id string, sizeBytes int64, downloadURL string) error
	Delete(ctx context.Context, id string) error
}

// IngestionJobRepository enqueues background ingestion
type IngestionJobRepository interface {
	Create(ctx context.Context, job *domain.IngestionJob) error
}

type StorageClient interface {
	GenerateUploadURL(ctx context.Context, key string, contentType string) (string, error)
	HeadObject(ctx context.Context, key string) (*storage.ObjectMetadata, error)
	DeleteObject(ctx context.Context, key string) error
}

// TextLoader fetches a document and extracts its text.
type TextLoader interface {
	Load(ctx context.Context, doc *domain.Document) (string, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

const defaultContentType = "application/pdf"

// DocumentService handles the document lifecycle: upload, ingestion and
// deletion.
type DocumentService struct {
	docRepo  DocumentRepository
	jobRepo  IngestionJobRepository
	storage  StorageClient
	loader   TextLoader
	index    *vectorindex.Manager
	splitter *chunker.Splitter
	txRunner TxRunner
	uuidGen  UUIDGenerator
}

func NewDocumentService(
	docRepo DocumentRepository,
	jobRepo IngestionJobRepository,
	storageClient StorageClient,
	loader TextLoader,
	index *vectorindex.Manager,
	splitter *chunker.Splitter,
) *DocumentService {
	return &DocumentService{
		docRepo:  docRepo,
		jobRepo:  jobRepo,
		storage:  storageClient,
		loader:   loader,
		index:    index,
		splitter: splitter,
		uuidGen:  &DefaultUUIDGenerator{},
	}
}

// NewDocumentServiceWithTx makes CompleteUpload and Register update the
// document and enqueue its job atomically.
func NewDocumentServiceWithTx(
	docRepo DocumentRepository,
	jobRepo IngestionJobRepository,
	storageClient StorageClient,
	loader TextLoader,
	index *vectorindex.Manager,
	splitter *chunker.Splitter,
	txRunner TxRunner,
) *DocumentService {
	s := NewDocumentService(docRepo, jobRepo, storageClient, loader, index, splitter)
	s.txRunner = txRunner
	return s
}

type InitUploadInput struct {
	OwnerID     string
	Filename    string
	ContentType string
}

type InitUploadResult struct {
	Document  *domain.Document
	UploadURL string
}

// InitUpload creates a pending document and a presigned URL the client PUTs
// the file to.
func (s *DocumentService) InitUpload(ctx context.Context, input InitUploadInput) (*InitUploadResult, error) {
	if input.OwnerID == "" {
		return nil, domain.ErrMissingIdentity
	}
	contentType, err := normalizeContentType(input.ContentType)
	if err != nil {
		return nil, err
	}
	filename := path.Base(strings.TrimSpace(input.Filename))
	if filename == "" || filename == "." || filename == "/" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "filename is required")
	}

	docID := s.uuidGen.NewString()
	storageKey := buildStorageKey(input.OwnerID, docID, filename)

	uploadURL, err := s.storage.GenerateUploadURL(ctx, storageKey, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to generate upload URL: %w", err)
	}

	doc := domain.NewDocument(docID, input.OwnerID, filename, contentType, storageKey, 0, time.Now().UTC())
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document record: %w", err)
	}

	return &InitUploadResult{Document: doc, UploadURL: uploadURL}, nil
}

type RegisterInput struct {
	OwnerID     string
	Name        string
	DownloadURL string
	ContentType string
}

// Register records a document that is already hosted elsewhere and queues it
// for ingestion.
func (s *DocumentService) Register(ctx context.Context, input RegisterInput) (*domain.Document, error) {
	if input.OwnerID == "" {
		return nil, domain.ErrMissingIdentity
	}
	if input.DownloadURL == "" {
		return nil, domain.ErrDownloadURLNotFound
	}
	if err := domain.ValidateDownloadURL(input.DownloadURL); err != nil {
		return nil, err
	}
	contentType, err := normalizeContentType(input.ContentType)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = path.Base(input.DownloadURL)
	}

	now := time.Now().UTC()
	doc := domain.NewDocument(s.uuidGen.NewString(), input.OwnerID, name, contentType, "", 0, now)
	doc.DownloadURL = input.DownloadURL
	doc.Status = domain.DocumentStatusUploaded
	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}

	err = s.withTx(ctx, func(docs DocumentRepository, jobs IngestionJobRepository) error {
		if err := docs.Create(ctx, doc); err != nil {
			return fmt.Errorf("failed to create document record: %w", err)
		}
		return s.enqueue(ctx, jobs, doc.ID, now)
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// CompleteUpload verifies the uploaded object, marks the document uploaded
// and queues ingestion. Completing an already uploaded document is a no-op.
func (s *DocumentService) CompleteUpload(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	doc, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.DocumentStatusPending {
		return doc, nil
	}

	meta, err := s.storage.HeadObject(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to verify uploaded file: %w", err)
	}

	now := time.Now().UTC()
	err = s.withTx(ctx, func(docs DocumentRepository, jobs IngestionJobRepository) error {
		if err := docs.MarkUploaded(ctx, doc.ID, meta.ContentLength, doc.DownloadURL); err != nil {
			return fmt.Errorf("failed to mark document uploaded: %w", err)
		}
		return s.enqueue(ctx, jobs, doc.ID, now)
	})
	if err != nil {
		return nil, err
	}

	doc.Status = domain.DocumentStatusUploaded
	doc.SizeBytes = meta.ContentLength
	doc.UpdatedAt = now
	return doc, nil
}

func (s *DocumentService) enqueue(ctx context.Context, jobs IngestionJobRepository, documentID string, now time.Time) error {
	job := domain.NewIngestionJob(s.uuidGen.NewString(), documentID, now)
	if err := jobs.Create(ctx, job); err != nil {
		if errors.Is(err, domain.ErrIngestionAlreadyQueued) {
			return nil
		}
		return fmt.Errorf("failed to create ingestion job: %w", err)
	}
	return nil
}

func (s *DocumentService) withTx(ctx context.Context, fn func(DocumentRepository, IngestionJobRepository) error) error {
	if s.txRunner != nil {
		return s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			return fn(repos.Documents(), repos.IngestionJobs())
		})
	}
	return fn(s.docRepo, s.jobRepo)
}

// Get returns the document if it belongs to ownerID. Other owners' documents
// are reported as not found.
func (s *DocumentService) Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	if ownerID == "" {
		return nil, domain.ErrMissingIdentity
	}
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, domain.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, ownerID, cursor string, limit int) (*pagination.PageResult[*domain.Document], error) {
	if ownerID == "" {
		return nil, domain.ErrMissingIdentity
	}
	c, err := pagination.DecodeCursor(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	return s.docRepo.ListByOwner(ctx, ownerID, c, limit)
}

// Ingest builds the document's namespace if it does not exist yet. It is the
// entry point of the ingestion worker.
func (s *DocumentService) Ingest(ctx context.Context, documentID string) error {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return err
	}
	_, err = s.ingest(ctx, doc)
	return err
}

// EnsureIngested is Ingest for a request on behalf of ownerID.
func (s *DocumentService) EnsureIngested(ctx context.Context, ownerID, documentID string) (*vectorindex.IngestResult, error) {
	doc, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return nil, err
	}
	return s.ingest(ctx, doc)
}

// IngestWithProgress runs ingestion in the background and streams its
// progress. The channel is closed after a terminal done or error event.
func (s *DocumentService) IngestWithProgress(ctx context.Context, documentID string) <-chan domain.IngestProgress {
	events := make(chan domain.IngestProgress, 16)

	go func() {
		defer close(events)

		terminal := false
		send := func(p domain.IngestProgress) {
			if p.Terminal() {
				terminal = true
			}
			select {
			case events <- p:
			case <-ctx.Done():
			}
		}

		doc, err := s.docRepo.GetByID(ctx, documentID)
		if err == nil {
			_, err = s.ingest(ctx, doc, vectorindex.WithProgress(send))
		}
		if err != nil && !terminal {
			send(domain.IngestProgress{DocumentID: documentID, Stage: domain.IngestStageError, Err: err})
		}
	}()

	return events
}

func (s *DocumentService) ingest(ctx context.Context, doc *domain.Document, opts ...vectorindex.IngestOption) (*vectorindex.IngestResult, error) {
	if doc.Status == domain.DocumentStatusPending {
		return nil, domain.ErrDocumentNotUploaded
	}
	if !doc.HasSource() {
		return nil, domain.ErrDownloadURLNotFound
	}

	ctx, span := telemetry.StartSpan(ctx, "document.ingest", telemetry.SpanAttributes{
		UserID:     doc.OwnerID,
		DocumentID: doc.ID,
		Operation:  "ingest",
	})
	defer span.End()

	if doc.Status != domain.DocumentStatusReady {
		if err := s.docRepo.UpdateStatus(ctx, doc.ID, domain.DocumentStatusIngesting); err != nil {
			return nil, fmt.Errorf("failed to update document status: %w", err)
		}
	}

	_, result, err := s.index.EnsureIngested(ctx, doc.ID, s.source(doc), opts...)
	// Record the outcome even when the request was cancelled.
	statusCtx := context.WithoutCancel(ctx)
	if err != nil {
		span.SetError(err)
		if uerr := s.docRepo.UpdateStatus(statusCtx, doc.ID, domain.DocumentStatusFailed); uerr != nil {
			log.Printf("document: failed to mark %s failed: %v", doc.ID, uerr)
		}
		return nil, err
	}

	if doc.Status != domain.DocumentStatusReady {
		if err := s.docRepo.UpdateStatus(statusCtx, doc.ID, domain.DocumentStatusReady); err != nil {
			return nil, fmt.Errorf("failed to update document status: %w", err)
		}
	}
	return result, nil
}

func (s *DocumentService) source(doc *domain.Document) vectorindex.ChunkSource {
	return func(ctx context.Context) (iter.Seq[domain.Chunk], error) {
		text, err := s.loader.Load(ctx, doc)
		if err != nil {
			return nil, err
		}
		return s.splitter.Split(doc.ID, text), nil
	}
}

// Delete removes the document's metadata, stored file and namespace. Every
// step is attempted; failures are joined.
func (s *DocumentService) Delete(ctx context.Context, ownerID, documentID string) error {
	doc, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return err
	}

	var errs []error
	if err := s.docRepo.Delete(ctx, doc.ID); err != nil {
		log.Printf("document: failed to delete metadata for %s: %v", doc.ID, err)
		errs = append(errs, fmt.Errorf("failed to delete document record: %w", err))
	}
	if doc.StorageKey != "" {
		if err := s.storage.DeleteObject(ctx, doc.StorageKey); err != nil {
			log.Printf("document: failed to delete stored file for %s: %v", doc.ID, err)
			errs = append(errs, fmt.Errorf("failed to delete from storage: %w", err))
		}
	}
	if err := s.index.DeleteNamespace(ctx, doc.ID); err != nil {
		log.Printf("document: failed to delete namespace for %s: %v", doc.ID, err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// DeleteNamespace drops the vectors of a document deleted elsewhere.
func (s *DocumentService) DeleteNamespace(ctx context.Context, documentID string) error {
	if documentID == "" {
		return domain.NewDomainError(domain.ErrCodeValidation, "document ID is required")
	}
	return s.index.DeleteNamespace(ctx, documentID)
}

func normalizeContentType(contentType string) (string, error) {
	if contentType == "" {
		return defaultContentType, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid content type", err)
	}
	if mediaType != defaultContentType && !strings.HasPrefix(mediaType, "text/") {
		return "", domain.NewDomainError(domain.ErrCodeValidation, "only PDF and plain text documents are supported")
	}
	return mediaType, nil
}

func buildStorageKey(ownerID, documentID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", ownerID, documentID, filename)
}
