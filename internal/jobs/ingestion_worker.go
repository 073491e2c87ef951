package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
)

const (
	// MaxRetries is the maximum number of attempts for an ingestion job
	MaxRetries = 3
)

// IngestionJobRepository defines the queue operations the worker needs
type IngestionJobRepository interface {
	// GetPendingJobs retrieves and claims pending ingestion jobs
	GetPendingJobs(ctx context.Context) ([]*domain.IngestionJob, error)

	// UpdateJobStatus updates the status of an ingestion job
	UpdateJobStatus(ctx context.Context, jobID string, status domain.IngestionJobStatus, errMsg string) error

	// IncrementRetries increments the retry count for a job
	IncrementRetries(ctx context.Context, jobID string) error
}

// Ingester ingests one document into the vector index
type Ingester interface {
	Ingest(ctx context.Context, documentID string) error
}

// IngestionWorker drains the ingestion queue
type IngestionWorker struct {
	repo     IngestionJobRepository
	ingester Ingester
}

// NewIngestionWorker creates a new IngestionWorker instance
func NewIngestionWorker(repo IngestionJobRepository, ingester Ingester) *IngestionWorker {
	return &IngestionWorker{
		repo:     repo,
		ingester: ingester,
	}
}

// ProcessJobs implements the JobProcessor interface
func (w *IngestionWorker) ProcessJobs(ctx context.Context) error {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	log.Printf("Processing %d pending ingestion jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("Error processing job %s: %v", job.ID, err)
		}
	}

	return nil
}

func (w *IngestionWorker) processJob(ctx context.Context, job *domain.IngestionJob) error {
	log.Printf("Processing job %s for document %s", job.ID, job.DocumentID)

	if err := w.ingester.Ingest(ctx, job.DocumentID); err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IngestionJobStatusCompleted, ""); err != nil {
		return fmt.Errorf("failed to update job status to completed: %w", err)
	}

	log.Printf("Job %s completed successfully", job.ID)
	return nil
}

// handleJobFailure retries transient failures and fails permanent ones at once
func (w *IngestionWorker) handleJobFailure(ctx context.Context, job *domain.IngestionJob, jobErr error) error {
	log.Printf("Job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if permanent(jobErr) {
		log.Printf("Job %s cannot succeed on retry, marking as failed", job.ID)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IngestionJobStatusFailed, jobErr.Error()); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("Job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		errMsg := fmt.Sprintf("max retries exceeded: %v", jobErr)
		if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IngestionJobStatusFailed, errMsg); err != nil {
			return fmt.Errorf("failed to update job status to failed: %w", err)
		}
		return nil
	}

	log.Printf("Job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.IngestionJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}

func permanent(err error) bool {
	switch domain.ErrorCode(err) {
	case domain.ErrCodeNotFound, domain.ErrCodeValidation, domain.ErrCodeInvalidOperation:
		return true
	}
	return false
}
