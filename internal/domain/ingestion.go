package domain

import (
	"fmt"
	"time"
)

// IngestionJobStatus represents the status of an ingestion job
type IngestionJobStatus string

const (
	IngestionJobStatusPending    IngestionJobStatus = "pending"
	IngestionJobStatusProcessing IngestionJobStatus = "processing"
	IngestionJobStatusCompleted  IngestionJobStatus = "completed"
	IngestionJobStatusFailed     IngestionJobStatus = "failed"
)

// IngestionJob represents an async request to ingest a document
type IngestionJob struct {
	ID          string
	DocumentID  string
	Status      IngestionJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewIngestionJob creates a new pending IngestionJob
func NewIngestionJob(id, documentID string, createdAt time.Time) *IngestionJob {
	return &IngestionJob{
		ID:         id,
		DocumentID: documentID,
		Status:     IngestionJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidateIngestionJob validates an IngestionJob instance
func ValidateIngestionJob(j *IngestionJob) error {
	if j == nil {
		return fmt.Errorf("ingestion job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("ingestion job ID is required")
	}

	if j.DocumentID == "" {
		return fmt.Errorf("ingestion job DocumentID is required")
	}

	if !isValidIngestionJobStatus(j.Status) {
		return fmt.Errorf("ingestion job Status is invalid: %s", j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("ingestion job Retries cannot be negative")
	}

	return nil
}

func isValidIngestionJobStatus(s IngestionJobStatus) bool {
	switch s {
	case IngestionJobStatusPending, IngestionJobStatusProcessing,
		IngestionJobStatusCompleted, IngestionJobStatusFailed:
		return true
	}
	return false
}

// IngestStage names a step of document ingestion, reported through progress
// events.
type IngestStage string

const (
	IngestStageChecking  IngestStage = "checking"
	IngestStageLoading   IngestStage = "loading"
	IngestStageSplitting IngestStage = "splitting"
	IngestStageEmbedding IngestStage = "embedding"
	IngestStageStoring   IngestStage = "storing"
	IngestStageDone      IngestStage = "done"
	IngestStageError     IngestStage = "error"
)

// IngestProgress is a single progress event. Done and Error are terminal.
type IngestProgress struct {
	DocumentID string
	Stage      IngestStage
	Completed  int
	Total      int
	// Skipped is set on the done event when the namespace already existed.
	Skipped bool
	Err     error
}

// Terminal reports whether no further events follow this one.
func (p IngestProgress) Terminal() bool {
	return p.Stage == IngestStageDone || p.Stage == IngestStageError
}
