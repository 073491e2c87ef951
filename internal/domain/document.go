package domain

import (
	"fmt"
	"net/url"
	"time"
)

// DocumentStatus represents the lifecycle stage of an uploaded document
type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusUploaded  DocumentStatus = "uploaded"
	DocumentStatusIngesting DocumentStatus = "ingesting"
	DocumentStatusReady     DocumentStatus = "ready"
	DocumentStatusFailed    DocumentStatus = "failed"
)

// Document is an uploaded file a user can chat with. Its ID doubles as the
// vector index namespace, so content is immutable once ingested.
type Document struct {
	ID          string
	OwnerID     string
	Name        string
	SizeBytes   int64
	ContentType string
	StorageKey  string
	DownloadURL string
	Status      DocumentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewDocument creates a new Document in pending state
func NewDocument(id, ownerID, name, contentType, storageKey string, sizeBytes int64, createdAt time.Time) *Document {
	return &Document{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		SizeBytes:   sizeBytes,
		ContentType: contentType,
		StorageKey:  storageKey,
		Status:      DocumentStatusPending,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

// Namespace returns the vector index partition for this document.
func (d *Document) Namespace() string {
	return d.ID
}

// HasSource reports whether the document can be fetched for ingestion.
func (d *Document) HasSource() bool {
	return d.DownloadURL != "" || d.StorageKey != ""
}

// ValidateDownloadURL accepts absolute http and https URLs only.
func ValidateDownloadURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return ErrDownloadURLNotAllowed
	}
	return nil
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if d.OwnerID == "" {
		return fmt.Errorf("document OwnerID is required")
	}

	if d.Name == "" {
		return fmt.Errorf("document Name is required")
	}

	if d.SizeBytes < 0 {
		return fmt.Errorf("document SizeBytes cannot be negative")
	}

	if !isValidDocumentStatus(d.Status) {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	return nil
}

func isValidDocumentStatus(s DocumentStatus) bool {
	switch s {
	case DocumentStatusPending, DocumentStatusUploaded, DocumentStatusIngesting,
		DocumentStatusReady, DocumentStatusFailed:
		return true
	}
	return false
}
