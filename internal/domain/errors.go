package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is matches another DomainError with the same code and message, so wrapped
// sentinels still satisfy errors.Is.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeAlreadyExists    = "ALREADY_EXISTS"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeUpstream         = "UPSTREAM_ERROR"
)

// Validation errors
var (
	ErrInvalidDocumentStatus     = NewDomainError(ErrCodeValidation, "invalid document status")
	ErrInvalidRole               = NewDomainError(ErrCodeValidation, "invalid chat role")
	ErrInvalidIngestionJobStatus = NewDomainError(ErrCodeValidation, "invalid ingestion job status")
	ErrMissingRequiredField      = NewDomainError(ErrCodeValidation, "missing required field")
	ErrDownloadURLNotAllowed     = NewDomainError(ErrCodeValidation, "download url must be http or https and point to a public host")
	ErrEmptyQuestion             = NewDomainError(ErrCodeValidation, "question cannot be empty")
)

// Not found errors
var (
	ErrDocumentNotFound     = NewDomainError(ErrCodeNotFound, "document not found")
	ErrDownloadURLNotFound  = NewDomainError(ErrCodeNotFound, "download url not found")
	ErrNamespaceNotFound    = NewDomainError(ErrCodeNotFound, "document has not been ingested")
	ErrIngestionJobNotFound = NewDomainError(ErrCodeNotFound, "ingestion job not found")
)

// Already exists errors
var (
	ErrDocumentAlreadyExists  = NewDomainError(ErrCodeAlreadyExists, "document already exists")
	ErrIngestionAlreadyQueued = NewDomainError(ErrCodeAlreadyExists, "ingestion already queued for document")
)

// Authorization errors
var (
	ErrMissingIdentity = NewDomainError(ErrCodeUnauthorized, "user not found")
	ErrInvalidWebhook  = NewDomainError(ErrCodeUnauthorized, "invalid webhook secret")
)

// Operation errors
var (
	ErrDocumentNotUploaded = NewDomainError(ErrCodeInvalidOperation, "document upload has not completed")
	ErrDocumentEmpty       = NewDomainError(ErrCodeInvalidOperation, "document contains no extractable text")
	ErrNoRelevantContext   = NewDomainError(ErrCodeUpstream, "no relevant passages found in document")
	ErrEmptyAnswer         = NewDomainError(ErrCodeUpstream, "language model returned an empty answer")
	ErrQueryNotEmbedded    = NewDomainError(ErrCodeUpstream, "search query could not be embedded")
)

// Storage errors
var (
	ErrUploadNotFound       = NewDomainError(ErrCodeNotFound, "uploaded file not found in storage")
	ErrStorageOperationFail = NewDomainError(ErrCodeInternalError, "storage operation failed")
)

// ErrContentRejected is returned by model adapters when the provider refuses
// the input on content-safety grounds.
var ErrContentRejected = errors.New("content rejected by safety filter")

// ErrorCode extracts the DomainError code from err, or "" when err carries none.
func ErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
