package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cjgv1809/Chat-with-PDF/internal/api"
	"github.com/cjgv1809/Chat-with-PDF/internal/api/middleware"
	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/pagination"
	"github.com/cjgv1809/Chat-with-PDF/internal/service"
	"github.com/cjgv1809/Chat-with-PDF/internal/vectorindex"
	"github.com/go-chi/chi/v5"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type DocumentService interface {
	InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error)
	Register(ctx context.Context, input service.RegisterInput) (*domain.Document, error)
	CompleteUpload(ctx context.Context, ownerID, documentID string) (*domain.Document, error)
	Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error)
	List(ctx context.Context, ownerID, cursor string, limit int) (*pagination.PageResult[*domain.Document], error)
	EnsureIngested(ctx context.Context, ownerID, documentID string) (*vectorindex.IngestResult, error)
	Delete(ctx context.Context, ownerID, documentID string) error
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// CreateDocumentRequest starts an upload, or registers an already hosted file
// when DownloadURL is set.
type CreateDocumentRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	DownloadURL string `json:"download_url,omitempty"`
}

type CreateDocumentResponse struct {
	Document  *DocumentResponse `json:"document"`
	UploadURL string            `json:"upload_url,omitempty"`
}

type DocumentResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SizeBytes   int64  `json:"size_bytes"`
	ContentType string `json:"content_type"`
	Status      string `json:"status"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type DocumentListResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

type IngestResponse struct {
	DocumentID  string `json:"document_id"`
	Skipped     bool   `json:"skipped"`
	Chunks      int    `json:"chunks"`
	ZeroVectors int    `json:"zero_vectors"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:          d.ID,
		Name:        d.Name,
		SizeBytes:   d.SizeBytes,
		ContentType: d.ContentType,
		Status:      string(d.Status),
		CreatedAt:   d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.DownloadURL != "" {
		doc, err := h.svc.Register(r.Context(), service.RegisterInput{
			OwnerID:     userID,
			Name:        req.Filename,
			DownloadURL: req.DownloadURL,
			ContentType: req.ContentType,
		})
		if err != nil {
			api.HandleError(w, err)
			return
		}
		api.Success(w, http.StatusCreated, CreateDocumentResponse{Document: documentToResponse(doc)})
		return
	}

	if req.Filename == "" {
		api.Error(w, http.StatusBadRequest, "filename is required")
		return
	}

	result, err := h.svc.InitUpload(r.Context(), service.InitUploadInput{
		OwnerID:     userID,
		Filename:    req.Filename,
		ContentType: req.ContentType,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, CreateDocumentResponse{
		Document:  documentToResponse(result.Document),
		UploadURL: result.UploadURL,
	})
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	page, err := h.svc.List(r.Context(), userID, r.URL.Query().Get("cursor"), parseLimit(r))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		items[i] = documentToResponse(d)
	}

	api.Success(w, http.StatusOK, DocumentListResponse{
		Items:   items,
		Cursor:  page.Cursor,
		HasMore: page.HasMore,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := documentRequest(w, r)
	if !ok {
		return
	}

	doc, err := h.svc.Get(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := documentRequest(w, r)
	if !ok {
		return
	}

	doc, err := h.svc.CompleteUpload(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

// Ingest builds the document's namespace synchronously.
func (h *DocumentHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := documentRequest(w, r)
	if !ok {
		return
	}

	result, err := h.svc.EnsureIngested(r.Context(), userID, id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, IngestResponse{
		DocumentID:  result.DocumentID,
		Skipped:     result.Skipped,
		Chunks:      result.Chunks,
		ZeroVectors: result.ZeroVectors,
	})
}

func (h *DocumentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, id, ok := documentRequest(w, r)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), userID, id); err != nil {
		api.HandleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// documentRequest extracts the caller and the {id} URL parameter, writing an
// error response when either is missing.
func documentRequest(w http.ResponseWriter, r *http.Request) (userID, documentID string, ok bool) {
	userID = middleware.GetUserID(r.Context())
	if userID == "" {
		api.Error(w, http.StatusUnauthorized, "unauthorized")
		return "", "", false
	}

	documentID = chi.URLParam(r, "id")
	if documentID == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return "", "", false
	}
	return userID, documentID, true
}

func parseLimit(r *http.Request) int {
	limit := defaultPageSize
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return min(limit, maxPageSize)
}
