package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/cjgv1809/Chat-with-PDF/internal/api"
)

type NamespaceDeleter interface {
	DeleteNamespace(ctx context.Context, documentID string) error
}

// WebhookHandler receives notifications from the system that owns document
// metadata.
type WebhookHandler struct {
	deleter NamespaceDeleter
}

func NewWebhookHandler(deleter NamespaceDeleter) *WebhookHandler {
	return &WebhookHandler{deleter: deleter}
}

type DocumentDeletedRequest struct {
	DocumentID string `json:"document_id"`
}

// DocumentDeleted drops the vectors of a document removed elsewhere. It
// succeeds for documents that were never ingested.
func (h *WebhookHandler) DocumentDeleted(w http.ResponseWriter, r *http.Request) {
	var req DocumentDeletedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DocumentID == "" {
		api.Error(w, http.StatusBadRequest, "document_id is required")
		return
	}

	if err := h.deleter.DeleteNamespace(r.Context(), req.DocumentID); err != nil {
		api.HandleError(w, err)
		return
	}

	log.Printf("webhook: deleted namespace for document %s", req.DocumentID)
	w.WriteHeader(http.StatusNoContent)
}
