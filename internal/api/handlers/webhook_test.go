package handlers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockNamespaceDeleter struct {
	mock.Mock
}

func (m *MockNamespaceDeleter) DeleteNamespace(ctx context.Context, documentID string) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

func TestWebhookHandler_DocumentDeleted(t *testing.T) {
	deleter := new(MockNamespaceDeleter)
	handler := NewWebhookHandler(deleter)
	deleter.On("DeleteNamespace", mock.Anything, "doc-123").Return(nil)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/document-deleted", bytes.NewBufferString(`{"document_id":"doc-123"}`))
	w := httptest.NewRecorder()

	handler.DocumentDeleted(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	deleter.AssertExpectations(t)
}

func TestWebhookHandler_DocumentDeleted_BadRequest(t *testing.T) {
	for name, body := range map[string]string{
		"malformed":  `{"document_id":`,
		"missing id": `{}`,
		"empty id":   `{"document_id":""}`,
	} {
		t.Run(name, func(t *testing.T) {
			deleter := new(MockNamespaceDeleter)
			handler := NewWebhookHandler(deleter)

			req := httptest.NewRequest(http.MethodPost, "/webhooks/document-deleted", bytes.NewBufferString(body))
			w := httptest.NewRecorder()

			handler.DocumentDeleted(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			deleter.AssertNotCalled(t, "DeleteNamespace", mock.Anything, mock.Anything)
		})
	}
}

func TestWebhookHandler_DocumentDeleted_IndexFailure(t *testing.T) {
	deleter := new(MockNamespaceDeleter)
	handler := NewWebhookHandler(deleter)
	deleter.On("DeleteNamespace", mock.Anything, "doc-123").Return(errors.New("index unavailable"))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/document-deleted", bytes.NewBufferString(`{"document_id":"doc-123"}`))
	w := httptest.NewRecorder()

	handler.DocumentDeleted(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
