package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cjgv1809/Chat-with-PDF/internal/api/handlers"
	"github.com/cjgv1809/Chat-with-PDF/internal/api/middleware"
	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/pagination"
	"github.com/cjgv1809/Chat-with-PDF/internal/service"
	"github.com/cjgv1809/Chat-with-PDF/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) InitUpload(ctx context.Context, input service.InitUploadInput) (*service.InitUploadResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.InitUploadResult), args.Error(1)
}

func (m *MockDocumentService) Register(ctx context.Context, input service.RegisterInput) (*domain.Document, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) CompleteUpload(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	args := m.Called(ctx, ownerID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) Get(ctx context.Context, ownerID, documentID string) (*domain.Document, error) {
	args := m.Called(ctx, ownerID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentService) List(ctx context.Context, ownerID, cursor string, limit int) (*pagination.PageResult[*domain.Document], error) {
	args := m.Called(ctx, ownerID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[*domain.Document]), args.Error(1)
}

func (m *MockDocumentService) EnsureIngested(ctx context.Context, ownerID, documentID string) (*vectorindex.IngestResult, error) {
	args := m.Called(ctx, ownerID, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vectorindex.IngestResult), args.Error(1)
}

func (m *MockDocumentService) Delete(ctx context.Context, ownerID, documentID string) error {
	return m.Called(ctx, ownerID, documentID).Error(0)
}

type MockChatService struct {
	mock.Mock
}

func (m *MockChatService) Ask(ctx context.Context, input service.AskInput) (*service.AskResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AskResult), args.Error(1)
}

func (m *MockChatService) History(ctx context.Context, ownerID, documentID, conversationID, cursor string, limit int) (*pagination.PageResult[domain.ChatTurn], error) {
	args := m.Called(ctx, ownerID, documentID, conversationID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pagination.PageResult[domain.ChatTurn]), args.Error(1)
}

type MockNamespaceDeleter struct {
	mock.Mock
}

func (m *MockNamespaceDeleter) DeleteNamespace(ctx context.Context, documentID string) error {
	return m.Called(ctx, documentID).Error(0)
}

const testWebhookSecret = "s3cret"

func setupRouter() (http.Handler, *MockDocumentService, *MockChatService, *MockNamespaceDeleter) {
	docSvc := new(MockDocumentService)
	chatSvc := new(MockChatService)
	deleter := new(MockNamespaceDeleter)

	cfg := RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(docSvc),
		ChatHandler:     handlers.NewChatHandler(chatSvc),
		WebhookHandler:  handlers.NewWebhookHandler(deleter),
		WebhookSecret:   testWebhookSecret,
	}

	return NewRouter(cfg), docSvc, chatSvc, deleter
}

func TestRouter_HealthEndpoint(t *testing.T) {
	router, _, _, _ := setupRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, "ok", data["status"])
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
}

func TestRouter_DocumentRoutes_RequireIdentity(t *testing.T) {
	router, docSvc, chatSvc, _ := setupRouter()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/documents"},
		{http.MethodGet, "/documents"},
		{http.MethodGet, "/documents/doc-1"},
		{http.MethodDelete, "/documents/doc-1"},
		{http.MethodPost, "/documents/doc-1/complete"},
		{http.MethodPost, "/documents/doc-1/ingest"},
		{http.MethodPost, "/documents/doc-1/messages"},
		{http.MethodGet, "/documents/doc-1/messages"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			req := httptest.NewRequest(route.method, route.path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}

	docSvc.AssertExpectations(t)
	chatSvc.AssertExpectations(t)
}

func TestRouter_DocumentRoutes_WithIdentity(t *testing.T) {
	router, docSvc, _, _ := setupRouter()

	doc := domain.NewDocument("doc-1", "user-42", "notes.pdf", "application/pdf", "user-42/doc-1/notes.pdf", 10, time.Now().UTC())
	docSvc.On("Get", mock.Anything, "user-42", "doc-1").Return(doc, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil)
	req.Header.Set(middleware.UserIDHeader, "user-42")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	docSvc.AssertExpectations(t)
}

func TestRouter_ChatRoute(t *testing.T) {
	router, _, chatSvc, _ := setupRouter()

	chatSvc.On("History", mock.Anything, "user-42", "doc-1", "conv-9", "", 20).
		Return(&pagination.PageResult[domain.ChatTurn]{Items: []domain.ChatTurn{}}, nil)

	req := httptest.NewRequest(http.MethodGet, "/documents/doc-1/messages?conversation_id=conv-9", nil)
	req.Header.Set(middleware.UserIDHeader, "user-42")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	chatSvc.AssertExpectations(t)
}

func TestRouter_Webhook(t *testing.T) {
	tests := []struct {
		name       string
		secret     string
		wantStatus int
		wantCall   bool
	}{
		{"valid secret", testWebhookSecret, http.StatusNoContent, true},
		{"wrong secret", "nope", http.StatusUnauthorized, false},
		{"missing secret", "", http.StatusUnauthorized, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, _, deleter := setupRouter()
			if tt.wantCall {
				deleter.On("DeleteNamespace", mock.Anything, "doc-1").Return(nil)
			}

			req := httptest.NewRequest(http.MethodPost, "/webhooks/document-deleted", bytes.NewBufferString(`{"document_id":"doc-1"}`))
			if tt.secret != "" {
				req.Header.Set(middleware.WebhookSecretHeader, tt.secret)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCall {
				deleter.AssertExpectations(t)
			} else {
				deleter.AssertNotCalled(t, "DeleteNamespace", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestRouter_Webhook_NotConfigured(t *testing.T) {
	deleter := new(MockNamespaceDeleter)
	router := NewRouter(RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(new(MockDocumentService)),
		ChatHandler:     handlers.NewChatHandler(new(MockChatService)),
		WebhookHandler:  handlers.NewWebhookHandler(deleter),
	})

	req := httptest.NewRequest(http.MethodPost, "/webhooks/document-deleted", bytes.NewBufferString(`{"document_id":"doc-1"}`))
	req.Header.Set(middleware.WebhookSecretHeader, "anything")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
