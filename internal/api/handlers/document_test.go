package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/pagination"
	"github.com/cjgv1809/Chat-with-PDF/internal/service"
	"github.com/cjgv1809/Chat-with-PDF/internal/vectorindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
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
	args := m.Called(ctx, ownerID, documentID)
	return args.Error(0)
}

func newTestDocument() *domain.Document {
	d := domain.NewDocument("doc-123", "user-1", "report.pdf", "application/pdf", "user-1/doc-123/report.pdf", 2048, time.Now().UTC())
	d.Status = domain.DocumentStatusReady
	return d
}

func TestDocumentHandler_Create_Upload(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	doc := newTestDocument()
	doc.Status = domain.DocumentStatusPending
	mockSvc.On("InitUpload", mock.Anything, service.InitUploadInput{
		OwnerID:     "user-1",
		Filename:    "report.pdf",
		ContentType: "application/pdf",
	}).Return(&service.InitUploadResult{Document: doc, UploadURL: "https://storage.example.com/upload"}, nil)

	req := requestWithUserID(http.MethodPost, "/documents", []byte(`{"filename":"report.pdf","content_type":"application/pdf"}`))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "https://storage.example.com/upload", data["upload_url"])
	document := data["document"].(map[string]interface{})
	assert.Equal(t, "doc-123", document["id"])
	assert.Equal(t, "pending", document["status"])
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Create_Register(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	doc := newTestDocument()
	doc.Status = domain.DocumentStatusUploaded
	mockSvc.On("Register", mock.Anything, mock.MatchedBy(func(in service.RegisterInput) bool {
		return in.OwnerID == "user-1" && in.DownloadURL == "https://files.example.com/report.pdf"
	})).Return(doc, nil)

	req := requestWithUserID(http.MethodPost, "/documents", []byte(`{"download_url":"https://files.example.com/report.pdf"}`))
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	data := decodeData(t, w)
	assert.NotContains(t, data, "upload_url")
	mockSvc.AssertNotCalled(t, "InitUpload", mock.Anything, mock.Anything)
}

func TestDocumentHandler_Create_BadRequests(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"malformed json", `{"filename":`, "invalid request body"},
		{"missing filename", `{"content_type":"application/pdf"}`, "filename is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockSvc := new(MockDocumentService)
			handler := NewDocumentHandler(mockSvc)

			req := requestWithUserID(http.MethodPost, "/documents", []byte(tt.body))
			w := httptest.NewRecorder()

			handler.Create(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), tt.message)
		})
	}
}

func TestDocumentHandler_Create_Unauthorized(t *testing.T) {
	handler := NewDocumentHandler(new(MockDocumentService))

	req := httptest.NewRequest(http.MethodPost, "/documents", nil)
	w := httptest.NewRecorder()

	handler.Create(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocumentHandler_List(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)

	page := &pagination.PageResult[*domain.Document]{
		Items:   []*domain.Document{newTestDocument()},
		Cursor:  "next",
		HasMore: true,
	}
	mockSvc.On("List", mock.Anything, "user-1", "abc", maxPageSize).Return(page, nil)

	req := requestWithUserID(http.MethodGet, "/documents?cursor=abc&limit=1000", nil)
	w := httptest.NewRecorder()

	handler.List(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Len(t, data["items"], 1)
	assert.Equal(t, "next", data["cursor"])
	assert.Equal(t, true, data["has_more"])
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_Get(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)
	mockSvc.On("Get", mock.Anything, "user-1", "doc-123").Return(newTestDocument(), nil)

	req := withDocumentID(requestWithUserID(http.MethodGet, "/documents/doc-123", nil), "doc-123")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "report.pdf", data["name"])
	assert.Equal(t, "ready", data["status"])
}

func TestDocumentHandler_Get_NotFound(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)
	mockSvc.On("Get", mock.Anything, "user-1", "doc-999").Return(nil, domain.ErrDocumentNotFound)

	req := withDocumentID(requestWithUserID(http.MethodGet, "/documents/doc-999", nil), "doc-999")
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_Complete_UploadMissing(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)
	mockSvc.On("CompleteUpload", mock.Anything, "user-1", "doc-123").
		Return(nil, errors.Join(errors.New("failed to verify uploaded file"), domain.ErrUploadNotFound))

	req := withDocumentID(requestWithUserID(http.MethodPost, "/documents/doc-123/complete", nil), "doc-123")
	w := httptest.NewRecorder()

	handler.Complete(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDocumentHandler_Ingest(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)
	mockSvc.On("EnsureIngested", mock.Anything, "user-1", "doc-123").
		Return(&vectorindex.IngestResult{DocumentID: "doc-123", Chunks: 12, ZeroVectors: 1}, nil)

	req := withDocumentID(requestWithUserID(http.MethodPost, "/documents/doc-123/ingest", nil), "doc-123")
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, float64(12), data["chunks"])
	assert.Equal(t, float64(1), data["zero_vectors"])
	assert.Equal(t, false, data["skipped"])
}

func TestDocumentHandler_Ingest_NotUploaded(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)
	mockSvc.On("EnsureIngested", mock.Anything, "user-1", "doc-123").Return(nil, domain.ErrDocumentNotUploaded)

	req := withDocumentID(requestWithUserID(http.MethodPost, "/documents/doc-123/ingest", nil), "doc-123")
	w := httptest.NewRecorder()

	handler.Ingest(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandler_Delete(t *testing.T) {
	mockSvc := new(MockDocumentService)
	handler := NewDocumentHandler(mockSvc)
	mockSvc.On("Delete", mock.Anything, "user-1", "doc-123").Return(nil)

	req := withDocumentID(requestWithUserID(http.MethodDelete, "/documents/doc-123", nil), "doc-123")
	w := httptest.NewRecorder()

	handler.Delete(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	mockSvc.AssertExpectations(t)
}

func TestDocumentHandler_MissingID(t *testing.T) {
	handler := NewDocumentHandler(new(MockDocumentService))

	req := requestWithUserID(http.MethodGet, "/documents/", nil)
	w := httptest.NewRecorder()

	handler.Get(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "id is required")
}
