//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cjgv1809/Chat-with-PDF/internal/api/handlers"
	"github.com/cjgv1809/Chat-with-PDF/internal/api/middleware"
	"github.com/cjgv1809/Chat-with-PDF/internal/chunker"
	"github.com/cjgv1809/Chat-with-PDF/internal/domain"
	"github.com/cjgv1809/Chat-with-PDF/internal/embedding"
	"github.com/cjgv1809/Chat-with-PDF/internal/history"
	"github.com/cjgv1809/Chat-with-PDF/internal/jobs"
	"github.com/cjgv1809/Chat-with-PDF/internal/loader"
	"github.com/cjgv1809/Chat-with-PDF/internal/rag"
	"github.com/cjgv1809/Chat-with-PDF/internal/repository"
	"github.com/cjgv1809/Chat-with-PDF/internal/server"
	"github.com/cjgv1809/Chat-with-PDF/internal/service"
	"github.com/cjgv1809/Chat-with-PDF/internal/storage"
	"github.com/cjgv1809/Chat-with-PDF/internal/testutil"
	"github.com/cjgv1809/Chat-with-PDF/internal/vectorindex"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	e2eDims          = 64
	e2eWebhookSecret = "e2e-webhook-secret"
)

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	RustFSC    *testutil.RustFSContainer
	Pool       *pgxpool.Pool
	Server     *httptest.Server
	S3Client   *storage.S3Client
	Model      *testutil.ChatFunc
	Worker     *jobs.IngestionWorker
	HTTPClient *http.Client
}

// SetupE2EEnv starts Postgres and RustFS and serves the full router over
// httptest. The language model is a fake that answers from the prompt.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx := context.Background()

	pgC := testutil.NewPostgresContainer(ctx, t)
	s3C := testutil.NewRustFSContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")
	s3Client := testutil.NewS3Client(ctx, t, s3C, "e2e-documents")

	docRepo := repository.NewDocumentRepository(pool)
	jobRepo := repository.NewIngestionJobRepository(pool)
	chatRepo := repository.NewChatRepository(pool)

	embedder := embedding.NewService(testutil.NewKeywordEmbedder(e2eDims), embedding.Config{Dimensions: e2eDims})
	index := vectorindex.NewManager(repository.NewVectorRepository(pool, "docchat-e2e", e2eDims), embedder)

	documents := service.NewDocumentServiceWithTx(
		docRepo, jobRepo, s3Client, loader.New(s3Client, loader.AllowPrivateHosts()), index,
		chunker.New(chunker.Config{MaxChars: 120, Overlap: 10}),
		repository.NewTxRunner(pool),
	)

	model := testutil.NewChatFunc(answerQuestion)
	turns := history.NewStore(chatRepo, 10)
	chat := service.NewChatService(documents, rag.NewChain(turns, index, model, rag.Config{TopK: 2}), turns, chatRepo)

	router := server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(documents),
		ChatHandler:     handlers.NewChatHandler(chat),
		WebhookHandler:  handlers.NewWebhookHandler(documents),
		WebhookSecret:   e2eWebhookSecret,
	})

	env := &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		RustFSC:    s3C,
		Pool:       pool,
		Server:     httptest.NewServer(router),
		S3Client:   s3Client,
		Model:      model,
		Worker:     jobs.NewIngestionWorker(jobRepo, documents),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
	t.Cleanup(env.Cleanup)
	return env
}

// Cleanup stops the HTTP server. Containers and the pool are released by
// their own test cleanups.
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
}

// answerQuestion passes rephrase requests through as the follow-up question
// and answers everything else by echoing the question.
func answerQuestion(messages []domain.ChatMessage) (string, error) {
	last := messages[len(messages)-1].Content
	if last == rag.DefaultPrompts().Rephrase && len(messages) > 1 {
		return messages[len(messages)-2].Content, nil
	}
	return "Answer to: " + last, nil
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
	Code   string          `json:"code,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path, userID string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, map[string]string{middleware.UserIDHeader: userID})
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body any, userID string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, map[string]string{middleware.UserIDHeader: userID})
}

// Delete performs a DELETE request
func (e *E2ETestEnv) Delete(path, userID string) (*APIResponse, error) {
	return e.doRequest(http.MethodDelete, path, nil, map[string]string{middleware.UserIDHeader: userID})
}

// Webhook posts to a webhook route with the given secret
func (e *E2ETestEnv) Webhook(path string, body any, secret string) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, map[string]string{middleware.WebhookSecretHeader: secret})
}

// doRequest returns an error for transport failures and statuses >= 400. The
// response is returned in both cases so callers can inspect the code.
func (e *E2ETestEnv) doRequest(method, path string, body any, headers map[string]string) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(e.Ctx, method, e.Server.URL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := &APIResponse{Status: resp.StatusCode}
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, apiResp); err != nil {
			return apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody)
		}
	}

	if resp.StatusCode >= 400 {
		return apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return apiResp, nil
}

// UploadFile uploads a file to the presigned URL
func (e *E2ETestEnv) UploadFile(uploadURL string, content []byte, contentType string) error {
	req, err := http.NewRequestWithContext(e.Ctx, http.MethodPut, uploadURL, bytes.NewReader(content))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, body)
	}
	return nil
}

type documentData struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
	Size   int64  `json:"size_bytes"`
}

type createData struct {
	Document  documentData `json:"document"`
	UploadURL string       `json:"upload_url"`
}

// UploadDocument runs create, PUT and complete for a text document and
// returns its ID.
func (e *E2ETestEnv) UploadDocument(userID, filename, content string) string {
	e.T.Helper()

	resp, err := e.Post("/documents", map[string]string{
		"filename":     filename,
		"content_type": "text/plain",
	}, userID)
	if err != nil {
		e.T.Fatalf("failed to create document: %v", err)
	}

	var created createData
	if err := json.Unmarshal(resp.Data, &created); err != nil {
		e.T.Fatalf("failed to parse create response: %v", err)
	}
	if err := e.UploadFile(created.UploadURL, []byte(content), "text/plain"); err != nil {
		e.T.Fatalf("failed to upload: %v", err)
	}
	if _, err := e.Post("/documents/"+created.Document.ID+"/complete", nil, userID); err != nil {
		e.T.Fatalf("failed to complete upload: %v", err)
	}
	return created.Document.ID
}
