package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestRequestID(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get(RequestIDHeader))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "req-42")
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, "req-42", seen)
		assert.Equal(t, "req-42", w.Header().Get(RequestIDHeader))
	})
}

func TestAccessLog_RecordsRoutePattern(t *testing.T) {
	buf := captureLog(t)

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(AccessLog)
	r.Post("/documents/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("hello"))
	})

	req := httptest.NewRequest(http.MethodPost, "/documents/doc-1/messages", nil)
	req.Header.Set(UserIDHeader, "user-1")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	var entry accessLogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, http.MethodPost, entry.Method)
	assert.Equal(t, "/documents/{id}/messages", entry.Route)
	assert.Equal(t, "/documents/doc-1/messages", entry.Path)
	assert.Equal(t, http.StatusCreated, entry.Status)
	assert.Equal(t, 5, entry.Bytes)
	assert.Equal(t, "user-1", entry.UserID)
	assert.Equal(t, "doc-1", entry.DocumentID)
	assert.Equal(t, "203.0.113.9", entry.RemoteAddr)
	assert.NotEmpty(t, entry.RequestID)
}

func TestAccessLog_ImplicitOK(t *testing.T) {
	buf := captureLog(t)

	handler := AccessLog(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "192.0.2.1:5555"
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry accessLogEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, http.StatusOK, entry.Status)
	assert.Equal(t, "/health", entry.Route)
	assert.Equal(t, "192.0.2.1", entry.RemoteAddr)
}

func TestMaxBodyBytes(t *testing.T) {
	handler := MaxBodyBytes(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, "too large", http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("within limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("short")))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("declared length too large", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("much too long")))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("streamed body too large", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("much too long"))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestSentryMiddleware_PassesThrough(t *testing.T) {
	r := chi.NewRouter()
	r.Use(SentryMiddleware)
	r.Get("/documents/{id}", func(w http.ResponseWriter, r *http.Request) {
		assert.NotNil(t, sentry.GetHubFromContext(r.Context()))
		assert.NotNil(t, sentry.SpanFromContext(r.Context()))
		w.WriteHeader(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/doc-1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSentryMiddleware_RepanicsAfterRecording(t *testing.T) {
	handler := SentryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	assert.PanicsWithValue(t, "boom", func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestHTTPStatusToSpanStatus(t *testing.T) {
	tests := map[int]sentry.SpanStatus{
		http.StatusOK:                    sentry.SpanStatusOK,
		http.StatusNoContent:             sentry.SpanStatusOK,
		http.StatusBadRequest:            sentry.SpanStatusInvalidArgument,
		http.StatusUnauthorized:          sentry.SpanStatusUnauthenticated,
		http.StatusNotFound:              sentry.SpanStatusNotFound,
		http.StatusConflict:              sentry.SpanStatusAlreadyExists,
		http.StatusRequestEntityTooLarge: sentry.SpanStatusResourceExhausted,
		http.StatusInternalServerError:   sentry.SpanStatusInternalError,
		http.StatusBadGateway:            sentry.SpanStatusUnavailable,
		http.StatusGatewayTimeout:        sentry.SpanStatusDeadlineExceeded,
	}
	for status, want := range tests {
		assert.Equal(t, want, httpStatusToSpanStatus(status), "status %d", status)
	}
}
