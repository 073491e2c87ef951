package server

import (
	"net/http"

	"github.com/cjgv1809/Chat-with-PDF/internal/api"
	"github.com/cjgv1809/Chat-with-PDF/internal/api/handlers"
	"github.com/cjgv1809/Chat-with-PDF/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	DocumentHandler *handlers.DocumentHandler
	ChatHandler     *handlers.ChatHandler
	WebhookHandler  *handlers.WebhookHandler
	WebhookSecret   string
	MaxBodyBytes    int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	maxBodyBytes := cfg.MaxBodyBytes
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1024 * 1024
	}

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.UserIdentity)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Create)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
			r.Post("/{id}/complete", cfg.DocumentHandler.Complete)
			r.Post("/{id}/ingest", cfg.DocumentHandler.Ingest)
			r.Post("/{id}/messages", cfg.ChatHandler.Ask)
			r.Get("/{id}/messages", cfg.ChatHandler.History)
		})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.WebhookSecret(cfg.WebhookSecret))
		r.Post("/webhooks/document-deleted", cfg.WebhookHandler.DocumentDeleted)
	})

	return r
}
