package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/fitch/internal/proofservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *proofservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Documents.
	r.Get("/documents", h.ListDocuments)
	r.Post("/documents", h.CreateDocument)
	r.Route("/documents/{id}", func(r chi.Router) {
		r.Get("/", h.GetDocument)
		r.Put("/", h.ReplaceDocument)
		r.Delete("/", h.DeleteDocument)
		r.Post("/ops", h.ApplyOperation)
		r.Get("/verify", h.VerifyDocument)
		r.Get("/text", h.DocumentText)
	})

	// Search.
	r.Get("/search", h.Search)

	// Rule catalogue.
	r.Get("/rules", h.Rules)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
