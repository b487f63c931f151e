package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quikpix/internal/gallery"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *gallery.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Library status and rescans.
	r.Get("/library", h.LibraryStatus)
	r.Post("/library/refresh", h.RefreshLibrary)

	// Categories; keys contain slashes so they are matched by wildcard.
	r.Get("/categories", h.ListCategories)
	r.Get("/categories/*", h.GetCategory)
	r.Patch("/categories/*", h.UpdateCategory)

	// Images.
	r.Get("/images/{id}", h.ServeImage)
	r.Get("/images/{id}/meta", h.GetImage)

	// Search.
	r.Get("/search", h.Search)

	// Viewer sessions.
	r.Post("/viewer/sessions", h.OpenViewer)
	r.Get("/viewer/sessions/{id}", h.GetViewer)
	r.Delete("/viewer/sessions/{id}", h.CloseViewer)
	r.Post("/viewer/sessions/{id}/events", h.ViewerEvent)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
