package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/quikpix/internal/gallery"
)

const (
	maxBodyBytes   = 1 << 20
	refreshTimeout = 2 * time.Minute
)

// Handler holds API route handlers.
type Handler struct {
	svc *gallery.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *gallery.Service) *Handler {
	return &Handler{svc: svc}
}

// categoryKey extracts the category key from the URL (everything after
// /api/categories/). Supports encoded slashes (e.g. DCIM%2FCamera). chi
// matches against RawPath when it is set, so only then is the wildcard
// still escaped.
func categoryKey(r *http.Request) string {
	raw := strings.Trim(chi.URLParam(r, "*"), "/")
	if raw == "" || r.URL.RawPath == "" {
		return raw
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

func imageID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	return true
}

// LibraryStatus handles GET /api/library.
//
//	@Summary		Current library scan status
//	@Tags			library
//	@Produce		json
//	@Success		200	{object}	LibraryStatus
//	@Security		BearerAuth
//	@Router			/library [get]
func (h *Handler) LibraryStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Status())
}

// RefreshLibrary handles POST /api/library/refresh.
//
//	@Summary		Rescan the media index into categories
//	@Tags			library
//	@Produce		json
//	@Param			wait	query		bool	false	"Block until the scan result is applied"
//	@Success		200		{object}	LibraryStatus
//	@Success		202		{object}	RefreshResponse
//	@Security		BearerAuth
//	@Router			/library/refresh [post]
func (h *Handler) RefreshLibrary(w http.ResponseWriter, r *http.Request) {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		ctx, cancel := context.WithTimeout(r.Context(), refreshTimeout)
		defer cancel()
		snap, err := h.svc.RefreshAndWait(ctx)
		if err != nil {
			writeError(w, "refresh library", err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
		return
	}
	writeJSON(w, http.StatusAccepted, RefreshResponse{Generation: h.svc.Refresh()})
}

// ListCategories handles GET /api/categories.
//
//	@Summary		List categories
//	@Tags			categories
//	@Produce		json
//	@Param			sort	query		string	false	"Sort mode"	Enums(recent, name, count, pinned)
//	@Param			hidden	query		bool	false	"List hidden categories instead"
//	@Success		200		{object}	CategoryListResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories [get]
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if hidden, _ := strconv.ParseBool(q.Get("hidden")); hidden {
		cats, err := h.svc.HiddenCategories(r.Context())
		if err != nil {
			writeError(w, "list hidden categories", err)
			return
		}
		snap := h.svc.Status()
		writeJSON(w, http.StatusOK, CategoryListResponse{
			Categories: cats, Sort: "recent", Status: snap.Status, Generation: snap.Generation,
		})
		return
	}

	sort := q.Get("sort")
	cats, snap, err := h.svc.Categories(r.Context(), sort)
	if err != nil {
		writeError(w, "list categories", err)
		return
	}
	if sort == "" {
		sort = "recent"
	}
	writeJSON(w, http.StatusOK, CategoryListResponse{
		Categories: cats, Sort: strings.ToLower(strings.TrimSpace(sort)),
		Status: snap.Status, Generation: snap.Generation,
	})
}

// GetCategory handles GET /api/categories/*.
//
//	@Summary		Get a category with its images, most recently taken first
//	@Tags			categories
//	@Produce		json
//	@Param			key		path		string	true	"Category key"
//	@Param			limit	query		int		false	"Max images"
//	@Success		200		{object}	CategoryDetailResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{key} [get]
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	key := categoryKey(r)
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("category key is required"))
		return
	}
	cat, err := h.svc.Library().Category(r.Context(), key)
	if err != nil {
		writeError(w, "get category", err)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	images, err := h.svc.Images(r.Context(), key, limit)
	if err != nil {
		writeError(w, "list category images", err)
		return
	}
	writeJSON(w, http.StatusOK, CategoryDetailResponse{Category: cat, Images: images})
}

// UpdateCategory handles PATCH /api/categories/*.
//
//	@Summary		Pin or hide a category
//	@Tags			categories
//	@Accept			json
//	@Produce		json
//	@Param			key		path		string					true	"Category key"
//	@Param			body	body		UpdateCategoryRequest	true	"Preference changes"
//	@Success		200		{object}	models.Category
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/categories/{key} [patch]
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	key := categoryKey(r)
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("category key is required"))
		return
	}
	var req UpdateCategoryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	cat, err := h.svc.UpdateCategory(r.Context(), key, req)
	if err != nil {
		writeError(w, "update category", err)
		return
	}
	writeJSON(w, http.StatusOK, cat)
}

// GetImage handles GET /api/images/{id}/meta.
//
//	@Summary		Image metadata
//	@Tags			images
//	@Produce		json
//	@Param			id	path		int	true	"Image id"
//	@Success		200	{object}	ImageDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/images/{id}/meta [get]
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid image id"))
		return
	}
	img, err := h.svc.Image(r.Context(), id)
	if err != nil {
		writeError(w, "get image", err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

// ServeImage handles GET /api/images/{id}; it resolves an image ref to bytes.
//
//	@Summary		Image file
//	@Tags			images
//	@Produce		image/jpeg,image/png
//	@Param			id	path	int	true	"Image id"
//	@Success		200
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/images/{id} [get]
func (h *Handler) ServeImage(w http.ResponseWriter, r *http.Request) {
	id, ok := imageID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid image id"))
		return
	}
	img, f, err := h.svc.OpenImage(r.Context(), id)
	if err != nil {
		writeError(w, "open image", err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", img.MIME)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	http.ServeContent(w, r, img.DisplayName, img.ModifiedAt, f)
}

// Search handles GET /api/search.
//
//	@Summary		Search images by file or folder name
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// OpenViewer handles POST /api/viewer/sessions.
//
//	@Summary		Open an image viewer over a category
//	@Tags			viewer
//	@Accept			json
//	@Produce		json
//	@Param			body	body		OpenViewerRequest	true	"Viewer to open"
//	@Success		201		{object}	ViewerResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/viewer/sessions [post]
func (h *Handler) OpenViewer(w http.ResponseWriter, r *http.Request) {
	var req OpenViewerRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Category == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("category is required"))
		return
	}
	view, err := h.svc.OpenViewer(r.Context(), req.Category, req.Start, req.ImageID)
	if err != nil {
		writeError(w, "open viewer", err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// GetViewer handles GET /api/viewer/sessions/{id}.
//
//	@Summary		Viewer state (advances the controls idle timer)
//	@Tags			viewer
//	@Produce		json
//	@Param			id	path		string	true	"Session id"
//	@Success		200	{object}	ViewerResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/viewer/sessions/{id} [get]
func (h *Handler) GetViewer(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Viewer(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get viewer", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// CloseViewer handles DELETE /api/viewer/sessions/{id}.
//
//	@Summary		Close a viewer
//	@Tags			viewer
//	@Param			id	path	string	true	"Session id"
//	@Success		204	"Viewer closed"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/viewer/sessions/{id} [delete]
func (h *Handler) CloseViewer(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.CloseViewer(chi.URLParam(r, "id")); err != nil {
		writeError(w, "close viewer", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ViewerEvent handles POST /api/viewer/sessions/{id}/events.
//
//	@Summary		Send a gesture to a viewer
//	@Tags			viewer
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session id"
//	@Param			body	body		GestureRequest	true	"Gesture"
//	@Success		200		{object}	ViewerResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/viewer/sessions/{id}/events [post]
func (h *Handler) ViewerEvent(w http.ResponseWriter, r *http.Request) {
	var g GestureRequest
	if !decodeBody(w, r, &g) {
		return
	}
	view, err := h.svc.ApplyGesture(chi.URLParam(r, "id"), g)
	if err != nil {
		writeError(w, "viewer event", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
