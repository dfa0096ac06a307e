package handler

import (
	"log/slog"
	"net/http"

	"inkwell/internal/domain/services"
	"inkwell/internal/httputil"
)

// PostHandler handles post HTTP requests
type PostHandler struct {
	postService services.PostService
	logger      *slog.Logger
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService services.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{
		postService: postService,
		logger:      logger,
	}
}

// RegisterRoutes mounts the post routes on mux
func (h *PostHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/posts", h.CreatePost)
	mux.HandleFunc("GET /api/posts", h.ListPosts)
	mux.HandleFunc("GET /api/posts/search", h.SearchPosts)
	mux.HandleFunc("GET /api/posts/{id}", h.GetPost)
	mux.HandleFunc("PATCH /api/posts/{id}", h.UpdatePost)
	mux.HandleFunc("POST /api/posts/{id}/publish", h.PublishPost)
}

// CreatePost creates a new draft
// POST /api/posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req services.CreatePostRequest
	if !parseBody(w, r, &req) {
		return
	}
	req.UserID = httputil.GetUserID(r)

	post, err := h.postService.CreatePost(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, post)
}

// ListPosts returns the caller's posts, most recently updated first
// GET /api/posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	list, err := h.postService.ListPosts(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, list)
}

// SearchPosts finds the caller's posts matching the q parameter
// GET /api/posts/search?q=
func (h *PostHandler) SearchPosts(w http.ResponseWriter, r *http.Request) {
	result, err := h.postService.SearchPosts(r.Context(), httputil.GetUserID(r), r.URL.Query().Get("q"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, result)
}

// GetPost returns a single post
// GET /api/posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.GetPost(r.Context(), httputil.GetUserID(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, post)
}

// UpdatePost changes the title and/or body of a post
// PATCH /api/posts/{id}
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req services.UpdatePostRequest
	if !parseBody(w, r, &req) {
		return
	}

	post, err := h.postService.UpdatePost(r.Context(), httputil.GetUserID(r), id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, post)
}

// PublishPost marks a post as published
// POST /api/posts/{id}/publish
func (h *PostHandler) PublishPost(w http.ResponseWriter, r *http.Request) {
	id, err := httputil.PathID(r, "id")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := h.postService.PublishPost(r.Context(), httputil.GetUserID(r), id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, post)
}
