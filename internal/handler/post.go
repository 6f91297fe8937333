package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/blognode/internal/apperror"
	"github.com/sakif/blognode/internal/auth"
	"github.com/sakif/blognode/internal/model"
	"github.com/sakif/blognode/internal/service"
)

// PostHandler serves posts and the community feed.
//
//	POST /api/posts              → HandleSave  (RequireAuth)
//	GET  /api/posts/{slug}       → HandleGet   (OptionalAuth)
//	POST /api/posts/{slug}/like  → HandleLike  (RequireAuth)
//	GET  /api/feed               → HandleFeed  (public)
type PostHandler struct {
	posts  *service.PostService
	logger *slog.Logger
}

func NewPostHandler(posts *service.PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, logger: logger}
}

// HandleSave saves a draft or publishes, depending on the body's status.
// New posts answer 201, saves of an existing post 200.
func (h *PostHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	var in model.PostInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.posts.Save(r.Context(), accountID, in)
	if err != nil {
		writeError(w, err)
		return
	}

	status := http.StatusOK
	if in.ID == "" {
		status = http.StatusCreated
	}
	writeJSON(w, status, post)
}

func (h *PostHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.AccountIDFromContext(r.Context())

	post, err := h.posts.GetBySlug(r.Context(), viewerID, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	accountID, _ := auth.AccountIDFromContext(r.Context())

	post, err := h.posts.Like(r.Context(), accountID, chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, post.Stats)
}

// HandleFeed lists published posts. Every caller sees the same feed.
//
// Query params: tab (personalized|featured|trending), limit, offset.
func (h *PostHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	offset, err := intParam(q.Get("offset"), "offset")
	if err != nil {
		writeError(w, err)
		return
	}

	tab := model.ParseFeedTab(q.Get("tab"))
	items, err := h.posts.Feed(r.Context(), tab, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FeedResponse{Tab: tab, Items: items})
}

// FeedResponse is the body of GET /api/feed.
type FeedResponse struct {
	Tab   model.FeedTab    `json:"tab"`
	Items []model.FeedItem `json:"items"`
}

// intParam parses an optional non-negative integer query value. Empty means 0.
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperror.ValidationFailed(name, name+" must be a non-negative integer")
	}
	return n, nil
}
