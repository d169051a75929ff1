package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/apperr"
	"github.com/inkpress/apiserver/internal/services"
	"github.com/inkpress/apiserver/types"
)

// PostHandler provides HTTP handlers for posts and their taxonomy.
type PostHandler struct {
	posts    *services.PostService
	comments *services.CommentService
}

func NewPostHandler(posts *services.PostService, comments *services.CommentService) *PostHandler {
	return &PostHandler{posts: posts, comments: comments}
}

// PostRouter registers post routes on the given router.
func PostRouter(r chi.Router, posts *services.PostService, comments *services.CommentService, auth *Authenticator) {
	handler := NewPostHandler(posts, comments)

	r.With(auth.OptionalAuth).Get("/", handler.ListPosts)
	r.With(auth.RequireAuth).Post("/", handler.CreatePost)
	r.Route("/{postID}", func(r chi.Router) {
		r.Get("/", handler.GetPost)
		r.With(auth.RequireAuth).Put("/", handler.UpdatePost)
		r.With(auth.RequireAuth).Delete("/", handler.DeletePost)
		r.Post("/like", handler.LikePost)
		r.Get("/comments", handler.ListComments)
	})
}

// TaxonomyRouter registers the category and tag listings.
func TaxonomyRouter(r chi.Router, posts *services.PostService) {
	handler := NewPostHandler(posts, nil)

	r.Get("/categories", handler.ListCategories)
	r.Get("/tags", handler.ListTags)
}

func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	filter, err := parsePostFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	posts, err := h.posts.List(r.Context(), subjectFromContext(r.Context()), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), pathParam(r, "postID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req services.PostInput
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	created, err := h.posts.Create(r.Context(), subjectFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var patch services.PostPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, err)
		return
	}

	updated, err := h.posts.Update(r.Context(), subjectFromContext(r.Context()), pathParam(r, "postID"), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "postID")
	if err := h.posts.Delete(r.Context(), subjectFromContext(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Deleted: true, ID: id})
}

func (h *PostHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	likes, err := h.posts.Like(r.Context(), pathParam(r, "postID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LikesResponse{Likes: likes})
}

func (h *PostHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.comments.ListForPost(r.Context(), pathParam(r, "postID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *PostHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.posts.Categories(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *PostHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.posts.Tags(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func parsePostFilter(r *http.Request) (types.PostFilter, error) {
	query := r.URL.Query()
	filter := types.PostFilter{
		Category: strings.TrimSpace(query.Get("category")),
		Tag:      strings.TrimSpace(query.Get("tag")),
		Search:   strings.TrimSpace(query.Get("search")),
	}
	if raw := strings.TrimSpace(query.Get("featured")); raw != "" {
		featured, err := strconv.ParseBool(raw)
		if err != nil {
			return types.PostFilter{}, apperr.Validation("invalid featured")
		}
		filter.Featured = &featured
	}
	return filter, nil
}
