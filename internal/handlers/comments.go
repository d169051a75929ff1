package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/services"
)

// CommentHandler provides HTTP handlers for comments.
type CommentHandler struct {
	comments *services.CommentService
}

func NewCommentHandler(comments *services.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// CommentRouter registers comment routes on the given router.
func CommentRouter(r chi.Router, comments *services.CommentService, auth *Authenticator) {
	handler := NewCommentHandler(comments)

	r.With(auth.RequireAuth).Post("/", handler.CreateComment)
	r.Route("/{commentID}", func(r chi.Router) {
		r.With(auth.RequireAuth).Delete("/", handler.DeleteComment)
		r.Post("/like", handler.LikeComment)
	})
}

func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	var req services.CommentInput
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	created, err := h.comments.Create(r.Context(), subjectFromContext(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "commentID")
	if err := h.comments.Delete(r.Context(), subjectFromContext(r.Context()), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedResponse{Deleted: true, ID: id})
}

func (h *CommentHandler) LikeComment(w http.ResponseWriter, r *http.Request) {
	likes, err := h.comments.Like(r.Context(), pathParam(r, "commentID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LikesResponse{Likes: likes})
}
