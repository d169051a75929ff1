package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/inkpress/apiserver/internal/services"
)

// AdminHandler serves the moderation dashboard. The admin check itself
// happens in the service against the caller's user record.
type AdminHandler struct {
	admin *services.AdminService
}

func NewAdminHandler(admin *services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// AdminRouter registers admin routes on the given router. Every route
// requires authentication.
func AdminRouter(r chi.Router, admin *services.AdminService, auth *Authenticator) {
	handler := NewAdminHandler(admin)

	r.Use(auth.RequireAuth)
	r.Get("/stats", handler.Stats)
	r.Get("/users", handler.ListUsers)
	r.Get("/comments", handler.ListComments)
	r.Put("/users/{userID}/role", handler.ChangeRole)
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context(), subjectFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.Users(r.Context(), subjectFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := h.admin.Comments(r.Context(), subjectFromContext(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *AdminHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	var req RoleChangeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	updated, err := h.admin.ChangeRole(r.Context(), subjectFromContext(r.Context()), pathParam(r, "userID"), req.Role)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

type RoleChangeRequest struct {
	Role string `json:"role"`
}
