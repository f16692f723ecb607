package handler

import (
	"encoding/json"
	"net/http"
)

type updateProfileRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type createUserRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type updateUserRequest struct {
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Roles     []string `json:"roles"`
}

// Me returns the authenticated user's own profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	h.writeJSON(w, http.StatusOK, h.users.Profile(p.User))
}

// UpdateMe updates the authenticated user's name fields.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	var req updateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	view, err := h.users.UpdateProfile(r.Context(), p.User, req.FirstName, req.LastName)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// ListUsers returns all users. Admin only.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	views, err := h.users.ListUsers(r.Context(), p.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// GetUser returns one user. Admin only.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}
	view, err := h.users.GetUser(r.Context(), id, p.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// CreateUser creates a user without the registration flow. Admin only.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}
	view, err := h.users.CreateUser(r.Context(), p.User, req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

// UpdateUser overwrites a user's names and roles. Admin only.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	view, err := h.users.UpdateUser(r.Context(), id, p.User, req.FirstName, req.LastName, req.Roles)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// DeleteUser removes a user. Admin only.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}
	if err := h.users.DeleteUser(r.Context(), id, p.User); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusNoContent, nil)
}
