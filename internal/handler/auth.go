package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/venyaka/Bank-REST/internal/middleware"
)

type registerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Email == "" || req.Password == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and password are required"})
		return
	}

	user, err := h.auth.Register(r.Context(), req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

// Login authenticates a user, sets the auth cookies and returns the token
// pair for non-browser clients.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	_, pair, err := h.auth.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		h.writeError(w, err)
		return
	}

	middleware.SetAuthCookies(w, pair, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
	h.writeJSON(w, http.StatusOK, pair)
}

// Verify confirms an email verification code.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.auth.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// ResendVerification sends the verification mail again.
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.auth.ResendVerification(r.Context(), req.Email); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// RefreshToken explicitly exchanges a refresh token carried in the
// "Refresh: Bearer <token>" header for a new pair, returned both as
// headers and cookies. Unlike the silent refresh in the middleware, a
// failure here is an error response: the caller asked for a rotation.
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	const prefix = "Bearer "
	header := r.Header.Get("Refresh")
	if !strings.HasPrefix(header, prefix) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "refresh token required"})
		return
	}
	refreshToken := strings.TrimPrefix(header, prefix)

	email, err := h.tokens.ValidateRefresh(r.Context(), refreshToken)
	if err != nil {
		h.writeError(w, err)
		return
	}

	_, pair, err := h.tokens.Rotate(r.Context(), email)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Authorization", prefix+pair.AccessToken)
	w.Header().Set("Refresh", prefix+pair.RefreshToken)
	middleware.SetAuthCookies(w, pair, h.tokens.AccessTTL(), h.tokens.RefreshTTL())
	h.writeJSON(w, http.StatusOK, pair)
}

// Logout invalidates all refresh tokens of the authenticated user and
// clears the auth cookies.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	if err := h.auth.Logout(r.Context(), p.User.Email); err != nil {
		h.writeError(w, err)
		return
	}
	middleware.ClearAuthCookies(w)
	h.writeJSON(w, http.StatusOK, nil)
}
