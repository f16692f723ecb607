package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/venyaka/Bank-REST/internal/cardcrypt"
	"github.com/venyaka/Bank-REST/internal/middleware"
	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/venyaka/Bank-REST/internal/service"
	"github.com/venyaka/Bank-REST/internal/token"
	"github.com/venyaka/Bank-REST/internal/vault"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// Handler exposes the services over HTTP.
type Handler struct {
	auth   *service.AuthService
	cards  *service.CardService
	users  *service.UserService
	blocks *service.BlockRequestService
	tokens *token.Manager
	log    *logrus.Logger
}

// NewHandler initializes a new handler
func NewHandler(auth *service.AuthService, cards *service.CardService, users *service.UserService, blocks *service.BlockRequestService, tokens *token.Manager, log *logrus.Logger) *Handler {
	return &Handler{auth: auth, cards: cards, users: users, blocks: blocks, tokens: tokens, log: log}
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			h.log.Errorf("Failed to encode response: %v", err)
		}
	}
}

// writeError maps domain sentinels to HTTP statuses. Key problems are the
// only 5xx class: they mean the process cannot do PAN cryptography at all.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrUserNotFound),
		errors.Is(err, models.ErrCardNotFound),
		errors.Is(err, models.ErrBlockRequestNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrInvalidCredentials), errors.Is(err, models.ErrUserNotVerified):
		status = http.StatusUnauthorized
	case errors.Is(err, models.ErrNoAccess):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrUserAlreadyExists),
		errors.Is(err, models.ErrAlreadyVerified),
		errors.Is(err, models.ErrBadVerificationCode),
		errors.Is(err, models.ErrInvalidAmount),
		errors.Is(err, models.ErrSameCardTransfer),
		errors.Is(err, models.ErrInsufficientFunds),
		errors.Is(err, models.ErrFromCardBlocked),
		errors.Is(err, models.ErrToCardBlocked),
		errors.Is(err, models.ErrFromCardExpired),
		errors.Is(err, models.ErrToCardExpired),
		errors.Is(err, models.ErrOnlyOwnCardsTransfer),
		errors.Is(err, models.ErrCardExpired),
		errors.Is(err, models.ErrBlockRequestExists),
		errors.Is(err, models.ErrBlockRequestProcessed),
		errors.Is(err, token.ErrRefreshInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, vault.ErrKeyUnavailable),
		errors.Is(err, cardcrypt.ErrInvalidKeyLength):
		h.log.Errorf("Encryption unavailable: %v", err)
	}

	if status == http.StatusInternalServerError {
		h.log.Errorf("Request failed: %v", err)
		h.writeJSON(w, status, errorResponse{Error: "internal server error"})
		return
	}
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) principal(w http.ResponseWriter, r *http.Request) *middleware.Principal {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil {
		h.writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "authentication required"})
		return nil
	}
	return p
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

// clientIP returns the originating address, honoring X-Forwarded-For when
// a proxy set it.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
