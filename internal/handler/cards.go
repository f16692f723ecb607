package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/shopspring/decimal"
)

type transferRequest struct {
	FromCardID int64           `json:"from_card_id"`
	ToCardID   int64           `json:"to_card_id"`
	Amount     decimal.Decimal `json:"amount"`
}

type createCardRequest struct {
	OwnerID int64 `json:"owner_id"`
}

type balanceRequest struct {
	Balance decimal.Decimal `json:"balance"`
}

// ListCards returns the authenticated user's cards.
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	views, err := h.cards.ListCards(r.Context(), p.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// GetCard returns one card with a masked number.
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid card id"})
		return
	}
	view, err := h.cards.GetCard(r.Context(), id, p.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// GetBalance returns a card's balance and status.
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid card id"})
		return
	}
	view, err := h.cards.GetBalance(r.Context(), id, p.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// BlockCard blocks a card.
func (h *Handler) BlockCard(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid card id"})
		return
	}
	if err := h.cards.BlockCard(r.Context(), id, p.User); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// ActivateCard reactivates a blocked card. Expired cards stay expired.
func (h *Handler) ActivateCard(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid card id"})
		return
	}
	if err := h.cards.ActivateCard(r.Context(), id, p.User); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// SearchCards returns a page of the requester's cards matching the
// optional status query.
func (h *Handler) SearchCards(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	result, err := h.cards.SearchCards(r.Context(), p.User, q.Get("query"), page, size)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Transfer moves money between two of the requester's cards.
func (h *Handler) Transfer(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.cards.Transfer(r.Context(), req.FromCardID, req.ToCardID, req.Amount, p.User); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// CreateCard issues a new card for a user. Admin only.
func (h *Handler) CreateCard(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	if !p.Roles.IsAdmin() {
		h.writeError(w, models.ErrNoAccess)
		return
	}
	var req createCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	view, err := h.cards.CreateCard(r.Context(), req.OwnerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

// ListAllCards returns all cards. Admin only.
func (h *Handler) ListAllCards(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	views, err := h.cards.ListAllCards(r.Context(), p.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// DeleteCard removes a card.
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	if !p.Roles.IsAdmin() {
		h.writeError(w, models.ErrNoAccess)
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid card id"})
		return
	}
	if err := h.cards.DeleteCard(r.Context(), id, p.User); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// SetBalance overwrites a card's balance. Admin only.
func (h *Handler) SetBalance(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid card id"})
		return
	}
	var req balanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if err := h.cards.SetBalance(r.Context(), id, req.Balance, p.User); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}
