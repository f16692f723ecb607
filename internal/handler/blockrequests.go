package handler

import (
	"net/http"

	"github.com/venyaka/Bank-REST/internal/service"
)

// RequestBlock files a block request for one of the requester's cards.
func (h *Handler) RequestBlock(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid card id"})
		return
	}
	view, err := h.blocks.RequestBlock(r.Context(), id, p.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, view)
}

// MyBlockRequests returns the requester's own block requests.
func (h *Handler) MyBlockRequests(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	views, err := h.blocks.ListUserRequests(r.Context(), p.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// ListBlockRequests returns all block requests. Admin only.
func (h *Handler) ListBlockRequests(w http.ResponseWriter, r *http.Request) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	views, err := h.blocks.ListAllRequests(r.Context(), p.User)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, views)
}

// ApproveBlockRequest approves a pending block request and blocks the
// card. Admin only; the comment comes from the "comment" query parameter.
func (h *Handler) ApproveBlockRequest(w http.ResponseWriter, r *http.Request) {
	h.processBlockRequest(w, r, true)
}

// RejectBlockRequest rejects a pending block request. Admin only.
func (h *Handler) RejectBlockRequest(w http.ResponseWriter, r *http.Request) {
	h.processBlockRequest(w, r, false)
}

func (h *Handler) processBlockRequest(w http.ResponseWriter, r *http.Request, approve bool) {
	p := h.principal(w, r)
	if p == nil {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request id"})
		return
	}
	comment := r.URL.Query().Get("comment")

	var view *service.BlockRequestView
	if approve {
		view, err = h.blocks.Approve(r.Context(), id, p.User, comment)
	} else {
		view, err = h.blocks.Reject(r.Context(), id, p.User, comment)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}
