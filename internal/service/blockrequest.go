package service

import (
	"context"
	"time"

	"github.com/venyaka/Bank-REST/internal/cardcrypt"
	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/sirupsen/logrus"
)

// BlockRequestStore is the block-request persistence the service needs.
// FindBlockRequestByID returns models.ErrBlockRequestNotFound for a
// missing request.
type BlockRequestStore interface {
	CreateBlockRequest(ctx context.Context, req *models.CardBlockRequest) error
	FindBlockRequestByID(ctx context.Context, id int64) (*models.CardBlockRequest, error)
	FindBlockRequestsByUser(ctx context.Context, userID int64) ([]*models.CardBlockRequest, error)
	FindAllBlockRequests(ctx context.Context) ([]*models.CardBlockRequest, error)
	SaveBlockRequest(ctx context.Context, req *models.CardBlockRequest) error
}

// BlockRequestView is the presentation form of a block request, with the
// card number masked.
type BlockRequestView struct {
	ID           int64                     `json:"id"`
	CardID       int64                     `json:"card_id"`
	MaskedNumber string                    `json:"masked_card_number"`
	UserID       int64                     `json:"user_id"`
	Status       models.BlockRequestStatus `json:"status"`
	AdminID      *int64                    `json:"admin_id,omitempty"`
	AdminComment string                    `json:"admin_comment,omitempty"`
	CreatedAt    time.Time                 `json:"created_at"`
	ProcessedAt  *time.Time                `json:"processed_at,omitempty"`
}

// BlockRequestService owns the card-block-request workflow: a user asks
// for one of their cards to be blocked, an admin approves (blocking the
// card) or rejects, either way with a comment.
type BlockRequestService struct {
	requests BlockRequestStore
	cards    CardStore
	enc      *cardcrypt.Encryptor
	log      *logrus.Logger
}

// NewBlockRequestService initializes a new block request service
func NewBlockRequestService(requests BlockRequestStore, cards CardStore, enc *cardcrypt.Encryptor, log *logrus.Logger) *BlockRequestService {
	return &BlockRequestService{requests: requests, cards: cards, enc: enc, log: log}
}

// RequestBlock files a block request for the requester's own card. At most
// one pending request per card and user may exist.
func (s *BlockRequestService) RequestBlock(ctx context.Context, cardID int64, requester *models.User) (*BlockRequestView, error) {
	card, err := s.cards.FindCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if card.OwnerID != requester.ID {
		return nil, models.ErrNoAccess
	}

	existing, err := s.requests.FindBlockRequestsByUser(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	for _, r := range existing {
		if r.CardID == cardID && r.Status == models.BlockRequestPending {
			return nil, models.ErrBlockRequestExists
		}
	}

	req := &models.CardBlockRequest{
		CardID:    cardID,
		UserID:    requester.ID,
		Status:    models.BlockRequestPending,
		CreatedAt: time.Now(),
	}
	if err := s.requests.CreateBlockRequest(ctx, req); err != nil {
		return nil, err
	}

	s.log.Infof("Block request %d filed for card %d by user %d", req.ID, cardID, requester.ID)
	return s.toView(ctx, req), nil
}

// ListUserRequests returns the requester's own block requests.
func (s *BlockRequestService) ListUserRequests(ctx context.Context, requester *models.User) ([]*BlockRequestView, error) {
	reqs, err := s.requests.FindBlockRequestsByUser(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, reqs), nil
}

// ListAllRequests returns every block request. Admin only.
func (s *BlockRequestService) ListAllRequests(ctx context.Context, requester *models.User) ([]*BlockRequestView, error) {
	if !requester.Roles.IsAdmin() {
		return nil, models.ErrNoAccess
	}
	reqs, err := s.requests.FindAllBlockRequests(ctx)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, reqs), nil
}

// Approve marks a pending request APPROVED and blocks the card. Admin only.
func (s *BlockRequestService) Approve(ctx context.Context, requestID int64, admin *models.User, comment string) (*BlockRequestView, error) {
	req, err := s.processRequest(ctx, requestID, admin, comment, models.BlockRequestApproved)
	if err != nil {
		return nil, err
	}

	card, err := s.cards.FindCardByID(ctx, req.CardID)
	if err != nil {
		return nil, err
	}
	card.Status = models.CardBlocked
	if err := s.cards.SaveCard(ctx, card); err != nil {
		return nil, err
	}

	s.log.Infof("Block request %d approved by admin %d, card %d blocked", req.ID, admin.ID, req.CardID)
	return s.toView(ctx, req), nil
}

// Reject marks a pending request REJECTED; the card stays as it is. Admin
// only.
func (s *BlockRequestService) Reject(ctx context.Context, requestID int64, admin *models.User, comment string) (*BlockRequestView, error) {
	req, err := s.processRequest(ctx, requestID, admin, comment, models.BlockRequestRejected)
	if err != nil {
		return nil, err
	}

	s.log.Infof("Block request %d rejected by admin %d", req.ID, admin.ID)
	return s.toView(ctx, req), nil
}

func (s *BlockRequestService) processRequest(ctx context.Context, requestID int64, admin *models.User, comment string, status models.BlockRequestStatus) (*models.CardBlockRequest, error) {
	if !admin.Roles.IsAdmin() {
		return nil, models.ErrNoAccess
	}
	req, err := s.requests.FindBlockRequestByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.BlockRequestPending {
		return nil, models.ErrBlockRequestProcessed
	}

	now := time.Now()
	adminID := admin.ID
	req.Status = status
	req.ProcessedAt = &now
	req.AdminComment = comment
	req.AdminID = &adminID
	if err := s.requests.SaveBlockRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// toView resolves the masked card number. A card deleted since the request
// was filed renders as fully masked rather than failing the listing.
func (s *BlockRequestService) toView(ctx context.Context, req *models.CardBlockRequest) *BlockRequestView {
	masked := "****"
	if card, err := s.cards.FindCardByID(ctx, req.CardID); err == nil {
		if pan, err := s.enc.Decrypt(card.Number); err == nil {
			masked = cardcrypt.MaskPAN(pan)
		}
	}
	return &BlockRequestView{
		ID:           req.ID,
		CardID:       req.CardID,
		MaskedNumber: masked,
		UserID:       req.UserID,
		Status:       req.Status,
		AdminID:      req.AdminID,
		AdminComment: req.AdminComment,
		CreatedAt:    req.CreatedAt,
		ProcessedAt:  req.ProcessedAt,
	}
}

func (s *BlockRequestService) toViews(ctx context.Context, reqs []*models.CardBlockRequest) []*BlockRequestView {
	views := make([]*BlockRequestView, 0, len(reqs))
	for _, r := range reqs {
		views = append(views, s.toView(ctx, r))
	}
	return views
}
