package service

import (
	"context"
	"fmt"
	"time"

	"github.com/venyaka/Bank-REST/internal/cardcrypt"
	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/venyaka/Bank-REST/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// CardStore is the card persistence the service needs. FindCardByID
// returns models.ErrCardNotFound for a missing card. UpdateBalances must
// commit both rows atomically: either both balances change or neither.
type CardStore interface {
	FindCardByID(ctx context.Context, id int64) (*models.Card, error)
	FindCardsByOwner(ctx context.Context, ownerID int64) ([]*models.Card, error)
	FindAllCards(ctx context.Context) ([]*models.Card, error)
	// SearchCards returns one page of the owner's cards whose status
	// matches the query (empty query matches all), plus the total count.
	SearchCards(ctx context.Context, ownerID int64, query string, limit, offset int) ([]*models.Card, int64, error)
	CreateCard(ctx context.Context, card *models.Card) error
	SaveCard(ctx context.Context, card *models.Card) error
	DeleteCard(ctx context.Context, card *models.Card) error
	UpdateBalances(ctx context.Context, from, to *models.Card) error
}

// UserStore is the user persistence shared by the card, auth and user
// services.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)
	FindAllUsers(ctx context.Context) ([]*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, user *models.User) error
}

// CardView is the presentation form of a card: PAN decrypted and masked,
// never the full number.
type CardView struct {
	ID           int64             `json:"id"`
	MaskedNumber string            `json:"masked_card_number"`
	OwnerID      int64             `json:"owner_id"`
	ExpireDate   time.Time         `json:"expire_date"`
	Status       models.CardStatus `json:"status"`
	Balance      decimal.Decimal   `json:"balance"`
}

// BalanceView is the balance read model.
type BalanceView struct {
	CardID  int64             `json:"card_id"`
	Balance decimal.Decimal   `json:"balance"`
	Status  models.CardStatus `json:"status"`
}

// CardPage is one page of a card search result.
type CardPage struct {
	Items      []*CardView `json:"items"`
	Page       int         `json:"page"`
	Size       int         `json:"size"`
	TotalItems int64       `json:"total_items"`
	TotalPages int         `json:"total_pages"`
}

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// CardService owns card lifecycle and money movement.
type CardService struct {
	cards           CardStore
	users           UserStore
	enc             *cardcrypt.Encryptor
	locks           *cardLocks
	expirationYears int
	log             *logrus.Logger
}

// NewCardService initializes a new card service
func NewCardService(cards CardStore, users UserStore, enc *cardcrypt.Encryptor, expirationYears int, log *logrus.Logger) *CardService {
	return &CardService{
		cards:           cards,
		users:           users,
		enc:             enc,
		locks:           newCardLocks(),
		expirationYears: expirationYears,
		log:             log,
	}
}

// CreateCard issues a new card for the given owner: generated Luhn-valid
// number, encrypted at rest, zero balance, active status.
func (s *CardService) CreateCard(ctx context.Context, ownerID int64) (*CardView, error) {
	owner, err := s.users.FindUserByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	number, err := utils.GenerateCardNumber()
	if err != nil {
		return nil, fmt.Errorf("failed to generate card number: %w", err)
	}

	encrypted, err := s.enc.Encrypt(number)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		OwnerID:    owner.ID,
		Number:     encrypted,
		ExpireDate: time.Now().AddDate(s.expirationYears, 0, 0),
		Status:     models.CardActive,
		Balance:    decimal.Zero,
	}
	if err := s.cards.CreateCard(ctx, card); err != nil {
		return nil, err
	}

	s.log.Infof("Card %d created for user %d", card.ID, owner.ID)
	return s.toView(card)
}

// GetCard returns a single card for its owner or an admin.
func (s *CardService) GetCard(ctx context.Context, cardID int64, requester *models.User) (*CardView, error) {
	card, err := s.getOwnedCard(ctx, cardID, requester)
	if err != nil {
		return nil, err
	}
	if err := s.refreshStatus(ctx, card); err != nil {
		return nil, err
	}
	return s.toView(card)
}

// ListCards returns all cards of the requester.
func (s *CardService) ListCards(ctx context.Context, requester *models.User) ([]*CardView, error) {
	cards, err := s.cards.FindCardsByOwner(ctx, requester.ID)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, cards)
}

// ListAllCards returns every card in the system. Admin only.
func (s *CardService) ListAllCards(ctx context.Context, requester *models.User) ([]*CardView, error) {
	if !requester.Roles.IsAdmin() {
		return nil, models.ErrNoAccess
	}
	cards, err := s.cards.FindAllCards(ctx)
	if err != nil {
		return nil, err
	}
	return s.toViews(ctx, cards)
}

// SearchCards returns a page of the requester's cards filtered by status.
// The query matches the card status (case-insensitive substring); card
// numbers are encrypted at rest and cannot be searched.
func (s *CardService) SearchCards(ctx context.Context, requester *models.User, query string, page, size int) (*CardPage, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	cards, total, err := s.cards.SearchCards(ctx, requester.ID, query, size, page*size)
	if err != nil {
		return nil, err
	}
	views, err := s.toViews(ctx, cards)
	if err != nil {
		return nil, err
	}

	return &CardPage{
		Items:      views,
		Page:       page,
		Size:       size,
		TotalItems: total,
		TotalPages: int((total + int64(size) - 1) / int64(size)),
	}, nil
}

// BlockCard moves an active card to BLOCKED.
func (s *CardService) BlockCard(ctx context.Context, cardID int64, requester *models.User) error {
	card, err := s.getOwnedCard(ctx, cardID, requester)
	if err != nil {
		return err
	}
	card.Status = models.CardBlocked
	return s.cards.SaveCard(ctx, card)
}

// ActivateCard moves a blocked card back to ACTIVE. Expiry is one-way:
// an expired card cannot be reactivated by the toggle.
func (s *CardService) ActivateCard(ctx context.Context, cardID int64, requester *models.User) error {
	card, err := s.getOwnedCard(ctx, cardID, requester)
	if err != nil {
		return err
	}
	if err := s.refreshStatus(ctx, card); err != nil {
		return err
	}
	if card.Status == models.CardExpired {
		return models.ErrCardExpired
	}
	card.Status = models.CardActive
	return s.cards.SaveCard(ctx, card)
}

// DeleteCard removes a card.
func (s *CardService) DeleteCard(ctx context.Context, cardID int64, requester *models.User) error {
	card, err := s.getOwnedCard(ctx, cardID, requester)
	if err != nil {
		return err
	}
	return s.cards.DeleteCard(ctx, card)
}

// GetBalance returns the card's balance and current status.
func (s *CardService) GetBalance(ctx context.Context, cardID int64, requester *models.User) (*BalanceView, error) {
	card, err := s.getOwnedCard(ctx, cardID, requester)
	if err != nil {
		return nil, err
	}
	if err := s.refreshStatus(ctx, card); err != nil {
		return nil, err
	}
	return &BalanceView{CardID: card.ID, Balance: card.Balance, Status: card.Status}, nil
}

// SetBalance overwrites a card's balance. Admin only.
func (s *CardService) SetBalance(ctx context.Context, cardID int64, balance decimal.Decimal, requester *models.User) error {
	if !requester.Roles.IsAdmin() {
		return models.ErrNoAccess
	}
	card, err := s.cards.FindCardByID(ctx, cardID)
	if err != nil {
		return err
	}
	card.Balance = balance
	return s.cards.SaveCard(ctx, card)
}

// Transfer moves amount between two cards of the same owner. The
// read-check-write runs with both cards locked in ascending id order, so
// concurrent transfers over an overlapping pair serialize and cannot
// double-spend. The two balance writes commit as one unit in the store.
//
// Transfers between different owners are never permitted, elevated
// privileges included.
func (s *CardService) Transfer(ctx context.Context, fromID, toID int64, amount decimal.Decimal, requester *models.User) error {
	// Also keeps lockPair from locking the same card twice.
	if fromID == toID {
		return models.ErrSameCardTransfer
	}
	// Validated upstream, but money movement never trusts the caller.
	if !amount.IsPositive() {
		return models.ErrInvalidAmount
	}

	unlock := s.locks.lockPair(fromID, toID)
	defer unlock()

	from, err := s.getOwnedCard(ctx, fromID, requester)
	if err != nil {
		return err
	}
	to, err := s.getOwnedCard(ctx, toID, requester)
	if err != nil {
		return err
	}

	if from.OwnerID != requester.ID || to.OwnerID != requester.ID {
		return models.ErrOnlyOwnCardsTransfer
	}

	if err := s.refreshStatus(ctx, from); err != nil {
		return err
	}
	if err := s.refreshStatus(ctx, to); err != nil {
		return err
	}

	if from.Status == models.CardBlocked {
		return models.ErrFromCardBlocked
	}
	if to.Status == models.CardBlocked {
		return models.ErrToCardBlocked
	}
	if from.Status == models.CardExpired {
		return models.ErrFromCardExpired
	}
	if to.Status == models.CardExpired {
		return models.ErrToCardExpired
	}
	if from.Balance.LessThan(amount) {
		return models.ErrInsufficientFunds
	}

	from.Balance = from.Balance.Sub(amount)
	to.Balance = to.Balance.Add(amount)
	if err := s.cards.UpdateBalances(ctx, from, to); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}

	s.log.Infof("Transferred %s from card %d to card %d", amount.String(), fromID, toID)
	return nil
}

// refreshStatus applies the lazy one-way expiry transition before the
// card is used.
func (s *CardService) refreshStatus(ctx context.Context, card *models.Card) error {
	if card.Status != models.CardExpired && card.Expired(time.Now()) {
		card.Status = models.CardExpired
		if err := s.cards.SaveCard(ctx, card); err != nil {
			return err
		}
	}
	return nil
}

func (s *CardService) getOwnedCard(ctx context.Context, cardID int64, requester *models.User) (*models.Card, error) {
	card, err := s.cards.FindCardByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	if !requester.Roles.IsAdmin() && card.OwnerID != requester.ID {
		return nil, models.ErrNoAccess
	}
	return card, nil
}

func (s *CardService) toView(card *models.Card) (*CardView, error) {
	pan, err := s.enc.Decrypt(card.Number)
	if err != nil {
		return nil, err
	}
	return &CardView{
		ID:           card.ID,
		MaskedNumber: cardcrypt.MaskPAN(pan),
		OwnerID:      card.OwnerID,
		ExpireDate:   card.ExpireDate,
		Status:       card.Status,
		Balance:      card.Balance,
	}, nil
}

func (s *CardService) toViews(ctx context.Context, cards []*models.Card) ([]*CardView, error) {
	views := make([]*CardView, 0, len(cards))
	for _, card := range cards {
		if err := s.refreshStatus(ctx, card); err != nil {
			return nil, err
		}
		view, err := s.toView(card)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}
