package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CardStatus is the card lifecycle state. ACTIVE and BLOCKED toggle;
// EXPIRED is one-way and time-triggered.
type CardStatus string

const (
	CardActive  CardStatus = "ACTIVE"
	CardBlocked CardStatus = "BLOCKED"
	CardExpired CardStatus = "EXPIRED"
)

// Card represents a bank card. Number holds the AES-encrypted PAN as
// stored; it is only ever decrypted for masking in responses.
type Card struct {
	ID         int64           `json:"id"`
	OwnerID    int64           `json:"owner_id"`
	Number     string          `json:"-"` // Encrypted at rest, never serialized
	ExpireDate time.Time       `json:"expire_date"`
	Status     CardStatus      `json:"status"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Expired reports whether the card's expiry date has passed at the given
// instant. Status transitions derived from this are applied lazily on
// read paths.
func (c *Card) Expired(now time.Time) bool {
	return c.ExpireDate.Before(now.Truncate(24 * time.Hour))
}
