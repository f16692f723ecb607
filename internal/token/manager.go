package token

import (
	"context"
	"fmt"
	"time"

	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/venyaka/Bank-REST/internal/utils"
	"github.com/sirupsen/logrus"
)

// Rotation sequences are opaque random values; length matches the email
// verification tokens.
const sequenceLength = 50

// IdentityStore is the slice of user persistence the token lifecycle
// needs: lookup by email and the rotation-sequence writes.
type IdentityStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	// SetRefreshSequence stores a new rotation sequence unconditionally
	// (login grants a fresh one regardless of the previous value; logout
	// clears it).
	SetRefreshSequence(ctx context.Context, email, seq string) error
	// SwapRefreshSequence stores newSeq only if the currently stored
	// sequence still equals oldSeq, reporting whether the swap happened.
	// This compare-and-swap is what serializes concurrent rotations.
	SwapRefreshSequence(ctx context.Context, email, oldSeq, newSeq string) (bool, error)
}

// Pair is a freshly issued access/refresh token pair.
type Pair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Manager orchestrates issuance, validation and rotation of token pairs.
// It keeps no state of its own: a refresh token is revoked purely by the
// stored rotation sequence moving past the one embedded in it.
type Manager struct {
	codec      *Codec
	users      IdentityStore
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        *logrus.Logger
}

// NewManager initializes a new token manager
func NewManager(codec *Codec, users IdentityStore, accessTTL, refreshTTL time.Duration, log *logrus.Logger) *Manager {
	return &Manager{
		codec:      codec,
		users:      users,
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// AccessTTL returns the access token lifetime (the cookie max-age).
func (m *Manager) AccessTTL() time.Duration { return m.accessTTL }

// RefreshTTL returns the refresh token lifetime (the cookie max-age).
func (m *Manager) RefreshTTL() time.Duration { return m.refreshTTL }

// IssueAccessToken issues a short-lived access token for the user.
func (m *Manager) IssueAccessToken(user *models.User) (string, error) {
	return m.codec.Issue(user.Email, TypeAccess, m.accessTTL, "")
}

// IssueRefreshToken issues a long-lived refresh token embedding the user's
// current rotation sequence.
func (m *Manager) IssueRefreshToken(user *models.User) (string, error) {
	return m.codec.Issue(user.Email, TypeRefresh, m.refreshTTL, user.RefreshSeq)
}

// Grant assigns the user a fresh rotation sequence and issues a new token
// pair. Used on login; any previously issued refresh token dies with the
// old sequence.
func (m *Manager) Grant(ctx context.Context, user *models.User) (*Pair, error) {
	seq, err := randomSequence()
	if err != nil {
		return nil, err
	}
	if err := m.users.SetRefreshSequence(ctx, user.Email, seq); err != nil {
		return nil, fmt.Errorf("failed to store rotation sequence: %w", err)
	}
	user.RefreshSeq = seq
	return m.issuePair(user)
}

// ValidateAccess verifies an access token and returns its subject email.
// Callers must distinguish ErrTokenExpired (well-formed, past expiry) from
// ErrTokenInvalid (garbage or bad signature): only the former may enter
// the refresh path.
func (m *Manager) ValidateAccess(tokenString string) (string, error) {
	claims, err := m.codec.Parse(tokenString)
	if err != nil {
		return "", err
	}
	if claims.TokenType != TypeAccess {
		return "", ErrTokenInvalid
	}
	return claims.Subject, nil
}

// ValidateRefresh verifies a refresh token: signature and expiry are both
// fatal, the subject must resolve to a known user, and the embedded
// rotation sequence must equal the stored one. The sequence equality check
// is the sole revocation mechanism; there is no blacklist.
func (m *Manager) ValidateRefresh(ctx context.Context, tokenString string) (string, error) {
	claims, err := m.codec.Parse(tokenString)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefreshInvalid, err)
	}
	if claims.TokenType != TypeRefresh {
		return "", ErrRefreshInvalid
	}

	user, err := m.users.FindUserByEmail(ctx, claims.Subject)
	if err != nil {
		return "", ErrRefreshInvalid
	}
	if user.RefreshSeq == "" || user.RefreshSeq != claims.RefreshSeq {
		return "", ErrRefreshInvalid
	}

	return claims.Subject, nil
}

// Rotate replaces the user's rotation sequence and issues a new token
// pair. The sequence update is a compare-and-swap against the value read
// here: if a concurrent rotation got there first, this one loses and the
// caller degrades to unauthenticated.
func (m *Manager) Rotate(ctx context.Context, email string) (*models.User, *Pair, error) {
	user, err := m.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, nil, ErrRefreshInvalid
	}

	seq, err := randomSequence()
	if err != nil {
		return nil, nil, err
	}

	swapped, err := m.users.SwapRefreshSequence(ctx, email, user.RefreshSeq, seq)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to rotate sequence: %w", err)
	}
	if !swapped {
		m.log.Warnf("Lost rotation race for %s", email)
		return nil, nil, ErrRefreshInvalid
	}

	user.RefreshSeq = seq
	pair, err := m.issuePair(user)
	if err != nil {
		return nil, nil, err
	}

	m.log.Infof("Rotated token pair for %s", email)
	return user, pair, nil
}

// Revoke clears the stored rotation sequence so every outstanding refresh
// token fails validation. Used on logout.
func (m *Manager) Revoke(ctx context.Context, email string) error {
	return m.users.SetRefreshSequence(ctx, email, "")
}

func (m *Manager) issuePair(user *models.User) (*Pair, error) {
	access, err := m.IssueAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refresh, err := m.IssueRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return &Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func randomSequence() (string, error) {
	seq, err := utils.RandomAlphanumeric(sequenceLength)
	if err != nil {
		return "", fmt.Errorf("failed to generate rotation sequence: %w", err)
	}
	return seq, nil
}
