package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type tags carried in the typeToken claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	// ErrTokenInvalid means the token is malformed or its signature does
	// not verify. No claims can be trusted.
	ErrTokenInvalid = errors.New("token is invalid")
	// ErrTokenExpired means the token verified but is past its expiry.
	// Claims are still returned alongside this error: the refresh flow
	// needs the subject out of an expired access token.
	ErrTokenExpired = errors.New("token has expired")
	// ErrRefreshInvalid means a refresh token failed validation: bad
	// signature, expired, unknown subject, or a rotation sequence that no
	// longer matches the stored one.
	ErrRefreshInvalid = errors.New("refresh token is invalid")
)

// Claims is the token payload: standard registered claims plus the token
// type tag and, for refresh tokens, the rotation sequence captured at
// issuance.
type Claims struct {
	TokenType  string `json:"typeToken"`
	RefreshSeq string `json:"refreshSequence,omitempty"`
	jwt.RegisteredClaims
}

// Codec creates and parses HMAC-signed tokens over a single shared secret.
type Codec struct {
	secret []byte
}

// NewCodec creates a new codec
func NewCodec(secret []byte) *Codec {
	return &Codec{secret: secret}
}

// Issue produces a signed token with iat = nbf = now and exp = now + ttl.
// refreshSeq is only set for refresh tokens.
func (c *Codec) Issue(subject, tokenType string, ttl time.Duration, refreshSeq string) (string, error) {
	now := time.Now()
	claims := Claims{
		TokenType:  tokenType,
		RefreshSeq: refreshSeq,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(c.secret)
}

// Parse verifies signature and structure. Three outcomes:
//   - valid: claims, nil
//   - expired but otherwise well-formed: claims, ErrTokenExpired
//   - malformed or bad signature: nil, ErrTokenInvalid
func (c *Codec) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return c.secret, nil
	})

	if err != nil {
		// An expired token still had its signature verified and its
		// claims decoded; surface them with the expiry signal.
		if errors.Is(err, jwt.ErrTokenExpired) {
			return claims, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	if !tok.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
