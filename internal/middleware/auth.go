// Package middleware carries the per-request authentication gate. The
// decision ("who is this, and did we rotate their tokens") is separated
// from the side effect (rewriting response cookies): Authenticator decides,
// the mux middleware applies.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/venyaka/Bank-REST/internal/models"
	"github.com/venyaka/Bank-REST/internal/token"
	"github.com/sirupsen/logrus"
)

// Cookie names shared with the login handler.
const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

type contextKey string

const principalKey contextKey = "principal"

// Principal is the authenticated identity established for a request, with
// its capability set resolved once up front.
type Principal struct {
	User  *models.User
	Roles models.RoleSet
}

// RequestTokens is what the transport extracted from the inbound request.
type RequestTokens struct {
	AccessToken  string
	RefreshToken string
}

// AuthResult is the gate's decision. Principal is nil for anonymous
// requests. RotatedPair is non-nil only when a silent refresh succeeded
// and the transport must rewrite both cookies.
type AuthResult struct {
	Principal   *Principal
	RotatedPair *token.Pair
}

// Authenticator turns request tokens into an AuthResult.
type Authenticator struct {
	tokens *token.Manager
	users  token.IdentityStore
	log    *logrus.Logger
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(tokens *token.Manager, users token.IdentityStore, log *logrus.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, log: log}
}

// Authenticate runs the single-pass gate procedure:
//
//  1. no access token -> anonymous (many routes are public);
//  2. valid access token -> principal from its subject;
//  3. access token expired (specifically, not invalid) and a refresh token
//     present -> validate it, rotate, principal from the rotated pair;
//  4. anything failing in the refresh sub-path is swallowed and the
//     request proceeds anonymous. A failed silent refresh never fails the
//     original request; rejection is deferred to authorization downstream.
func (a *Authenticator) Authenticate(ctx context.Context, reqTokens RequestTokens) AuthResult {
	if reqTokens.AccessToken == "" {
		return AuthResult{}
	}

	email, err := a.tokens.ValidateAccess(reqTokens.AccessToken)
	if err == nil {
		if p := a.loadPrincipal(ctx, email); p != nil {
			return AuthResult{Principal: p}
		}
		return AuthResult{}
	}

	if !errors.Is(err, token.ErrTokenExpired) || reqTokens.RefreshToken == "" {
		return AuthResult{}
	}

	// Silent refresh: best effort, fail open to anonymous.
	email, err = a.tokens.ValidateRefresh(ctx, reqTokens.RefreshToken)
	if err != nil {
		a.log.Debugf("Silent refresh rejected: %v", err)
		return AuthResult{}
	}

	user, pair, err := a.tokens.Rotate(ctx, email)
	if err != nil {
		a.log.Debugf("Silent refresh rotation failed: %v", err)
		return AuthResult{}
	}

	return AuthResult{
		Principal:   &Principal{User: user, Roles: user.Roles},
		RotatedPair: pair,
	}
}

func (a *Authenticator) loadPrincipal(ctx context.Context, email string) *Principal {
	user, err := a.users.FindUserByEmail(ctx, email)
	if err != nil {
		a.log.Debugf("Authenticated subject %s not found: %v", email, err)
		return nil
	}
	return &Principal{User: user, Roles: user.Roles}
}

// exemptPrefixes bypass the gate entirely: authorization endpoints and
// static documentation.
var exemptPrefixes = []string{
	"/authorize",
	"/swagger",
	"/favicon.ico",
	"/static",
}

func exempt(path string) bool {
	for _, prefix := range exemptPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// AuthMiddleware wires the gate into the router: extract tokens from
// cookies or bearer headers, authenticate, install rotated cookies, stash
// the principal in the request context.
func AuthMiddleware(auth *Authenticator, tokens *token.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if exempt(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			result := auth.Authenticate(r.Context(), ExtractTokens(r))

			if result.RotatedPair != nil {
				SetAuthCookies(w, result.RotatedPair, tokens.AccessTTL(), tokens.RefreshTTL())
			}
			if result.Principal != nil {
				ctx := context.WithValue(r.Context(), principalKey, result.Principal)
				r = r.WithContext(ctx)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ExtractTokens reads the access token from its cookie or the
// Authorization bearer header, and the refresh token from its cookie or
// the Refresh bearer header.
func ExtractTokens(r *http.Request) RequestTokens {
	var rt RequestTokens

	if c, err := r.Cookie(AccessCookie); err == nil {
		rt.AccessToken = c.Value
	}
	if rt.AccessToken == "" {
		rt.AccessToken = bearerToken(r.Header.Get("Authorization"))
	}

	if c, err := r.Cookie(RefreshCookie); err == nil {
		rt.RefreshToken = c.Value
	}
	if rt.RefreshToken == "" {
		rt.RefreshToken = bearerToken(r.Header.Get("Refresh"))
	}

	return rt
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimPrefix(header, prefix)
	}
	return ""
}

// PrincipalFromContext returns the authenticated principal, or nil for an
// anonymous request.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalKey).(*Principal)
	return p
}
