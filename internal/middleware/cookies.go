package middleware

import (
	"net/http"
	"time"

	"github.com/venyaka/Bank-REST/internal/token"
)

// SetAuthCookies installs both tokens as HttpOnly, SameSite=Strict
// cookies. Rotation rewrites both on every successful silent refresh.
func SetAuthCookies(w http.ResponseWriter, pair *token.Pair, accessTTL, refreshTTL time.Duration) {
	http.SetCookie(w, authCookie(AccessCookie, pair.AccessToken, int(accessTTL.Seconds())))
	http.SetCookie(w, authCookie(RefreshCookie, pair.RefreshToken, int(refreshTTL.Seconds())))
}

// ClearAuthCookies expires both auth cookies, used on logout.
func ClearAuthCookies(w http.ResponseWriter) {
	http.SetCookie(w, authCookie(AccessCookie, "", -1))
	http.SetCookie(w, authCookie(RefreshCookie, "", -1))
}

func authCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		// Secure: true, // enable in production behind HTTPS
	}
}
