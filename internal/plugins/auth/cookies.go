package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Token cookie names.
const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"
	oauthStateCookie   = "oauth_state"
)

// CookieConfig controls the token cookies. Secure is on in production only.
type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// setTokenCookies writes both token cookies. They are HttpOnly and
// SameSite=Lax, which is what keeps them out of cross-site requests.
func (cc CookieConfig) setTokenCookies(c echo.Context, pair TokenPair) {
	c.SetCookie(cc.cookie(accessTokenCookie, pair.AccessToken, cc.AccessTTL))
	c.SetCookie(cc.cookie(refreshTokenCookie, pair.RefreshToken, cc.RefreshTTL))
}

// clearTokenCookies expires both token cookies.
func (cc CookieConfig) clearTokenCookies(c echo.Context) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		ck := cc.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
}

func (cc CookieConfig) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   cc.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	}
}

// readCookie returns the named cookie's value or "".
func readCookie(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}
