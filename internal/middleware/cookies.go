package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/arena-session-api/pkg/config"
)

// Cookie and header names shared with the web client.
const (
	RefreshTokenCookie = "refreshToken"
	XSRFTokenCookie    = "xsrf-token"
	AuthTokenCookie    = "auth-token"
	XSRFTokenHeader    = "X-XSRF-Token"
)

func (p *AuthPipeline) writeSessionCookies(c *gin.Context, tokens IssuedTokens) {
	http.SetCookie(c.Writer, p.refreshCookie(p.signer.Sign(tokens.Refresh), 0))
	http.SetCookie(c.Writer, p.clientCookie(XSRFTokenCookie, tokens.Access.CSRFToken, 0))
	http.SetCookie(c.Writer, p.clientCookie(AuthTokenCookie, tokens.Access.Token, 0))
}

func (p *AuthPipeline) clearSessionCookies(c *gin.Context) {
	http.SetCookie(c.Writer, p.refreshCookie("", -1))
	http.SetCookie(c.Writer, p.clientCookie(XSRFTokenCookie, "", -1))
	http.SetCookie(c.Writer, p.clientCookie(AuthTokenCookie, "", -1))
}

// refreshCookie is HTTP-only and scoped by the configured attributes.
func (p *AuthPipeline) refreshCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshTokenCookie,
		Value:    value,
		Path:     p.cookies.Path,
		Domain:   p.cookies.Domain,
		MaxAge:   maxAge,
		Secure:   p.cookies.Secure,
		HttpOnly: true,
		SameSite: p.cookies.SameSite,
	}
}

// clientCookie is readable by scripts so the client can echo the CSRF token.
func (p *AuthPipeline) clientCookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   p.cookies.Domain,
		MaxAge:   maxAge,
		Secure:   p.cookies.Secure,
		SameSite: p.cookies.SameSite,
	}
}

// bearerToken reads the access token from the Authorization header, falling
// back to the auth-token cookie.
func bearerToken(c *gin.Context) string {
	token := c.GetHeader("Authorization")
	if token == "" {
		token, _ = c.Cookie(AuthTokenCookie)
	}
	return strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
}

// csrfToken reads the CSRF token from the X-XSRF-Token header, falling back to
// the xsrf-token cookie.
func csrfToken(c *gin.Context) string {
	token := c.GetHeader(XSRFTokenHeader)
	if token == "" {
		token, _ = c.Cookie(XSRFTokenCookie)
	}
	return token
}

func cookieConfigOrDefault(cfg config.CookieConfig) config.CookieConfig {
	if cfg.Path == "" {
		cfg.Path = "/"
	}
	return cfg
}
