package middleware

import (
	"log"
	"net/http"

	"datapilot/domain/core"

	"github.com/gin-gonic/gin"
)

const (
	sessionKey = "session_id"
	tokenKey   = "auth_token"

	// AuthCookie carries the bearer token forwarded to the analytics backend
	AuthCookie = "auth_token"
)

// SessionOptions configures the session cookie
type SessionOptions struct {
	CookieName string
	MaxAge     int
	Secure     bool
}

// EnsureSession is middleware that binds every request to a browser session,
// issuing a new session cookie when the request has none or a malformed one
func EnsureSession(opts SessionOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		var id core.SessionID
		if raw, err := c.Cookie(opts.CookieName); err == nil {
			if parsed, perr := core.ParseSessionID(raw); perr == nil {
				id = parsed
			} else {
				log.Printf("[EnsureSession] Ignoring malformed session cookie: %v", perr)
			}
		}
		if id == "" {
			id = core.NewSessionID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(opts.CookieName, id.String(), opts.MaxAge, "/", "", opts.Secure, true)
		}
		c.Set(sessionKey, id)

		if token, err := c.Cookie(AuthCookie); err == nil && token != "" {
			c.Set(tokenKey, token)
		}

		c.Next()
	}
}

// SessionID returns the session bound by EnsureSession
func SessionID(c *gin.Context) core.SessionID {
	if v, ok := c.Get(sessionKey); ok {
		if id, ok := v.(core.SessionID); ok {
			return id
		}
	}
	return ""
}

// AuthToken returns the auth_token cookie value, if any
func AuthToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
