// Package middleware enforces the per-listener transport policy: TLS
// requirement and authentication (HTTP Basic or X-Auth-Token) ahead of the
// resource router.
package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"redfishd/services/account"
	"redfishd/services/session"
	"redfishd/services/tree"
)

// Policy is a listener's transport requirements, fixed at bind time.
type Policy struct {
	RequiresTLS  bool
	RequiresAuth bool
}

// Enforce validates a request against the listener policy before routing.
// Session creation is exempt from the auth check: it is the login
// operation and carries its credentials in the request body.
func Enforce(policy Policy, accounts *account.Service, sessions *session.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if policy.RequiresTLS && c.Request.TLS == nil {
			log.Println("Rejected plain-HTTP request on TLS-only listener")
			c.JSON(http.StatusForbidden, gin.H{"error": "TLS required"})
			c.Abort()
			return
		}

		if !policy.RequiresAuth {
			c.Next()
			return
		}

		if isLogin(c.Request) {
			c.Next()
			return
		}

		// Session token takes precedence over Basic credentials
		if token := c.GetHeader("X-Auth-Token"); token != "" {
			sess, err := sessions.GetByToken(token)
			if err != nil {
				log.Println("Rejected request with unknown session token")
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session token"})
				c.Abort()
				return
			}

			c.Set("auth_username", sess.Username)
			c.Set("auth_session_id", sess.ID)
			c.Next()
			return
		}

		username, password, ok := c.Request.BasicAuth()
		if !ok {
			log.Println("Missing credentials")
			challenge(c)
			return
		}

		if err := accounts.Verify(username, password); err != nil {
			if !errors.Is(err, account.ErrInvalidCredentials) {
				log.Printf("Account store error: %v", err)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "authentication unavailable"})
				c.Abort()
				return
			}
			log.Printf("Invalid credentials for user: %s", username)
			challenge(c)
			return
		}

		c.Set("auth_username", username)
		c.Next()
	}
}

// isLogin reports whether the request is a session-create (login) call.
func isLogin(r *http.Request) bool {
	return r.Method == http.MethodPost && tree.Normalize(r.URL.Path) == session.CollectionURI
}

// challenge rejects the request with a Basic auth challenge.
func challenge(c *gin.Context) {
	c.Header("WWW-Authenticate", `Basic realm="redfishd"`)
	c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
	c.Abort()
}
