// Package middleware provides authentication, recovery and request validation middleware for the Gin web framework.
package middleware

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Session keys
const (
	// SessionIDKey holds the translator session id of a browser
	SessionIDKey = "session_id"
	// AdminUsernameKey is set once the admin has logged in
	AdminUsernameKey = "admin_username"
)

// RequireAdmin returns a middleware that requires a logged in administrator
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		username, ok := session.Get(AdminUsernameKey).(string)
		if !ok || username == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
				"code":  "UNAUTHORIZED",
			})
			c.Abort()
			return
		}

		// Store the admin in context for handlers to use
		c.Set(AdminUsernameKey, username)
		c.Next()
	}
}

// MaxBodySize rejects request bodies larger than limit bytes. limit <= 0 disables the check.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 && c.Request.Body != nil {
			if c.Request.ContentLength > limit {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{
					"error": "Request body too large",
					"code":  "INVALID_INPUT",
				})
				c.Abort()
				return
			}
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
