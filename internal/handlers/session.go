package handlers

import (
	"borneo/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GetSessionIDFromSession returns the translator session id of the browser,
// issuing a new one on first contact.
func GetSessionIDFromSession(c *gin.Context) (string, error) {
	session := sessions.Default(c)
	if id, ok := session.Get(middleware.SessionIDKey).(string); ok && id != "" {
		return id, nil
	}

	id := uuid.NewString()
	session.Set(middleware.SessionIDKey, id)
	if err := session.Save(); err != nil {
		return "", err
	}
	return id, nil
}

// GetAdminFromSession returns the logged in admin username
func GetAdminFromSession(c *gin.Context) (string, bool) {
	username, ok := sessions.Default(c).Get(middleware.AdminUsernameKey).(string)
	if !ok || username == "" {
		return "", false
	}
	return username, true
}
