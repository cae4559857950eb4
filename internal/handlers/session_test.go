package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"borneo/internal/middleware"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	store := cookie.NewStore([]byte("test-secret"))
	r.Use(sessions.Sessions("test-session", store))
	return r
}

func TestGetSessionIDFromSession_IssuedOnceAndStable(t *testing.T) {
	router := setupSessionTestRouter()
	router.GET("/id", func(c *gin.Context) {
		id, err := GetSessionIDFromSession(c)
		require.NoError(t, err)
		c.JSON(http.StatusOK, gin.H{"id": id})
	})

	req, _ := http.NewRequest("GET", "/id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var first map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.NotEmpty(t, first["id"])
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req, _ = http.NewRequest("GET", "/id", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var second map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))
	assert.Equal(t, first["id"], second["id"])

	// A fresh browser gets its own id
	req, _ = http.NewRequest("GET", "/id", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	var other map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &other))
	assert.NotEqual(t, first["id"], other["id"])
}

func TestGetAdminFromSession(t *testing.T) {
	router := setupSessionTestRouter()
	router.GET("/anonymous", func(c *gin.Context) {
		name, ok := GetAdminFromSession(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "name": name})
	})
	router.GET("/admin", func(c *gin.Context) {
		session := sessions.Default(c)
		session.Set(middleware.AdminUsernameKey, "pengurus")
		_ = session.Save()
		name, ok := GetAdminFromSession(c)
		c.JSON(http.StatusOK, gin.H{"ok": ok, "name": name})
	})

	for path, want := range map[string]string{"/anonymous": "", "/admin": "pengurus"} {
		req, _ := http.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, want != "", resp["ok"], path)
		assert.Equal(t, want, resp["name"], path)
	}
}
