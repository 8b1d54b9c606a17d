package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func corsEngine(config CORSConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(CORS(config))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return engine
}

func doCORS(engine *gin.Engine, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/ping", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestCORSConfiguredOrigins(t *testing.T) {
	engine := corsEngine(CORSConfigFor([]string{"https://app.example.com"}))

	t.Run("allowed origin gets headers", func(t *testing.T) {
		rec := doCORS(engine, http.MethodGet, "https://app.example.com")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	})

	t.Run("unknown origin gets no headers", func(t *testing.T) {
		rec := doCORS(engine, http.MethodGet, "https://evil.example.com")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		rec := doCORS(engine, http.MethodOptions, "https://app.example.com")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Methods"))
	})
}

func TestCORSConfigFor(t *testing.T) {
	t.Run("empty list keeps the wildcard", func(t *testing.T) {
		config := CORSConfigFor(nil)
		assert.Equal(t, []string{"*"}, config.AllowOrigins)
	})

	t.Run("wildcard with credentials echoes the origin", func(t *testing.T) {
		engine := corsEngine(CORSConfigFor(nil))
		rec := doCORS(engine, http.MethodGet, "https://anything.example.com")
		assert.Equal(t, "https://anything.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})
}
