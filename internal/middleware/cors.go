package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int
}

func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
			"Authorization",
			"X-Requested-With",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			HeaderXRequestID,
		},
		AllowCredentials: true,
		MaxAge:           86400,
	}
}

// CORSConfigFor overlays the deployment's allowed origins on the default
// method and header sets. An empty list keeps the wildcard.
func CORSConfigFor(origins []string) CORSConfig {
	config := DefaultCORSConfig()
	if len(origins) > 0 {
		config.AllowOrigins = origins
	}
	return config
}

// CORS answers cross-origin requests for the configured origins. Requests
// from origins outside the list receive no CORS headers, so the browser
// refuses them.
func CORS(config CORSConfig) gin.HandlerFunc {
	allowMethods := strings.Join(config.AllowMethods, ", ")
	allowHeaders := strings.Join(config.AllowHeaders, ", ")
	exposeHeaders := strings.Join(config.ExposeHeaders, ", ")
	maxAge := strconv.Itoa(config.MaxAge)

	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			if allowed, ok := resolveOrigin(config, origin); ok {
				c.Header("Access-Control-Allow-Origin", allowed)
				c.Header("Access-Control-Allow-Methods", allowMethods)
				c.Header("Access-Control-Allow-Headers", allowHeaders)
				c.Header("Access-Control-Expose-Headers", exposeHeaders)
				c.Header("Access-Control-Max-Age", maxAge)
				if config.AllowCredentials {
					c.Header("Access-Control-Allow-Credentials", "true")
				}
			}
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// resolveOrigin returns the Allow-Origin value for the request origin. A
// wildcard entry echoes the origin when credentials are allowed, since
// browsers reject "*" on credentialed responses.
func resolveOrigin(config CORSConfig, origin string) (string, bool) {
	for _, o := range config.AllowOrigins {
		switch {
		case o == "*" && config.AllowCredentials:
			return origin, true
		case o == "*":
			return "*", true
		case o == origin:
			return o, true
		}
	}
	return "", false
}
