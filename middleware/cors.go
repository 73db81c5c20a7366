// middleware/cors.go
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowAllOrigins  bool
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSConfig returns default CORS configuration
func DefaultCORSConfig() CORSConfig {
	return CORSConfig{
		AllowAllOrigins: false,
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:8080",
			"https://memorybox.app",
			"https://www.memorybox.app",
			"https://admin.memorybox.app",
		},
		AllowMethods: []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Length",
			"Content-Type",
			"Authorization",
			"Accept",
			"Cache-Control",
			"X-Requested-With",
			"X-Request-ID",
		},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
			"X-RateLimit-Remaining",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// ProductionCORSConfig returns production-safe CORS configuration
func ProductionCORSConfig() CORSConfig {
	config := DefaultCORSConfig()
	config.AllowOrigins = []string{
		"https://memorybox.app",
		"https://www.memorybox.app",
		"https://admin.memorybox.app",
	}
	config.MaxAge = 24 * time.Hour
	return config
}

// CORS returns a CORS middleware with the given configuration
func CORS(config CORSConfig) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Handle preflight requests
		if c.Request.Method == "OPTIONS" {
			handlePreflightRequest(c, config, origin)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		handleActualRequest(c, config, origin)

		c.Next()
	})
}

// handlePreflightRequest handles CORS preflight requests
func handlePreflightRequest(c *gin.Context, config CORSConfig, origin string) {
	if !isOriginAllowed(config, origin) {
		logrus.Warnf("CORS: Origin not allowed: %s", origin)
		return
	}

	setAllowOrigin(c, config, origin)

	if config.AllowCredentials {
		c.Header("Access-Control-Allow-Credentials", "true")
	}

	c.Header("Access-Control-Allow-Methods", strings.Join(config.AllowMethods, ", "))

	if len(config.AllowHeaders) > 0 {
		c.Header("Access-Control-Allow-Headers", strings.Join(config.AllowHeaders, ", "))
	}

	if config.MaxAge > 0 {
		c.Header("Access-Control-Max-Age", strconv.Itoa(int(config.MaxAge.Seconds())))
	}
}

// handleActualRequest handles CORS for actual requests
func handleActualRequest(c *gin.Context, config CORSConfig, origin string) {
	if !isOriginAllowed(config, origin) {
		return
	}

	setAllowOrigin(c, config, origin)

	if config.AllowCredentials {
		c.Header("Access-Control-Allow-Credentials", "true")
	}

	if len(config.ExposeHeaders) > 0 {
		c.Header("Access-Control-Expose-Headers", strings.Join(config.ExposeHeaders, ", "))
	}

	// Vary ensures caches key on the requesting origin
	c.Header("Vary", "Origin")
}

func setAllowOrigin(c *gin.Context, config CORSConfig, origin string) {
	if config.AllowCredentials {
		c.Header("Access-Control-Allow-Origin", origin)
	} else if config.AllowAllOrigins {
		c.Header("Access-Control-Allow-Origin", "*")
	} else if origin != "" {
		c.Header("Access-Control-Allow-Origin", origin)
	}
}

// isOriginAllowed checks if the origin is allowed
func isOriginAllowed(config CORSConfig, origin string) bool {
	if config.AllowAllOrigins {
		return true
	}

	if origin == "" {
		return false
	}

	for _, allowedOrigin := range config.AllowOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
		// Support wildcard subdomains (e.g., *.example.com)
		if strings.HasPrefix(allowedOrigin, "*.") {
			domain := allowedOrigin[2:]
			if strings.HasSuffix(origin, "."+domain) || origin == domain {
				return true
			}
		}
	}

	return false
}

// DevelopmentCORS returns permissive CORS for development
func DevelopmentCORS() gin.HandlerFunc {
	config := CORSConfig{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		ExposeHeaders:    []string{"*"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	return CORS(config)
}

// CORSMiddleware selects the CORS configuration for the environment
func CORSMiddleware(environment string) gin.HandlerFunc {
	switch environment {
	case "production":
		return CORS(ProductionCORSConfig())
	case "development":
		return DevelopmentCORS()
	default:
		return CORS(DefaultCORSConfig())
	}
}
