package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type Middleware struct {
	apiToken     string
	rateLimiters map[string]*rate.Limiter
	mu           sync.Mutex
}

func NewMiddleware(apiToken string) *Middleware {
	return &Middleware{
		apiToken:     apiToken,
		rateLimiters: make(map[string]*rate.Limiter),
	}
}

// AuthRequired enforces the shared API secret, taken from either the
// Authorization bearer header or X-Api-Token. An unset server secret answers
// 500 on every protected endpoint instead of crashing the process.
func (m *Middleware) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.apiToken == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "API token not configured on server"})
			return
		}

		token := c.GetHeader("X-Api-Token")
		if token == "" {
			token = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(m.apiToken)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API token"})
			return
		}

		c.Next()
	}
}

// RateLimitPerCaller limits requests per client IP on the send endpoints.
func (m *Middleware) RateLimitPerCaller(r rate.Limit, b int) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		m.mu.Lock()
		limiter, exists := m.rateLimiters[key]
		if !exists {
			limiter = rate.NewLimiter(r, b)
			m.rateLimiters[key] = limiter
		}
		m.mu.Unlock()

		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		c.Next()
	}
}

// SecurityHeaders adds security headers to prevent common attacks
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("X-Content-Type-Options", "nosniff")
		c.Writer.Header().Set("X-Frame-Options", "DENY")
		c.Writer.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		c.Next()
	}
}

// RequestSizeLimiter limits request body size to prevent DoS
func RequestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
