package server

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenRequired authenticates requests with the configured API token.
// An empty configured token disables authentication (development mode).
func (s *Server) TokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(s.cfg.APIToken)
		if token == "" {
			c.Next()
			return
		}

		header := strings.TrimSpace(c.GetHeader("Authorization"))
		if header == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		parts := strings.Fields(header)
		if len(parts) != 2 || parts[0] != "Bearer" {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Next()
	}
}

// RateLimit throttles requests per client IP.
func (s *Server) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter != nil && !s.limiter.Allow(c.ClientIP()) {
			AbortWithError(c, ErrTooManyRequests)
			return
		}
		c.Next()
	}
}
