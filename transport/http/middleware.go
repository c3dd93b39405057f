package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/layer-3/subkit/core"
	"github.com/layer-3/subkit/internal/log"
	"github.com/layer-3/subkit/service"
)

const sessionAddressKey = "userAddress"

// AuthMiddleware creates middleware that validates access tokens
func AuthMiddleware(authService *service.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header"})
			return
		}

		session, err := authService.ValidateAccessToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, core.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			} else {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		c.Set(sessionAddressKey, session.Address)
		c.Next()
	}
}

func sessionAddress(c *gin.Context) (core.Address, bool) {
	v, ok := c.Get(sessionAddressKey)
	if !ok {
		return "", false
	}
	addr, ok := v.(core.Address)
	return addr, ok
}

// RequestLogger logs every request and attaches a request scoped logger
// to the request context.
func RequestLogger(lg log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqLogger := lg.With("path", c.FullPath())
		c.Request = c.Request.WithContext(log.WithContext(c.Request.Context(), reqLogger))

		c.Next()

		reqLogger.Debug("request handled",
			"method", c.Request.Method,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
