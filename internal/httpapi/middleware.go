package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/park285/cheese-teamchess/internal/pvpchess"
	"github.com/park285/cheese-teamchess/pkg/chessdto"
	"go.uber.org/zap"
)

// requireUser stores the caller id under ctxUserID or rejects the request.
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, chessdto.DomainError{Code: codeUnauthenticated, Message: "missing " + HeaderUserID})
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("route", route),
			zap.String("user_id", c.GetString(ctxUserID)),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		s.logger.Info("http_request", fields...)
	}
}

// recoverPanics turns a handler panic into a 500 with the usual error body.
func (s *Server) recoverPanics() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.logger.Error("http_panic", zap.String("path", c.Request.URL.Path), zap.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, chessdto.DomainError{Code: pvpchess.CodeInternal, Message: "internal error"})
	})
}
