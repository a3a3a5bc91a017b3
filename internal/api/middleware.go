package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cory-johannsen/waifu/internal/observability"
)

const (
	// HeaderRequestID carries the request correlation id.
	HeaderRequestID = "X-Request-ID"
	// HeaderTelegramUser carries the caller's Telegram user id.
	HeaderTelegramUser = "X-Telegram-User-ID"
	// HeaderAdminToken carries the plain admin token.
	HeaderAdminToken = "X-Admin-Token"

	ctxRequestID  = "request_id"
	ctxTelegramID = "telegram_id"
)

// RequestID assigns every request an id, reusing a caller-supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// Logger logs each request after it completes. Health and metrics scrapes
// are not logged.
func Logger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" || path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.Int("status", c.Writer.Status()),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(ctxRequestID)),
		}
		for _, e := range c.Errors {
			fields = append(fields, zap.Error(e.Err))
		}
		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			logger.Error("request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warn("request rejected", fields...)
		default:
			logger.Info("request completed", fields...)
		}
	}
}

// Recovery converts a handler panic into a 500 response.
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("handler panic",
			zap.Any("panic", recovered),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", c.GetString(ctxRequestID)),
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	})
}

// Metrics records request counts and latency per route template.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

// TelegramUser requires a positive numeric X-Telegram-User-ID header.
func TelegramUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(HeaderTelegramUser), 10, 64)
		if err != nil || id <= 0 {
			abort(c, http.StatusBadRequest, "missing or invalid "+HeaderTelegramUser+" header")
			return
		}
		c.Set(ctxTelegramID, id)
		c.Next()
	}
}

func telegramID(c *gin.Context) int64 {
	return c.GetInt64(ctxTelegramID)
}

// AdminAuth checks X-Admin-Token against a bcrypt hash. An empty hash
// rejects every request.
func AdminAuth(hash []byte, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(hash) == 0 {
			abort(c, http.StatusForbidden, "admin routes are disabled")
			return
		}
		token := c.GetHeader(HeaderAdminToken)
		if token == "" || bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
			logger.Warn("admin token rejected", zap.String("ip", c.ClientIP()))
			abort(c, http.StatusUnauthorized, "invalid admin token")
			return
		}
		c.Next()
	}
}
