package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketplace-platform/order-service/pkg/errors"
)

// Gin context keys
const (
	ContextKeyRequestID     = "requestId"
	ContextKeyCorrelationID = "correlationId"
)

// Propagation headers shared across the marketplace services
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderCorrelationID = "X-Correlation-ID"
)

// RequestID assigns each request an id, reusing the caller's when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ContextKeyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// CorrelationID propagates the marketplace-wide correlation id. An order
// placed at the storefront keeps one id through every service it touches.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderCorrelationID)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(ContextKeyCorrelationID, id)
		c.Header(HeaderCorrelationID, id)
		c.Next()
	}
}

// quietPaths are polled by the platform and kept out of the request log.
var quietPaths = map[string]bool{
	"/health":  true,
	"/ready":   true,
	"/metrics": true,
}

// Logger writes one structured line per request after it completes.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if quietPaths[path] {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()

		attrs := []any{
			"status", status,
			"method", c.Request.Method,
			"path", path,
			"latencyMs", latency.Milliseconds(),
			"clientIP", c.ClientIP(),
		}
		if id, ok := c.Get(ContextKeyRequestID); ok {
			attrs = append(attrs, "requestId", id)
		}
		if id, ok := c.Get(ContextKeyCorrelationID); ok {
			attrs = append(attrs, "correlationId", id)
		}
		if orderID := c.Param("orderId"); orderID != "" {
			attrs = append(attrs, "orderId", orderID)
		}
		if query := c.Request.URL.RawQuery; query != "" {
			attrs = append(attrs, "query", query)
		}

		switch {
		case status >= 500:
			logger.Error("HTTP request", attrs...)
		case status >= 400:
			logger.Warn("HTTP request", attrs...)
		default:
			logger.Info("HTTP request", attrs...)
		}
	}
}

// Recovery converts panics into a logged 500 response.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestID, _ := c.Get(ContextKeyRequestID)
				logger.Error("Panic recovered",
					"error", r,
					"path", c.Request.URL.Path,
					"method", c.Request.Method,
					"requestId", requestID,
				)
				AbortWithAppError(c, errors.ErrInternal("an unexpected error occurred"))
			}
		}()
		c.Next()
	}
}
