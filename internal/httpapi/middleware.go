package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hupe1980/agentmux/logging"
)

func requestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		args := []any{
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		}

		if len(c.Errors) > 0 {
			args = append(args, "error", c.Errors.Last().Error())
		}

		log := logging.Bind(logger, c.Request.Context())
		if c.Writer.Status() >= 500 {
			log.Warn("http.request", args...)
			return
		}

		log.Info("http.request", args...)
	}
}

func requestTimeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
