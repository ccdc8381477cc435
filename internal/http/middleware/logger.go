package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"lostfound-bot/internal/logging"
)

func Logger(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http request",
			logging.Field{Key: "method", Val: c.Request.Method},
			logging.Field{Key: "path", Val: c.Request.URL.Path},
			logging.Field{Key: "status", Val: c.Writer.Status()},
			logging.Field{Key: "elapsed", Val: time.Since(start)},
		)
	}
}
