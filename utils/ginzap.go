package utils

import (
	"net/http"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Ginzap logs one line per request with the request id attached. timeFormat is
// applied to the end time; utc switches the timestamp to UTC.
func Ginzap(logger *zap.Logger, timeFormat string, utc bool) gin.HandlerFunc {
	return ginzap.GinzapWithConfig(logger, &ginzap.Config{
		TimeFormat: timeFormat,
		UTC:        utc,
		Context: func(c *gin.Context) []zapcore.Field {
			return []zapcore.Field{zap.String("request_id", c.Writer.Header().Get(RequestIDHeader))}
		},
	})
}

// RecoveryWithZap recovers panics, logs them and answers 500 with the standard error body.
func RecoveryWithZap(logger *zap.Logger, stack bool) gin.HandlerFunc {
	return ginzap.CustomRecoveryWithZap(logger, stack, func(c *gin.Context, err any) {
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorBody{Error: "Internal server error"})
	})
}
