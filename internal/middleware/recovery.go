package middleware

import (
	"fmt"
	"runtime/debug"

	"github.com/haierkeys/lww-note-sync/pkg/app"
	"github.com/haierkeys/lww-note-sync/pkg/code"
	"github.com/haierkeys/lww-note-sync/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RecoveryWithLogger 捕获 panic，记录堆栈并返回 500
func RecoveryWithLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				var errorMsg string
				switch v := err.(type) {
				case error:
					errorMsg = v.Error()
				default:
					errorMsg = fmt.Sprintf("%v", v)
				}

				log.Error("Recovered from panic",
					zap.String(logger.FieldTraceID, GetTraceIDFromGin(c)),
					zap.String("router", c.Request.URL.Path),
					zap.String(logger.FieldMethod, c.Request.Method),
					zap.String("query", c.Request.URL.RawQuery),
					zap.String("ip", c.ClientIP()),
					zap.String("panic", errorMsg),
					zap.String("stack", string(debug.Stack())),
				)

				app.NewResponse(c).ToResponse(code.ErrorServerInternal.WithDetails(errorMsg))
				c.Abort()
			}
		}()

		c.Next()
	}
}
