package middleware

import (
	"github.com/haierkeys/lww-note-sync/pkg/app"
	"github.com/haierkeys/lww-note-sync/pkg/code"
	"github.com/haierkeys/lww-note-sync/pkg/limiter"

	"github.com/gin-gonic/gin"
)

// RateLimiter 限流中间件
func RateLimiter(l limiter.Face) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := l.Key(c)
		if bucket, ok := l.GetBucket(key); ok {
			if bucket.TakeAvailable(1) == 0 {
				app.NewResponse(c).ToResponse(code.ErrorTooManyRequests)
				c.Abort()
				return
			}
		}

		c.Next()
	}
}
