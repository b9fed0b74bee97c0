// Package limiter provides token-bucket rate limiting keyed by request path
// Package limiter 提供按请求路径区分的令牌桶限流
package limiter

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/juju/ratelimit"
)

// Face rate limiter interface
// Face 限流器接口
type Face interface {
	Key(c *gin.Context) string
	GetBucket(key string) (*ratelimit.Bucket, bool)
	AddBuckets(rules ...BucketRule) Face
}

// BucketRule token bucket rule
// BucketRule 令牌桶规则
type BucketRule struct {
	// Key route prefix the rule applies to
	// Key 规则作用的路由前缀
	Key string
	// FillInterval interval between refills
	// FillInterval 放入令牌的间隔
	FillInterval time.Duration
	// Capacity bucket capacity
	// Capacity 令牌桶容量
	Capacity int64
	// Quantum tokens added per interval
	// Quantum 每次放入的令牌数
	Quantum int64
}

// MethodLimiter limits by route prefix
// MethodLimiter 按路由前缀限流
type MethodLimiter struct {
	keys  []string
	rules map[string]*ratelimit.Bucket
}

// NewMethodLimiter creates an empty MethodLimiter
// NewMethodLimiter 创建空的 MethodLimiter
func NewMethodLimiter() Face {
	return &MethodLimiter{
		rules: make(map[string]*ratelimit.Bucket),
	}
}

// Key returns the most specific registered prefix matching the request path, or the raw path
// Key 返回与请求路径匹配的最长已注册前缀，否则返回原始路径
func (l *MethodLimiter) Key(c *gin.Context) string {
	path := c.Request.URL.Path
	best := ""
	for _, k := range l.keys {
		if strings.HasPrefix(path, k) && len(k) > len(best) {
			best = k
		}
	}
	if best != "" {
		return best
	}
	return path
}

func (l *MethodLimiter) GetBucket(key string) (*ratelimit.Bucket, bool) {
	bucket, ok := l.rules[key]
	return bucket, ok
}

func (l *MethodLimiter) AddBuckets(rules ...BucketRule) Face {
	for _, rule := range rules {
		if rule.Capacity <= 0 || rule.Quantum <= 0 || rule.FillInterval <= 0 {
			continue
		}
		if _, ok := l.rules[rule.Key]; !ok {
			l.keys = append(l.keys, rule.Key)
		}
		l.rules[rule.Key] = ratelimit.NewBucketWithQuantum(rule.FillInterval, rule.Capacity, rule.Quantum)
	}
	return l
}
