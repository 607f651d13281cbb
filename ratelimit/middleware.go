package ratelimit

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// GinMiddlewareOptions Gin 中间件选项
type GinMiddlewareOptions struct {
	// KeyFunc 提取限流键，默认使用客户端 IP
	KeyFunc func(*gin.Context) string
	// LimitFunc 返回当前请求的规则，无效规则表示放行
	LimitFunc func(*gin.Context) Limit
}

// GinMiddleware 限流中间件，被拒绝的请求返回 429。
//
// 限流器出错时放行，避免限流后端故障阻断签发。
//
//	r.GET("/api/asn", ratelimit.GinMiddleware(limiter, &ratelimit.GinMiddlewareOptions{
//	    LimitFunc: func(*gin.Context) ratelimit.Limit { return ratelimit.Limit{Rate: 2, Burst: 10} },
//	}), handler)
func GinMiddleware(limiter Limiter, opts *GinMiddlewareOptions) gin.HandlerFunc {
	var o GinMiddlewareOptions
	if opts != nil {
		o = *opts
	}
	if o.KeyFunc == nil {
		o.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}

	return func(c *gin.Context) {
		if limiter == nil || o.LimitFunc == nil {
			c.Next()
			return
		}
		limit := o.LimitFunc(c)
		key := o.KeyFunc(c)
		if !limit.Valid() || key == "" {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("rate=%.2f, burst=%d", limit.Rate, limit.Burst))
		allowed, err := limiter.Allow(c.Request.Context(), key, limit)
		if err != nil {
			c.Next()
			return
		}
		if !allowed {
			c.Header("X-RateLimit-Remaining", "0")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
