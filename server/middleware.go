package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ceyewan/asnkeeper/clog"
)

// HeaderRequestID 请求 ID 头，缺失时由服务生成
const HeaderRequestID = "X-Request-ID"

// requestID 把请求 ID 写入响应头与请求 Context
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			if v7, err := uuid.NewV7(); err == nil {
				id = v7.String()
			} else {
				id = uuid.NewString()
			}
		}
		c.Header(HeaderRequestID, id)
		c.Request = c.Request.WithContext(clog.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func accessLog(logger clog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []clog.Field{
			clog.String("method", c.Request.Method),
			clog.String("path", c.Request.URL.Path),
			clog.Int("status", c.Writer.Status()),
			clog.Duration("latency", time.Since(start)),
			clog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, clog.String("errors", c.Errors.String()))
		}
		if c.Writer.Status() >= 500 {
			logger.ErrorContext(c.Request.Context(), "http request", fields...)
			return
		}
		logger.InfoContext(c.Request.Context(), "http request", fields...)
	}
}
