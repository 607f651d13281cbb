// Package server 提供 asnkeeper 的 HTTP 接口。
//
// 路由一览：
//
//	GET  /about            服务名与版本
//	GET  /format           当前配置下的编码说明
//	GET  /healthz          存储健康检查
//	GET  /json             签发一个 ASN（兼容旧接口）
//	GET  /api/asn          签发一个 ASN，可选 ?namespace=
//	GET  /api/asn/:asn     查询已签发的 ASN
//	GET  /api/stats        各命名空间的签发间隔统计
//	POST /lookup           表单 asn=数字，跳转到 /go/<ASN>
//	GET  /go/:asn          跳转到外部查询系统
//
// 签发接口可挂载令牌桶限流，启用指标时额外暴露 Prometheus 端点。
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ceyewan/asnkeeper/asn"
	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/metrics"
	"github.com/ceyewan/asnkeeper/ratelimit"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// ServiceName 对外展示的服务名
const ServiceName = "asnkeeper"

// Config HTTP 服务配置
type Config struct {
	Addr    string // 监听地址 (默认: ":8080")
	Version string // /about 中展示的版本 (默认: "dev")

	// LookupURL 外部查询地址，包含 {asn} 占位符，为空时 /go 不可用
	LookupURL string
	// LookupIncludePrefix 跳转时是否保留前缀
	LookupIncludePrefix bool

	// Limit 签发接口每个客户端 IP 的令牌桶，零值表示不限流
	Limit ratelimit.Limit
	// MetricsPath 指标端点，为空时不挂载
	MetricsPath string

	ShutdownTimeout time.Duration // 优雅退出等待时间 (默认: 10s)
}

func (c *Config) setDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Version == "" {
		c.Version = "dev"
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
}

// Option 服务选项
type Option func(*options)

type options struct {
	logger  clog.Logger
	meter   metrics.Meter
	limiter ratelimit.Limiter
	health  func(ctx context.Context) error
}

// WithLogger 设置日志记录器，内部会添加 namespace: "http"
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("http")
		}
	}
}

// WithMeter 设置指标收集器，同时用于 MetricsPath 端点
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		if meter != nil {
			o.meter = meter
		}
	}
}

// WithLimiter 设置签发接口的限流器
func WithLimiter(l ratelimit.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithHealthCheck 设置 /healthz 使用的检查函数
func WithHealthCheck(fn func(ctx context.Context) error) Option {
	return func(o *options) {
		o.health = fn
	}
}

// Server HTTP 服务
type Server struct {
	cfg     Config
	alloc   *asn.Allocator
	logger  clog.Logger
	meter   metrics.Meter
	limiter ratelimit.Limiter
	health  func(ctx context.Context) error
	engine  *gin.Engine
}

// New 创建服务并注册路由
func New(cfg *Config, alloc *asn.Allocator, opts ...Option) (*Server, error) {
	if alloc == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "server: allocator is nil")
	}
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.setDefaults()

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	if o.health == nil {
		o.health = func(context.Context) error { return nil }
	}

	s := &Server{
		cfg:     c,
		alloc:   alloc,
		logger:  o.logger,
		meter:   o.meter,
		limiter: o.limiter,
		health:  o.health,
	}
	if err := s.routes(); err != nil {
		return nil, err
	}
	return s, nil
}

// Handler 返回 http.Handler，便于测试或嵌入其他服务
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run 启动监听，ctx 取消后优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", clog.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return xerrors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server", clog.Duration("timeout", s.cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return xerrors.Wrap(err, "http server shutdown")
	}
	return nil
}

func (s *Server) routes() error {
	httpMetrics, err := metrics.NewHTTPServerMetrics(s.meter, ServiceName)
	if err != nil {
		return err
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestID(), accessLog(s.logger), metrics.GinMiddleware(httpMetrics))

	limited := ratelimit.GinMiddleware(s.limiter, &ratelimit.GinMiddlewareOptions{
		LimitFunc: func(*gin.Context) ratelimit.Limit { return s.cfg.Limit },
	})

	r.GET("/about", s.about)
	r.GET("/format", s.format)
	r.GET("/healthz", s.healthz)
	r.GET("/json", limited, s.generate)

	api := r.Group("/api")
	api.GET("/asn", limited, s.generate)
	api.GET("/asn/:asn", s.lookup)
	api.GET("/stats", s.stats)

	r.POST("/lookup", s.lookupForm)
	r.GET("/go/:asn", s.redirect)

	if s.cfg.MetricsPath != "" {
		r.GET(s.cfg.MetricsPath, gin.WrapH(metrics.Handler(s.meter)))
	}

	s.engine = r
	return nil
}
