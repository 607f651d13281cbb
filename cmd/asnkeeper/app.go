package main

import (
	"context"
	"slices"

	"github.com/ceyewan/asnkeeper/asn"
	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/config"
	"github.com/ceyewan/asnkeeper/connector"
	"github.com/ceyewan/asnkeeper/kv"
	"github.com/ceyewan/asnkeeper/metrics"
	"github.com/ceyewan/asnkeeper/xerrors"
)

// app 子命令共用的运行时组件
type app struct {
	cfg    *config.App
	logger clog.Logger
	meter  metrics.Meter
	store  *kv.Store
	alloc  *asn.Allocator

	closers []func() error
}

// bootstrap 加载配置、打开存储并校验配置基线。
//
// 返回的 app 必须 Close；出错时已创建的组件会被释放。
func (c *cli) bootstrap(ctx context.Context) (_ *app, err error) {
	loaderCfg := c.loader
	cfg, err := config.Load(ctx, &loaderCfg)
	if err != nil {
		return nil, err
	}

	logger, err := clog.New(&cfg.Log)
	if err != nil {
		return nil, xerrors.Wrap(err, "create logger")
	}
	logger = logger.WithNamespace("asnkeeper")
	for _, note := range cfg.Notes() {
		logger.Info(note)
	}

	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			_ = a.Close(context.WithoutCancel(ctx))
		}
	}()

	cfg.Metrics.Version = version
	a.meter, err = metrics.New(&cfg.Metrics, metrics.WithLogger(logger))
	if err != nil {
		return nil, xerrors.Wrap(err, "create meter")
	}
	a.closers = append(a.closers, func() error { return a.meter.Shutdown(context.WithoutCancel(ctx)) })

	a.store, err = kv.Open(ctx, &cfg.Store, kv.WithLogger(logger), kv.WithMeter(a.meter))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.store.Close)

	nsCfg := cfg.Namespace()
	if err = asn.Reconcile(ctx, a.store, asn.NewBaseline(nsCfg, cfg.ASN.BarcodeType), logger); err != nil {
		return nil, err
	}

	sinks := []asn.AuditSink{asn.NewFileSink(cfg.Store.DataDir)}
	if sink := a.natsSink(ctx); sink != nil {
		sinks = append(sinks, sink)
	}

	a.alloc, err = asn.New(nsCfg, a.store,
		asn.WithLogger(logger),
		asn.WithMeter(a.meter),
		asn.WithAuditSink(sinks...),
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// natsSink 审计镜像是可选的，连接失败只记录警告
func (a *app) natsSink(ctx context.Context) asn.AuditSink {
	if a.cfg.Audit.NATSURL == "" {
		return nil
	}
	conn, err := connector.NewNATS(&connector.NATSConfig{Name: "audit", URL: a.cfg.Audit.NATSURL},
		connector.WithLogger(a.logger), connector.WithMeter(a.meter))
	if err != nil {
		a.logger.Warn("nats audit disabled", clog.Error(err))
		return nil
	}
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Close()
		a.logger.Warn("nats audit disabled", clog.String("url", a.cfg.Audit.NATSURL), clog.Error(err))
		return nil
	}
	a.closers = append(a.closers, conn.Close)
	return asn.NewNATSSink(conn, a.cfg.Audit.Subject)
}

// healthCheck 能读到配置基线即视为存储可用
func (a *app) healthCheck(ctx context.Context) error {
	var baseline asn.Baseline
	found, err := a.store.Get(ctx, kv.ConfigKey, &baseline)
	if err != nil {
		return err
	}
	if !found {
		return xerrors.Wrap(asn.ErrNotFound, "configuration baseline missing")
	}
	return nil
}

// Close 等待后台统计写入完成，再按创建的逆序释放组件
func (a *app) Close(_ context.Context) error {
	if a.alloc != nil {
		a.alloc.Wait()
	}
	var errs []error
	for _, closer := range slices.Backward(a.closers) {
		if err := closer(); err != nil {
			errs = append(errs, err)
		}
	}
	a.logger.Flush()
	return xerrors.Combine(errs...)
}
