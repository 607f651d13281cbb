package main

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strconv"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/connector"
	"github.com/ceyewan/asnkeeper/ratelimit"
	"github.com/ceyewan/asnkeeper/server"
	"github.com/ceyewan/asnkeeper/xerrors"
)

func (c *cli) runServer(ctx context.Context, args []string) error {
	fs := c.flags("server")
	port := fs.Int("port", 0, "port to listen on")
	host := fs.String("host", "localhost", "hostname to listen on")
	if err := fs.Parse(args); err != nil {
		return err
	}

	fmt.Fprintf(c.stdout, "Running %s v%s\n\n", server.ServiceName, version)

	a, err := c.bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close(ctx) }()

	if *port == 0 {
		*port = a.cfg.Server.Port
	}
	addr := net.JoinHostPort(*host, strconv.Itoa(*port))
	fmt.Fprintf(c.stdout, "Starting server on %s\n", addr)

	dataDir, _ := filepath.Abs(a.cfg.Store.DataDir)
	a.logger.Info("configuration loaded",
		clog.String("prefix", a.cfg.ASN.Prefix),
		clog.Int64("namespace_range", a.cfg.ASN.NamespaceRange),
		clog.Bool("namespace_extension", a.cfg.ASN.EnableNamespaceExtension),
		clog.String("additional_namespaces", a.cfg.ASN.AdditionalManagedNamespaces),
		clog.String("barcode_type", a.cfg.ASN.BarcodeType),
		clog.String("store_driver", a.cfg.Store.Driver),
		clog.String("data_dir", dataDir),
	)

	limiter, err := a.limiter(ctx)
	if err != nil {
		return err
	}

	srvCfg := &server.Config{
		Addr:                addr,
		Version:             version,
		LookupURL:           a.cfg.Lookup.URL,
		LookupIncludePrefix: a.cfg.Lookup.IncludePrefix,
		Limit:               ratelimit.Limit{Rate: a.cfg.Server.RateLimit, Burst: a.cfg.Server.RateBurst},
	}
	if a.cfg.Metrics.Enabled {
		srvCfg.MetricsPath = a.cfg.Metrics.Path
	}

	srv, err := server.New(srvCfg, a.alloc,
		server.WithLogger(a.logger),
		server.WithMeter(a.meter),
		server.WithLimiter(limiter),
		server.WithHealthCheck(a.healthCheck),
	)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}

// limiter ASN_RATE_LIMIT 为 0 时返回 nil，签发接口不限流
func (a *app) limiter(ctx context.Context) (ratelimit.Limiter, error) {
	if a.cfg.Server.RateLimit <= 0 {
		return nil, nil
	}

	opts := []ratelimit.Option{ratelimit.WithLogger(a.logger), ratelimit.WithMeter(a.meter)}
	cfg := &ratelimit.Config{Mode: a.cfg.Server.RateLimitMode}

	var redisConn connector.RedisConnector
	if cfg.Mode == ratelimit.ModeDistributed {
		conn, err := connector.NewRedis(&connector.RedisConfig{
			Name:     "ratelimit",
			Addr:     a.cfg.Store.RedisAddr,
			Password: a.cfg.Store.RedisPassword,
			DB:       a.cfg.Store.RedisDB,
		}, connector.WithLogger(a.logger), connector.WithMeter(a.meter))
		if err != nil {
			return nil, err
		}
		if err := conn.Connect(ctx); err != nil {
			_ = conn.Close()
			return nil, xerrors.Wrap(err, "ratelimit: connect redis")
		}
		a.closers = append(a.closers, conn.Close)
		redisConn = conn
	}

	limiter, err := ratelimit.New(cfg, redisConn, opts...)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, limiter.Close)
	return limiter, nil
}
