package connector

import (
	"context"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/xerrors"
)

const etcdProbeKey = "asnkeeper/health-check"

type etcdConnector struct {
	base
	cfg    *EtcdConfig
	mu     sync.RWMutex
	client *clientv3.Client
}

// NewEtcd 创建 Etcd 连接器
func NewEtcd(cfg *EtcdConfig, opts ...Option) (EtcdConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "etcd config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &etcdConnector{cfg: cfg}
	c.init("etcd", cfg.Name, applyOptions(opts))
	return c, nil
}

func (c *etcdConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return nil
	}

	c.logger.Info("attempting to connect to etcd", clog.Any("endpoints", c.cfg.Endpoints))

	client, err := clientv3.New(clientv3.Config{
		Endpoints:            c.cfg.Endpoints,
		Username:             c.cfg.Username,
		Password:             c.cfg.Password,
		DialTimeout:          c.cfg.DialTimeout,
		DialKeepAliveTime:    c.cfg.KeepAliveTime,
		DialKeepAliveTimeout: c.cfg.KeepAliveTimeout,
		Context:              context.WithoutCancel(ctx),
	})
	if err != nil {
		c.markConnected("etcd", false)
		return xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", c.name, err)
	}

	if err := probeEtcd(ctx, client, c.cfg); err != nil {
		_ = client.Close()
		c.markConnected("etcd", false)
		c.logger.Error("failed to connect to etcd", clog.Error(err))
		return xerrors.Wrapf(ErrConnection, "etcd connector[%s]: %v", c.name, err)
	}

	c.client = client
	c.markConnected("etcd", true)
	c.logger.Info("successfully connected to etcd", clog.Any("endpoints", c.cfg.Endpoints))
	return nil
}

// probeEtcd 读一个不存在的键，不存在不算错误
func probeEtcd(ctx context.Context, client *clientv3.Client, cfg *EtcdConfig) error {
	probeCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	_, err := client.Get(probeCtx, etcdProbeKey)
	return err
}

func (c *etcdConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markClosed("etcd")
	if c.client == nil {
		return nil
	}
	err := c.client.Close()
	c.client = nil
	if err != nil {
		c.logger.Error("failed to close etcd connection", clog.Error(err))
		return err
	}
	c.logger.Info("etcd connection closed")
	return nil
}

func (c *etcdConnector) HealthCheck(ctx context.Context) error {
	client := c.GetClient()
	if client == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "etcd connector[%s]", c.name)
	}
	if err := probeEtcd(ctx, client, c.cfg); err != nil {
		c.healthy.Store(false)
		c.logger.Warn("etcd health check failed", clog.Error(err))
		return xerrors.Wrapf(ErrHealthCheck, "etcd connector[%s]: %v", c.name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *etcdConnector) GetClient() *clientv3.Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client
}
