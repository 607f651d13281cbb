package connector

import (
	"context"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/ceyewan/asnkeeper/clog"
	"github.com/ceyewan/asnkeeper/xerrors"
)

type natsConnector struct {
	base
	cfg  *NATSConfig
	mu   sync.RWMutex
	conn *nats.Conn
}

// NewNATS 创建 NATS 连接器，实际连接在 Connect 时建立
func NewNATS(cfg *NATSConfig, opts ...Option) (NATSConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "nats config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	c := &natsConnector{cfg: cfg}
	c.init("nats", cfg.Name, applyOptions(opts))
	return c, nil
}

func (c *natsConnector) natsOptions() []nats.Option {
	opts := []nats.Option{
		nats.Name(c.cfg.Name),
		nats.Timeout(c.cfg.Timeout),
		nats.MaxReconnects(c.cfg.MaxReconnects),
		nats.ReconnectWait(c.cfg.ReconnectWait),
		nats.PingInterval(c.cfg.PingInterval),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			c.healthy.Store(false)
			c.logger.Warn("nats disconnected", clog.Error(err))
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			c.healthy.Store(true)
			c.logger.Info("nats reconnected", clog.String("url", conn.ConnectedUrl()))
		}),
	}
	if c.cfg.Username != "" && c.cfg.Password != "" {
		opts = append(opts, nats.UserInfo(c.cfg.Username, c.cfg.Password))
	}
	if c.cfg.Token != "" {
		opts = append(opts, nats.Token(c.cfg.Token))
	}
	return opts
}

func (c *natsConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && !c.conn.IsClosed() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.logger.Info("attempting to connect to nats", clog.String("url", c.cfg.URL))

	conn, err := nats.Connect(c.cfg.URL, c.natsOptions()...)
	if err != nil {
		c.markConnected("nats", false)
		c.logger.Error("failed to connect to nats", clog.Error(err), clog.String("url", c.cfg.URL))
		return xerrors.Wrapf(ErrConnection, "nats connector[%s]: %v", c.name, err)
	}

	c.conn = conn
	c.markConnected("nats", true)
	c.logger.Info("successfully connected to nats", clog.String("url", c.cfg.URL))
	return nil
}

func (c *natsConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.markClosed("nats")
	if c.conn != nil {
		// Drain 会先投递完已发布的消息
		if err := c.conn.Drain(); err != nil {
			c.conn.Close()
		}
		c.conn = nil
		c.logger.Info("nats connection closed")
	}
	return nil
}

func (c *natsConnector) HealthCheck(ctx context.Context) error {
	conn := c.GetClient()
	if conn == nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrClientNil, "nats connector[%s]", c.name)
	}
	if status := conn.Status(); status != nats.CONNECTED {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrHealthCheck, "nats connector[%s]: status %s", c.name, status.String())
	}
	var err error
	if _, ok := ctx.Deadline(); ok {
		err = conn.FlushWithContext(ctx)
	} else {
		err = conn.FlushTimeout(c.cfg.Timeout)
	}
	if err != nil {
		c.healthy.Store(false)
		return xerrors.Wrapf(ErrHealthCheck, "nats connector[%s]: %v", c.name, err)
	}
	c.healthy.Store(true)
	return nil
}

func (c *natsConnector) GetClient() *nats.Conn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn
}
