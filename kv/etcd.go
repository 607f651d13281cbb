package kv

import (
	"context"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/asnkeeper/connector"
)

// etcdDriver 以 ModRevision 作为版本
type etcdDriver struct {
	conn   connector.EtcdConnector
	prefix string
}

// NewEtcd 基于 Etcd 连接器创建驱动
func NewEtcd(conn connector.EtcdConnector, prefix string) Driver {
	return &etcdDriver{conn: conn, prefix: prefix}
}

func (d *etcdDriver) Name() string { return DriverEtcd }

func (d *etcdDriver) Get(ctx context.Context, key string) (Entry, error) {
	client := d.conn.GetClient()
	if client == nil {
		return Entry{}, ErrClosed
	}

	resp, err := client.Get(ctx, d.prefix+key)
	if err != nil {
		return Entry{}, err
	}
	if len(resp.Kvs) == 0 {
		return Entry{Key: key}, nil
	}
	item := resp.Kvs[0]
	return Entry{Key: key, Value: item.Value, Version: uint64(item.ModRevision)}, nil
}

// Commit 单个 Txn：If 各 key 的 ModRevision 等于期望值，Then 全部 Put
func (d *etcdDriver) Commit(ctx context.Context, checks []Check, sets []Mutation) (bool, error) {
	client := d.conn.GetClient()
	if client == nil {
		return false, ErrClosed
	}

	cmps := make([]clientv3.Cmp, 0, len(checks))
	for _, c := range checks {
		cmps = append(cmps, clientv3.Compare(clientv3.ModRevision(d.prefix+c.Key), "=", int64(c.Version)))
	}
	ops := make([]clientv3.Op, 0, len(sets))
	for _, m := range sets {
		ops = append(ops, clientv3.OpPut(d.prefix+m.Key, string(m.Value)))
	}

	resp, err := client.Txn(ctx).If(cmps...).Then(ops...).Commit()
	if err != nil {
		return false, err
	}
	return resp.Succeeded, nil
}

func (d *etcdDriver) Close() error { return nil }
