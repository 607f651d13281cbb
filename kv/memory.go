package kv

import (
	"context"
	"slices"
	"sync"
)

// memoryDriver 进程内实现，用于测试与 ASN_STORE_DRIVER=memory
type memoryDriver struct {
	mu      sync.Mutex
	entries map[string]Entry
	rev     uint64
	closed  bool
}

// NewMemory 创建内存驱动
func NewMemory() Driver {
	return &memoryDriver{entries: make(map[string]Entry)}
}

func (d *memoryDriver) Name() string { return DriverMemory }

func (d *memoryDriver) Get(_ context.Context, key string) (Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Entry{}, ErrClosed
	}
	e, ok := d.entries[key]
	if !ok {
		return Entry{Key: key}, nil
	}
	e.Value = slices.Clone(e.Value)
	return e, nil
}

func (d *memoryDriver) Commit(_ context.Context, checks []Check, sets []Mutation) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false, ErrClosed
	}
	for _, c := range checks {
		if d.entries[c.Key].Version != c.Version {
			return false, nil
		}
	}
	for _, m := range sets {
		d.rev++
		d.entries[m.Key] = Entry{Key: m.Key, Value: slices.Clone(m.Value), Version: d.rev}
	}
	return true, nil
}

func (d *memoryDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
