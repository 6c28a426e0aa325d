package cache

import (
	"context"
	"sync"
	"time"
)

// MemCache is an in-process Cache backed by sync.Map. Expired items
// are dropped lazily on read and by an optional background sweep.
type MemCache struct {
	items sync.Map
	stop  chan struct{}
	wg    sync.WaitGroup
}

type memItem struct {
	value      []byte
	expiration int64 // unix nano; 0 means no expiration
}

func (it *memItem) expired() bool {
	return it.expiration != 0 && time.Now().UnixNano() > it.expiration
}

// NewMemCache creates a MemCache. If sweepInterval > 0 a background
// goroutine periodically removes expired items until Close is called.
func NewMemCache(sweepInterval time.Duration) *MemCache {
	m := &MemCache{
		stop: make(chan struct{}),
	}
	if sweepInterval > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			ticker := time.NewTicker(sweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					m.sweep()
				case <-m.stop:
					return
				}
			}
		}()
	}
	return m
}

func (m *MemCache) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.items.Load(key)
	if !ok {
		return nil, false
	}
	it := v.(*memItem)
	if it.expired() {
		m.items.Delete(key)
		return nil, false
	}
	return it.value, true
}

func (m *MemCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	var exp int64
	if ttl > 0 {
		exp = time.Now().Add(ttl).UnixNano()
	}
	m.items.Store(key, &memItem{
		value:      value,
		expiration: exp,
	})
}

func (m *MemCache) Delete(_ context.Context, key string) {
	m.items.Delete(key)
}

func (m *MemCache) Close() {
	close(m.stop)
	m.wg.Wait()
}

func (m *MemCache) sweep() {
	m.items.Range(func(k, v any) bool {
		if v.(*memItem).expired() {
			m.items.Delete(k)
		}
		return true
	})
}
