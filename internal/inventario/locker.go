package inventario

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Locker serializes FIFO allocation per product. Keys are acquired in sorted
// order so two sales touching the same products cannot deadlock.
type Locker interface {
	Lock(ctx context.Context, keys []string) (unlock func(), err error)
}

// ClavesProducto builds sorted, de-duplicated lock keys for a set of products.
func ClavesProducto(ids []uuid.UUID) []string {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, "lock:producto:"+id.String())
	}
	return ClavesOrdenadas(keys)
}

// ClavesOrdenadas returns a sorted copy of keys without duplicates.
func ClavesOrdenadas(keys []string) []string {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	return slices.Compact(sorted)
}

// LocalLocker is an in-process keyed mutex. It is enough for a single
// instance; multi-instance deployments use the Redis implementation.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]*sync.Mutex)}
}

func (l *LocalLocker) Lock(ctx context.Context, keys []string) (func(), error) {
	sorted := ClavesOrdenadas(keys)

	held := make([]*sync.Mutex, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
	for _, k := range sorted {
		if err := ctx.Err(); err != nil {
			release()
			return nil, err
		}
		m := l.mutex(k)
		m.Lock()
		held = append(held, m)
	}
	return release, nil
}

func (l *LocalLocker) mutex(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}
