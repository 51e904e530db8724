package cache

import (
	"context"
	"io"
	"time"
)

// LayeredCache keeps a TTLCache in front of a shared backend.
// Writes go to the backend first, then to memory.
type LayeredCache struct {
	mem    *TTLCache
	remote BytesCache
	// memTTL bounds how long back-filled entries live in memory
	memTTL time.Duration
}

func NewLayeredCache(mem *TTLCache, remote BytesCache, memTTL time.Duration) *LayeredCache {
	return &LayeredCache{mem: mem, remote: remote, memTTL: memTTL}
}

func (lc *LayeredCache) GetBytes(ctx context.Context, key string) ([]byte, bool, error) {
	if b, ok, _ := lc.mem.GetBytes(ctx, key); ok {
		return b, true, nil
	}
	b, ok, err := lc.remote.GetBytes(ctx, key)
	if err != nil || !ok {
		return nil, false, err
	}
	_ = lc.mem.SetBytes(ctx, key, b, lc.memTTL)
	return b, true, nil
}

func (lc *LayeredCache) SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := lc.remote.SetBytes(ctx, key, value, ttl); err != nil {
		return err
	}
	memTTL := ttl
	if lc.memTTL > 0 && (memTTL <= 0 || lc.memTTL < memTTL) {
		memTTL = lc.memTTL
	}
	return lc.mem.SetBytes(ctx, key, value, memTTL)
}

// Close closes the shared backend when it holds a connection.
func (lc *LayeredCache) Close() error {
	if c, ok := lc.remote.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
