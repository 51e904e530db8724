package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache(max int) (*TTLCache, *clock) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewTTLCache(max)
	c.now = clk.now
	return c, clk
}

func TestTTLCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c, clk := newTestCache(0)

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), 30*time.Second))
	b, ok, err := c.GetBytes(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(b))

	clk.t = clk.t.Add(31 * time.Second)
	_, ok, err = c.GetBytes(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheNoTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	c, clk := newTestCache(0)

	require.NoError(t, c.SetBytes(ctx, "k", []byte("v"), 0))
	clk.t = clk.t.Add(24 * time.Hour)
	_, ok, _ := c.GetBytes(ctx, "k")
	assert.True(t, ok)
}

func TestTTLCacheEvictsSoonestExpiry(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(2)

	require.NoError(t, c.SetBytes(ctx, "short", []byte("1"), time.Second))
	require.NoError(t, c.SetBytes(ctx, "long", []byte("2"), time.Hour))
	require.NoError(t, c.SetBytes(ctx, "new", []byte("3"), time.Minute))

	assert.Equal(t, 2, c.Len())
	_, ok, _ := c.GetBytes(ctx, "short")
	assert.False(t, ok)
	_, ok, _ = c.GetBytes(ctx, "long")
	assert.True(t, ok)

	// overwriting an existing key does not evict
	require.NoError(t, c.SetBytes(ctx, "long", []byte("4"), time.Hour))
	assert.Equal(t, 2, c.Len())
}

type recordingCache struct {
	data map[string][]byte
	gets int
	err  error
}

func (r *recordingCache) GetBytes(_ context.Context, key string) ([]byte, bool, error) {
	r.gets++
	if r.err != nil {
		return nil, false, r.err
	}
	b, ok := r.data[key]
	return b, ok, nil
}

func (r *recordingCache) SetBytes(_ context.Context, key string, value []byte, _ time.Duration) error {
	if r.err != nil {
		return r.err
	}
	r.data[key] = value
	return nil
}

func TestLayeredCacheBackfillsMemory(t *testing.T) {
	ctx := context.Background()
	mem, _ := newTestCache(0)
	remote := &recordingCache{data: map[string][]byte{"k": []byte("remote")}}
	lc := NewLayeredCache(mem, remote, time.Minute)

	b, ok, err := lc.GetBytes(ctx, "k")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "remote", string(b))

	_, ok, _ = lc.GetBytes(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, 1, remote.gets, "second read should be served from memory")
}

func TestLayeredCacheWriteThrough(t *testing.T) {
	ctx := context.Background()
	mem, _ := newTestCache(0)
	remote := &recordingCache{data: map[string][]byte{}}
	lc := NewLayeredCache(mem, remote, time.Minute)

	require.NoError(t, lc.SetBytes(ctx, "k", []byte("v"), time.Hour))
	assert.Equal(t, "v", string(remote.data["k"]))
	_, ok, _ := mem.GetBytes(ctx, "k")
	assert.True(t, ok)

	remote.err = errors.New("down")
	assert.Error(t, lc.SetBytes(ctx, "k2", []byte("v"), time.Hour))
	_, ok, _ = mem.GetBytes(ctx, "k2")
	assert.False(t, ok)
}
