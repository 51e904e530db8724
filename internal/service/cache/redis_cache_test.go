package cache

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memRedis answers GET, SET and PING in memory so no server is dialed.
type memRedis struct {
	mu   sync.Mutex
	data map[string][]byte
	args map[string][]interface{}
	err  error
}

func newMemRedis() *memRedis {
	return &memRedis{data: map[string][]byte{}, args: map[string][]interface{}{}}
}

func (m *memRedis) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return nil, errors.New("dial disabled in tests")
	}
}

func (m *memRedis) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		if m.err != nil {
			cmd.SetErr(m.err)
			return m.err
		}

		args := cmd.Args()
		switch c := cmd.(type) {
		case *redis.StringCmd:
			b, ok := m.data[args[1].(string)]
			if !ok {
				c.SetErr(redis.Nil)
				return redis.Nil
			}
			c.SetVal(string(b))
		case *redis.StatusCmd:
			if cmd.Name() == "set" {
				key := args[1].(string)
				m.data[key] = args[2].([]byte)
				m.args[key] = args[3:]
			}
			c.SetVal("OK")
		}
		return nil
	}
}

func (m *memRedis) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

func newTestRedisCache(t *testing.T, prefix string) (*RedisCache, *memRedis) {
	t.Helper()
	cli := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	mem := newMemRedis()
	cli.AddHook(mem)
	rc := NewRedisCacheFromClient(cli, prefix)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mem
}

func TestRedisCachePrefixesKeys(t *testing.T) {
	ctx := context.Background()
	rc, mem := newTestRedisCache(t, "fxchart")

	require.NoError(t, rc.SetBytes(ctx, "candles:EUR_USD", []byte("v"), 0))
	_, ok := mem.data["fxchart:candles:EUR_USD"]
	assert.True(t, ok)

	b, ok, err := rc.GetBytes(ctx, "candles:EUR_USD")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "v", string(b))

	bare, mem2 := newTestRedisCache(t, "")
	require.NoError(t, bare.SetBytes(ctx, "k", []byte("v"), 0))
	_, ok = mem2.data["k"]
	assert.True(t, ok)
}

func TestRedisCacheTTL(t *testing.T) {
	ctx := context.Background()
	rc, mem := newTestRedisCache(t, "p")

	require.NoError(t, rc.SetBytes(ctx, "ttl", []byte("v"), 30*time.Second))
	assert.Equal(t, []interface{}{"ex", int64(30)}, mem.args["p:ttl"])

	require.NoError(t, rc.SetBytes(ctx, "forever", []byte("v"), 0))
	assert.Empty(t, mem.args["p:forever"])

	// negative TTLs are stored without expiry
	require.NoError(t, rc.SetBytes(ctx, "neg", []byte("v"), -time.Second))
	assert.Empty(t, mem.args["p:neg"])
}

func TestRedisCacheMissAndError(t *testing.T) {
	ctx := context.Background()
	rc, mem := newTestRedisCache(t, "p")

	_, ok, err := rc.GetBytes(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)

	mem.err = errors.New("connection reset")
	_, _, err = rc.GetBytes(ctx, "absent")
	assert.ErrorContains(t, err, "redis get absent")
	assert.ErrorContains(t, rc.SetBytes(ctx, "k", []byte("v"), 0), "redis set k")
}

type closingCache struct {
	*TTLCache
	closed bool
}

func (c *closingCache) Close() error {
	c.closed = true
	return nil
}

func TestLayeredCacheClosesRemote(t *testing.T) {
	remote := &closingCache{TTLCache: NewTTLCache(10)}
	lc := NewLayeredCache(NewTTLCache(10), remote, time.Second)
	require.NoError(t, lc.Close())
	assert.True(t, remote.closed)

	mem := NewLayeredCache(NewTTLCache(10), NewTTLCache(10), time.Second)
	assert.NoError(t, mem.Close())
}
