package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only if it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only if the key still holds our token.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// DefaultRedisTTL is well above the 10s request timeout. Held locks are
// extended every ttl/3.
const DefaultRedisTTL = 30 * time.Second

// Redis is a Locker shared by every server instance pointing at the same
// Redis. Each key is a SET NX entry with a TTL so a crashed holder cannot
// block others forever. The TTL is refreshed until the lock is released.
type Redis struct {
	client    *redis.Client
	ttl       time.Duration
	retry     time.Duration
	keyPrefix string
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultRedisTTL
	}
	return &Redis{
		client:    client,
		ttl:       ttl,
		retry:     25 * time.Millisecond,
		keyPrefix: "ladder:lock:",
	}
}

func newToken() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Lock polls until every key is held or ctx is done. Keys already taken are
// released on failure.
func (r *Redis) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = normalize(keys)
	token := newToken()
	held := make([]string, 0, len(keys))
	stop := make(chan struct{})
	var once sync.Once

	unlock := func() {
		once.Do(func() {
			close(stop)
			// Release with a fresh context so a cancelled request still frees its keys.
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			for i := len(held) - 1; i >= 0; i-- {
				releaseScript.Run(releaseCtx, r.client, []string{held[i]}, token)
			}
		})
	}

	for _, key := range keys {
		full := r.keyPrefix + key
		for {
			ok, err := r.client.SetNX(ctx, full, token, r.ttl).Result()
			if err != nil {
				unlock()
				return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
			}
			if ok {
				held = append(held, full)
				break
			}
			select {
			case <-ctx.Done():
				unlock()
				return nil, fmt.Errorf("timed out waiting for lock %s: %w", key, ctx.Err())
			case <-time.After(r.retry):
			}
		}
	}

	go r.keepAlive(held, token, stop)
	return unlock, nil
}

// keepAlive extends every held key until stop is closed.
func (r *Redis) keepAlive(keys []string, token string, stop <-chan struct{}) {
	ticker := time.NewTicker(r.renewEvery())
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), r.renewEvery())
			for _, key := range keys {
				extendScript.Run(ctx, r.client, []string{key}, token, r.ttl.Milliseconds())
			}
			cancel()
		}
	}
}

func (r *Redis) renewEvery() time.Duration {
	return r.ttl / 3
}
