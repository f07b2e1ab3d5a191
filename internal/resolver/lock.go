package resolver

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Locker serializes artifact downloads for one model name across processes
// that share a cache directory. Lock blocks until the lock is held or ctx is
// done and returns a func that releases it.
type Locker interface {
	Lock(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// NoopLocker never blocks. It is the default for single-replica deployments.
type NoopLocker struct{}

func (NoopLocker) Lock(context.Context, string, time.Duration) (func(), error) {
	return func() {}, nil
}

// releaseScript deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`

// RedisLocker implements Locker with SET NX PX and a token-checked release.
type RedisLocker struct {
	client *redis.Client
	prefix string
	poll   time.Duration
	log    zerolog.Logger
}

// NewRedisLocker connects to the Redis instance at url (redis://...) and
// verifies it answers PING.
func NewRedisLocker(ctx context.Context, url string, log zerolog.Logger) (*RedisLocker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisLockerWithClient(client, log), nil
}

// NewRedisLockerWithClient wraps an existing client.
func NewRedisLockerWithClient(client *redis.Client, log zerolog.Logger) *RedisLocker {
	return &RedisLocker{client: client, prefix: "mlserve:artifact-lock:", poll: 250 * time.Millisecond, log: log}
}

// Lock polls until the key is acquired or ctx ends. A lock held by a crashed
// replica expires after ttl.
func (l *RedisLocker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	token, err := lockToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate lock value: %w", err)
	}
	rkey := l.prefix + key
	for {
		ok, err := l.client.SetNX(ctx, rkey, token, ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("failed to acquire lock: %w", err)
		}
		if ok {
			l.log.Debug().Str("lock_key", rkey).Dur("ttl", ttl).Msg("lock acquired")
			return func() { l.release(rkey, token) }, nil
		}
		l.log.Debug().Str("lock_key", rkey).Msg("lock busy, waiting")
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lock %s: %w", key, ctx.Err())
		case <-time.After(l.poll):
		}
	}
}

func (l *RedisLocker) release(rkey, token string) {
	// Release even when the caller's context is already done.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	n, err := l.client.Eval(ctx, releaseScript, []string{rkey}, token).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		l.log.Error().Err(err).Str("lock_key", rkey).Msg("failed to release lock")
		return
	}
	if n == 0 {
		l.log.Warn().Str("lock_key", rkey).Msg("lock expired before release")
	}
}

// Close closes the underlying client.
func (l *RedisLocker) Close() error { return l.client.Close() }

func lockToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
