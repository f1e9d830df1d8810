package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

// keyPrefix keeps lock keys apart from anything else stored in the same Redis.
const keyPrefix = "mutex-adverthide-"

// Redis is a Locker shared by every process connected to the same Redis.
type Redis struct {
	client redis.UniversalClient
	rs     *redsync.Redsync
}

// Compile-time check that Redis implements Locker.
var _ Locker = (*Redis)(nil)

// NewRedis connects to the Redis server at addr.
func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 10 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return NewRedisFromClient(client), nil
}

// NewRedisFromClient wraps an existing client. Close closes the client.
func NewRedisFromClient(client redis.UniversalClient) *Redis {
	return &Redis{
		client: client,
		rs:     redsync.New(goredis.NewPool(client)),
	}
}

func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	mutex := r.rs.NewMutex(keyPrefix+key,
		redsync.WithExpiry(ttl),
		redsync.WithTries(1),
	)
	if err := mutex.TryLockContext(ctx); err != nil {
		if errors.Is(err, redsync.ErrFailed) || errors.As(err, new(*redsync.ErrTaken)) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("acquiring lock %s: %w", key, err)
	}

	release := func() {
		// The lock may have expired and been taken by someone else; redsync
		// only deletes it while the stored value is still ours.
		_, _ = mutex.UnlockContext(context.Background())
	}
	return release, true, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
