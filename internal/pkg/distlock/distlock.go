// Package distlock serializes the scheduler tick across server instances.
// A lock is a Redis key written with SET NX and a TTL; the TTL bounds how
// long a crashed holder can block the next tick.
package distlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DistLock is what the scheduler needs from a lock. A single instance is
// meant to be reused across ticks by one goroutine; it is not safe to share
// one instance between goroutines.
type DistLock interface {
	// Acquire attempts to take the lock without blocking.
	// Returns false when another holder currently owns it.
	Acquire(ctx context.Context) (bool, error)
	// Release frees the lock if this instance still owns it. Releasing a
	// lock that expired and was taken by someone else is a no-op.
	Release(ctx context.Context) error
}

// Lock is the Redis-backed DistLock used in production. Ownership is
// tracked with a per-instance token so an expired holder cannot release
// a lock that has since been re-acquired by another process.
type Lock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// New creates a lock on the given key. The key is namespaced under "lock:"
// so lock keys cannot collide with queue keys in the same Redis database.
func New(client *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    fmt.Sprintf("lock:%s", key),
		token:  uuid.NewString(),
		ttl:    ttl,
	}
}

// Acquire attempts SET NX with the configured TTL.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.key, l.token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	return ok, nil
}

var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Release deletes the key only when it still carries our token. The
// compare-and-delete runs as a Lua script so the check and the delete
// cannot interleave with another acquirer.
func (l *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
