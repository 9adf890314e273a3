package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// unlockScript releases a lock only when the caller still owns it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes hot write paths per key using SET NX PX. The database
// unique constraints remain the backstop: losing redis degrades to
// constraint-only behavior, never to accepting duplicates.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker builds a locker; ttl bounds how long a crashed holder can block
// a key.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Locker{client: client, ttl: ttl}
}

// TryLock attempts to take the key. It returns a release func and whether
// the lock was acquired. When redis is unreachable the lock is treated as
// acquired so the storage constraints decide.
func (l *Locker) TryLock(ctx context.Context, key string) (func(), bool) {
	if l == nil || l.client == nil {
		return func() {}, true
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return func() {}, true
	}
	if !ok {
		return func() {}, false
	}
	release := func() {
		bg, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = unlockScript.Run(bg, l.client, []string{key}, token).Err()
	}
	return release, true
}
