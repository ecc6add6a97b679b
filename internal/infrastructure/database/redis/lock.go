package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/turtacn/opgrader/pkg/errors"
)

var (
	ErrLockNotAcquired = errors.New(errors.ErrCodeValidation, "failed to acquire lock")
	ErrLockNotHeld     = errors.New(errors.ErrCodeValidation, "lock not held by this owner")
)

// unlockScript releases a lock only when this owner still holds it.
var unlockScript = redis.NewScript(`
	if redis.call("GET", KEYS[1]) == ARGV[1] then
		return redis.call("DEL", KEYS[1])
	else
		return 0
	end
`)

const (
	lockRetryDelay = 100 * time.Millisecond
	lockRetryCount = 30
)

// Mutex is a single-owner distributed lock keyed by name.
type Mutex struct {
	client *Client
	name   string
	value  string
	ttl    time.Duration
}

// NewMutex builds a mutex with a random owner token.
func NewMutex(client *Client, name string, ttl time.Duration) *Mutex {
	return &Mutex{
		client: client,
		name:   name,
		value:  uuid.NewString(),
		ttl:    ttl,
	}
}

func (m *Mutex) key() string {
	return "opgrader:lock:" + m.name
}

// Lock acquires the mutex, retrying until the retry budget or the context
// runs out.
func (m *Mutex) Lock(ctx context.Context) error {
	for i := 0; i < lockRetryCount; i++ {
		ok, err := m.client.Underlying().SetNX(ctx, m.key(), m.value, m.ttl).Result()
		if err != nil && err != redis.Nil {
			return errors.Wrap(err, errors.ErrCodeCacheError, "failed to set lock")
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockRetryDelay):
		}
	}
	return ErrLockNotAcquired
}

// Unlock releases the mutex if this owner still holds it.
func (m *Mutex) Unlock(ctx context.Context) error {
	res, err := unlockScript.Run(ctx, m.client.Underlying(), []string{m.key()}, m.value).Result()
	if err != nil {
		return err
	}
	if res.(int64) == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// Locker adapts redis mutexes to the rubric service's lock port: each
// WithLock call takes a fresh mutex for the key, runs fn, and releases.
type Locker struct {
	client *Client
}

// NewLocker builds the lock adapter.
func NewLocker(client *Client) *Locker {
	return &Locker{client: client}
}

// WithLock runs fn while holding the named lock.
func (l *Locker) WithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) error {
	m := NewMutex(l.client, key, ttl)
	if err := m.Lock(ctx); err != nil {
		return err
	}
	defer m.Unlock(context.WithoutCancel(ctx))
	return fn(ctx)
}
