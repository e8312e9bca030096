package rediscache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// unlockScript удаляет ключ, только если он всё ещё принадлежит нам.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a single-key lease lock. The TTL bounds how long a crashed worker
// can keep others from running.
type Locker struct {
	c     *redis.Client
	owner string
}

func NewLocker(addr string) *Locker {
	return &Locker{
		c:     redis.NewClient(&redis.Options{Addr: addr}),
		owner: uuid.NewString(),
	}
}

func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := l.c.SetNX(ctx, key, l.owner, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis lock")
	}
	return ok, nil
}

func (l *Locker) Unlock(ctx context.Context, key string) error {
	if err := unlockScript.Run(ctx, l.c, []string{key}, l.owner).Err(); err != nil {
		return errors.Wrap(err, "redis unlock")
	}
	return nil
}

func (l *Locker) Ping(ctx context.Context) error {
	return errors.Wrap(l.c.Ping(ctx).Err(), "redis ping")
}

func (l *Locker) Close() error {
	return l.c.Close()
}
