package slotlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var (
	// ErrSlotHeld means another booking currently holds the slot key.
	ErrSlotHeld = errors.New("slot lock held by another booking")
)

// Locker serializes concurrent bookings of the same provider slot. Acquire
// returns an owner token; Release only removes the lock while that token is
// still the one stored.
type Locker interface {
	Acquire(ctx context.Context, key string) (string, error)
	Release(ctx context.Context, key, token string) error
}

// Key builds the lock key for one provider slot.
func Key(providerID, date, timeOfDay string) string {
	return fmt.Sprintf("lock:slot:%s:%s:%s", providerID, date, timeOfDay)
}

const defaultTTL = 10 * time.Second

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker creates a locker backed by a per slot Redis key. The TTL
// bounds how long a crashed holder can keep the slot; ttl <= 0 selects the
// default.
func NewRedisLocker(client *redis.Client, ttl time.Duration) Locker {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &redisLocker{client: client, ttl: ttl}
}

func (l *redisLocker) Acquire(ctx context.Context, key string) (string, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", fmt.Errorf("acquire slot lock: %w", err)
	}
	if !ok {
		return "", ErrSlotHeld
	}
	return token, nil
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *redisLocker) Release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release slot lock: %w", err)
	}
	return nil
}
