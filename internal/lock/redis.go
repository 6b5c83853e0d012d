package lock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "matchledger:lock:"
	retryInterval = 25 * time.Millisecond
)

// unlockScript deletes the key only while it still holds our token, so an
// expired lock re-acquired by another replica is never released by us.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every replica pointing at the same Redis.
// Each key expires after ttl so a crashed holder cannot block forever.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis creates a Locker backed by client.
func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

// Connect parses a redis:// URL and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func (r *Redis) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("acquiring lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for lock %s: %w", key, ctx.Err())
		case <-time.After(retryInterval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := unlockScript.Run(context.Background(), r.client, []string{redisKey}, token).Err(); err != nil {
				log.Error("Failed to release lock", "key", key, "error", err)
			}
		})
	}, nil
}
