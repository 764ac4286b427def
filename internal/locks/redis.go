package locks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tbourn/nabostylisten-backend/internal/config"
)

// NewRedisClient builds a client from cfg.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: 10,
	})
}

// Ping checks the connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// unlockScript deletes the key only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0`)

// Redis is a Locker backed by SET NX PX.
type Redis struct {
	client redis.Cmdable
	prefix string
}

// NewRedis wraps client. Keys are stored under "nabostylisten:lock:".
func NewRedis(client redis.Cmdable) *Redis {
	return &Redis{client: client, prefix: "nabostylisten:lock:"}
}

// Acquire implements Locker.
func (r *Redis) Acquire(ctx context.Context, key string, ttl time.Duration) (Release, error) {
	full := r.prefix + key
	token := uuid.NewString()
	err := wait(ctx, func() (bool, error) {
		return r.client.SetNX(ctx, full, token, ttl).Result()
	})
	if err != nil {
		return nil, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// Detached so a cancelled request still frees the slot.
			rctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_ = unlockScript.Run(rctx, r.client, []string{full}, token).Err()
		})
	}, nil
}
