package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "seq:"

// setIfHigher only moves a counter forward.
var setIfHigher = redis.NewScript(`
local cur = tonumber(redis.call("GET", KEYS[1]) or "0")
local want = tonumber(ARGV[1])
if want < cur then
  return 0
end
redis.call("SET", KEYS[1], want)
return 1
`)

// RedisAllocator keeps counters as Redis integers advanced with INCR.
type RedisAllocator struct {
	client redis.Cmdable
}

// NewRedisAllocator constructs the allocator.
func NewRedisAllocator(client redis.Cmdable) *RedisAllocator {
	return &RedisAllocator{client: client}
}

// Next implements Allocator.
func (a *RedisAllocator) Next(ctx context.Context, key string) (int64, error) {
	value, err := a.client.Incr(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: incr %s: %v", ErrUnavailable, key, err)
	}
	return value, nil
}

// Current implements Allocator.
func (a *RedisAllocator) Current(ctx context.Context, key string) (int64, error) {
	value, err := a.client.Get(ctx, redisKeyPrefix+key).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: get %s: %v", ErrUnavailable, key, err)
	}
	return value, nil
}

// Set implements Allocator.
func (a *RedisAllocator) Set(ctx context.Context, key string, value int64) error {
	if value < 0 {
		return ErrBackwards
	}
	ok, err := setIfHigher.Run(ctx, a.client, []string{redisKeyPrefix + key}, value).Int()
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	if ok == 0 {
		return ErrBackwards
	}
	return nil
}
