package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/shoprec/core"
)

// RedisStore 是 Redis 实现的 KeyValueStore。
// 多实例部署时用它承载共享的推荐结果缓存。
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(addr string, db int) (*RedisStore, error) {
	return NewRedisStoreWithOptions(&redis.Options{
		Addr: addr,
		DB:   db,
	})
}

// NewRedisStoreWithOptions 按完整的 redis.Options 建立连接并 ping 一次。
func NewRedisStoreWithOptions(opts *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, core.NewDependencyError(core.ModuleStore, "ping redis", err)
	}
	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient 复用外部创建的 client（例如测试中的 miniredis）。
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) Name() string { return "redis" }

func wrapRedis(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, redis.Nil) {
		return core.ErrStoreNotFound
	}
	return core.NewDependencyError(core.ModuleStore, op, err)
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, wrapRedis("redis get", err)
	}
	return val, nil
}

func (r *RedisStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	var expiration time.Duration
	if len(ttl) > 0 && ttl[0] > 0 {
		expiration = time.Duration(ttl[0]) * time.Second
	}
	return wrapRedis("redis set", r.client.Set(ctx, key, value, expiration).Err())
}

func (r *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return wrapRedis("redis del", r.client.Del(ctx, keys...).Err())
}

func (r *RedisStore) Expire(ctx context.Context, key string, seconds int) error {
	if seconds <= 0 {
		return r.Delete(ctx, key)
	}
	return wrapRedis("redis expire", r.client.Expire(ctx, key, time.Duration(seconds)*time.Second).Err())
}

func (r *RedisStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	return wrapRedis("redis zadd", r.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err())
}

func (r *RedisStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	members, err := r.client.ZRevRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, wrapRedis("redis zrevrange", err)
	}
	return members, nil
}

func (r *RedisStore) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return wrapRedis("redis zrem", r.client.ZRem(ctx, key, args...).Err())
}

func (r *RedisStore) HGet(ctx context.Context, key, field string) ([]byte, error) {
	val, err := r.client.HGet(ctx, key, field).Bytes()
	if err != nil {
		return nil, wrapRedis("redis hget", err)
	}
	return val, nil
}

func (r *RedisStore) HSet(ctx context.Context, key, field string, value []byte) error {
	return wrapRedis("redis hset", r.client.HSet(ctx, key, field, value).Err())
}

func (r *RedisStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	vals, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, wrapRedis("redis hgetall", err)
	}
	result := make(map[string][]byte, len(vals))
	for k, v := range vals {
		result[k] = []byte(v)
	}
	return result, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// 确保 RedisStore 实现了 core.Store 和 core.KeyValueStore 接口
var _ core.Store = (*RedisStore)(nil)
var _ core.KeyValueStore = (*RedisStore)(nil)
