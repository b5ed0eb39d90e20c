package cache

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/rushteam/shoprec/core"
)

// StoreCache 把结果以 JSON 存入 core.KeyValueStore：
//
//	<prefix>:user:<userID>  hash，field 为 limit
//	<prefix>:users          zset，记录写过缓存的用户，供 Clear 使用
//
// 配合 store.RedisStore 可以在多个实例之间共享缓存。
// 后端错误只记录日志，Get 退化为未命中。
type StoreCache struct {
	store  core.KeyValueStore
	prefix string
	ttl    time.Duration
	clock  Clock
	logger zerolog.Logger
}

func NewStoreCache(kv core.KeyValueStore, prefix string, ttl time.Duration, logger zerolog.Logger, opts ...Option) *StoreCache {
	if prefix == "" {
		prefix = "shoprec:recs"
	}
	o := buildOptions(opts)
	return &StoreCache{
		store:  kv,
		prefix: prefix,
		ttl:    ttl,
		clock:  o.clock,
		logger: logger.With().Str("component", "cache").Str("backend", kv.Name()).Logger(),
	}
}

func (c *StoreCache) userKey(userID string) string { return c.prefix + ":user:" + userID }
func (c *StoreCache) indexKey() string             { return c.prefix + ":users" }

func (c *StoreCache) Get(ctx context.Context, userID string, limit int) ([]core.Product, bool) {
	data, err := c.store.HGet(ctx, c.userKey(userID), strconv.Itoa(limit))
	if err != nil {
		if !core.IsStoreNotFound(err) {
			c.logger.Warn().Err(err).Str("user_id", userID).Int("limit", limit).Msg("cache read failed")
		}
		return nil, false
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("cache entry corrupt")
		return nil, false
	}
	if !e.fresh(c.clock(), c.ttl) {
		return nil, false
	}
	return e.Payload, true
}

func (c *StoreCache) Put(ctx context.Context, userID string, limit int, payload []core.Product) {
	now := c.clock()
	data, err := json.Marshal(Entry{WrittenAt: now, Payload: payload})
	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("cache encode failed")
		return
	}

	key := c.userKey(userID)
	if err := c.store.HSet(ctx, key, strconv.Itoa(limit), data); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Int("limit", limit).Msg("cache write failed")
		return
	}
	if err := c.store.ZAdd(ctx, c.indexKey(), float64(now.Unix()), userID); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("cache index write failed")
	}
	// 后端 TTL 只负责回收空间，新鲜度仍由 writtenAt 判断
	if seconds := int(math.Ceil(c.ttl.Seconds())); seconds > 0 {
		if err := c.store.Expire(ctx, key, seconds); err != nil {
			c.logger.Warn().Err(err).Str("user_id", userID).Msg("cache expire failed")
		}
	}
}

func (c *StoreCache) Invalidate(ctx context.Context, userID string) {
	if err := c.store.Delete(ctx, c.userKey(userID)); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("cache invalidate failed")
	}
	if err := c.store.ZRem(ctx, c.indexKey(), userID); err != nil {
		c.logger.Warn().Err(err).Str("user_id", userID).Msg("cache index remove failed")
	}
}

func (c *StoreCache) Clear(ctx context.Context) {
	users, err := c.store.ZRange(ctx, c.indexKey(), 0, -1)
	if err != nil && !core.IsStoreNotFound(err) {
		c.logger.Warn().Err(err).Msg("cache clear: list users failed")
		return
	}
	keys := make([]string, 0, len(users)+1)
	for _, u := range users {
		keys = append(keys, c.userKey(u))
	}
	keys = append(keys, c.indexKey())
	if err := c.store.Delete(ctx, keys...); err != nil {
		c.logger.Warn().Err(err).Int("count", len(users)).Msg("cache clear failed")
	}
}

var (
	_ Cache = (*MemoryCache)(nil)
	_ Cache = (*StoreCache)(nil)
)
