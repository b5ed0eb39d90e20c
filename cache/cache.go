// Package cache 保存按 (user, limit) 计算好的推荐结果。
//
// 命中条件是 now - writtenAt < ttl；过期条目视为不存在但不主动清理，
// 下一次 Put 会覆盖它。缓存故障对调用方不可见，只会退化为未命中。
package cache

import (
	"context"
	"time"

	"github.com/rushteam/shoprec/core"
)

// Cache 是推荐结果缓存。
type Cache interface {
	// Get 返回未过期的缓存结果。
	Get(ctx context.Context, userID string, limit int) ([]core.Product, bool)

	// Put 无条件写入（覆盖）一条结果。
	Put(ctx context.Context, userID string, limit int, payload []core.Product)

	// Invalidate 删除用户在所有 limit 下的条目。
	Invalidate(ctx context.Context, userID string)

	// Clear 清空全部条目。
	Clear(ctx context.Context)
}

// Clock 返回当前时间，测试中可替换为模拟时钟。
type Clock func() time.Time

// Entry 是一条缓存结果。
type Entry struct {
	WrittenAt time.Time      `json:"writtenAt"`
	Payload   []core.Product `json:"payload"`
}

func (e Entry) fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.WrittenAt) < ttl
}

type options struct {
	clock Clock
}

// Option 配置缓存实现。
type Option func(*options)

// WithClock 替换缓存使用的时钟。
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func clonePayload(in []core.Product) []core.Product {
	if in == nil {
		return nil
	}
	out := make([]core.Product, len(in))
	copy(out, in)
	return out
}
