package core

import "time"

// RecommendConfig 提供推荐相关的默认值。
type RecommendConfig interface {
	// DefaultNeighbors 返回默认的 TopK 相似用户数
	DefaultNeighbors() int

	// DefaultMinInteractions 返回冷启动阈值：用户交互过的不同商品数低于该值时走热门兜底
	DefaultMinInteractions() int

	// DefaultCacheTTL 返回推荐结果缓存时间
	DefaultCacheTTL() time.Duration

	// DefaultRetention 返回交互日志保留时长
	DefaultRetention() time.Duration
}

// DefaultRecommendConfig 是默认的推荐配置实现。
type DefaultRecommendConfig struct{}

func (c *DefaultRecommendConfig) DefaultNeighbors() int {
	return 10
}

func (c *DefaultRecommendConfig) DefaultMinInteractions() int {
	return 3
}

func (c *DefaultRecommendConfig) DefaultCacheTTL() time.Duration {
	return time.Hour
}

func (c *DefaultRecommendConfig) DefaultRetention() time.Duration {
	return 180 * 24 * time.Hour
}

// 请求数量的默认值与上限
const (
	DefaultRecommendLimit = 10
	DefaultSimilarLimit   = 6
	DefaultPopularLimit   = 10
	MaxLimit              = 100
)

// NormalizeLimit 把 <= 0 的 limit 替换为 def，并截断到 MaxLimit。
func NormalizeLimit(limit, def int) int {
	if limit <= 0 {
		limit = def
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return limit
}
