package core

import (
	"context"
	"time"
)

// Store 是键值存储的领域接口。
//
// 设计原则：
//   - 定义在领域层（core），由基础设施层（store）实现
//   - 遵循依赖倒置原则：领域层定义接口，基础设施层实现接口
//
// 使用场景：
//   - 推荐结果缓存（cache.StoreCache）
//
// 实现：
//   - store.MemoryStore 实现此接口
//   - store.RedisStore 实现此接口
type Store interface {
	// Name 返回存储后端名称（用于日志/监控）
	Name() string

	// Get 读取单个 key 的值
	Get(ctx context.Context, key string) ([]byte, error)

	// Set 写入单个 key-value，ttl 单位为秒
	Set(ctx context.Context, key string, value []byte, ttl ...int) error

	// Delete 删除 key
	Delete(ctx context.Context, keys ...string) error

	// Close 关闭连接/释放资源
	Close() error
}

// KeyValueStore 是 Store 的扩展接口，支持有序集合与哈希表。
type KeyValueStore interface {
	Store

	// ZAdd 向有序集合添加成员
	ZAdd(ctx context.Context, key string, score float64, member string) error

	// ZRange 按分数降序获取有序集合成员
	ZRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ZRem 从有序集合移除成员
	ZRem(ctx context.Context, key string, members ...string) error

	// HGet 读取 Hash 字段
	HGet(ctx context.Context, key, field string) ([]byte, error)

	// HSet 写入 Hash 字段
	HSet(ctx context.Context, key, field string, value []byte) error

	// HGetAll 读取整个 Hash
	HGetAll(ctx context.Context, key string) (map[string][]byte, error)

	// Expire 为任意类型的 key 设置过期时间（秒）
	Expire(ctx context.Context, key string, seconds int) error
}

// ErrStoreNotFound 表示 key 不存在
var ErrStoreNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "store: key not found")

// IsStoreNotFound 检查错误是否为 key 不存在
func IsStoreNotFound(err error) bool {
	domainErr := GetDomainError(err)
	return domainErr != nil && domainErr.Module == ModuleStore && domainErr.Code == ErrorCodeNotFound
}

// InteractionQuery 是按用户查询交互历史的条件。
type InteractionQuery struct {
	Type  InteractionType // 为空表示不过滤
	Limit int             // <= 0 表示不限制
	Skip  int
}

// AggregateFilter 限定 AggregateByProduct 的统计范围，零值表示全部交互。
type AggregateFilter struct {
	UserIDs          []string // 只统计这些用户的交互
	ExcludeProductID string   // 排除某个商品
}

// InteractionLog 是交互日志（只追加）的领域接口。
// 所有读操作返回普通切片，不跨调用持有游标。
type InteractionLog interface {
	// Insert 追加交互记录
	Insert(ctx context.Context, interactions ...*Interaction) error

	// FindAll 返回全部交互，用于构建用户-商品矩阵
	FindAll(ctx context.Context) ([]Interaction, error)

	// FindByUser 按时间倒序返回用户的交互
	FindByUser(ctx context.Context, userID string, q InteractionQuery) ([]Interaction, error)

	// FindByProduct 返回商品的全部交互
	FindByProduct(ctx context.Context, productID string) ([]Interaction, error)

	// AggregateByProduct 按商品汇总权重与购买次数（顺序不保证）
	AggregateByProduct(ctx context.Context, f AggregateFilter) ([]ProductAggregate, error)

	// DeleteByUser 删除用户的全部交互（被遗忘权）
	DeleteByUser(ctx context.Context, userID string) (int64, error)

	// DeleteBefore 删除 createdAt 早于 t 的交互，返回受影响的用户
	DeleteBefore(ctx context.Context, t time.Time) ([]string, int64, error)
}

// Catalog 是只读的商品目录。
type Catalog interface {
	// FindByIDs 批量查询，返回顺序不保证，不存在的 ID 直接缺席
	FindByIDs(ctx context.Context, ids []string) ([]Product, error)

	// FindByID 不存在时返回 NOT_FOUND
	FindByID(ctx context.Context, id string) (*Product, error)

	// FindByCategory 返回同类目商品，排除 excludeID
	FindByCategory(ctx context.Context, category, excludeID string, limit int) ([]Product, error)
}

// UserDirectory 用于判断交互中的用户是否仍然存在（例如已注销）。
type UserDirectory interface {
	// Existing 返回 ids 中仍然存在的用户
	Existing(ctx context.Context, ids []string) (map[string]bool, error)
}
