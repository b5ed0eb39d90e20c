package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// BlacklistFilter 是黑名单过滤器，过滤掉下架或被运营屏蔽的商品。
type BlacklistFilter struct {
	// ProductIDs 是内存中的黑名单商品 ID
	ProductIDs []string

	// Store 用于从存储中读取黑名单（可选）
	Store BlacklistStore

	// Key 是 Store 中的黑名单 key（可选）
	Key string
}

// BlacklistStore 是黑名单存储接口。
type BlacklistStore interface {
	GetBlacklist(ctx context.Context, key string) ([]string, error)
}

// NewBlacklistFilter 创建一个黑名单过滤器，store 可为 nil。
func NewBlacklistFilter(productIDs []string, store BlacklistStore, key string) *BlacklistFilter {
	return &BlacklistFilter{
		ProductIDs: productIDs,
		Store:      store,
		Key:        key,
	}
}

func (f *BlacklistFilter) Name() string {
	return "filter.blacklist"
}

func (f *BlacklistFilter) ShouldFilter(
	ctx context.Context,
	_ *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil {
		return true, nil
	}

	for _, id := range f.ProductIDs {
		if item.ID == id {
			return true, nil
		}
	}

	if f.Store != nil && f.Key != "" {
		blacklist, err := f.Store.GetBlacklist(ctx, f.Key)
		if err != nil {
			if core.IsStoreNotFound(err) {
				return false, nil
			}
			return false, err
		}
		for _, id := range blacklist {
			if item.ID == id {
				return true, nil
			}
		}
	}

	return false, nil
}

// Prepare 每次请求只读取一次存储中的黑名单，返回只含内存 ID 的快照。
// 存储读取失败时快照只包含 ProductIDs。
func (f *BlacklistFilter) Prepare(ctx context.Context, _ *core.RecommendContext) (Filter, error) {
	ids := append([]string(nil), f.ProductIDs...)
	if f.Store != nil && f.Key != "" {
		if stored, err := f.Store.GetBlacklist(ctx, f.Key); err == nil {
			ids = append(ids, stored...)
		}
	}
	return &BlacklistFilter{ProductIDs: ids}, nil
}
