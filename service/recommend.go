package service

import (
	"context"
	"fmt"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/recall"
)

// GetRecommendations 返回用户的个性化推荐，limit <= 0 时取 10，最多 100。
// 结果永远不包含用户交互过的商品；冷启动时返回热门商品。
func (s *RecommendService) GetRecommendations(ctx context.Context, userID string, limit int) ([]core.Product, error) {
	if userID == "" {
		return nil, core.NewValidationError(core.ModuleService, "user id is required")
	}
	limit = core.NormalizeLimit(limit, core.DefaultRecommendLimit)

	cached, ok := s.cache.Get(ctx, userID, limit)
	s.metrics.cacheResult(ok)
	if ok {
		s.metrics.recommendation(PathCache)
		return cached, nil
	}

	rctx := &core.RecommendContext{UserID: userID, Limit: limit}
	items, err := s.cf.Recall(ctx, rctx)
	if err != nil {
		return nil, fmt.Errorf("collaborative filtering: %w", err)
	}

	if lbl, cold := rctx.GetLabel(core.LabelColdStart); cold {
		path := PathColdStart
		if lbl.Value == recall.ColdStartNoNeighbors {
			path = PathNoNeighbors
		}
		s.metrics.recommendation(path)
		s.logger.Debug().Str("user_id", userID).Str("path", path).Msg("falling back to popular products")
		return s.GetPopularProducts(ctx, limit)
	}

	products, err := s.rank(ctx, rctx, items)
	if err != nil {
		return nil, err
	}

	s.cache.Put(ctx, userID, limit, products)
	s.metrics.recommendation(PathCF)
	s.logger.Debug().
		Str("user_id", userID).
		Int("limit", limit).
		Int("candidates", len(items)).
		Int("count", len(products)).
		Msg("recommendations computed")
	return products, nil
}

// rank 给能解析到商品的候选写入商品属性，跑完召回后的 Node 链（含 TopN 截断）后
// 再按目录解析；截断之后才丢弃目录中已不存在的商品，因此结果可能少于 limit。
func (s *RecommendService) rank(ctx context.Context, rctx *core.RecommendContext, items []*core.Item) ([]core.Product, error) {
	byID, err := s.lookup(ctx, items)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		if p, ok := byID[it.ID]; ok {
			annotate(it, p)
		}
	}

	out, err := s.pipeline.Run(ctx, rctx, items)
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	return collect(out, byID), nil
}

// GetPopularProducts 返回全站热门商品，limit <= 0 时取 10。
func (s *RecommendService) GetPopularProducts(ctx context.Context, limit int) ([]core.Product, error) {
	limit = core.NormalizeLimit(limit, core.DefaultPopularLimit)
	items, err := s.popular.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("popular products: %w", err)
	}
	return s.resolve(ctx, items)
}

// GetSimilarProducts 返回"买了这个的人还喜欢"，limit <= 0 时取 6。
// 没有人交互过该商品时返回同类目商品；商品不存在时返回空。
func (s *RecommendService) GetSimilarProducts(ctx context.Context, productID string, limit int) ([]core.Product, error) {
	if productID == "" {
		return nil, core.NewValidationError(core.ModuleService, "product id is required")
	}
	limit = core.NormalizeLimit(limit, core.DefaultSimilarLimit)
	items, err := s.similar.SimilarTo(ctx, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("similar products: %w", err)
	}
	return s.resolve(ctx, items)
}

// resolve 按 items 的顺序返回商品，目录中不存在的 ID 被丢弃。
func (s *RecommendService) resolve(ctx context.Context, items []*core.Item) ([]core.Product, error) {
	byID, err := s.lookup(ctx, items)
	if err != nil {
		return nil, err
	}
	return collect(items, byID), nil
}

// lookup 批量查询 items 对应的商品；召回时已带上商品的 item 不再查询。
func (s *RecommendService) lookup(ctx context.Context, items []*core.Item) (map[string]core.Product, error) {
	byID := make(map[string]core.Product, len(items))
	missing := make([]string, 0, len(items))
	for _, it := range items {
		if p, ok := it.Meta["product"].(core.Product); ok {
			byID[it.ID] = p
			continue
		}
		missing = append(missing, it.ID)
	}
	if len(missing) == 0 || s.catalog == nil {
		return byID, nil
	}

	products, err := s.catalog.FindByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}
	for _, p := range products {
		byID[p.ID] = p
	}
	return byID, nil
}

func collect(items []*core.Item, byID map[string]core.Product) []core.Product {
	out := make([]core.Product, 0, len(items))
	for _, it := range items {
		if p, ok := byID[it.ID]; ok {
			out = append(out, p)
		}
	}
	return out
}

// annotate 把过滤与打散会用到的商品属性写入 item.Meta。
func annotate(it *core.Item, p core.Product) {
	it.Meta["category"] = p.Category
	it.Meta["brand"] = p.Brand
	it.Meta["price"] = p.Price
	it.Meta["stock"] = p.Stock
	it.Meta["rating"] = p.Rating.Average
	it.Meta["tags"] = p.Tags
}
