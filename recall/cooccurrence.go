package recall

import (
	"context"
	"fmt"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

// ItemCooccurrence 是"买了这个的人还喜欢"召回（i2i 的轻量近似）。
//
//  1. 找出与目标商品交互过的用户
//  2. 汇总这些用户在其它商品上的累积权重，降序取 TopN
//  3. 没有任何用户交互过目标商品时，退化为同类目商品（不含自己）
//
// 它不依赖 MatrixBuilder，直接基于交互日志的聚合查询。
type ItemCooccurrence struct {
	Log     core.InteractionLog
	Catalog core.Catalog
}

func (r *ItemCooccurrence) Name() string { return "recall.i2i" }

func (r *ItemCooccurrence) SimilarTo(ctx context.Context, productID string, limit int) ([]*core.Item, error) {
	if r.Log == nil || productID == "" {
		return nil, nil
	}

	interactions, err := r.Log.FindByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("find product interactions: %w", err)
	}

	users := distinct(interactions, func(it core.Interaction) string { return it.UserID })
	if len(users) == 0 {
		return r.sameCategory(ctx, productID, limit)
	}

	aggs, err := r.Log.AggregateByProduct(ctx, core.AggregateFilter{
		UserIDs:          users,
		ExcludeProductID: productID,
	})
	if err != nil {
		return nil, fmt.Errorf("aggregate co-occurrence: %w", err)
	}

	out := make([]*core.Item, 0, len(aggs))
	for _, a := range aggs {
		it := core.NewItem(a.ProductID)
		it.Score = a.TotalWeight
		it.PutLabel("recall_source", utils.RecallLabel("i2i"))
		out = append(out, it)
	}
	core.SortItemsByScore(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// sameCategory 是无共现数据时的兜底；目标商品不存在时返回空。
func (r *ItemCooccurrence) sameCategory(ctx context.Context, productID string, limit int) ([]*core.Item, error) {
	if r.Catalog == nil {
		return nil, nil
	}
	product, err := r.Catalog.FindByID(ctx, productID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find product: %w", err)
	}

	products, err := r.Catalog.FindByCategory(ctx, product.Category, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("find same category: %w", err)
	}

	out := make([]*core.Item, 0, len(products))
	for _, p := range products {
		if p.ID == productID {
			continue
		}
		it := core.NewItem(p.ID)
		it.Meta["product"] = p
		it.PutLabel("recall_source", utils.RecallLabel("category"))
		out = append(out, it)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
