package recall

import (
	"context"
	"sort"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/utils"
)

// Popularity 是热门召回源，冷启动用户的兜底。
// 按商品汇总交互：购买次数优先（最强的意图信号），其次是累积权重，最后按商品 ID 升序。
// Popularity 同时实现了 Source 和 Node 接口，可以直接在 Pipeline 中使用。
type Popularity struct {
	Log core.InteractionLog

	// Limit 作为 Recall/Process 的默认截断数量；rctx.Limit 优先
	Limit int
}

func (r *Popularity) Name() string        { return "recall.popular" }
func (r *Popularity) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，直接调用 Recall
func (r *Popularity) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

// Recall 实现 Source 接口
func (r *Popularity) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	limit := r.Limit
	if rctx != nil && rctx.Limit > 0 {
		limit = rctx.Limit
	}
	return r.Top(ctx, limit)
}

// Top 返回最热门的 limit 个商品，limit <= 0 表示不截断。
func (r *Popularity) Top(ctx context.Context, limit int) ([]*core.Item, error) {
	if r.Log == nil {
		return nil, nil
	}

	aggs, err := r.Log.AggregateByProduct(ctx, core.AggregateFilter{})
	if err != nil {
		return nil, err
	}

	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].PurchaseCount != aggs[j].PurchaseCount {
			return aggs[i].PurchaseCount > aggs[j].PurchaseCount
		}
		if aggs[i].TotalWeight != aggs[j].TotalWeight {
			return aggs[i].TotalWeight > aggs[j].TotalWeight
		}
		return aggs[i].ProductID < aggs[j].ProductID
	})
	if limit > 0 && len(aggs) > limit {
		aggs = aggs[:limit]
	}

	out := make([]*core.Item, 0, len(aggs))
	for _, a := range aggs {
		it := core.NewItem(a.ProductID)
		it.Score = a.TotalWeight
		it.Meta["purchase_count"] = a.PurchaseCount
		it.PutLabel("recall_source", utils.RecallLabel("popular"))
		out = append(out, it)
	}
	return out, nil
}
