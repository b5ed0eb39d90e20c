package recall

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/utils"
)

// MatrixSource 产出一份用户-商品矩阵，MatrixBuilder 是默认实现。
type MatrixSource interface {
	Build(ctx context.Context) (*Matrix, error)
}

// 冷启动原因，写入请求级 label core.LabelColdStart
const (
	ColdStartInsufficientInteractions = "insufficient_interactions"
	ColdStartNoNeighbors              = "no_neighbors"
)

// UserBasedCF 是基于用户的协同过滤召回源（u2i）。
//
// 算法流程：
//  1. 构建用户-商品矩阵（每次请求全量重建）
//  2. 目标用户交互过的不同商品数 < MinInteractions 时判定冷启动
//  3. 余弦相似度找 TopK 相似用户；一个都没有时同样判定冷启动
//  4. score[p] += similarity * weight，跳过目标用户已交互过的商品
//  5. 按分数降序输出（分数相同按商品 ID 升序）
//
// 冷启动时不返回任何候选，而是在 rctx 上写入 core.LabelColdStart，
// 由调用方决定兜底策略（通常是 Popularity）。
type UserBasedCF struct {
	Matrix MatrixSource

	// TopKSimilarUsers 参与打分的相似用户数，默认 10
	TopKSimilarUsers int

	// MinInteractions 冷启动阈值，默认 3
	MinInteractions int
}

func (r *UserBasedCF) Name() string        { return "recall.u2i" }
func (r *UserBasedCF) Kind() pipeline.Kind { return pipeline.KindRecall }

// Process 实现 Node 接口，忽略上游 items。
func (r *UserBasedCF) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	return r.Recall(ctx, rctx)
}

func (r *UserBasedCF) Recall(
	ctx context.Context,
	rctx *core.RecommendContext,
) ([]*core.Item, error) {
	if r.Matrix == nil || rctx == nil || rctx.UserID == "" {
		return nil, nil
	}

	matrix, err := r.Matrix.Build(ctx)
	if err != nil {
		return nil, err
	}

	minInteractions := r.MinInteractions
	if minInteractions <= 0 {
		minInteractions = 3
	}
	topK := r.TopKSimilarUsers
	if topK <= 0 {
		topK = 10
	}

	target := matrix.Vector(rctx.UserID)
	if len(target) < minInteractions {
		rctx.PutLabel(core.LabelColdStart, utils.Label{Value: ColdStartInsufficientInteractions, Source: r.Name()})
		return nil, nil
	}

	neighbors := KNearestNeighbors(rctx.UserID, matrix, topK)
	if len(neighbors) == 0 {
		rctx.PutLabel(core.LabelColdStart, utils.Label{Value: ColdStartNoNeighbors, Source: r.Name()})
		return nil, nil
	}

	return ScoreCandidates(target, neighbors, matrix), nil
}

// ScoreCandidates 汇总相似用户的向量：score[p] = Σ similarity * weight。
// 目标用户已交互过的商品永远不会出现在结果中。
func ScoreCandidates(target UserVector, neighbors []Neighbor, m *Matrix) []*core.Item {
	scores := make(map[string]float64)
	contributors := make(map[string]int)
	for _, n := range neighbors {
		for productID, weight := range m.Vector(n.UserID) {
			if _, seen := target[productID]; seen {
				continue
			}
			scores[productID] += n.Similarity * weight
			contributors[productID]++
		}
	}

	out := make([]*core.Item, 0, len(scores))
	for productID, score := range scores {
		it := core.NewItem(productID)
		it.Score = score
		it.Meta["neighbors"] = contributors[productID]
		it.PutLabel("recall_source", utils.RecallLabel("u2i"))
		out = append(out, it)
	}
	core.SortItemsByScore(out)
	return out
}
