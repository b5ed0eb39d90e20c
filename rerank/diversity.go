package rerank

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
)

// Diversity 按类目打散：同一类目最多保留 MaxPerCategory 个商品（保留先出现的）。
// 类别来源优先级：
// - label[LabelKey].Value
// - meta[LabelKey] (string)
//
// 没有类别信息的商品不受限制。
type Diversity struct {
	LabelKey       string // 默认 "category"
	MaxPerCategory int    // 默认 1
}

func (n *Diversity) Name() string {
	return "rerank.diversity"
}

func (n *Diversity) Kind() pipeline.Kind {
	return pipeline.KindReRank
}

func (n *Diversity) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	if len(items) == 0 {
		return items, nil
	}

	key := n.LabelKey
	if key == "" {
		key = "category"
	}
	max := n.MaxPerCategory
	if max <= 0 {
		max = 1
	}

	seen := make(map[string]int, 32)
	out := make([]*core.Item, 0, len(items))

	for _, it := range items {
		if it == nil {
			continue
		}
		cate := categoryOf(it, key)
		if cate == "" {
			out = append(out, it)
			continue
		}
		if seen[cate] >= max {
			continue
		}
		seen[cate]++
		out = append(out, it)
	}

	return out, nil
}

func categoryOf(it *core.Item, key string) string {
	if lbl, ok := it.Labels[key]; ok && lbl.Value != "" {
		return lbl.Value
	}
	if v, ok := it.Meta[key].(string); ok {
		return v
	}
	return ""
}
