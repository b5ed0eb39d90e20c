// Package builders 注册召回之后可由 YAML 配置装配的内置 Node。
package builders

import (
	"fmt"

	"github.com/rushteam/shoprec/config"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/pkg/conv"
	"github.com/rushteam/shoprec/rerank"
)

func init() {
	config.Register("filter.expr", BuildExprFilterNode)
	config.Register("filter.blacklist", BuildBlacklistNode)
	config.Register("rerank.diversity", BuildDiversityNode)
	config.Register("rerank.topn", BuildTopNNode)
}

// BuildExprFilterNode 配置：expr（CEL 表达式，必填）。
func BuildExprFilterNode(cfg map[string]any) (pipeline.Node, error) {
	expr := conv.ConfigGet(cfg, "expr", "")
	if expr == "" {
		return nil, fmt.Errorf("expr not found")
	}
	f, err := filter.NewExprFilter(expr)
	if err != nil {
		return nil, err
	}
	return &filter.FilterNode{Filters: []filter.Filter{f}}, nil
}

// BuildBlacklistNode 配置：product_ids（静态黑名单）。
func BuildBlacklistNode(cfg map[string]any) (pipeline.Node, error) {
	ids := conv.SliceAnyToString(cfg["product_ids"])
	if len(ids) == 0 {
		return nil, fmt.Errorf("product_ids not found or empty")
	}
	return &filter.FilterNode{Filters: []filter.Filter{filter.NewBlacklistFilter(ids, nil, "")}}, nil
}

func BuildDiversityNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.Diversity{
		LabelKey:       conv.ConfigGet(cfg, "label_key", "category"),
		MaxPerCategory: conv.ConfigGetInt(cfg, "max_per_category", 1),
	}, nil
}

func BuildTopNNode(cfg map[string]any) (pipeline.Node, error) {
	return &rerank.TopNNode{N: conv.ConfigGetInt(cfg, "n", 0)}, nil
}
