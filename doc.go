// Package shoprec 是电商商品推荐服务（Shop Recommender）。
//
// 设计要点：
// - 基于用户的协同过滤：每次缓存未命中时从交互日志重建用户-商品矩阵，余弦相似度找近邻
// - 冷启动兜底：交互不足或没有相似用户时退化为热门商品，兜底结果不缓存
// - Pipeline: 召回候选经过可配置的 filter / rerank Node 链后按请求数量截断
// - 交互写入后立即失效该用户的推荐缓存
package shoprec

import "github.com/rushteam/shoprec/pipeline"

// 轻量 facade：便于直接 import "shoprec" 使用 Pipeline 抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindReRank      = pipeline.KindReRank
	KindPostProcess = pipeline.KindPostProcess
)
