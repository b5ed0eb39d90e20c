package core

import "github.com/rushteam/shoprec/pkg/utils"

// RecommendContext 承载一次推荐请求的用户与参数，贯穿整个 Pipeline 透传。
type RecommendContext struct {
	UserID string

	// Limit 是本次请求期望返回的商品数量
	Limit int

	// Labels 是请求级标签，可驱动整个 Pipeline 行为
	// 例如 UserBasedCF 写入 cold_start，服务层据此切换到热门兜底
	Labels map[string]utils.Label

	// Params 请求级上下文参数
	Params map[string]any
}

// LabelColdStart 是请求级 label，Value 为兜底原因。
const LabelColdStart = "cold_start"

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
