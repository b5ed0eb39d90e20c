package utils

// Label 随商品或请求在链路中透传，用于解释推荐来源与驱动策略。
// Value 与 Source 的语义由调用方约定，例如 {Value: "u2i", Source: "recall"}。
type Label struct {
	Value  string `json:"value"`
	Source string `json:"source"` // recall / filter / rerank / service ...
}

// RecallLabel 构造召回阶段产出的 Label。
func RecallLabel(value string) Label {
	return Label{Value: value, Source: "recall"}
}

// MergeLabel 合并同名 Label：Value 以 '|' 累积，Source 以 ',' 累积，空值不参与合并。
func MergeLabel(existing Label, incoming Label) Label {
	if existing.Value == "" {
		return incoming
	}
	if incoming.Value == "" {
		return existing
	}

	merged := Label{Value: existing.Value + "|" + incoming.Value}
	switch {
	case existing.Source == "":
		merged.Source = incoming.Source
	case incoming.Source == "", incoming.Source == existing.Source:
		merged.Source = existing.Source
	default:
		merged.Source = existing.Source + "," + incoming.Source
	}
	return merged
}
