package core

import (
	"fmt"
	"strings"
	"time"
)

// InteractionType 是用户对商品的行为类型，决定了该行为在协同过滤中的强度。
type InteractionType string

const (
	InteractionView      InteractionType = "view"
	InteractionClick     InteractionType = "click"
	InteractionAddToCart InteractionType = "add_to_cart"
	InteractionPurchase  InteractionType = "purchase"
)

// InteractionTypes 是合法的行为类型，按购买意图从弱到强排列。
var InteractionTypes = []InteractionType{
	InteractionView,
	InteractionClick,
	InteractionAddToCart,
	InteractionPurchase,
}

// Weight 返回行为在用户向量中的权重：
// view=1，click=2，add_to_cart=3，purchase=5；未知类型按 1 计。
func (t InteractionType) Weight() float64 {
	switch t {
	case InteractionClick:
		return 2
	case InteractionAddToCart:
		return 3
	case InteractionPurchase:
		return 5
	default:
		return 1
	}
}

// Valid 判断 t 是否属于 InteractionTypes。
func (t InteractionType) Valid() bool {
	for _, v := range InteractionTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ParseInteractionType 把外部传入的字符串转换为 InteractionType，不在枚举内时返回校验错误。
func ParseInteractionType(s string) (InteractionType, error) {
	t := InteractionType(s)
	if !t.Valid() {
		names := make([]string, 0, len(InteractionTypes))
		for _, v := range InteractionTypes {
			names = append(names, string(v))
		}
		return "", NewValidationError(ModuleInteraction,
			fmt.Sprintf("invalid interaction type %q, must be one of: %s", s, strings.Join(names, ", ")))
	}
	return t, nil
}

// InteractionMetadata 是行为的上下文信息。
type InteractionMetadata struct {
	SessionID string  `json:"sessionId,omitempty" bson:"sessionId,omitempty"`
	Source    string  `json:"source,omitempty" bson:"source,omitempty"`     // search / recommendation / category ...
	Duration  float64 `json:"duration,omitempty" bson:"duration,omitempty"` // seconds spent on the product
}

// Interaction 是交互日志中的一条记录。
// Weight 在创建时由 Type 决定，之后不再变化。
type Interaction struct {
	ID        string              `json:"id" bson:"_id"`
	UserID    string              `json:"userId" bson:"user"`
	ProductID string              `json:"productId" bson:"product"`
	Type      InteractionType     `json:"type" bson:"type"`
	Weight    float64             `json:"weight" bson:"weight"`
	Metadata  InteractionMetadata `json:"metadata" bson:"metadata"`
	CreatedAt time.Time           `json:"createdAt" bson:"createdAt"`
}

// NewInteraction 创建交互记录，权重由 typ 推导。
func NewInteraction(id, userID, productID string, typ InteractionType, md InteractionMetadata, at time.Time) *Interaction {
	return &Interaction{
		ID:        id,
		UserID:    userID,
		ProductID: productID,
		Type:      typ,
		Weight:    typ.Weight(),
		Metadata:  md,
		CreatedAt: at,
	}
}

// ProductAggregate 是按商品聚合后的交互统计。
type ProductAggregate struct {
	ProductID     string  `json:"productId" bson:"_id"`
	TotalWeight   float64 `json:"totalWeight" bson:"totalWeight"`
	PurchaseCount int64   `json:"purchaseCount" bson:"purchaseCount"`
	Interactions  int64   `json:"interactions" bson:"interactions"`
}

// ProductStats 是单个商品按行为类型的计数。
type ProductStats struct {
	Views      int64 `json:"views"`
	Clicks     int64 `json:"clicks"`
	AddToCarts int64 `json:"addToCarts"`
	Purchases  int64 `json:"purchases"`
	Total      int64 `json:"total"`
}

// Add 计入一次类型为 t 的行为。
func (s *ProductStats) Add(t InteractionType) {
	switch t {
	case InteractionView:
		s.Views++
	case InteractionClick:
		s.Clicks++
	case InteractionAddToCart:
		s.AddToCarts++
	case InteractionPurchase:
		s.Purchases++
	}
	s.Total++
}
