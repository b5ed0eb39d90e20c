package core

import "time"

// Product 是商品目录中的一条记录，推荐结果最终以它的形式返回给调用方。
type Product struct {
	ID             string            `json:"id" bson:"_id"`
	Name           string            `json:"name" bson:"name"`
	Description    string            `json:"description,omitempty" bson:"description,omitempty"`
	Price          float64           `json:"price" bson:"price"`
	Category       string            `json:"category" bson:"category"`
	Brand          string            `json:"brand,omitempty" bson:"brand,omitempty"`
	Specifications map[string]string `json:"specifications,omitempty" bson:"specifications,omitempty"`
	Image          string            `json:"image,omitempty" bson:"image,omitempty"`
	Stock          int               `json:"stock" bson:"stock"`
	Rating         ProductRating     `json:"rating" bson:"rating"`
	Tags           []string          `json:"tags,omitempty" bson:"tags,omitempty"`
	CreatedAt      time.Time         `json:"createdAt" bson:"createdAt"`
}

type ProductRating struct {
	Average float64 `json:"average" bson:"average"`
	Count   int     `json:"count" bson:"count"`
}
