package recall

import (
	"math"
	"sort"
)

// CosineSimilarity 计算两个稀疏向量的余弦相似度，取值 [0, 1]。
//
// 点积只在两者共同的商品上累加，模长使用各自的完整向量：
// 没有共同商品或任一模长为 0 时返回 0。
func CosineSimilarity(a, b UserVector) float64 {
	// 遍历较小的向量求交集
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	var dot float64
	common := 0
	for p, ws := range small {
		if wl, ok := large[p]; ok {
			dot += ws * wl
			common++
		}
	}
	if common == 0 {
		return 0
	}

	magA := magnitude(a)
	magB := magnitude(b)
	if magA == 0 || magB == 0 {
		return 0
	}
	// 浮点误差可能让自身相似度略大于 1
	return math.Min(dot/(magA*magB), 1)
}

func magnitude(v UserVector) float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}

// Neighbor 是一个相似用户。
type Neighbor struct {
	UserID     string  `json:"userId"`
	Similarity float64 `json:"similarity"`
}

// KNearestNeighbors 返回与 userID 最相似的 k 个用户（相似度 > 0，降序）。
//
//   - userID 不在矩阵中时返回空
//   - 不包含 userID 自己
//   - 相似度相同时保持矩阵中用户首次出现的顺序（稳定排序）
//   - k <= 0 表示不截断
func KNearestNeighbors(userID string, m *Matrix, k int) []Neighbor {
	if m == nil {
		return nil
	}
	target, ok := m.Vectors[userID]
	if !ok {
		return nil
	}

	neighbors := make([]Neighbor, 0)
	for _, other := range m.Users {
		if other == userID {
			continue
		}
		sim := CosineSimilarity(target, m.Vectors[other])
		if sim > 0 {
			neighbors = append(neighbors, Neighbor{UserID: other, Similarity: sim})
		}
	}

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Similarity > neighbors[j].Similarity
	})
	if k > 0 && len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}
