package recall

import (
	"context"
	"fmt"

	"github.com/rushteam/shoprec/core"
)

// UserVector 是单个用户的稀疏行为向量：productID -> 累积权重。
// 缺失的 key 表示没有交互。
type UserVector map[string]float64

// Matrix 是用户-商品交互矩阵：userID -> UserVector。
// Users 保留用户首次出现的顺序，用于相似度并列时的稳定排序。
type Matrix struct {
	Vectors  map[string]UserVector
	Users    []string
	Products map[string]struct{}
}

// NewMatrix 创建空矩阵。
func NewMatrix() *Matrix {
	return &Matrix{
		Vectors:  make(map[string]UserVector),
		Products: make(map[string]struct{}),
	}
}

// Add 把一次交互的权重累加到 (user, product) 上。
func (m *Matrix) Add(userID, productID string, weight float64) {
	vec, ok := m.Vectors[userID]
	if !ok {
		vec = make(UserVector)
		m.Vectors[userID] = vec
		m.Users = append(m.Users, userID)
	}
	vec[productID] += weight
	m.Products[productID] = struct{}{}
}

// Vector 返回用户向量，不存在时返回空向量。
func (m *Matrix) Vector(userID string) UserVector {
	if m == nil {
		return UserVector{}
	}
	if vec, ok := m.Vectors[userID]; ok {
		return vec
	}
	return UserVector{}
}

// MatrixFromVectors 由现成的向量构建矩阵，users 决定遍历顺序；
// 不在 users 中的向量按 map 顺序追加。
func MatrixFromVectors(users []string, vectors map[string]UserVector) *Matrix {
	m := NewMatrix()
	add := func(u string) {
		if _, done := m.Vectors[u]; done {
			return
		}
		vec, ok := vectors[u]
		if !ok {
			return
		}
		m.Vectors[u] = vec
		m.Users = append(m.Users, u)
		for p := range vec {
			m.Products[p] = struct{}{}
		}
	}
	for _, u := range users {
		add(u)
	}
	for u := range vectors {
		add(u)
	}
	return m
}

// MatrixBuilder 扫描交互日志，构建用户-商品矩阵。
//
// 引用了已删除商品（Catalog 查不到）或已删除用户（Users 判定不存在）的交互被跳过而不是报错。
// Catalog / Users 为空时不做对应的校验。
//
// 每次缓存未命中都会全量重建，不做增量维护。
type MatrixBuilder struct {
	Log     core.InteractionLog
	Catalog core.Catalog
	Users   core.UserDirectory
}

func (b *MatrixBuilder) Build(ctx context.Context) (*Matrix, error) {
	if b.Log == nil {
		return NewMatrix(), nil
	}

	interactions, err := b.Log.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load interactions: %w", err)
	}

	productOK, err := b.resolveProducts(ctx, interactions)
	if err != nil {
		return nil, err
	}
	userOK, err := b.resolveUsers(ctx, interactions)
	if err != nil {
		return nil, err
	}

	m := NewMatrix()
	for _, it := range interactions {
		if it.UserID == "" || it.ProductID == "" {
			continue
		}
		if productOK != nil && !productOK[it.ProductID] {
			continue
		}
		if userOK != nil && !userOK[it.UserID] {
			continue
		}
		m.Add(it.UserID, it.ProductID, it.Weight)
	}
	return m, nil
}

func (b *MatrixBuilder) resolveProducts(ctx context.Context, interactions []core.Interaction) (map[string]bool, error) {
	if b.Catalog == nil {
		return nil, nil
	}
	ids := distinct(interactions, func(it core.Interaction) string { return it.ProductID })
	products, err := b.Catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve products: %w", err)
	}
	ok := make(map[string]bool, len(products))
	for _, p := range products {
		ok[p.ID] = true
	}
	return ok, nil
}

func (b *MatrixBuilder) resolveUsers(ctx context.Context, interactions []core.Interaction) (map[string]bool, error) {
	if b.Users == nil {
		return nil, nil
	}
	ids := distinct(interactions, func(it core.Interaction) string { return it.UserID })
	ok, err := b.Users.Existing(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve users: %w", err)
	}
	if ok == nil {
		ok = map[string]bool{}
	}
	return ok, nil
}

func distinct(interactions []core.Interaction, key func(core.Interaction) string) []string {
	seen := make(map[string]struct{}, len(interactions))
	out := make([]string, 0)
	for _, it := range interactions {
		k := key(it)
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
