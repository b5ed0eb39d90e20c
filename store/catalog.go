package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rushteam/shoprec/core"
)

// MemoryCatalog 是内存实现的商品目录。
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]core.Product
}

func NewMemoryCatalog(products ...core.Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]core.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

var _ core.Catalog = (*MemoryCatalog)(nil)

// LoadCatalogFile 从 JSON 数组文件读取商品，用于内存目录的初始数据。
func LoadCatalogFile(path string) ([]core.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	var products []core.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}
	return products, nil
}

// Upsert 写入或覆盖商品。
func (c *MemoryCatalog) Upsert(products ...core.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range products {
		c.products[p.ID] = p
	}
}

// Delete 删除商品。
func (c *MemoryCatalog) Delete(ids ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.products, id)
	}
}

func (c *MemoryCatalog) FindByIDs(ctx context.Context, ids []string) ([]core.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]core.Product, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *MemoryCatalog) FindByID(ctx context.Context, id string) (*core.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[id]
	if !ok {
		return nil, core.NewNotFoundError(core.ModuleCatalog, "product "+id+" not found")
	}
	return &p, nil
}

// FindByCategory 按 ID 升序返回，保证结果稳定。
func (c *MemoryCatalog) FindByCategory(ctx context.Context, category, excludeID string, limit int) ([]core.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []core.Product
	for id, p := range c.products {
		if id == excludeID || p.Category != category {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
