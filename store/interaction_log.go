package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/shoprec/core"
)

// MemoryInteractionLog 是内存实现的交互日志，用于测试/开发。
// 读操作返回拷贝，调用方可以随意修改。
type MemoryInteractionLog struct {
	mu   sync.RWMutex
	rows []core.Interaction
}

func NewMemoryInteractionLog() *MemoryInteractionLog {
	return &MemoryInteractionLog{}
}

var _ core.InteractionLog = (*MemoryInteractionLog)(nil)

func (l *MemoryInteractionLog) Insert(ctx context.Context, interactions ...*core.Interaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, it := range interactions {
		if it == nil {
			continue
		}
		l.rows = append(l.rows, *it)
	}
	return nil
}

func (l *MemoryInteractionLog) FindAll(ctx context.Context) ([]core.Interaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]core.Interaction, len(l.rows))
	copy(out, l.rows)
	return out, nil
}

func (l *MemoryInteractionLog) FindByUser(ctx context.Context, userID string, q core.InteractionQuery) ([]core.Interaction, error) {
	l.mu.RLock()
	var out []core.Interaction
	for _, row := range l.rows {
		if row.UserID != userID {
			continue
		}
		if q.Type != "" && row.Type != q.Type {
			continue
		}
		out = append(out, row)
	}
	l.mu.RUnlock()

	// 最新的在前；同一时刻按写入顺序倒序
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if q.Skip > 0 {
		if q.Skip >= len(out) {
			return nil, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (l *MemoryInteractionLog) FindByProduct(ctx context.Context, productID string) ([]core.Interaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []core.Interaction
	for _, row := range l.rows {
		if row.ProductID == productID {
			out = append(out, row)
		}
	}
	return out, nil
}

func (l *MemoryInteractionLog) AggregateByProduct(ctx context.Context, f core.AggregateFilter) ([]core.ProductAggregate, error) {
	var users map[string]bool
	if len(f.UserIDs) > 0 {
		users = make(map[string]bool, len(f.UserIDs))
		for _, id := range f.UserIDs {
			users[id] = true
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	byProduct := make(map[string]*core.ProductAggregate)
	order := make([]string, 0)
	for _, row := range l.rows {
		if users != nil && !users[row.UserID] {
			continue
		}
		if f.ExcludeProductID != "" && row.ProductID == f.ExcludeProductID {
			continue
		}
		agg, ok := byProduct[row.ProductID]
		if !ok {
			agg = &core.ProductAggregate{ProductID: row.ProductID}
			byProduct[row.ProductID] = agg
			order = append(order, row.ProductID)
		}
		agg.TotalWeight += row.Weight
		agg.Interactions++
		if row.Type == core.InteractionPurchase {
			agg.PurchaseCount++
		}
	}

	out := make([]core.ProductAggregate, 0, len(order))
	for _, id := range order {
		out = append(out, *byProduct[id])
	}
	return out, nil
}

func (l *MemoryInteractionLog) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.rows[:0]
	var deleted int64
	for _, row := range l.rows {
		if row.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	l.rows = kept
	return deleted, nil
}

func (l *MemoryInteractionLog) DeleteBefore(ctx context.Context, t time.Time) ([]string, int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.rows[:0]
	seen := make(map[string]bool)
	var users []string
	var deleted int64
	for _, row := range l.rows {
		if row.CreatedAt.Before(t) {
			deleted++
			if !seen[row.UserID] {
				seen[row.UserID] = true
				users = append(users, row.UserID)
			}
			continue
		}
		kept = append(kept, row)
	}
	l.rows = kept
	return users, deleted, nil
}
