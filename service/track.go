package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/rushteam/shoprec/core"
)

// TrackRequest 描述一次用户行为。
type TrackRequest struct {
	UserID    string                   `json:"userId" validate:"required"`
	ProductID string                   `json:"productId" validate:"required"`
	Type      string                   `json:"type" validate:"required"`
	Metadata  core.InteractionMetadata `json:"metadata"`
}

// HistoryQuery 是交互历史的查询条件，Limit <= 0 时取 50。
type HistoryQuery struct {
	Type  string
	Limit int
	Skip  int
}

// DefaultHistoryLimit 是交互历史的默认条数。
const DefaultHistoryLimit = 50

// HistoryEntry 是一条交互记录及其商品（商品已下架时 Product 为 nil）。
type HistoryEntry struct {
	core.Interaction
	Product *core.Product `json:"product,omitempty"`
}

// RecordInteraction 校验并记录一次行为，随后失效该用户的推荐缓存。
func (s *RecommendService) RecordInteraction(ctx context.Context, req TrackRequest) (*core.Interaction, error) {
	it, err := s.newInteraction(req)
	if err != nil {
		return nil, err
	}
	if err := s.log.Insert(ctx, it); err != nil {
		return nil, fmt.Errorf("record interaction: %w", err)
	}

	s.cache.Invalidate(ctx, it.UserID)
	s.metrics.interaction(string(it.Type), 1)
	s.logger.Debug().
		Str("user_id", it.UserID).
		Str("product_id", it.ProductID).
		Str("type", string(it.Type)).
		Msg("interaction recorded")
	return it, nil
}

// BatchRecordInteractions 先校验全部请求，任意一条不合法则整体拒绝；
// 写入后每个受影响用户的缓存只失效一次。
func (s *RecommendService) BatchRecordInteractions(ctx context.Context, reqs []TrackRequest) ([]*core.Interaction, error) {
	if len(reqs) == 0 {
		return nil, nil
	}

	interactions := make([]*core.Interaction, 0, len(reqs))
	for i, req := range reqs {
		it, err := s.newInteraction(req)
		if err != nil {
			return nil, fmt.Errorf("interaction %d: %w", i, err)
		}
		interactions = append(interactions, it)
	}
	if err := s.log.Insert(ctx, interactions...); err != nil {
		return nil, fmt.Errorf("record interactions: %w", err)
	}

	seen := make(map[string]bool)
	counts := make(map[core.InteractionType]int)
	for _, it := range interactions {
		counts[it.Type]++
		if seen[it.UserID] {
			continue
		}
		seen[it.UserID] = true
		s.cache.Invalidate(ctx, it.UserID)
	}
	for typ, n := range counts {
		s.metrics.interaction(string(typ), n)
	}
	s.logger.Info().Int("count", len(interactions)).Int("users", len(seen)).Msg("interactions batch recorded")
	return interactions, nil
}

// DeleteUserInteractions 删除用户的全部交互并失效其缓存，返回删除条数。
func (s *RecommendService) DeleteUserInteractions(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, core.NewValidationError(core.ModuleService, "user id is required")
	}
	n, err := s.log.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("delete user interactions: %w", err)
	}
	s.cache.Invalidate(ctx, userID)
	s.logger.Info().Str("user_id", userID).Int64("count", n).Msg("user interactions deleted")
	return n, nil
}

// GetUserInteractions 按时间倒序返回用户的交互历史。
func (s *RecommendService) GetUserInteractions(ctx context.Context, userID string, q HistoryQuery) ([]HistoryEntry, error) {
	if userID == "" {
		return nil, core.NewValidationError(core.ModuleService, "user id is required")
	}
	query := core.InteractionQuery{Limit: q.Limit, Skip: q.Skip}
	if query.Limit <= 0 {
		query.Limit = DefaultHistoryLimit
	}
	if query.Skip < 0 {
		query.Skip = 0
	}
	if q.Type != "" {
		typ, err := core.ParseInteractionType(q.Type)
		if err != nil {
			return nil, err
		}
		query.Type = typ
	}

	interactions, err := s.log.FindByUser(ctx, userID, query)
	if err != nil {
		return nil, fmt.Errorf("find user interactions: %w", err)
	}

	byID := make(map[string]core.Product)
	if s.catalog != nil && len(interactions) > 0 {
		ids := make([]string, 0, len(interactions))
		for _, it := range interactions {
			ids = append(ids, it.ProductID)
		}
		products, err := s.catalog.FindByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("resolve history products: %w", err)
		}
		for _, p := range products {
			byID[p.ID] = p
		}
	}

	out := make([]HistoryEntry, 0, len(interactions))
	for _, it := range interactions {
		entry := HistoryEntry{Interaction: it}
		if p, ok := byID[it.ProductID]; ok {
			entry.Product = &p
		}
		out = append(out, entry)
	}
	return out, nil
}

// GetProductStats 统计商品各类行为的次数。
func (s *RecommendService) GetProductStats(ctx context.Context, productID string) (core.ProductStats, error) {
	var stats core.ProductStats
	if productID == "" {
		return stats, core.NewValidationError(core.ModuleService, "product id is required")
	}
	interactions, err := s.log.FindByProduct(ctx, productID)
	if err != nil {
		return stats, fmt.Errorf("find product interactions: %w", err)
	}
	for _, it := range interactions {
		stats.Add(it.Type)
	}
	return stats, nil
}

// PurgeExpired 删除早于保留期的交互，并失效所有受影响用户的缓存。
func (s *RecommendService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	cutoff := now.Add(-s.cfg.DefaultRetention())
	users, n, err := s.log.DeleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge expired interactions: %w", err)
	}
	for _, u := range users {
		s.cache.Invalidate(ctx, u)
	}
	s.metrics.purge(n)
	if n > 0 {
		s.logger.Info().Time("cutoff", cutoff).Int64("count", n).Int("users", len(users)).Msg("expired interactions purged")
	}
	return n, nil
}

func (s *RecommendService) newInteraction(req TrackRequest) (*core.Interaction, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, validationError(err)
	}
	typ, err := core.ParseInteractionType(req.Type)
	if err != nil {
		return nil, err
	}
	if req.Metadata.Duration < 0 {
		return nil, core.NewValidationError(core.ModuleInteraction, "metadata.duration must not be negative")
	}
	return core.NewInteraction(s.newID(), req.UserID, req.ProductID, typ, req.Metadata, s.now()), nil
}

// validationError 把 validator 的字段错误转换为 INVALID_INPUT。
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return core.NewValidationError(core.ModuleInteraction, err.Error())
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s is %s", lowerFirst(fe.Field()), fe.Tag()))
	}
	return core.NewValidationError(core.ModuleInteraction, strings.Join(msgs, "; "))
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
