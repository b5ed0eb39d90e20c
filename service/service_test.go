package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/store"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc     *RecommendService
	log     *store.MemoryInteractionLog
	catalog *store.MemoryCatalog
	metrics *Metrics
}

func catalogProducts() []core.Product {
	categories := map[string]string{
		"p1": "audio", "p2": "audio", "p3": "video", "p4": "books",
		"p5": "video", "p6": "toys", "p7": "audio",
	}
	out := make([]core.Product, 0, len(categories))
	for id, c := range categories {
		out = append(out, core.Product{ID: id, Name: "product " + id, Category: c, Stock: 10})
	}
	return out
}

// seed 写入以下交互（按时间先后）：
//
//	alice: p1 purchase, p2 click, p3 view
//	bob:   p1 purchase, p2 click, p4 add_to_cart
//	carol: p1 view, p3 view, p5 purchase
//	dave:  p6 purchase
//	eve:   p1 view
func seed(t *testing.T, l core.InteractionLog) {
	t.Helper()
	rows := []struct {
		user, product string
		typ           core.InteractionType
	}{
		{"alice", "p1", core.InteractionPurchase},
		{"alice", "p2", core.InteractionClick},
		{"alice", "p3", core.InteractionView},
		{"bob", "p1", core.InteractionPurchase},
		{"bob", "p2", core.InteractionClick},
		{"bob", "p4", core.InteractionAddToCart},
		{"carol", "p1", core.InteractionView},
		{"carol", "p3", core.InteractionView},
		{"carol", "p5", core.InteractionPurchase},
		{"dave", "p6", core.InteractionPurchase},
		{"eve", "p1", core.InteractionView},
	}
	for i, r := range rows {
		at := now.Add(-time.Hour).Add(time.Duration(i) * time.Minute)
		it := core.NewInteraction(fmt.Sprintf("seed-%02d", i), r.user, r.product, r.typ, core.InteractionMetadata{}, at)
		require.NoError(t, l.Insert(context.Background(), it))
	}
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	log := store.NewMemoryInteractionLog()
	catalog := store.NewMemoryCatalog(catalogProducts()...)
	seed(t, log)

	metrics := NewMetrics(prometheus.NewRegistry())
	ids := 0
	base := []Option{
		WithMetrics(metrics),
		WithClock(func() time.Time { return now }),
		WithIDGenerator(func() string { ids++; return fmt.Sprintf("id-%d", ids) }),
	}
	svc := New(log, catalog, nil, append(base, opts...)...)
	return &fixture{svc: svc, log: log, catalog: catalog, metrics: metrics}
}

func ids(products []core.Product) []string {
	out := make([]string, 0, len(products))
	for _, p := range products {
		out = append(out, p.ID)
	}
	return out
}

func TestGetRecommendations_CollaborativeFiltering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	got, err := f.svc.GetRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	// bob (sim≈0.859) contributes p4 = 2.58, carol (sim≈0.211) contributes p5 = 1.05;
	// dave shares nothing with alice.
	assert.Equal(t, []string{"p4", "p5"}, ids(got))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.recommendations.WithLabelValues(PathCF)))
	assert.Equal(t, 1, testutil.CollectAndCount(f.metrics.matrixBuild))

	got, err = f.svc.GetRecommendations(ctx, "alice", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"p4"}, ids(got))
}

func TestGetRecommendations_SkipsDeletedUsers(t *testing.T) {
	users := store.NewMemoryUserDirectory("alice", "bob", "carol", "dave", "eve")
	f := newFixture(t, WithUserDirectory(users))
	ctx := context.Background()

	got, err := f.svc.GetRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p4", "p5"}, ids(got))

	// bob 注销后他的交互不再参与相似度计算，p4 只有 bob 交互过
	users.Delete("bob")
	f.svc.Cache().Invalidate(ctx, "alice")

	got, err = f.svc.GetRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p5"}, ids(got))
}

// vanishingCatalog 在第 after 次 FindByIDs 之后隐藏 hidden，模拟召回与解析之间商品被删除。
type vanishingCatalog struct {
	core.Catalog
	hidden string
	after  int
	calls  int
}

func (c *vanishingCatalog) FindByIDs(ctx context.Context, ids []string) ([]core.Product, error) {
	c.calls++
	products, err := c.Catalog.FindByIDs(ctx, ids)
	if err != nil || c.calls <= c.after {
		return products, err
	}
	out := products[:0]
	for _, p := range products {
		if p.ID != c.hidden {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestGetRecommendations_TruncatesBeforeResolving(t *testing.T) {
	ctx := context.Background()
	for _, tt := range []struct {
		limit int
		want  []string
	}{
		{limit: 1, want: []string{}},
		{limit: 10, want: []string{"p5"}},
	} {
		log := store.NewMemoryInteractionLog()
		seed(t, log)
		// 第一次调用来自矩阵构建，之后的解析看不到 p4
		catalog := &vanishingCatalog{Catalog: store.NewMemoryCatalog(catalogProducts()...), hidden: "p4", after: 1}
		svc := New(log, catalog, nil)

		got, err := svc.GetRecommendations(ctx, "alice", tt.limit)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ids(got), "limit %d", tt.limit)
	}
}

func TestGetRecommendations_NeverReturnsSeenProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, user := range []string{"alice", "bob", "carol"} {
		history, err := f.log.FindByUser(ctx, user, core.InteractionQuery{})
		require.NoError(t, err)
		seen := make(map[string]bool)
		for _, it := range history {
			seen[it.ProductID] = true
		}

		got, err := f.svc.GetRecommendations(ctx, user, 10)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(got), 10)
		for _, p := range got {
			assert.False(t, seen[p.ID], "%s was recommended %s which they already touched", user, p.ID)
		}
	}
}

func TestGetRecommendations_ColdStartEqualsPopular(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	popular, err := f.svc.GetPopularProducts(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p5", "p6", "p2"}, ids(popular))

	for _, user := range []string{"eve", "nobody"} {
		got, err := f.svc.GetRecommendations(ctx, user, 4)
		require.NoError(t, err)
		assert.Equal(t, popular, got, user)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.recommendations.WithLabelValues(PathColdStart)))

	// 冷启动结果不写缓存
	_, ok := f.svc.Cache().Get(ctx, "eve", 4)
	assert.False(t, ok)
}

func TestGetRecommendations_NoNeighborsFallsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.BatchRecordInteractions(ctx, []TrackRequest{
		{UserID: "zed", ProductID: "p7", Type: "view"},
		{UserID: "zed", ProductID: "p8", Type: "view"},
		{UserID: "zed", ProductID: "p9", Type: "view"},
	})
	require.NoError(t, err)
	f.catalog.Upsert(core.Product{ID: "p8"}, core.Product{ID: "p9"})

	got, err := f.svc.GetRecommendations(ctx, "zed", 3)
	require.NoError(t, err)
	popular, err := f.svc.GetPopularProducts(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, ids(popular), ids(got))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.recommendations.WithLabelValues(PathNoNeighbors)))
}

func TestGetRecommendations_CacheAndInvalidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.GetRecommendations(ctx, "alice", 10)
	require.NoError(t, err)

	// 目录变化不会影响缓存中的结果
	f.catalog.Delete("p4")
	second, err := f.svc.GetRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, ids(first), ids(second))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.recommendations.WithLabelValues(PathCache)))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.cacheRequests.WithLabelValues("hit")))

	_, err = f.svc.RecordInteraction(ctx, TrackRequest{UserID: "alice", ProductID: "p6", Type: "view"})
	require.NoError(t, err)
	_, ok := f.svc.Cache().Get(ctx, "alice", 10)
	assert.False(t, ok, "recording an interaction invalidates the user's cache")

	third, err := f.svc.GetRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	assert.NotContains(t, ids(third), "p4", "unresolvable products are dropped")
	assert.NotContains(t, ids(third), "p6")
}

func TestGetRecommendations_PostRecallNodes(t *testing.T) {
	noBooks, err := filter.NewExprFilter(`item.meta.category != "books"`)
	require.NoError(t, err)
	f := newFixture(t, WithNodes(&filter.FilterNode{Filters: []filter.Filter{noBooks}}))

	got, err := f.svc.GetRecommendations(context.Background(), "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p5"}, ids(got))
}

func TestGetRecommendations_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GetRecommendations(context.Background(), "", 10)
	assert.True(t, core.IsValidation(err))
}

type failingLog struct {
	core.InteractionLog
}

func (failingLog) FindAll(context.Context) ([]core.Interaction, error) {
	return nil, core.NewDependencyError(core.ModuleStore, "find interactions", errors.New("connection refused"))
}

func TestGetRecommendations_DependencyErrorPropagates(t *testing.T) {
	svc := New(failingLog{}, store.NewMemoryCatalog(), nil)
	_, err := svc.GetRecommendations(context.Background(), "alice", 10)
	require.Error(t, err)
	assert.True(t, core.IsDependency(err))
}

func TestGetSimilarProducts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// p2 的用户是 alice 与 bob：p1=10, p4=3, p3=1
	got, err := f.svc.GetSimilarProducts(ctx, "p2", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p4", "p3"}, ids(got))

	got, err = f.svc.GetSimilarProducts(ctx, "p2", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p4"}, ids(got))

	// 没有交互的 p7 退化为同类目商品
	got, err = f.svc.GetSimilarProducts(ctx, "p7", 6)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids(got))

	got, err = f.svc.GetSimilarProducts(ctx, "p7", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, ids(got))

	got, err = f.svc.GetSimilarProducts(ctx, "missing", 6)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = f.svc.GetSimilarProducts(ctx, "", 6)
	assert.True(t, core.IsValidation(err))
}

func TestRecordInteraction(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	it, err := f.svc.RecordInteraction(ctx, TrackRequest{
		UserID:    "eve",
		ProductID: "p2",
		Type:      "add_to_cart",
		Metadata:  core.InteractionMetadata{SessionID: "s1", Source: "search", Duration: 12},
	})
	require.NoError(t, err)
	assert.Equal(t, "id-1", it.ID)
	assert.Equal(t, 3.0, it.Weight)
	assert.Equal(t, now, it.CreatedAt)
	assert.Equal(t, "search", it.Metadata.Source)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.interactions.WithLabelValues("add_to_cart")))

	tests := []struct {
		name string
		req  TrackRequest
	}{
		{"unknown type", TrackRequest{UserID: "eve", ProductID: "p2", Type: "like"}},
		{"missing user", TrackRequest{ProductID: "p2", Type: "view"}},
		{"missing product", TrackRequest{UserID: "eve", Type: "view"}},
		{"missing type", TrackRequest{UserID: "eve", ProductID: "p2"}},
		{"negative duration", TrackRequest{UserID: "eve", ProductID: "p2", Type: "view",
			Metadata: core.InteractionMetadata{Duration: -1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.RecordInteraction(ctx, tt.req)
			assert.True(t, core.IsValidation(err), "got %v", err)
		})
	}

	history, err := f.log.FindByUser(ctx, "eve", core.InteractionQuery{})
	require.NoError(t, err)
	assert.Len(t, history, 2, "rejected requests are never persisted")
}

func TestBatchRecordInteractions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.svc.Cache().Put(ctx, "alice", 10, []core.Product{{ID: "stale"}})
	f.svc.Cache().Put(ctx, "bob", 10, []core.Product{{ID: "stale"}})

	_, err := f.svc.BatchRecordInteractions(ctx, []TrackRequest{
		{UserID: "alice", ProductID: "p6", Type: "view"},
		{UserID: "bob", ProductID: "p6", Type: "nope"},
	})
	require.True(t, core.IsValidation(err))
	all, _ := f.log.FindAll(ctx)
	assert.Len(t, all, 11, "an invalid request rejects the whole batch")

	created, err := f.svc.BatchRecordInteractions(ctx, []TrackRequest{
		{UserID: "alice", ProductID: "p6", Type: "view"},
		{UserID: "alice", ProductID: "p7", Type: "click"},
		{UserID: "bob", ProductID: "p6", Type: "purchase"},
	})
	require.NoError(t, err)
	assert.Len(t, created, 3)
	all, _ = f.log.FindAll(ctx)
	assert.Len(t, all, 14)

	for _, u := range []string{"alice", "bob"} {
		_, ok := f.svc.Cache().Get(ctx, u, 10)
		assert.False(t, ok, u)
	}

	none, err := f.svc.BatchRecordInteractions(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteUserInteractions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetRecommendations(ctx, "alice", 10)
	require.NoError(t, err)

	n, err := f.svc.DeleteUserInteractions(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// alice 的缓存不受 bob 影响；失效后只剩 carol 作为邻居
	f.svc.Cache().Invalidate(ctx, "alice")
	got, err := f.svc.GetRecommendations(ctx, "alice", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p5"}, ids(got))

	n, err = f.svc.DeleteUserInteractions(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = f.svc.DeleteUserInteractions(ctx, "")
	assert.True(t, core.IsValidation(err))
}

func TestGetUserInteractions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.catalog.Delete("p3")

	history, err := f.svc.GetUserInteractions(ctx, "alice", HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, "p3", history[0].ProductID, "newest first")
	assert.Nil(t, history[0].Product, "removed products resolve to nil")
	require.NotNil(t, history[2].Product)
	assert.Equal(t, "p1", history[2].Product.ID)

	history, err = f.svc.GetUserInteractions(ctx, "alice", HistoryQuery{Type: "click"})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "p2", history[0].ProductID)

	history, err = f.svc.GetUserInteractions(ctx, "alice", HistoryQuery{Limit: 1, Skip: 1})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "p2", history[0].ProductID)

	_, err = f.svc.GetUserInteractions(ctx, "alice", HistoryQuery{Type: "like"})
	assert.True(t, core.IsValidation(err))
}

func TestGetProductStats(t *testing.T) {
	f := newFixture(t)

	stats, err := f.svc.GetProductStats(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, core.ProductStats{Views: 2, Purchases: 2, Total: 4}, stats)

	stats, err = f.svc.GetProductStats(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
}

func TestPurgeExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := core.NewInteraction("old", "frank", "p1", core.InteractionPurchase, core.InteractionMetadata{}, now.Add(-181*24*time.Hour))
	require.NoError(t, f.log.Insert(ctx, old))
	f.svc.Cache().Put(ctx, "frank", 10, []core.Product{{ID: "p2"}})
	f.svc.Cache().Put(ctx, "alice", 10, []core.Product{{ID: "p4"}})

	n, err := f.svc.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, ok := f.svc.Cache().Get(ctx, "frank", 10)
	assert.False(t, ok)
	_, ok = f.svc.Cache().Get(ctx, "alice", 10)
	assert.True(t, ok)

	n, err = f.svc.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestJanitorSweepsOnStart(t *testing.T) {
	f := newFixture(t)
	old := core.NewInteraction("old", "frank", "p1", core.InteractionView, core.InteractionMetadata{}, now.Add(-365*24*time.Hour))
	require.NoError(t, f.log.Insert(context.Background(), old))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewJanitor(f.svc, time.Hour).Serve(ctx) }()

	require.Eventually(t, func() bool {
		rows, _ := f.log.FindByUser(context.Background(), "frank", core.InteractionQuery{})
		return len(rows) == 0
	}, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}
