package store

import (
	"context"
	"os"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rushteam/shoprec/core"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func interaction(id, user, product string, typ core.InteractionType, at time.Time) *core.Interaction {
	return core.NewInteraction(id, user, product, typ, core.InteractionMetadata{}, at)
}

func seedLog(t *testing.T, l core.InteractionLog) {
	t.Helper()
	require.NoError(t, l.Insert(context.Background(),
		interaction("1", "u1", "p1", core.InteractionView, t0),
		interaction("2", "u1", "p1", core.InteractionPurchase, t0.Add(time.Minute)),
		interaction("3", "u1", "p2", core.InteractionClick, t0.Add(2*time.Minute)),
		interaction("4", "u2", "p1", core.InteractionView, t0.Add(3*time.Minute)),
		interaction("5", "u2", "p3", core.InteractionAddToCart, t0.Add(4*time.Minute)),
		interaction("6", "u3", "p3", core.InteractionPurchase, t0.Add(-200*24*time.Hour)),
	))
}

func aggregatesByID(aggs []core.ProductAggregate) map[string]core.ProductAggregate {
	out := make(map[string]core.ProductAggregate, len(aggs))
	for _, a := range aggs {
		out[a.ProductID] = a
	}
	return out
}

func testInteractionLog(t *testing.T, l core.InteractionLog) {
	ctx := context.Background()
	seedLog(t, l)

	all, err := l.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	t.Run("find by user newest first", func(t *testing.T) {
		rows, err := l.FindByUser(ctx, "u1", core.InteractionQuery{})
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "3", rows[0].ID)
		assert.Equal(t, "1", rows[2].ID)

		rows, err = l.FindByUser(ctx, "u1", core.InteractionQuery{Type: core.InteractionView})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "1", rows[0].ID)

		rows, err = l.FindByUser(ctx, "u1", core.InteractionQuery{Limit: 1, Skip: 1})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "2", rows[0].ID)
	})

	t.Run("find by product", func(t *testing.T) {
		rows, err := l.FindByProduct(ctx, "p1")
		require.NoError(t, err)
		assert.Len(t, rows, 3)
	})

	t.Run("aggregate all", func(t *testing.T) {
		aggs, err := l.AggregateByProduct(ctx, core.AggregateFilter{})
		require.NoError(t, err)
		byID := aggregatesByID(aggs)
		require.Len(t, byID, 3)
		assert.Equal(t, 7.0, byID["p1"].TotalWeight)
		assert.Equal(t, int64(1), byID["p1"].PurchaseCount)
		assert.Equal(t, int64(3), byID["p1"].Interactions)
		assert.Equal(t, 8.0, byID["p3"].TotalWeight)
	})

	t.Run("aggregate filtered", func(t *testing.T) {
		aggs, err := l.AggregateByProduct(ctx, core.AggregateFilter{UserIDs: []string{"u2"}, ExcludeProductID: "p1"})
		require.NoError(t, err)
		require.Len(t, aggs, 1)
		assert.Equal(t, "p3", aggs[0].ProductID)
		assert.Equal(t, 3.0, aggs[0].TotalWeight)
	})

	t.Run("delete before", func(t *testing.T) {
		users, n, err := l.DeleteBefore(ctx, t0.Add(-180*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.Equal(t, []string{"u3"}, users)
	})

	t.Run("delete by user", func(t *testing.T) {
		n, err := l.DeleteByUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		rows, err := l.FindAll(ctx)
		require.NoError(t, err)
		ids := make([]string, 0, len(rows))
		for _, r := range rows {
			ids = append(ids, r.ID)
		}
		sort.Strings(ids)
		assert.Equal(t, []string{"4", "5"}, ids)
	})
}

func TestMemoryInteractionLog(t *testing.T) {
	testInteractionLog(t, NewMemoryInteractionLog())
}

// 需要真实的 MongoDB：SHOPREC_TEST_MONGO_URI=mongodb://localhost:27017 go test ./store/...
func TestMongoInteractionLog(t *testing.T) {
	uri := os.Getenv("SHOPREC_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("SHOPREC_TEST_MONGO_URI not set")
	}
	ctx := context.Background()
	client, err := ConnectMongo(ctx, uri)
	require.NoError(t, err)
	defer client.Disconnect(ctx)

	db := client.Database("shoprec_test_" + time.Now().Format("20060102150405"))
	defer db.Drop(ctx)

	l := NewMongoInteractionLog(db)
	require.NoError(t, l.EnsureIndexes(ctx, 0, 0))
	testInteractionLog(t, l)
}

func TestMemoryCatalog(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCatalog(
		core.Product{ID: "p1", Category: "laptops"},
		core.Product{ID: "p2", Category: "laptops"},
		core.Product{ID: "p3", Category: "laptops"},
		core.Product{ID: "p4", Category: "tablets"},
	)

	got, err := c.FindByIDs(ctx, []string{"p4", "missing", "p1", "p4"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = c.FindByID(ctx, "missing")
	assert.True(t, core.IsNotFound(err))

	same, err := c.FindByCategory(ctx, "laptops", "p2", 5)
	require.NoError(t, err)
	require.Len(t, same, 2)
	assert.Equal(t, "p1", same[0].ID)
	assert.Equal(t, "p3", same[1].ID)

	c.Delete("p1")
	same, err = c.FindByCategory(ctx, "laptops", "p2", 1)
	require.NoError(t, err)
	require.Len(t, same, 1)
	assert.Equal(t, "p3", same[0].ID)
}
