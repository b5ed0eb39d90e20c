package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rushteam/shoprec/core"
)

const (
	interactionsCollection = "interactions"
	productsCollection     = "products"
)

// ConnectMongo 连接 MongoDB 并 ping 一次，失败时返回 UNAVAILABLE。
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, core.NewDependencyError(core.ModuleStore, "connect mongo", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, core.NewDependencyError(core.ModuleStore, "ping mongo", err)
	}
	return client, nil
}

// MongoInteractionLog 把交互日志存放在 interactions 集合中。
// 文档结构与 core.Interaction 的 bson 标签一致：{_id, user, product, type, weight, metadata, createdAt}。
type MongoInteractionLog struct {
	col *mongo.Collection
}

func NewMongoInteractionLog(db *mongo.Database) *MongoInteractionLog {
	return &MongoInteractionLog{col: db.Collection(interactionsCollection)}
}

var _ core.InteractionLog = (*MongoInteractionLog)(nil)

// EnsureIndexes 创建查询索引，以及 createdAt 上的 TTL 索引。
//
// 过期交互由保留期清理任务（DeleteBefore）删除并失效缓存；TTL 索引在 retention+grace
// 之后才生效，只兜底清理任务没有运行的情况。grace 通常取清理间隔。
func (l *MongoInteractionLog) EnsureIndexes(ctx context.Context, retention, grace time.Duration) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "product", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "product", Value: 1}}},
	}
	if seconds := ttlSeconds(retention, grace); seconds > 0 {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(seconds),
		})
	}
	if _, err := l.col.Indexes().CreateMany(ctx, models); err != nil {
		return core.NewDependencyError(core.ModuleInteraction, "create indexes", err)
	}
	return nil
}

// ttlSeconds 返回 TTL 索引的 expireAfterSeconds，retention <= 0 时为 0（不建 TTL 索引）。
func ttlSeconds(retention, grace time.Duration) int32 {
	if retention <= 0 {
		return 0
	}
	if grace < 0 {
		grace = 0
	}
	return int32((retention + grace) / time.Second)
}

func (l *MongoInteractionLog) Insert(ctx context.Context, interactions ...*core.Interaction) error {
	docs := make([]any, 0, len(interactions))
	for _, it := range interactions {
		if it != nil {
			docs = append(docs, it)
		}
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := l.col.InsertMany(ctx, docs); err != nil {
		return core.NewDependencyError(core.ModuleInteraction, "insert interactions", err)
	}
	return nil
}

func (l *MongoInteractionLog) find(ctx context.Context, op string, filter bson.M, opts ...*options.FindOptions) ([]core.Interaction, error) {
	cur, err := l.col.Find(ctx, filter, opts...)
	if err != nil {
		return nil, core.NewDependencyError(core.ModuleInteraction, op, err)
	}
	var out []core.Interaction
	if err := cur.All(ctx, &out); err != nil {
		return nil, core.NewDependencyError(core.ModuleInteraction, op, err)
	}
	return out, nil
}

func (l *MongoInteractionLog) FindAll(ctx context.Context) ([]core.Interaction, error) {
	return l.find(ctx, "find interactions", bson.M{})
}

func (l *MongoInteractionLog) FindByUser(ctx context.Context, userID string, q core.InteractionQuery) ([]core.Interaction, error) {
	filter := bson.M{"user": userID}
	if q.Type != "" {
		filter["type"] = q.Type
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if q.Skip > 0 {
		opts.SetSkip(int64(q.Skip))
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	return l.find(ctx, "find interactions by user", filter, opts)
}

func (l *MongoInteractionLog) FindByProduct(ctx context.Context, productID string) ([]core.Interaction, error) {
	return l.find(ctx, "find interactions by product", bson.M{"product": productID})
}

func (l *MongoInteractionLog) AggregateByProduct(ctx context.Context, f core.AggregateFilter) ([]core.ProductAggregate, error) {
	match := bson.M{}
	if len(f.UserIDs) > 0 {
		match["user"] = bson.M{"$in": f.UserIDs}
	}
	if f.ExcludeProductID != "" {
		match["product"] = bson.M{"$ne": f.ExcludeProductID}
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":          "$product",
			"totalWeight":  bson.M{"$sum": "$weight"},
			"interactions": bson.M{"$sum": 1},
			"purchaseCount": bson.M{"$sum": bson.M{
				"$cond": bson.A{bson.M{"$eq": bson.A{"$type", string(core.InteractionPurchase)}}, 1, 0},
			}},
		}}},
	}

	cur, err := l.col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, core.NewDependencyError(core.ModuleInteraction, "aggregate interactions", err)
	}
	var out []core.ProductAggregate
	if err := cur.All(ctx, &out); err != nil {
		return nil, core.NewDependencyError(core.ModuleInteraction, "aggregate interactions", err)
	}
	return out, nil
}

func (l *MongoInteractionLog) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	res, err := l.col.DeleteMany(ctx, bson.M{"user": userID})
	if err != nil {
		return 0, core.NewDependencyError(core.ModuleInteraction, "delete interactions by user", err)
	}
	return res.DeletedCount, nil
}

// DeleteBefore 先取出过期交互的 _id 与 user，再按这批 _id 删除，
// 返回的用户集合与实际删除的记录一一对应。
func (l *MongoInteractionLog) DeleteBefore(ctx context.Context, t time.Time) ([]string, int64, error) {
	cur, err := l.col.Find(ctx,
		bson.M{"createdAt": bson.M{"$lt": t}},
		options.Find().SetProjection(bson.M{"_id": 1, "user": 1}),
	)
	if err != nil {
		return nil, 0, core.NewDependencyError(core.ModuleInteraction, "find expired interactions", err)
	}
	var docs []struct {
		ID   string `bson:"_id"`
		User string `bson:"user"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, core.NewDependencyError(core.ModuleInteraction, "find expired interactions", err)
	}
	if len(docs) == 0 {
		return nil, 0, nil
	}

	ids := make([]string, 0, len(docs))
	seen := make(map[string]bool)
	var users []string
	for _, d := range docs {
		ids = append(ids, d.ID)
		if d.User != "" && !seen[d.User] {
			seen[d.User] = true
			users = append(users, d.User)
		}
	}

	res, err := l.col.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, 0, core.NewDependencyError(core.ModuleInteraction, "delete expired interactions", err)
	}
	return users, res.DeletedCount, nil
}

// MongoCatalog 从 products 集合读取商品。
type MongoCatalog struct {
	col *mongo.Collection
}

func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{col: db.Collection(productsCollection)}
}

var _ core.Catalog = (*MongoCatalog)(nil)

func (c *MongoCatalog) FindByIDs(ctx context.Context, ids []string) ([]core.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := c.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, core.NewDependencyError(core.ModuleCatalog, "find products", err)
	}
	var out []core.Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, core.NewDependencyError(core.ModuleCatalog, "find products", err)
	}
	return out, nil
}

func (c *MongoCatalog) FindByID(ctx context.Context, id string) (*core.Product, error) {
	var p core.Product
	err := c.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, core.NewNotFoundError(core.ModuleCatalog, "product "+id+" not found")
	}
	if err != nil {
		return nil, core.NewDependencyError(core.ModuleCatalog, "find product", err)
	}
	return &p, nil
}

func (c *MongoCatalog) FindByCategory(ctx context.Context, category, excludeID string, limit int) ([]core.Product, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cur, err := c.col.Find(ctx, bson.M{"category": category, "_id": bson.M{"$ne": excludeID}}, opts)
	if err != nil {
		return nil, core.NewDependencyError(core.ModuleCatalog, "find products by category", err)
	}
	var out []core.Product
	if err := cur.All(ctx, &out); err != nil {
		return nil, core.NewDependencyError(core.ModuleCatalog, "find products by category", err)
	}
	return out, nil
}
