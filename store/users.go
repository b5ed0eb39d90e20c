package store

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rushteam/shoprec/core"
)

const usersCollection = "users"

// MemoryUserDirectory 是内存实现的用户目录。
type MemoryUserDirectory struct {
	mu    sync.RWMutex
	users map[string]struct{}
}

func NewMemoryUserDirectory(ids ...string) *MemoryUserDirectory {
	d := &MemoryUserDirectory{users: make(map[string]struct{}, len(ids))}
	d.Add(ids...)
	return d
}

var _ core.UserDirectory = (*MemoryUserDirectory)(nil)

func (d *MemoryUserDirectory) Add(ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		d.users[id] = struct{}{}
	}
}

// Delete 模拟用户注销。
func (d *MemoryUserDirectory) Delete(ids ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		delete(d.users, id)
	}
}

func (d *MemoryUserDirectory) Existing(_ context.Context, ids []string) (map[string]bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := d.users[id]; ok {
			out[id] = true
		}
	}
	return out, nil
}

// MongoUserDirectory 查询 users 集合判断用户是否仍然存在。
// _id 既可能是字符串也可能是 ObjectID，两种形式都参与 $in 查询。
type MongoUserDirectory struct {
	col *mongo.Collection
}

func NewMongoUserDirectory(db *mongo.Database) *MongoUserDirectory {
	return &MongoUserDirectory{col: db.Collection(usersCollection)}
}

var _ core.UserDirectory = (*MongoUserDirectory)(nil)

func (d *MongoUserDirectory) Existing(ctx context.Context, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cur, err := d.col.Find(ctx,
		bson.M{"_id": bson.M{"$in": userKeys(ids)}},
		options.Find().SetProjection(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, core.NewDependencyError(core.ModuleStore, "find users", err)
	}
	var docs []struct {
		ID any `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, core.NewDependencyError(core.ModuleStore, "find users", err)
	}
	for _, doc := range docs {
		switch id := doc.ID.(type) {
		case string:
			out[id] = true
		case primitive.ObjectID:
			out[id.Hex()] = true
		}
	}
	return out, nil
}

// userKeys 返回 $in 的取值：每个 id 本身，合法的 hex 再加上对应的 ObjectID。
func userKeys(ids []string) bson.A {
	keys := make(bson.A, 0, len(ids)*2)
	for _, id := range ids {
		keys = append(keys, id)
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			keys = append(keys, oid)
		}
	}
	return keys
}
