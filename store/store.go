// Package store 提供领域接口的基础设施实现，接口定义在 core 包。
//
//   - MemoryStore / RedisStore 实现 core.KeyValueStore（推荐结果缓存的后端）
//   - MemoryInteractionLog / MongoInteractionLog 实现 core.InteractionLog
//   - MemoryCatalog / MongoCatalog 实现 core.Catalog
//
// 示例：
//
//	var kv core.KeyValueStore = store.NewMemoryStore()
//	var log core.InteractionLog = store.NewMemoryInteractionLog()
package store
