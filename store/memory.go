package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/shoprec/core"
)

// MemoryStore 是内存实现的 KeyValueStore，用于测试/开发/单实例部署。
// 支持 TTL（过期时间），进程重启后数据丢失。
type MemoryStore struct {
	mu      sync.RWMutex
	data    map[string][]byte
	hashes  map[string]map[string][]byte
	zsets   map[string]map[string]float64 // zset key -> member -> score
	expires map[string]time.Time
	clean   *time.Ticker
	stop    chan struct{}
	once    sync.Once
}

func NewMemoryStore() *MemoryStore {
	ms := &MemoryStore{
		data:    make(map[string][]byte),
		hashes:  make(map[string]map[string][]byte),
		zsets:   make(map[string]map[string]float64),
		expires: make(map[string]time.Time),
		clean:   time.NewTicker(10 * time.Second),
		stop:    make(chan struct{}),
	}
	go ms.cleanup()
	return ms
}

func (m *MemoryStore) Name() string { return "memory" }

// expired 必须在持有锁时调用
func (m *MemoryStore) expired(key string, now time.Time) bool {
	exp, ok := m.expires[key]
	return ok && now.After(exp)
}

func (m *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok || m.expired(key, time.Now()) {
		return nil, core.ErrStoreNotFound
	}
	return v, nil
}

func (m *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl ...int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = value
	if len(ttl) > 0 && ttl[0] > 0 {
		m.expires[key] = time.Now().Add(time.Duration(ttl[0]) * time.Second)
	} else {
		delete(m.expires, key)
	}
	return nil
}

// Delete 删除任意类型的 key（字符串、哈希、有序集合），与 Redis DEL 语义一致。
func (m *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		m.deleteLocked(key)
	}
	return nil
}

func (m *MemoryStore) deleteLocked(key string) {
	delete(m.data, key)
	delete(m.hashes, key)
	delete(m.zsets, key)
	delete(m.expires, key)
}

// Expire 为 key 设置过期时间（秒）。
func (m *MemoryStore) Expire(ctx context.Context, key string, seconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if seconds <= 0 {
		m.deleteLocked(key)
		return nil
	}
	m.expires[key] = time.Now().Add(time.Duration(seconds) * time.Second)
	return nil
}

func (m *MemoryStore) Close() error {
	m.once.Do(func() {
		m.clean.Stop()
		close(m.stop)
	})
	return nil
}

func (m *MemoryStore) cleanup() {
	for {
		select {
		case <-m.clean.C:
			m.mu.Lock()
			now := time.Now()
			for k := range m.expires {
				if m.expired(k, now) {
					m.deleteLocked(k)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}

var _ core.KeyValueStore = (*MemoryStore)(nil)

func (m *MemoryStore) ZAdd(ctx context.Context, key string, score float64, member string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.zsets[key] == nil {
		m.zsets[key] = make(map[string]float64)
	}
	m.zsets[key][member] = score
	return nil
}

// ZRange 按 score 降序返回 [start, stop] 区间的成员，stop < 0 表示到末尾。
func (m *MemoryStore) ZRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	zset, ok := m.zsets[key]
	if !ok || len(zset) == 0 || m.expired(key, time.Now()) {
		return nil, nil
	}

	type pair struct {
		member string
		score  float64
	}
	pairs := make([]pair, 0, len(zset))
	for mem, s := range zset {
		pairs = append(pairs, pair{member: mem, score: s})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].score != pairs[j].score {
			return pairs[i].score > pairs[j].score
		}
		return pairs[i].member > pairs[j].member
	})

	if start < 0 {
		start = 0
	}
	if stop < 0 || stop >= int64(len(pairs)) {
		stop = int64(len(pairs)) - 1
	}
	if start > stop {
		return nil, nil
	}

	result := make([]string, 0, stop-start+1)
	for i := start; i <= stop; i++ {
		result = append(result, pairs[i].member)
	}
	return result, nil
}

func (m *MemoryStore) ZRem(ctx context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	zset, ok := m.zsets[key]
	if !ok {
		return nil
	}
	for _, mem := range members {
		delete(zset, mem)
	}
	if len(zset) == 0 {
		delete(m.zsets, key)
	}
	return nil
}

func (m *MemoryStore) HGet(ctx context.Context, key, field string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hashes[key]
	if !ok || m.expired(key, time.Now()) {
		return nil, core.ErrStoreNotFound
	}
	v, ok := h[field]
	if !ok {
		return nil, core.ErrStoreNotFound
	}
	return v, nil
}

func (m *MemoryStore) HSet(ctx context.Context, key, field string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string][]byte)
	}
	m.hashes[key][field] = value
	return nil
}

func (m *MemoryStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make(map[string][]byte)
	h, ok := m.hashes[key]
	if !ok || m.expired(key, time.Now()) {
		return result, nil
	}
	for f, v := range h {
		result[f] = v
	}
	return result, nil
}
