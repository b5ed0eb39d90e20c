// Package service 组合交互日志、商品目录、召回源与缓存，对外提供推荐与行为采集操作。
package service

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rushteam/shoprec/cache"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/recall"
	"github.com/rushteam/shoprec/rerank"
)

// RecommendService 是推荐服务。
//
// 写路径：InteractionLog.Insert → Cache.Invalidate(user)。
// 读路径：Cache.Get(user, limit) → 未命中时 UserBasedCF 召回 → 召回后 Node 链 → Cache.Put。
// 冷启动（交互不足或没有相似用户）时返回热门商品，且不写缓存。
type RecommendService struct {
	log     core.InteractionLog
	catalog core.Catalog
	cfg     core.RecommendConfig

	cache    cache.Cache
	logger   zerolog.Logger
	metrics  *Metrics
	users    core.UserDirectory
	nodes    []pipeline.Node
	validate *validator.Validate
	now      func() time.Time
	newID    func() string

	cf       *recall.UserBasedCF
	popular  *recall.Popularity
	similar  *recall.ItemCooccurrence
	pipeline *pipeline.Pipeline
}

// Option 配置 RecommendService。
type Option func(*RecommendService)

// WithCache 替换默认的进程内缓存。
func WithCache(c cache.Cache) Option {
	return func(s *RecommendService) {
		if c != nil {
			s.cache = c
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(s *RecommendService) { s.logger = l }
}

func WithMetrics(m *Metrics) Option {
	return func(s *RecommendService) { s.metrics = m }
}

// WithUserDirectory 让矩阵构建跳过已不存在的用户。
func WithUserDirectory(u core.UserDirectory) Option {
	return func(s *RecommendService) { s.users = u }
}

// WithNodes 设置召回之后、TopN 截断之前执行的 Node（过滤、打散等）。
func WithNodes(nodes ...pipeline.Node) Option {
	return func(s *RecommendService) { s.nodes = append(s.nodes, nodes...) }
}

// WithClock 替换交互记录与保留期计算使用的时钟。
func WithClock(now func() time.Time) Option {
	return func(s *RecommendService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator 替换交互 ID 生成器，默认 UUIDv4。
func WithIDGenerator(gen func() string) Option {
	return func(s *RecommendService) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// New 创建推荐服务。cfg 为 nil 时使用 core.DefaultRecommendConfig。
func New(log core.InteractionLog, catalog core.Catalog, cfg core.RecommendConfig, opts ...Option) *RecommendService {
	if cfg == nil {
		cfg = &core.DefaultRecommendConfig{}
	}
	s := &RecommendService{
		log:      log,
		catalog:  catalog,
		cfg:      cfg,
		logger:   zerolog.Nop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cache == nil {
		s.cache = cache.NewMemoryCache(cfg.DefaultCacheTTL())
	}
	s.logger = s.logger.With().Str("service", "recommend").Logger()

	s.cf = &recall.UserBasedCF{
		Matrix: &timedMatrix{
			next:    &recall.MatrixBuilder{Log: log, Catalog: catalog, Users: s.users},
			metrics: s.metrics,
		},
		TopKSimilarUsers: cfg.DefaultNeighbors(),
		MinInteractions:  cfg.DefaultMinInteractions(),
	}
	s.popular = &recall.Popularity{Log: log, Limit: core.DefaultPopularLimit}
	s.similar = &recall.ItemCooccurrence{Log: log, Catalog: catalog}

	p := &pipeline.Pipeline{}
	p.Append(s.nodes...)
	p.Append(&rerank.TopNNode{})
	s.pipeline = p
	return s
}

// Cache 返回服务持有的缓存。
func (s *RecommendService) Cache() cache.Cache { return s.cache }
