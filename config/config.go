// Package config 加载 shoprec 的运行配置，并维护可由 YAML 装配的 Node 注册表。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rushteam/shoprec/core"
)

// 存储与缓存后端
const (
	BackendMemory = "memory"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// Config 是进程级配置。加载顺序：默认值 → YAML 文件（SHOPREC_CONFIG）→ 环境变量。
type Config struct {
	CacheTTL        time.Duration `yaml:"cache_ttl"`
	MinInteractions int           `yaml:"min_interactions"`
	Neighbors       int           `yaml:"neighbors"`
	Retention       time.Duration `yaml:"retention"`
	RetentionSweep  time.Duration `yaml:"retention_sweep"`

	HTTPAddr string `yaml:"http_addr"`

	StoreBackend string `yaml:"store_backend"`
	MongoURI     string `yaml:"mongo_uri"`
	MongoDB      string `yaml:"mongo_db"`

	// CatalogFile 是内存目录的初始商品（JSON 数组），仅 memory 后端使用
	CatalogFile string `yaml:"catalog_file"`

	CacheBackend  string `yaml:"cache_backend"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// FilterExpr 是作用于 CF 候选的 CEL 表达式，为空表示不过滤
	FilterExpr string `yaml:"filter_expr"`

	// PipelineFile 指向召回后 Node 链的 YAML（pipeline.Config），为空使用内置链路
	PipelineFile string `yaml:"pipeline_file"`

	// BlacklistKey 是缓存后端中存放屏蔽商品 ID（JSON 数组）的 key，仅 redis 缓存后端生效
	BlacklistKey string `yaml:"blacklist_key"`
}

// Default 返回默认配置。
func Default() *Config {
	return &Config{
		CacheTTL:        time.Hour,
		MinInteractions: 3,
		Neighbors:       10,
		Retention:       180 * 24 * time.Hour,
		RetentionSweep:  time.Hour,
		HTTPAddr:        ":8080",
		StoreBackend:    BackendMemory,
		MongoURI:        "mongodb://localhost:27017",
		MongoDB:         "shoprec",
		CacheBackend:    BackendMemory,
		RedisAddr:       "localhost:6379",
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load 读取 .env（若存在）、SHOPREC_CONFIG 指向的 YAML 文件与环境变量，并校验结果。
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := os.Getenv("SHOPREC_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []string
	envSeconds := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = time.Duration(n) * time.Second
		}
	}
	envDays := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = time.Duration(n) * 24 * time.Hour
		}
	}
	envDuration := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok && v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = d
		}
	}
	envInt := func(key string, dst *int) {
		if v, ok := lookup(key); ok && v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", key, err))
				return
			}
			*dst = n
		}
	}
	envString := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	envSeconds("RECOMMENDATION_CACHE_TTL", &c.CacheTTL)
	envInt("MIN_INTERACTIONS_FOR_RECOMMENDATIONS", &c.MinInteractions)
	envInt("RECOMMENDATION_NEIGHBORS", &c.Neighbors)
	envDays("INTERACTION_RETENTION_DAYS", &c.Retention)
	envDuration("RETENTION_SWEEP_INTERVAL", &c.RetentionSweep)
	envString("HTTP_ADDR", &c.HTTPAddr)
	envString("STORE_BACKEND", &c.StoreBackend)
	envString("MONGO_URI", &c.MongoURI)
	envString("MONGO_DB", &c.MongoDB)
	envString("CATALOG_FILE", &c.CatalogFile)
	envString("CACHE_BACKEND", &c.CacheBackend)
	envString("REDIS_ADDR", &c.RedisAddr)
	envString("REDIS_PASSWORD", &c.RedisPassword)
	envInt("REDIS_DB", &c.RedisDB)
	envString("LOG_LEVEL", &c.LogLevel)
	envString("LOG_FORMAT", &c.LogFormat)
	envString("RECOMMENDATION_FILTER", &c.FilterExpr)
	envString("RECOMMENDATION_PIPELINE", &c.PipelineFile)
	envString("RECOMMENDATION_BLACKLIST_KEY", &c.BlacklistKey)

	if len(errs) > 0 {
		return fmt.Errorf("invalid environment: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate 校验配置取值。
func (c *Config) Validate() error {
	switch {
	case c.CacheTTL < 0:
		return fmt.Errorf("cache ttl must not be negative, got %s", c.CacheTTL)
	case c.MinInteractions < 1:
		return fmt.Errorf("min interactions must be >= 1, got %d", c.MinInteractions)
	case c.Neighbors < 1:
		return fmt.Errorf("neighbors must be >= 1, got %d", c.Neighbors)
	case c.Retention <= 0:
		return fmt.Errorf("retention must be positive, got %s", c.Retention)
	case c.RetentionSweep <= 0:
		return fmt.Errorf("retention sweep interval must be positive, got %s", c.RetentionSweep)
	case c.HTTPAddr == "":
		return fmt.Errorf("http addr is required")
	}

	switch c.StoreBackend {
	case BackendMemory:
	case BackendMongo:
		if c.MongoURI == "" || c.MongoDB == "" {
			return fmt.Errorf("mongo store requires MONGO_URI and MONGO_DB")
		}
	default:
		return fmt.Errorf("unknown store backend %q (supported: memory, mongo)", c.StoreBackend)
	}

	switch c.CacheBackend {
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("redis cache requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown cache backend %q (supported: memory, redis)", c.CacheBackend)
	}
	return nil
}

func (c *Config) DefaultNeighbors() int           { return c.Neighbors }
func (c *Config) DefaultMinInteractions() int     { return c.MinInteractions }
func (c *Config) DefaultCacheTTL() time.Duration  { return c.CacheTTL }
func (c *Config) DefaultRetention() time.Duration { return c.Retention }

var _ core.RecommendConfig = (*Config)(nil)
