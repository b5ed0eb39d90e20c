// Command shoprec 运行商品推荐 HTTP 服务与交互日志保留期清理任务。
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rushteam/shoprec/cache"
	"github.com/rushteam/shoprec/config"
	_ "github.com/rushteam/shoprec/config/builders"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/handler"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/service"
	"github.com/rushteam/shoprec/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "shoprec:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	recCache, kv, closeCache, err := openCache(cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	nodes, err := buildNodes(cfg, kv)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	svc := service.New(st.interactions, st.catalog, cfg,
		service.WithCache(recCache),
		service.WithUserDirectory(st.users),
		service.WithLogger(logger),
		service.WithMetrics(service.NewMetrics(reg)),
		service.WithNodes(nodes...),
	)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler.NewRouter(handler.NewRecommendHandler(svc), logger, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info().Msg("shutting down http server")
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		err := service.NewJanitor(svc, cfg.RetentionSweep).Serve(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err = g.Wait()
	logger.Info().Msg("shoprec stopped")
	return err
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.LogFormat == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Str("app", "shoprec").Logger()
}

// stores 是 openStores 的结果。users 为 nil 时不校验用户是否已注销。
type stores struct {
	interactions core.InteractionLog
	catalog      core.Catalog
	users        core.UserDirectory
	close        func()
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		client, err := store.ConnectMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		closeFn := func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(ctx); err != nil {
				logger.Warn().Err(err).Msg("mongo disconnect failed")
			}
		}
		db := client.Database(cfg.MongoDB)
		interactions := store.NewMongoInteractionLog(db)
		if err := interactions.EnsureIndexes(ctx, cfg.Retention, cfg.RetentionSweep); err != nil {
			closeFn()
			return nil, err
		}
		logger.Info().Str("backend", "mongo").Str("db", cfg.MongoDB).Msg("stores ready")
		return &stores{
			interactions: interactions,
			catalog:      store.NewMongoCatalog(db),
			users:        store.NewMongoUserDirectory(db),
			close:        closeFn,
		}, nil

	default:
		catalog := store.NewMemoryCatalog()
		if cfg.CatalogFile != "" {
			products, err := store.LoadCatalogFile(cfg.CatalogFile)
			if err != nil {
				return nil, err
			}
			catalog.Upsert(products...)
			logger.Info().Int("count", len(products)).Str("file", cfg.CatalogFile).Msg("catalog loaded")
		}
		logger.Info().Str("backend", "memory").Msg("stores ready")
		return &stores{
			interactions: store.NewMemoryInteractionLog(),
			catalog:      catalog,
			close:        func() {},
		}, nil
	}
}

// openCache 返回推荐缓存；redis 后端时同时返回底层 KV，供黑名单过滤复用。
func openCache(cfg *config.Config, logger zerolog.Logger) (cache.Cache, core.Store, func(), error) {
	switch cfg.CacheBackend {
	case config.BackendRedis:
		kv, err := store.NewRedisStoreWithOptions(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Info().Str("backend", "redis").Str("addr", cfg.RedisAddr).Dur("ttl", cfg.CacheTTL).Msg("cache ready")
		return cache.NewStoreCache(kv, "shoprec:recs", cfg.CacheTTL, logger), kv, func() { _ = kv.Close() }, nil
	default:
		if cfg.BlacklistKey != "" {
			logger.Warn().Str("key", cfg.BlacklistKey).Msg("blacklist key ignored without redis cache backend")
		}
		return cache.NewMemoryCache(cfg.CacheTTL), nil, func() {}, nil
	}
}

// buildNodes 组装召回之后的 Node：先是 RECOMMENDATION_PIPELINE 文件中的 Node，
// 再是 RECOMMENDATION_FILTER 与存储中的黑名单。
func buildNodes(cfg *config.Config, kv core.Store) ([]pipeline.Node, error) {
	var nodes []pipeline.Node
	if cfg.PipelineFile != "" {
		pc, err := pipeline.LoadFromYAML(cfg.PipelineFile)
		if err != nil {
			return nil, fmt.Errorf("load pipeline: %w", err)
		}
		if err := config.ValidatePipelineConfig(pc); err != nil {
			return nil, err
		}
		p, err := pc.BuildPipeline(config.DefaultFactory())
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, p.Nodes...)
	}
	if cfg.FilterExpr != "" {
		f, err := filter.NewExprFilter(cfg.FilterExpr)
		if err != nil {
			return nil, fmt.Errorf("recommendation filter: %w", err)
		}
		nodes = append(nodes, &filter.FilterNode{Filters: []filter.Filter{f}})
	}
	if cfg.BlacklistKey != "" && kv != nil {
		bl := filter.NewBlacklistFilter(nil, filter.NewStoreAdapter(kv), cfg.BlacklistKey)
		nodes = append(nodes, &filter.FilterNode{Filters: []filter.Filter{bl}})
	}
	return nodes, nil
}
