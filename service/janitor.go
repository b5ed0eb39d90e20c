package service

import (
	"context"
	"time"
)

// Janitor 周期性地清理超过保留期的交互记录。
type Janitor struct {
	svc      *RecommendService
	interval time.Duration
}

// NewJanitor 创建清理任务，interval <= 0 时每小时一次。
func NewJanitor(svc *RecommendService, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{svc: svc, interval: interval}
}

// Serve 启动时先清理一次，然后按 interval 执行，直到 ctx 结束。
// 单次清理失败只记录日志，不终止循环。
func (j *Janitor) Serve(ctx context.Context) error {
	logger := j.svc.logger.With().Str("task", "retention").Logger()
	logger.Info().Dur("interval", j.interval).Dur("retention", j.svc.cfg.DefaultRetention()).Msg("retention janitor starting")

	j.sweep(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("retention janitor shutting down")
			return ctx.Err()
		case <-ticker.C:
			j.sweep(ctx)
		}
	}
}

func (j *Janitor) sweep(ctx context.Context) {
	if _, err := j.svc.PurgeExpired(ctx, j.svc.now()); err != nil {
		j.svc.logger.Warn().Err(err).Msg("retention sweep failed")
	}
}
