package service

import (
	"context"
	"time"

	"github.com/rushteam/shoprec/recall"
)

// timedMatrix 为矩阵构建计时。
type timedMatrix struct {
	next    recall.MatrixSource
	metrics *Metrics
}

func (t *timedMatrix) Build(ctx context.Context) (*recall.Matrix, error) {
	start := time.Now()
	m, err := t.next.Build(ctx)
	t.metrics.observeMatrixBuild(time.Since(start))
	return m, err
}
