package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 推荐结果的来源，作为 shoprec_recommendations_total 的 path 标签
const (
	PathCache       = "cache"
	PathCF          = "cf"
	PathColdStart   = "cold_start"
	PathNoNeighbors = "no_neighbors"
)

// Metrics 汇总服务层的 Prometheus 指标。nil *Metrics 的所有方法都是空操作。
type Metrics struct {
	recommendations *prometheus.CounterVec
	cacheRequests   *prometheus.CounterVec
	matrixBuild     prometheus.Histogram
	interactions    *prometheus.CounterVec
	purged          prometheus.Counter
}

// NewMetrics 在 reg 上注册指标；reg 为 nil 时使用 prometheus.DefaultRegisterer。
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		recommendations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shoprec_recommendations_total",
			Help: "Personalized recommendation requests by the path that produced the answer",
		}, []string{"path"}),
		cacheRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shoprec_cache_requests_total",
			Help: "Recommendation cache lookups by result",
		}, []string{"result"}),
		matrixBuild: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "shoprec_matrix_build_seconds",
			Help:    "Time spent building the user-product matrix",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		interactions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "shoprec_interactions_recorded_total",
			Help: "Interactions recorded by type",
		}, []string{"type"}),
		purged: f.NewCounter(prometheus.CounterOpts{
			Name: "shoprec_interactions_purged_total",
			Help: "Interactions removed by the retention sweep",
		}),
	}
}

func (m *Metrics) recommendation(path string) {
	if m != nil {
		m.recommendations.WithLabelValues(path).Inc()
	}
}

func (m *Metrics) cacheResult(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

func (m *Metrics) observeMatrixBuild(d time.Duration) {
	if m != nil {
		m.matrixBuild.Observe(d.Seconds())
	}
}

func (m *Metrics) interaction(typ string, n int) {
	if m != nil {
		m.interactions.WithLabelValues(typ).Add(float64(n))
	}
}

func (m *Metrics) purge(n int64) {
	if m != nil {
		m.purged.Add(float64(n))
	}
}
