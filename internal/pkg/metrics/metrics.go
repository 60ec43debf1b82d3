package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 对话轮次结果
const (
	TurnGenerated   = "generated"
	TurnFallback    = "fallback"
	TurnRateLimited = "rate_limited"
	TurnFailed      = "failed"
)

var (
	// ChatTurnsTotal 对话轮次计数，按结果分类
	ChatTurnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kazini",
			Name:      "chat_turns_total",
			Help:      "Total number of chat turns by outcome",
		},
		[]string{"outcome"},
	)

	// GenerationDuration 生成调用耗时，status 为 ok 或失败原因
	GenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kazini",
			Name:      "generation_duration_seconds",
			Help:      "Duration of upstream generation calls",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"status"},
	)

	// CounterStoreErrors 计数器存储访问失败次数
	CounterStoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kazini",
			Name:      "counter_store_errors_total",
			Help:      "Total number of usage counter store errors",
		},
		[]string{"operation"},
	)

	// HTTPRequestDuration HTTP 请求耗时，route 为路由模板
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kazini",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
