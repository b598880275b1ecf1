// Package metrics 提供 Prometheus 指标与限流丢弃计数
package metrics

import (
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "materialhub"

var (
	// HTTP 请求指标
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"method", "path"},
	)

	// 规则变更（store: opening/return_visit/audit/lexicon）
	RuleMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "mutations_total",
			Help:      "Total number of rule store mutations",
		},
		[]string{"store", "op"},
	)

	SnapshotSaveFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "save_failures_total",
			Help:      "Total number of failed snapshot saves",
		},
		[]string{"namespace"},
	)

	OutreachOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outreach",
			Name:      "ops_total",
			Help:      "Total number of outreach plan operations",
		},
		[]string{"op"},
	)

	// 上传会话中的文件（result: accepted/rejected/uploaded）
	IntakeFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "files_total",
			Help:      "Total number of files seen by the upload intake",
		},
		[]string{"result"},
	)

	RateLimitDropsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ratelimit",
			Name:      "drops_total",
			Help:      "Total number of requests rejected by the rate limiter",
		},
		[]string{"prefix"},
	)
)

func RecordRuleMutation(store, op string) {
	RuleMutationsTotal.WithLabelValues(store, op).Inc()
}

func RecordSnapshotFailure(ns string) {
	SnapshotSaveFailures.WithLabelValues(ns).Inc()
}

func RecordOutreachOp(op string) {
	OutreachOpsTotal.WithLabelValues(op).Inc()
}

func RecordIntake(result string, n int) {
	if n <= 0 {
		return
	}
	IntakeFilesTotal.WithLabelValues(result).Add(float64(n))
}

// rateLimitStats 进程内的限流丢弃计数，供 /health 等接口直接读取
type rateLimitStats struct {
	total    uint64
	mu       sync.Mutex
	byPrefix map[string]uint64
}

var rl rateLimitStats

// IncRateLimitDrop 记录一次 429，全局限流器使用 "global"
func IncRateLimitDrop(prefix string) {
	if prefix == "" {
		prefix = "global"
	}
	atomic.AddUint64(&rl.total, 1)
	rl.mu.Lock()
	if rl.byPrefix == nil {
		rl.byPrefix = make(map[string]uint64)
	}
	rl.byPrefix[prefix]++
	rl.mu.Unlock()
	RateLimitDropsTotal.WithLabelValues(prefix).Inc()
}

// RateLimitSnapshot 返回当前计数的副本
func RateLimitSnapshot() (total uint64, by map[string]uint64) {
	total = atomic.LoadUint64(&rl.total)
	rl.mu.Lock()
	defer rl.mu.Unlock()
	by = make(map[string]uint64, len(rl.byPrefix))
	for k, v := range rl.byPrefix {
		by[k] = v
	}
	return total, by
}
