// Package metrics provides internal metrics collection.
// This package is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// Collector 指标收集器。所有 Record* 方法对 nil 接收者安全，
// 未启用指标时组件直接传 nil 即可。
type Collector struct {
	// 交互层指标
	locateAttempts *prometheus.CounterVec
	pageReloads    *prometheus.CounterVec

	// 配额循环指标
	workUnits    *prometheus.CounterVec
	workActions  *prometheus.CounterVec
	measurements *prometheus.CounterVec

	// 任务指标
	taskOutcomes      *prometheus.CounterVec
	taskDuration      *prometheus.HistogramVec
	taskState         *prometheus.CounterVec
	completedFraction prometheus.Gauge

	// 词表缓存指标
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	// 交互层指标
	c.locateAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "locate_attempts_total",
			Help:      "Total number of element locate attempts",
		},
		[]string{"profile", "result"}, // result: found, missing
	)

	c.pageReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "page_reloads_total",
			Help:      "Total number of forced page reloads during locate retries",
		},
		[]string{"profile"},
	)

	// 配额循环指标
	c.workUnits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "work_units_total",
			Help:      "Total number of work units performed",
		},
		[]string{"profile", "kind"}, // kind: search, offers
	)

	c.workActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "work_actions_total",
			Help:      "Total number of simulated actions submitted",
		},
		[]string{"profile"},
	)

	c.measurements = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "progress_measurements_total",
			Help:      "Total number of progress reads by readability",
		},
		[]string{"profile", "kind", "readable"}, // readable: both, partial, none
	)

	// 任务指标
	c.taskOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_outcomes_total",
			Help:      "Total number of finished session tasks by outcome",
		},
		[]string{"profile", "outcome"},
	)

	c.taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "task_duration_seconds",
			Help:      "Session task duration in seconds",
			Buckets:   []float64{10, 30, 60, 120, 300, 600, 1200, 1800, 3600},
		},
		[]string{"profile"},
	)

	c.taskState = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "task_state_transitions_total",
			Help:      "Total number of session task state transitions",
		},
		[]string{"profile", "state"},
	)

	c.completedFraction = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pool_completed_fraction",
			Help:      "Fraction of pool tasks that have finished",
		},
	)

	// 缓存指标
	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// =============================================================================
// 🌐 交互层指标记录
// =============================================================================

// RecordLocateAttempt 记录一次元素定位尝试
func (c *Collector) RecordLocateAttempt(profile string, found bool) {
	if c == nil {
		return
	}
	result := "missing"
	if found {
		result = "found"
	}
	c.locateAttempts.WithLabelValues(profile, result).Inc()
}

// RecordReload 记录一次强制刷新
func (c *Collector) RecordReload(profile string) {
	if c == nil {
		return
	}
	c.pageReloads.WithLabelValues(profile).Inc()
}

// =============================================================================
// 🔁 配额循环指标记录
// =============================================================================

// RecordWorkUnit 记录一个工作单元
func (c *Collector) RecordWorkUnit(profile, kind string) {
	if c == nil {
		return
	}
	c.workUnits.WithLabelValues(profile, kind).Inc()
}

// RecordWorkActions 记录提交的模拟动作数
func (c *Collector) RecordWorkActions(profile string, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.workActions.WithLabelValues(profile).Add(float64(n))
}

// RecordMeasurement 记录一次进度读取
func (c *Collector) RecordMeasurement(profile, kind string, currentOK, maximumOK bool) {
	if c == nil {
		return
	}
	readable := "none"
	switch {
	case currentOK && maximumOK:
		readable = "both"
	case currentOK || maximumOK:
		readable = "partial"
	}
	c.measurements.WithLabelValues(profile, kind, readable).Inc()
}

// =============================================================================
// 🎭 任务指标记录
// =============================================================================

// RecordTaskOutcome 记录任务结束
func (c *Collector) RecordTaskOutcome(profile, outcome string, duration time.Duration) {
	if c == nil {
		return
	}
	c.taskOutcomes.WithLabelValues(profile, outcome).Inc()
	c.taskDuration.WithLabelValues(profile).Observe(duration.Seconds())
}

// RecordTaskState 记录任务状态转换
func (c *Collector) RecordTaskState(profile, state string) {
	if c == nil {
		return
	}
	c.taskState.WithLabelValues(profile, state).Inc()
}

// SetCompletedFraction 更新任务池完成比例
func (c *Collector) SetCompletedFraction(f float64) {
	if c == nil {
		return
	}
	c.completedFraction.Set(f)
}

// =============================================================================
// 💾 缓存指标记录
// =============================================================================

// RecordCacheHit 记录缓存命中
func (c *Collector) RecordCacheHit(cacheType string) {
	if c == nil {
		return
	}
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss 记录缓存未命中
func (c *Collector) RecordCacheMiss(cacheType string) {
	if c == nil {
		return
	}
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}
