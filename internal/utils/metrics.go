// internal/utils/metrics.go
package utils

import (
	"sync"
	"sync/atomic"
	"time"
)

// 生成管线指标名称
const (
	MetricOutlineRequests = "outline_requests_total"
	MetricDeckRequests    = "deck_requests_total"
	MetricDecksCompleted  = "decks_completed_total"
	MetricPagesEmitted    = "pages_emitted_total"
	MetricGenerationError = "generation_errors_total"
	MetricPhaseDuration   = "phase_duration_ms"
	MetricActiveStreams   = "active_streams"
)

// MetricsCollector collects application metrics
type MetricsCollector struct {
	counters   map[string]*Counter
	gauges     map[string]*Gauge
	histograms map[string]*Histogram

	mu sync.RWMutex
}

// Counter metric - using atomic operations for thread-safe value updates
type Counter struct {
	name  string
	value int64
}

// Gauge metric - using atomic operations for thread-safe value updates
type Gauge struct {
	name  string
	value int64
}

// Histogram metric (simple implementation tracking count, sum, min, max)
type Histogram struct {
	name  string
	count int64
	sum   int64
	min   int64
	max   int64
	mu    sync.Mutex
}

var (
	globalMetrics *MetricsCollector
	metricsOnce   sync.Once
)

// GetMetricsCollector returns the global metrics collector
func GetMetricsCollector() *MetricsCollector {
	metricsOnce.Do(func() {
		globalMetrics = &MetricsCollector{
			counters:   make(map[string]*Counter),
			gauges:     make(map[string]*Gauge),
			histograms: make(map[string]*Histogram),
		}
	})
	return globalMetrics
}

// IncrementCounter increments a counter metric
func (m *MetricsCollector) IncrementCounter(name string) {
	m.AddCounter(name, 1)
}

// AddCounter adds a value to a counter metric using atomic operations
func (m *MetricsCollector) AddCounter(name string, value int64) {
	// Fast path for existing counters
	m.mu.RLock()
	counter, exists := m.counters[name]
	m.mu.RUnlock()

	if exists {
		atomic.AddInt64(&counter.value, value)
		return
	}

	m.mu.Lock()
	// Double-check after acquiring write lock
	counter, exists = m.counters[name]
	if !exists {
		counter = &Counter{name: name}
		m.counters[name] = counter
	}
	m.mu.Unlock()

	atomic.AddInt64(&counter.value, value)
}

// SetGauge sets a gauge metric
func (m *MetricsCollector) SetGauge(name string, value int64) {
	m.mu.RLock()
	gauge, exists := m.gauges[name]
	m.mu.RUnlock()

	if exists {
		atomic.StoreInt64(&gauge.value, value)
		return
	}

	m.mu.Lock()
	gauge, exists = m.gauges[name]
	if !exists {
		gauge = &Gauge{name: name}
		m.gauges[name] = gauge
	}
	m.mu.Unlock()

	atomic.StoreInt64(&gauge.value, value)
}

// AddGauge adds a delta to a gauge metric
func (m *MetricsCollector) AddGauge(name string, delta int64) {
	m.mu.RLock()
	gauge, exists := m.gauges[name]
	m.mu.RUnlock()

	if exists {
		atomic.AddInt64(&gauge.value, delta)
		return
	}

	m.mu.Lock()
	gauge, exists = m.gauges[name]
	if !exists {
		gauge = &Gauge{name: name}
		m.gauges[name] = gauge
	}
	m.mu.Unlock()

	atomic.AddInt64(&gauge.value, delta)
}

// Observe records a value in a histogram metric
func (m *MetricsCollector) Observe(name string, value int64) {
	m.mu.RLock()
	hist, exists := m.histograms[name]
	m.mu.RUnlock()

	if !exists {
		m.mu.Lock()
		hist, exists = m.histograms[name]
		if !exists {
			hist = &Histogram{name: name}
			m.histograms[name] = hist
		}
		m.mu.Unlock()
	}

	hist.mu.Lock()
	defer hist.mu.Unlock()

	if hist.count == 0 || value < hist.min {
		hist.min = value
	}
	if value > hist.max {
		hist.max = value
	}
	hist.count++
	hist.sum += value
}

// ObserveDuration records an elapsed duration in milliseconds
func (m *MetricsCollector) ObserveDuration(name string, start time.Time) {
	m.Observe(name, time.Since(start).Milliseconds())
}

// HistogramStats 直方图快照
type HistogramStats struct {
	Count int64   `json:"count"`
	Sum   int64   `json:"sum"`
	Min   int64   `json:"min"`
	Max   int64   `json:"max"`
	Avg   float64 `json:"avg"`
}

// Snapshot 返回所有指标的当前快照，供指标端点输出
func (m *MetricsCollector) Snapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	counters := make(map[string]int64, len(m.counters))
	for name, counter := range m.counters {
		counters[name] = atomic.LoadInt64(&counter.value)
	}

	gauges := make(map[string]int64, len(m.gauges))
	for name, gauge := range m.gauges {
		gauges[name] = atomic.LoadInt64(&gauge.value)
	}

	histograms := make(map[string]HistogramStats, len(m.histograms))
	for name, hist := range m.histograms {
		hist.mu.Lock()
		stats := HistogramStats{
			Count: hist.count,
			Sum:   hist.sum,
			Min:   hist.min,
			Max:   hist.max,
		}
		if hist.count > 0 {
			stats.Avg = float64(hist.sum) / float64(hist.count)
		}
		hist.mu.Unlock()
		histograms[name] = stats
	}

	return map[string]interface{}{
		"counters":   counters,
		"gauges":     gauges,
		"histograms": histograms,
		"timestamp":  time.Now(),
	}
}
