package monitoring

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// Metrics holds in-process counters for the service. Hot-path counters are
// plain int64s updated atomically; the status map takes a mutex.
type Metrics struct {
	RequestCount        int64
	ErrorCount          int64
	CacheHits           int64
	CacheMisses         int64
	ScoringCalls        int64
	SimulationRuns      int64
	BenchmarkRuns       int64
	WeightReloads       int64
	RateLimitBlocks     int64
	AverageResponseTime int64 // nanoseconds
	StartTime           time.Time

	RequestCountByStatus map[int]int64
	statusMutex          sync.RWMutex
}

// NewMetrics creates a new metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		StartTime:            time.Now(),
		RequestCountByStatus: make(map[int]int64),
	}
}

func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.RequestCount, 1)
}

func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.ErrorCount, 1)
}

func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.CacheHits, 1)
}

func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.CacheMisses, 1)
}

func (m *Metrics) IncrementScoringCall() {
	atomic.AddInt64(&m.ScoringCalls, 1)
}

func (m *Metrics) IncrementSimulationRun() {
	atomic.AddInt64(&m.SimulationRuns, 1)
}

func (m *Metrics) IncrementBenchmarkRun() {
	atomic.AddInt64(&m.BenchmarkRuns, 1)
}

func (m *Metrics) IncrementWeightReload() {
	atomic.AddInt64(&m.WeightReloads, 1)
}

func (m *Metrics) IncrementRateLimitBlock() {
	atomic.AddInt64(&m.RateLimitBlocks, 1)
}

// RecordResponseTime folds one duration into the running average.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	current := atomic.LoadInt64(&m.AverageResponseTime)
	atomic.StoreInt64(&m.AverageResponseTime, (current+duration.Nanoseconds())/2)
}

// RecordRequestByStatus records request count by HTTP status code.
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.statusMutex.Lock()
	defer m.statusMutex.Unlock()
	m.RequestCountByStatus[statusCode]++
}

// GetStatusCodeDistribution returns a copy of request counts by status code.
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.statusMutex.RLock()
	defer m.statusMutex.RUnlock()

	distribution := make(map[int]int64, len(m.RequestCountByStatus))
	for code, count := range m.RequestCountByStatus {
		distribution[code] = count
	}
	return distribution
}

// GetStats returns a snapshot of all counters for the /metrics endpoint.
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.RequestCount)
	errors := atomic.LoadInt64(&m.ErrorCount)
	cacheHits := atomic.LoadInt64(&m.CacheHits)
	cacheMisses := atomic.LoadInt64(&m.CacheMisses)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	if total := cacheHits + cacheMisses; total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total) * 100
	}

	return map[string]interface{}{
		"uptime_seconds":           time.Since(m.StartTime).Seconds(),
		"total_requests":           requests,
		"error_count":              errors,
		"error_rate_percent":       errorRate,
		"cache_hits":               cacheHits,
		"cache_misses":             cacheMisses,
		"cache_hit_rate_percent":   cacheHitRate,
		"scoring_calls":            atomic.LoadInt64(&m.ScoringCalls),
		"simulation_runs":          atomic.LoadInt64(&m.SimulationRuns),
		"benchmark_runs":           atomic.LoadInt64(&m.BenchmarkRuns),
		"weight_reloads":           atomic.LoadInt64(&m.WeightReloads),
		"rate_limit_blocks":        atomic.LoadInt64(&m.RateLimitBlocks),
		"avg_response_time_ms":     float64(atomic.LoadInt64(&m.AverageResponseTime)) / 1e6,
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"start_time":               m.StartTime.Format(time.RFC3339),
	}
}

// Reset zeroes all counters. Test helper.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.RequestCount, 0)
	atomic.StoreInt64(&m.ErrorCount, 0)
	atomic.StoreInt64(&m.CacheHits, 0)
	atomic.StoreInt64(&m.CacheMisses, 0)
	atomic.StoreInt64(&m.ScoringCalls, 0)
	atomic.StoreInt64(&m.SimulationRuns, 0)
	atomic.StoreInt64(&m.BenchmarkRuns, 0)
	atomic.StoreInt64(&m.WeightReloads, 0)
	atomic.StoreInt64(&m.RateLimitBlocks, 0)
	atomic.StoreInt64(&m.AverageResponseTime, 0)

	m.statusMutex.Lock()
	m.RequestCountByStatus = make(map[int]int64)
	m.statusMutex.Unlock()

	m.StartTime = time.Now()
}

// Middleware records request count, status distribution, response time, and
// errors for every request.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		m.IncrementRequest()

		c.Next()

		status := c.Writer.Status()
		m.RecordRequestByStatus(status)
		m.RecordResponseTime(time.Since(start))
		if status >= 400 {
			m.IncrementError()
		}
	}
}
