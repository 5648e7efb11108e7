package optimizer

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
)

// sampleWindow bounds the rolling generation-sample buffer.
const sampleWindow = 100

// Snapshot is one point-in-time view of the engine's health signals.
type Snapshot struct {
	AvgLatencyMs    float64   `json:"avg_latency_ms"`
	Throughput      float64   `json:"throughput_per_min"`
	AvgQuality      float64   `json:"avg_quality"`
	ConvergenceRate float64   `json:"convergence_rate"`
	CacheHitRate    float64   `json:"cache_hit_rate"`
	MemoryPercent   float64   `json:"memory_percent"`
	Satisfaction    float64   `json:"satisfaction"`
	SampleCount     int       `json:"sample_count"`
	TakenAt         time.Time `json:"taken_at"`
}

type generationSample struct {
	latency   time.Duration
	quality   float64
	converged bool
	at        time.Time
}

// Collector aggregates per-generation samples into snapshots. The engine
// records into it after every generation; the optimizer reads from it each
// cycle.
type Collector struct {
	mu      sync.RWMutex
	samples []generationSample

	// hitRate reports the engine's combined cache hit rate; nil means the
	// signal is unavailable and reads as a healthy 1.
	hitRate func() float64
}

// NewCollector creates a collector. hitRate may be nil.
func NewCollector(hitRate func() float64) *Collector {
	return &Collector{hitRate: hitRate}
}

// RecordGeneration records one completed generation.
func (c *Collector) RecordGeneration(latency time.Duration, quality float64, converged bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.samples = append(c.samples, generationSample{
		latency:   latency,
		quality:   quality,
		converged: converged,
		at:        time.Now(),
	})
	if len(c.samples) > sampleWindow {
		c.samples = c.samples[len(c.samples)-sampleWindow:]
	}
}

// SampleCount returns the number of buffered samples.
func (c *Collector) SampleCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.samples)
}

// Snapshot computes the current aggregate view. Memory comes from the host
// via gopsutil; a sampling failure leaves MemoryPercent at 0 rather than
// failing the cycle.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	samples := make([]generationSample, len(c.samples))
	copy(samples, c.samples)
	hitRate := c.hitRate
	c.mu.RUnlock()

	snap := Snapshot{
		CacheHitRate: 1,
		TakenAt:      time.Now(),
		SampleCount:  len(samples),
	}
	if hitRate != nil {
		snap.CacheHitRate = hitRate()
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		snap.MemoryPercent = vm.UsedPercent
	}

	if len(samples) == 0 {
		return snap
	}

	var latencySum time.Duration
	var qualitySum float64
	converged := 0
	for _, s := range samples {
		latencySum += s.latency
		qualitySum += s.quality
		if s.converged {
			converged++
		}
	}

	n := float64(len(samples))
	snap.AvgLatencyMs = float64(latencySum.Milliseconds()) / n
	snap.AvgQuality = qualitySum / n
	snap.ConvergenceRate = float64(converged) / n

	// Throughput over the span of the buffered samples, in generations per
	// minute; a single sample reads as one per minute.
	span := samples[len(samples)-1].at.Sub(samples[0].at)
	if span > 0 {
		snap.Throughput = n / span.Minutes()
	} else {
		snap.Throughput = n
	}

	// Satisfaction proxy: users are happy when quality is high and
	// generations converge.
	snap.Satisfaction = 0.6*snap.AvgQuality + 0.4*snap.ConvergenceRate

	return snap
}

// metric reads one named signal off a snapshot.
func (s Snapshot) metric(name string) float64 {
	switch name {
	case MetricAvgLatencyMs:
		return s.AvgLatencyMs
	case MetricThroughput:
		return s.Throughput
	case MetricAvgQuality:
		return s.AvgQuality
	case MetricConvergenceRate:
		return s.ConvergenceRate
	case MetricCacheHitRate:
		return s.CacheHitRate
	case MetricMemoryPercent:
		return s.MemoryPercent
	case MetricSatisfaction:
		return s.Satisfaction
	default:
		return 0
	}
}
