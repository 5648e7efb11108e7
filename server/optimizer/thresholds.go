package optimizer

// Metric names evaluated each cycle.
const (
	MetricAvgLatencyMs    = "avg_latency_ms"
	MetricThroughput      = "throughput_per_min"
	MetricAvgQuality      = "avg_quality"
	MetricConvergenceRate = "convergence_rate"
	MetricCacheHitRate    = "cache_hit_rate"
	MetricMemoryPercent   = "memory_percent"
	MetricSatisfaction    = "satisfaction"
)

// Threshold is a direction-aware breach boundary for one metric.
//
// For low-is-bad metrics (quality, hit rate) the boundaries satisfy
// Critical < Low < Medium: a value below Critical is a critical breach,
// below Low a medium one, below Medium a low one, and at or above Medium
// healthy. High-is-bad metrics (latency, memory) invert the comparison with
// Critical > Low > Medium.
type Threshold struct {
	Metric   string
	Category Category
	Critical float64
	Low      float64
	Medium   float64
	// HighIsBad flips the comparison direction.
	HighIsBad bool
	// NeedsSamples skips evaluation until at least one generation was
	// recorded, so an idle engine does not trip traffic-derived metrics.
	NeedsSamples bool
}

// Evaluate maps a metric value to its breach severity.
func (t Threshold) Evaluate(value float64) Severity {
	if t.HighIsBad {
		switch {
		case value > t.Critical:
			return SeverityCritical
		case value > t.Low:
			return SeverityMedium
		case value > t.Medium:
			return SeverityLow
		default:
			return SeverityNone
		}
	}
	switch {
	case value < t.Critical:
		return SeverityCritical
	case value < t.Low:
		return SeverityMedium
	case value < t.Medium:
		return SeverityLow
	default:
		return SeverityNone
	}
}

// breached reports the boundary the value crossed, for trigger reporting.
func (t Threshold) breached(severity Severity) float64 {
	switch severity {
	case SeverityCritical:
		return t.Critical
	case SeverityMedium:
		return t.Low
	default:
		return t.Medium
	}
}

// DefaultThresholds returns the shipped threshold set. Order is significant:
// it is the detection order, which breaks priority ties among actions.
func DefaultThresholds() []Threshold {
	return []Threshold{
		{Metric: MetricAvgLatencyMs, Category: CategoryPerformance, Critical: 10000, Low: 5000, Medium: 2000, HighIsBad: true, NeedsSamples: true},
		{Metric: MetricThroughput, Category: CategoryPerformance, Critical: 0.1, Low: 0.5, Medium: 1.0, NeedsSamples: true},
		{Metric: MetricAvgQuality, Category: CategoryQuality, Critical: 0.4, Low: 0.55, Medium: 0.7, NeedsSamples: true},
		{Metric: MetricConvergenceRate, Category: CategoryQuality, Critical: 0.2, Low: 0.4, Medium: 0.6, NeedsSamples: true},
		{Metric: MetricCacheHitRate, Category: CategoryEfficiency, Critical: 0.05, Low: 0.15, Medium: 0.3},
		{Metric: MetricMemoryPercent, Category: CategoryEfficiency, Critical: 95, Low: 85, Medium: 75, HighIsBad: true},
		{Metric: MetricSatisfaction, Category: CategoryUser, Critical: 0.3, Low: 0.5, Medium: 0.65, NeedsSamples: true},
	}
}
