package optimizer

import (
	"sync"
)

// predictorWindow bounds the snapshots kept for trend estimation.
const predictorWindow = 20

// Predictor keeps recent snapshots and estimates per-metric trends by simple
// first-to-last slope over the window. Enough to flag drift before a
// threshold is crossed; anything fancier would be tuning noise.
type Predictor struct {
	mu        sync.RWMutex
	snapshots []Snapshot
}

// NewPredictor creates an empty predictor.
func NewPredictor() *Predictor {
	return &Predictor{}
}

// Observe records a snapshot.
func (p *Predictor) Observe(snap Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, snap)
	if len(p.snapshots) > predictorWindow {
		p.snapshots = p.snapshots[len(p.snapshots)-predictorWindow:]
	}
}

// Trend returns the per-cycle change estimate for a metric; 0 until at least
// two snapshots were observed.
func (p *Predictor) Trend(metric string) float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()

	n := len(p.snapshots)
	if n < 2 {
		return 0
	}
	first := p.snapshots[0].metric(metric)
	last := p.snapshots[n-1].metric(metric)
	return (last - first) / float64(n-1)
}

// Projected returns the metric value expected one cycle ahead.
func (p *Predictor) Projected(snap Snapshot, metric string) float64 {
	return snap.metric(metric) + p.Trend(metric)
}
