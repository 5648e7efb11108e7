package optimizer

import (
	"context"
)

// Applier is the seam through which corrective actions reach the engine.
// The generation service implements it by mutating its shared configuration
// and clearing its caches.
type Applier interface {
	// ApplyOptimization executes one action and returns the side effects it
	// caused (human-readable, recorded in the optimization result).
	ApplyOptimization(ctx context.Context, action Action) ([]string, error)
}

// actionPlan is the static mapping from breached metric to corrective action.
type actionPlan struct {
	kind     ActionKind
	params   map[string]any
	priority int
	impact   float64
}

// planFor chooses the corrective action for a breached metric. Critical
// breaches get a priority bump so they jump the per-cycle execution cap.
func planFor(metric string, severity Severity) actionPlan {
	var plan actionPlan
	switch metric {
	case MetricAvgLatencyMs:
		plan = actionPlan{kind: ActionReduceEnsembleSize, params: map[string]any{"step": 1}, priority: 7, impact: 0.4}
	case MetricThroughput:
		plan = actionPlan{kind: ActionReduceIterations, params: map[string]any{"step": 1}, priority: 5, impact: 0.3}
	case MetricAvgQuality:
		plan = actionPlan{kind: ActionRaiseQualityThreshold, params: map[string]any{"step": 0.05}, priority: 6, impact: 0.35}
	case MetricConvergenceRate:
		plan = actionPlan{kind: ActionIncreaseIterations, params: map[string]any{"step": 1}, priority: 5, impact: 0.3}
	case MetricCacheHitRate:
		plan = actionPlan{kind: ActionReduceSemanticDepth, params: map[string]any{"step": 1}, priority: 3, impact: 0.2}
	case MetricMemoryPercent:
		plan = actionPlan{kind: ActionClearCaches, priority: 8, impact: 0.5}
	case MetricSatisfaction:
		plan = actionPlan{kind: ActionIncreaseEnsembleSize, params: map[string]any{"step": 1}, priority: 4, impact: 0.3}
	default:
		plan = actionPlan{kind: ActionClearCaches, priority: 1, impact: 0.1}
	}

	if severity == SeverityCritical && plan.priority < 10 {
		plan.priority += 2
		if plan.priority > 10 {
			plan.priority = 10
		}
	}
	return plan
}
