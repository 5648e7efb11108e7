// Package optimizer runs the self-tuning feedback loop: it periodically
// samples engine metrics, detects threshold breaches, and executes corrective
// actions against the engine configuration.
package optimizer

import (
	"time"
)

// Category groups feedback loops by the kind of signal that triggered them.
type Category string

const (
	CategoryPerformance Category = "performance"
	CategoryQuality     Category = "quality"
	CategoryEfficiency  Category = "efficiency"
	CategoryUser        Category = "user"
)

// Severity ranks how far past its threshold a metric has drifted.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ActionKind names a corrective action the optimizer can take.
type ActionKind string

const (
	ActionReduceEnsembleSize    ActionKind = "reduce-ensemble-size"
	ActionIncreaseEnsembleSize  ActionKind = "increase-ensemble-size"
	ActionReduceIterations      ActionKind = "reduce-refinement-iterations"
	ActionIncreaseIterations    ActionKind = "increase-refinement-iterations"
	ActionRaiseQualityThreshold ActionKind = "raise-quality-threshold"
	ActionClearCaches           ActionKind = "clear-caches"
	ActionReduceSemanticDepth   ActionKind = "reduce-semantic-depth"
)

// Trigger records the metric observation that tripped a feedback loop.
type Trigger struct {
	Metric    string   `json:"metric"`
	Threshold float64  `json:"threshold"`
	Value     float64  `json:"value"`
	Trend     float64  `json:"trend"`
	Severity  Severity `json:"severity"`
}

// Action is the corrective step chosen for a trigger.
type Action struct {
	Kind            ActionKind     `json:"kind"`
	Params          map[string]any `json:"params,omitempty"`
	Priority        int            `json:"priority"` // [0,10], higher runs first
	EstimatedImpact float64        `json:"estimated_impact"`
}

// OptimizationResult records the outcome of one executed action.
type OptimizationResult struct {
	Success     bool          `json:"success"`
	Improvement float64       `json:"improvement"`
	SideEffects []string      `json:"side_effects,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// FeedbackLoop is one detected breach plus its chosen action and, once
// executed, the result.
type FeedbackLoop struct {
	ID         string              `json:"id"`
	Category   Category            `json:"category"`
	Trigger    Trigger             `json:"trigger"`
	Action     Action              `json:"action"`
	Result     *OptimizationResult `json:"result,omitempty"`
	DetectedAt time.Time           `json:"detected_at"`
}
