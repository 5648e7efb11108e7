package generation

import (
	"sync"
	"time"

	"github.com/visionforge/visionforge/plugin/synthesis/refine"
)

// Config holds the engine's runtime-tunable options. One Config is shared by
// all requests and mutated only through Configure or optimizer actions, under
// the service mutex.
type Config struct {
	// MaxIterations is the hard bound on the refinement loop.
	MaxIterations int `json:"maxIterations"`
	// QualityThreshold is the convergence gate for refinement.
	QualityThreshold float64 `json:"qualityThreshold"`
	// EnsembleSize is the parallel candidate count per generation.
	EnsembleSize int `json:"ensembleSize"`
	// RefinementSteps is the requested refinement pass count per generation;
	// the effective bound is min(RefinementSteps, MaxIterations).
	RefinementSteps int `json:"refinementSteps"`
	// StyleTransferStrength scales style application in fusion, in [0,1].
	StyleTransferStrength float64 `json:"styleTransferStrength"`
	// SemanticDepth controls how many concepts analysis extracts per input.
	SemanticDepth int `json:"semanticDepth"`
	// FeedbackInterval is the optimizer cycle period.
	FeedbackInterval time.Duration `json:"feedbackInterval"`
	// OptimizationThreshold is the minimum estimated impact for the optimizer
	// to execute an action.
	OptimizationThreshold float64 `json:"optimizationThreshold"`
	// MaxOptimizationsPerCycle caps executed optimizer actions per cycle.
	MaxOptimizationsPerCycle int `json:"maxOptimizationsPerCycle"`
	// AdaptiveLearning lets the optimizer learn action impacts from outcomes.
	AdaptiveLearning bool `json:"adaptiveLearning"`
	// PredictionEnabled adds trend-based advisory loops to optimizer cycles.
	PredictionEnabled bool `json:"predictionEnabled"`
	// ModelRoster names the backend models available to the ensemble.
	ModelRoster []string `json:"modelRoster"`
	// Strategy selects refinement technique scoring aggressiveness.
	Strategy refine.Strategy `json:"strategy"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:            5,
		QualityThreshold:         0.85,
		EnsembleSize:             3,
		RefinementSteps:          5,
		StyleTransferStrength:    0.8,
		SemanticDepth:            3,
		FeedbackInterval:         30 * time.Second,
		OptimizationThreshold:    0.1,
		MaxOptimizationsPerCycle: 3,
		AdaptiveLearning:         true,
		ModelRoster:              []string{"vf-base", "vf-artistic", "vf-photoreal"},
		Strategy:                 refine.StrategyBalanced,
	}
}

// ConfigUpdate is a partial configuration change; nil fields keep their
// current value.
type ConfigUpdate struct {
	MaxIterations            *int             `json:"maxIterations,omitempty"`
	QualityThreshold         *float64         `json:"qualityThreshold,omitempty"`
	EnsembleSize             *int             `json:"ensembleSize,omitempty"`
	RefinementSteps          *int             `json:"refinementSteps,omitempty"`
	StyleTransferStrength    *float64         `json:"styleTransferStrength,omitempty"`
	SemanticDepth            *int             `json:"semanticDepth,omitempty"`
	FeedbackInterval         *time.Duration   `json:"feedbackInterval,omitempty"`
	OptimizationThreshold    *float64         `json:"optimizationThreshold,omitempty"`
	MaxOptimizationsPerCycle *int             `json:"maxOptimizationsPerCycle,omitempty"`
	AdaptiveLearning         *bool            `json:"adaptiveLearning,omitempty"`
	PredictionEnabled        *bool            `json:"predictionEnabled,omitempty"`
	ModelRoster              []string         `json:"modelRoster,omitempty"`
	Strategy                 *refine.Strategy `json:"strategy,omitempty"`
}

// apply merges the update into cfg, ignoring out-of-range values.
func (u ConfigUpdate) apply(cfg *Config) {
	if u.MaxIterations != nil && *u.MaxIterations > 0 {
		cfg.MaxIterations = *u.MaxIterations
	}
	if u.QualityThreshold != nil && *u.QualityThreshold > 0 && *u.QualityThreshold <= 1 {
		cfg.QualityThreshold = *u.QualityThreshold
	}
	if u.EnsembleSize != nil && *u.EnsembleSize > 0 {
		cfg.EnsembleSize = *u.EnsembleSize
	}
	if u.RefinementSteps != nil && *u.RefinementSteps > 0 {
		cfg.RefinementSteps = *u.RefinementSteps
	}
	if u.StyleTransferStrength != nil && *u.StyleTransferStrength > 0 && *u.StyleTransferStrength <= 1 {
		cfg.StyleTransferStrength = *u.StyleTransferStrength
	}
	if u.SemanticDepth != nil && *u.SemanticDepth > 0 {
		cfg.SemanticDepth = *u.SemanticDepth
	}
	if u.FeedbackInterval != nil && *u.FeedbackInterval > 0 {
		cfg.FeedbackInterval = *u.FeedbackInterval
	}
	if u.OptimizationThreshold != nil && *u.OptimizationThreshold >= 0 {
		cfg.OptimizationThreshold = *u.OptimizationThreshold
	}
	if u.MaxOptimizationsPerCycle != nil && *u.MaxOptimizationsPerCycle > 0 {
		cfg.MaxOptimizationsPerCycle = *u.MaxOptimizationsPerCycle
	}
	if u.AdaptiveLearning != nil {
		cfg.AdaptiveLearning = *u.AdaptiveLearning
	}
	if u.PredictionEnabled != nil {
		cfg.PredictionEnabled = *u.PredictionEnabled
	}
	if len(u.ModelRoster) > 0 {
		cfg.ModelRoster = u.ModelRoster
	}
	if u.Strategy != nil {
		cfg.Strategy = *u.Strategy
	}
}

// configGuard wraps Config with its mutex so snapshot/mutate stay symmetric.
type configGuard struct {
	mu  sync.RWMutex
	cfg Config
}

func (g *configGuard) snapshot() Config {
	g.mu.RLock()
	defer g.mu.RUnlock()
	cfg := g.cfg
	cfg.ModelRoster = append([]string(nil), g.cfg.ModelRoster...)
	return cfg
}

func (g *configGuard) mutate(fn func(*Config)) Config {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.cfg)
	cfg := g.cfg
	cfg.ModelRoster = append([]string(nil), g.cfg.ModelRoster...)
	return cfg
}
