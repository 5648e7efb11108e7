package refine

import (
	"github.com/visionforge/visionforge/plugin/synthesis"
)

// Strategy selects how aggressively techniques are scored.
type Strategy string

const (
	StrategyAggressive   Strategy = "aggressive"
	StrategyConservative Strategy = "conservative"
	StrategyBalanced     Strategy = "balanced"
)

// multiplier returns the strategy's technique score multiplier.
func (s Strategy) multiplier() float64 {
	switch s {
	case StrategyAggressive:
		return 1.2
	case StrategyConservative:
		return 0.8
	default:
		return 1.0
	}
}

// Technique is one refinement pass a controller can apply to an artifact.
// Implementations are stateless; registration order breaks score ties.
type Technique interface {
	// Name identifies the technique in steps and artifact metadata.
	Name() string
	// Category names the quality category the technique targets, one of the
	// SubScores keys.
	Category() string
	// Strength is the technique's base score in [0,1].
	Strength() float64
	// Applicable reports whether the technique can improve the given metrics.
	Applicable(m *synthesis.QualityMetrics) bool
	// Prompt renders the refinement instruction for the backend.
	Prompt(m *synthesis.QualityMetrics) string
}

// Registry holds techniques in registration order.
type Registry struct {
	techniques []Technique
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends a technique. Order matters: earlier techniques win score
// ties.
func (r *Registry) Register(t Technique) {
	r.techniques = append(r.techniques, t)
}

// Techniques returns the registered techniques in order.
func (r *Registry) Techniques() []Technique {
	return r.techniques
}

// selectTechnique scores the applicable techniques and returns the winner, or
// nil when none apply. Score = base strength, +0.3 when the technique's
// category has a sub-metric below 0.7, all multiplied by the strategy factor.
// Ties go to the earlier registration.
func (r *Registry) selectTechnique(m *synthesis.QualityMetrics, strategy Strategy) Technique {
	subScores := m.SubScores()

	var best Technique
	bestScore := -1.0
	for _, t := range r.techniques {
		if !t.Applicable(m) {
			continue
		}
		score := t.Strength()
		if weakest(subScores[t.Category()]) < 0.7 {
			score += 0.3
		}
		score *= strategy.multiplier()
		if score > bestScore {
			bestScore = score
			best = t
		}
	}
	return best
}

func weakest(scores []float64) float64 {
	if len(scores) == 0 {
		return 1
	}
	min := scores[0]
	for _, s := range scores[1:] {
		if s < min {
			min = s
		}
	}
	return min
}
