package refine

import (
	"fmt"

	"github.com/visionforge/visionforge/plugin/synthesis"
)

// staticTechnique is the shared implementation behind the shipped techniques:
// a fixed name, target category, base strength and instruction template.
type staticTechnique struct {
	name        string
	category    string
	strength    float64
	instruction string
}

func (t *staticTechnique) Name() string      { return t.name }
func (t *staticTechnique) Category() string  { return t.category }
func (t *staticTechnique) Strength() float64 { return t.strength }

// Applicable is true while the technique's category still has headroom.
func (t *staticTechnique) Applicable(m *synthesis.QualityMetrics) bool {
	scores := m.SubScores()[t.category]
	return weakest(scores) < 0.95
}

func (t *staticTechnique) Prompt(m *synthesis.QualityMetrics) string {
	scores := m.SubScores()[t.category]
	return fmt.Sprintf("%s The current %s score floor is %.2f; raise it without degrading other aspects.",
		t.instruction, t.category, weakest(scores))
}

// DefaultRegistry returns the shipped technique set. Registration order is
// significant: it is the tie-break for equal technique scores.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(&staticTechnique{
		name:        "detail-sharpening",
		category:    "technical",
		strength:    0.6,
		instruction: "Sharpen fine detail and edge definition.",
	})
	r.Register(&staticTechnique{
		name:        "color-harmonization",
		category:    "artistic",
		strength:    0.55,
		instruction: "Rebalance the palette toward harmonious color relationships.",
	})
	r.Register(&staticTechnique{
		name:        "composition-balancing",
		category:    "artistic",
		strength:    0.5,
		instruction: "Adjust element placement toward balanced composition.",
	})
	r.Register(&staticTechnique{
		name:        "semantic-reinforcement",
		category:    "semantic",
		strength:    0.65,
		instruction: "Strengthen the presence of the core subject concepts.",
	})
	r.Register(&staticTechnique{
		name:        "style-alignment",
		category:    "user_preference",
		strength:    0.5,
		instruction: "Pull the rendering closer to the requested style profile.",
	})
	r.Register(&staticTechnique{
		name:        "noise-suppression",
		category:    "technical",
		strength:    0.45,
		instruction: "Suppress noise and artifacts in flat areas.",
	})
	return r
}
