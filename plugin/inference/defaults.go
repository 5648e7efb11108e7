package inference

import (
	"time"

	"github.com/visionforge/visionforge/plugin/synthesis"
)

// NeutralQuality returns the default metrics object substituted when a
// quality assessment fails or comes back unparsable: every sub-score is 0.5.
func NeutralQuality() *synthesis.QualityMetrics {
	m := &synthesis.QualityMetrics{
		Technical:      synthesis.TechnicalScores{Sharpness: 0.5, Clarity: 0.5, NoiseControl: 0.5},
		Artistic:       synthesis.ArtisticScores{Composition: 0.5, ColorHarmony: 0.5, Creativity: 0.5},
		Semantic:       synthesis.SemanticScores{IntentAlignment: 0.5, ConceptCoverage: 0.5, Coherence: 0.5},
		UserPreference: synthesis.PreferenceScores{StyleMatch: 0.5, AestheticAppeal: 0.5},
		AssessedAt:     time.Now(),
	}
	m.Recompute()
	return m
}

// SanitizeQuality clamps every sub-metric into [0,1] and recomputes the
// derived scores. Backend payloads are not trusted to stay in range.
func SanitizeQuality(m *synthesis.QualityMetrics) *synthesis.QualityMetrics {
	if m == nil {
		return NeutralQuality()
	}
	m.Technical.Sharpness = synthesis.Clamp01(m.Technical.Sharpness)
	m.Technical.Clarity = synthesis.Clamp01(m.Technical.Clarity)
	m.Technical.NoiseControl = synthesis.Clamp01(m.Technical.NoiseControl)
	m.Artistic.Composition = synthesis.Clamp01(m.Artistic.Composition)
	m.Artistic.ColorHarmony = synthesis.Clamp01(m.Artistic.ColorHarmony)
	m.Artistic.Creativity = synthesis.Clamp01(m.Artistic.Creativity)
	m.Semantic.IntentAlignment = synthesis.Clamp01(m.Semantic.IntentAlignment)
	m.Semantic.ConceptCoverage = synthesis.Clamp01(m.Semantic.ConceptCoverage)
	m.Semantic.Coherence = synthesis.Clamp01(m.Semantic.Coherence)
	m.UserPreference.StyleMatch = synthesis.Clamp01(m.UserPreference.StyleMatch)
	m.UserPreference.AestheticAppeal = synthesis.Clamp01(m.UserPreference.AestheticAppeal)
	if m.AssessedAt.IsZero() {
		m.AssessedAt = time.Now()
	}
	m.Recompute()
	return m
}
