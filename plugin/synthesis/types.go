// Package synthesis defines the shared data model for the generation
// pipeline: semantic concepts, style profiles, quality metrics, artifacts
// and fusion structures. Values produced by analysis or fusion are treated
// as immutable once constructed; a generation run owns its own copies.
package synthesis

import (
	"time"
)

// ConceptCategory classifies a semantic concept.
type ConceptCategory string

const (
	CategoryObject   ConceptCategory = "object"
	CategoryStyle    ConceptCategory = "style"
	CategoryEmotion  ConceptCategory = "emotion"
	CategoryAction   ConceptCategory = "action"
	CategorySetting  ConceptCategory = "setting"
	CategoryAbstract ConceptCategory = "abstract"
)

// RelationType classifies a relationship between two concepts.
type RelationType string

const (
	RelationSpatial       RelationType = "spatial"
	RelationFunctional    RelationType = "functional"
	RelationEmotional     RelationType = "emotional"
	RelationCausal        RelationType = "causal"
	RelationCompositional RelationType = "compositional"
)

// Bounds is a normalized rectangle on the target canvas. All fields are in
// [0,1] relative to canvas dimensions.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Area returns the normalized area of the bounds.
func (b Bounds) Area() float64 {
	return b.Width * b.Height
}

// FullCanvas returns bounds covering the whole canvas.
func FullCanvas() Bounds {
	return Bounds{X: 0, Y: 0, Width: 1, Height: 1}
}

// Relationship is a typed, weighted link from one concept to another.
type Relationship struct {
	TargetID string       `json:"target_id"`
	Type     RelationType `json:"type"`
	Strength float64      `json:"strength"` // [0,1]
}

// Concept is a labeled semantic unit extracted from an input.
type Concept struct {
	ID              string          `json:"id"`
	Label           string          `json:"label"`
	Confidence      float64         `json:"confidence"` // [0,1]
	Category        ConceptCategory `json:"category"`
	Attributes      map[string]any  `json:"attributes,omitempty"`
	EmotionalWeight float64         `json:"emotional_weight"` // [0,1]
	Bounds          *Bounds         `json:"bounds,omitempty"`
	Relationships   []Relationship  `json:"relationships,omitempty"`
}

// ColorTraits holds the color sub-record of a style profile.
type ColorTraits struct {
	Saturation float64  `json:"saturation"`
	Brightness float64  `json:"brightness"`
	Contrast   float64  `json:"contrast"`
	Palette    []string `json:"palette,omitempty"`
}

// BrushworkTraits holds the brushwork sub-record of a style profile.
type BrushworkTraits struct {
	Precision float64 `json:"precision"`
	Texture   float64 `json:"texture"`
	Technique string  `json:"technique,omitempty"`
}

// CompositionTraits holds the composition sub-record of a style profile.
type CompositionTraits struct {
	Balance   float64 `json:"balance"`
	Symmetry  float64 `json:"symmetry"`
	Structure string  `json:"structure,omitempty"`
}

// LightingTraits holds the lighting sub-record of a style profile.
type LightingTraits struct {
	Intensity float64 `json:"intensity"`
	Softness  float64 `json:"softness"`
	Direction string  `json:"direction,omitempty"`
}

// MoodTraits holds the mood sub-record of a style profile.
type MoodTraits struct {
	Valence float64 `json:"valence"`
	Energy  float64 `json:"energy"`
	Tone    string  `json:"tone,omitempty"`
}

// StyleProfile describes the visual characteristics of one style input.
// Profiles are never mutated after analysis; composites are new values.
type StyleProfile struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Color        ColorTraits       `json:"color"`
	Brushwork    BrushworkTraits   `json:"brushwork"`
	Composition  CompositionTraits `json:"composition"`
	Lighting     LightingTraits    `json:"lighting"`
	Mood         MoodTraits        `json:"mood"`
	Adaptability float64           `json:"adaptability"` // [0,1]
	Complexity   float64           `json:"complexity"`   // [0,1]
}

// TechnicalScores are the technical sub-metrics of a quality assessment.
type TechnicalScores struct {
	Score        float64 `json:"score"`
	Sharpness    float64 `json:"sharpness"`
	Clarity      float64 `json:"clarity"`
	NoiseControl float64 `json:"noise_control"`
}

// ArtisticScores are the artistic sub-metrics of a quality assessment.
type ArtisticScores struct {
	Score        float64 `json:"score"`
	Composition  float64 `json:"composition"`
	ColorHarmony float64 `json:"color_harmony"`
	Creativity   float64 `json:"creativity"`
}

// SemanticScores are the semantic sub-metrics of a quality assessment.
type SemanticScores struct {
	Score           float64 `json:"score"`
	IntentAlignment float64 `json:"intent_alignment"`
	ConceptCoverage float64 `json:"concept_coverage"`
	Coherence       float64 `json:"coherence"`
}

// PreferenceScores are the user-preference sub-metrics of a quality assessment.
type PreferenceScores struct {
	Score           float64 `json:"score"`
	StyleMatch      float64 `json:"style_match"`
	AestheticAppeal float64 `json:"aesthetic_appeal"`
}

// QualityMetrics is a hierarchical quality record. All values are in [0,1].
type QualityMetrics struct {
	Overall        float64          `json:"overall"`
	Technical      TechnicalScores  `json:"technical"`
	Artistic       ArtisticScores   `json:"artistic"`
	Semantic       SemanticScores   `json:"semantic"`
	UserPreference PreferenceScores `json:"user_preference"`
	AssessedAt     time.Time        `json:"assessed_at"`
}

// Recompute derives category scores from their sub-metrics and the overall
// score from the category scores.
func (m *QualityMetrics) Recompute() {
	m.Technical.Score = mean3(m.Technical.Sharpness, m.Technical.Clarity, m.Technical.NoiseControl)
	m.Artistic.Score = mean3(m.Artistic.Composition, m.Artistic.ColorHarmony, m.Artistic.Creativity)
	m.Semantic.Score = mean3(m.Semantic.IntentAlignment, m.Semantic.ConceptCoverage, m.Semantic.Coherence)
	m.UserPreference.Score = (m.UserPreference.StyleMatch + m.UserPreference.AestheticAppeal) / 2
	m.Overall = (m.Technical.Score + m.Artistic.Score + m.Semantic.Score + m.UserPreference.Score) / 4
}

// Clone returns a deep copy of the metrics.
func (m *QualityMetrics) Clone() *QualityMetrics {
	cp := *m
	return &cp
}

// SubScores returns the named sub-metric values grouped by category key
// ("technical", "artistic", "semantic", "user_preference").
func (m *QualityMetrics) SubScores() map[string][]float64 {
	return map[string][]float64{
		"technical":       {m.Technical.Sharpness, m.Technical.Clarity, m.Technical.NoiseControl},
		"artistic":        {m.Artistic.Composition, m.Artistic.ColorHarmony, m.Artistic.Creativity},
		"semantic":        {m.Semantic.IntentAlignment, m.Semantic.ConceptCoverage, m.Semantic.Coherence},
		"user_preference": {m.UserPreference.StyleMatch, m.UserPreference.AestheticAppeal},
	}
}

// Dimensions returns a flat name->value view of every sub-metric, used for
// per-dimension delta reporting in refinement steps.
func (m *QualityMetrics) Dimensions() map[string]float64 {
	return map[string]float64{
		"technical.sharpness":              m.Technical.Sharpness,
		"technical.clarity":                m.Technical.Clarity,
		"technical.noise_control":          m.Technical.NoiseControl,
		"artistic.composition":             m.Artistic.Composition,
		"artistic.color_harmony":           m.Artistic.ColorHarmony,
		"artistic.creativity":              m.Artistic.Creativity,
		"semantic.intent_alignment":        m.Semantic.IntentAlignment,
		"semantic.concept_coverage":        m.Semantic.ConceptCoverage,
		"semantic.coherence":               m.Semantic.Coherence,
		"user_preference.style_match":      m.UserPreference.StyleMatch,
		"user_preference.aesthetic_appeal": m.UserPreference.AestheticAppeal,
	}
}

// Artifact is an opaque reference to one generated output. Data is the
// payload handed back by the synthesis backend (typically a data URI).
type Artifact struct {
	ID        string    `json:"id"`
	Data      string    `json:"data"`
	Format    string    `json:"format"`
	ModelIDs  []string  `json:"model_ids,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Candidate is one ensemble member: an artifact plus its own scores and
// per-candidate metadata.
type Candidate struct {
	Index      int           `json:"index"`
	Artifact   *Artifact     `json:"artifact"`
	Quality    float64       `json:"quality"`
	Coherence  float64       `json:"coherence"`
	Aesthetic  float64       `json:"aesthetic"`
	ModelID    string        `json:"model_id"`
	Techniques []string      `json:"techniques,omitempty"`
	Latency    time.Duration `json:"latency"`
}

// FusionRegion is one spatial partition of the target canvas with its own
// style blend. BlendWeights are normalized to sum to 1.
type FusionRegion struct {
	Bounds          Bounds             `json:"bounds"`
	DominantStyleID string             `json:"dominant_style_id"`
	BlendWeights    map[string]float64 `json:"blend_weights"`
	ContentTags     []string           `json:"content_tags,omitempty"`
	AdaptationLevel float64            `json:"adaptation_level"` // [0,1]
}

// FusionMap is the full region decomposition produced by one fusion call.
// Read-only after construction.
type FusionMap struct {
	Regions              []FusionRegion     `json:"regions"`
	WeightMatrix         [][]float64        `json:"weight_matrix"`
	StyleOrder           []string           `json:"style_order"`
	StyleDistribution    map[string]float64 `json:"style_distribution"`
	SemanticPreservation float64            `json:"semantic_preservation"`
}

// RefinementStep is one entry of the refinement audit trail.
type RefinementStep struct {
	Iteration        int                `json:"iteration"`
	InputArtifactID  string             `json:"input_artifact_id"`
	OutputArtifactID string             `json:"output_artifact_id"`
	Before           *QualityMetrics    `json:"before"`
	After            *QualityMetrics    `json:"after"`
	Deltas           map[string]float64 `json:"deltas"`
	Techniques       []string           `json:"techniques"`
	Duration         time.Duration      `json:"duration"`
}

// QualityHistory is a chronological, append-only list of assessments taken
// during one refinement session.
type QualityHistory struct {
	entries []*QualityMetrics
}

// Append adds an assessment to the history.
func (h *QualityHistory) Append(m *QualityMetrics) {
	h.entries = append(h.entries, m)
}

// Len returns the number of recorded assessments.
func (h *QualityHistory) Len() int {
	return len(h.entries)
}

// First returns the earliest assessment, or nil when empty.
func (h *QualityHistory) First() *QualityMetrics {
	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[0]
}

// Last returns the most recent assessment, or nil when empty.
func (h *QualityHistory) Last() *QualityMetrics {
	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[len(h.entries)-1]
}

// Entries returns the recorded assessments in chronological order.
func (h *QualityHistory) Entries() []*QualityMetrics {
	return h.entries
}

func mean3(a, b, c float64) float64 {
	return (a + b + c) / 3
}

// Clamp01 clamps v into [0,1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
