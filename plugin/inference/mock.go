package inference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/visionforge/visionforge/plugin/synthesis"
)

// MockClient is a scriptable in-memory Client for tests and for running the
// engine without a configured backend. Function fields override individual
// calls; unset fields fall back to deterministic canned behavior.
type MockClient struct {
	mu sync.Mutex

	AnalyzeConceptsFunc func(ctx context.Context, payload string, depth int) ([]synthesis.Concept, error)
	AnalyzeStyleFunc    func(ctx context.Context, payload string) (*synthesis.StyleProfile, error)
	AssessQualityFunc   func(ctx context.Context, artifact *synthesis.Artifact, intent string) (*synthesis.QualityMetrics, error)
	SynthesizeFunc      func(ctx context.Context, req *SynthesisRequest) (*synthesis.Artifact, error)

	// FailingModels makes Synthesize fail for the named models.
	FailingModels map[string]bool

	synthesizeCalls int
	assessCalls     int
}

// NewMockClient creates a mock with default canned behavior.
func NewMockClient() *MockClient {
	return &MockClient{FailingModels: make(map[string]bool)}
}

// SynthesizeCalls returns how many Synthesize calls were made.
func (m *MockClient) SynthesizeCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.synthesizeCalls
}

// AssessCalls returns how many AssessQuality calls were made.
func (m *MockClient) AssessCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assessCalls
}

// AnalyzeConcepts implements Client.
func (m *MockClient) AnalyzeConcepts(ctx context.Context, payload string, depth int) ([]synthesis.Concept, error) {
	if m.AnalyzeConceptsFunc != nil {
		return m.AnalyzeConceptsFunc(ctx, payload, depth)
	}

	// Two related concepts per input keeps graph construction exercised.
	first := uuid.New().String()
	second := uuid.New().String()
	return []synthesis.Concept{
		{
			ID:              first,
			Label:           fmt.Sprintf("subject-%d", len(payload)%10),
			Confidence:      0.9,
			Category:        synthesis.CategoryObject,
			EmotionalWeight: 0.6,
			Bounds:          &synthesis.Bounds{X: 0.1, Y: 0.1, Width: 0.4, Height: 0.4},
			Relationships: []synthesis.Relationship{
				{TargetID: second, Type: synthesis.RelationCompositional, Strength: 0.8},
			},
		},
		{
			ID:              second,
			Label:           "backdrop",
			Confidence:      0.7,
			Category:        synthesis.CategorySetting,
			EmotionalWeight: 0.4,
		},
	}, nil
}

// AnalyzeStyle implements Client.
func (m *MockClient) AnalyzeStyle(ctx context.Context, payload string) (*synthesis.StyleProfile, error) {
	if m.AnalyzeStyleFunc != nil {
		return m.AnalyzeStyleFunc(ctx, payload)
	}
	profile := synthesis.NeutralStyleProfile(fmt.Sprintf("style-%d", len(payload)%10))
	profile.Mood.Valence = 0.7
	profile.Adaptability = 0.8
	profile.Complexity = 0.5
	return profile, nil
}

// AssessQuality implements Client.
func (m *MockClient) AssessQuality(ctx context.Context, artifact *synthesis.Artifact, intent string) (*synthesis.QualityMetrics, error) {
	m.mu.Lock()
	m.assessCalls++
	calls := m.assessCalls
	m.mu.Unlock()

	if m.AssessQualityFunc != nil {
		return m.AssessQualityFunc(ctx, artifact, intent)
	}

	// Quality creeps upward with successive assessments so refinement loops
	// see progress without converging instantly.
	base := 0.55 + 0.05*float64(calls)
	if base > 0.95 {
		base = 0.95
	}
	metrics := &synthesis.QualityMetrics{
		Technical:      synthesis.TechnicalScores{Sharpness: base, Clarity: base, NoiseControl: base},
		Artistic:       synthesis.ArtisticScores{Composition: base, ColorHarmony: base, Creativity: base},
		Semantic:       synthesis.SemanticScores{IntentAlignment: base, ConceptCoverage: base, Coherence: base},
		UserPreference: synthesis.PreferenceScores{StyleMatch: base, AestheticAppeal: base},
		AssessedAt:     time.Now(),
	}
	metrics.Recompute()
	return metrics, nil
}

// Synthesize implements Client.
func (m *MockClient) Synthesize(ctx context.Context, req *SynthesisRequest) (*synthesis.Artifact, error) {
	m.mu.Lock()
	m.synthesizeCalls++
	failing := m.FailingModels[req.Model]
	m.mu.Unlock()

	if m.SynthesizeFunc != nil {
		return m.SynthesizeFunc(ctx, req)
	}
	if failing {
		return nil, errors.Errorf("model %s unavailable", req.Model)
	}

	model := req.Model
	if model == "" {
		model = "mock-default"
	}
	return &synthesis.Artifact{
		ID:        shortuuid.New(),
		Data:      fmt.Sprintf("mock-artifact(%s):%s", model, firstN(req.Prompt, 48)),
		Format:    "mock",
		ModelIDs:  []string{model},
		CreatedAt: time.Now(),
	}, nil
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// Ensure MockClient implements Client.
var _ Client = (*MockClient)(nil)
