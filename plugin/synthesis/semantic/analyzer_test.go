package semantic

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionforge/visionforge/plugin/inference"
	"github.com/visionforge/visionforge/plugin/synthesis"
	apperrors "github.com/visionforge/visionforge/internal/errors"
)

func TestAnalyze_Validation(t *testing.T) {
	analyzer := NewAnalyzer(inference.NewMockClient(), nil)

	tests := []struct {
		name   string
		inputs []Input
		intent string
	}{
		{name: "no inputs", inputs: nil, intent: "a forest"},
		{name: "empty intent", inputs: []Input{{Payload: "p", Role: RoleSource}}, intent: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := analyzer.Analyze(context.Background(), tt.inputs, tt.intent, 3)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidArgument))
		})
	}
}

func TestAnalyze_BuildsGraphAndStyles(t *testing.T) {
	analyzer := NewAnalyzer(inference.NewMockClient(), nil)

	inputs := []Input{
		{Payload: "content image", Role: RoleSource},
		{Payload: "style reference", Role: RoleStyle},
	}
	analysis, err := analyzer.Analyze(context.Background(), inputs, "a calm lake at dawn", 3)
	require.NoError(t, err)

	// Mock yields two concepts per input; duplicates across inputs stay
	// distinct nodes.
	assert.Len(t, analysis.Graph.Nodes, 4)
	assert.Len(t, analysis.Styles, 1)
	assert.Len(t, analysis.IntentVector, IntentVectorDim)
}

func TestAnalyze_FailedInputIsSkipped(t *testing.T) {
	client := inference.NewMockClient()
	var calls atomic.Int32
	client.AnalyzeConceptsFunc = func(ctx context.Context, payload string, depth int) ([]synthesis.Concept, error) {
		calls.Add(1)
		if payload == "broken" {
			return nil, fmt.Errorf("backend unavailable")
		}
		return []synthesis.Concept{{ID: payload, Label: payload, Confidence: 0.8, Category: synthesis.CategoryObject}}, nil
	}
	analyzer := NewAnalyzer(client, nil)

	inputs := []Input{
		{Payload: "ok", Role: RoleSource},
		{Payload: "broken", Role: RoleSource},
	}
	analysis, err := analyzer.Analyze(context.Background(), inputs, "something", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, analysis.Graph.Nodes, 1)
}

func TestAnalyze_StyleFailureFallsBackToNeutral(t *testing.T) {
	client := inference.NewMockClient()
	client.AnalyzeStyleFunc = func(ctx context.Context, payload string) (*synthesis.StyleProfile, error) {
		return nil, fmt.Errorf("style backend down")
	}
	analyzer := NewAnalyzer(client, nil)

	inputs := []Input{{Payload: "style reference", Role: RoleStyle}}
	analysis, err := analyzer.Analyze(context.Background(), inputs, "something", 3)
	require.NoError(t, err)
	require.Len(t, analysis.Styles, 1)
	assert.InDelta(t, 0.5, analysis.Styles[0].Mood.Valence, 1e-9)
}

func TestAnalyze_CacheHit(t *testing.T) {
	client := inference.NewMockClient()
	calls := 0
	client.AnalyzeConceptsFunc = func(ctx context.Context, payload string, depth int) ([]synthesis.Concept, error) {
		calls++
		return []synthesis.Concept{{ID: "c", Label: "c", Confidence: 0.8, Category: synthesis.CategoryObject}}, nil
	}
	analyzer := NewAnalyzer(client, nil)

	inputs := []Input{{Payload: "same payload", Role: RoleSource}}
	first, err := analyzer.Analyze(context.Background(), inputs, "same intent", 3)
	require.NoError(t, err)
	second, err := analyzer.Analyze(context.Background(), inputs, "same intent", 3)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Same(t, first, second)
	assert.Equal(t, 1, analyzer.CacheSize())

	analyzer.ClearCache()
	assert.Equal(t, 0, analyzer.CacheSize())
}

func TestAnalyze_DegradedAnalysisNotCached(t *testing.T) {
	client := inference.NewMockClient()
	var calls atomic.Int32
	failing := true
	client.AnalyzeConceptsFunc = func(ctx context.Context, payload string, depth int) ([]synthesis.Concept, error) {
		calls.Add(1)
		if failing {
			return nil, fmt.Errorf("backend unavailable")
		}
		return []synthesis.Concept{{ID: "c", Label: "c", Confidence: 0.8, Category: synthesis.CategoryObject}}, nil
	}
	analyzer := NewAnalyzer(client, nil)

	inputs := []Input{{Payload: "p", Role: RoleSource}}
	degraded, err := analyzer.Analyze(context.Background(), inputs, "intent", 3)
	require.NoError(t, err)
	assert.Empty(t, degraded.Graph.Nodes)
	// A partial result must not be pinned by the cache.
	assert.Equal(t, 0, analyzer.CacheSize())

	// Once the backend recovers, the same request yields a full analysis.
	failing = false
	recovered, err := analyzer.Analyze(context.Background(), inputs, "intent", 3)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.Len(t, recovered.Graph.Nodes, 1)
	assert.Equal(t, 1, analyzer.CacheSize())
}

func TestAnalyze_WeightScalesConfidence(t *testing.T) {
	client := inference.NewMockClient()
	client.AnalyzeConceptsFunc = func(ctx context.Context, payload string, depth int) ([]synthesis.Concept, error) {
		return []synthesis.Concept{{ID: "c", Label: "c", Confidence: 0.8, Category: synthesis.CategoryObject}}, nil
	}
	analyzer := NewAnalyzer(client, nil)

	analysis, err := analyzer.Analyze(context.Background(),
		[]Input{{Payload: "p", Role: RoleSource, Weight: 0.5}}, "intent", 3)
	require.NoError(t, err)
	require.Len(t, analysis.Graph.Nodes, 1)
	assert.InDelta(t, 0.4, analysis.Graph.Nodes[0].Concept.Confidence, 1e-9)
}

func TestIntentVector_DeterministicAndNormalized(t *testing.T) {
	a := IntentVector("a misty mountain valley at sunrise")
	b := IntentVector("a misty mountain valley at sunrise")
	c := IntentVector("neon city street at night")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	var norm float64
	for _, v := range a {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
}

func TestIntentVector_EmptyIntent(t *testing.T) {
	v := IntentVector("")
	require.Len(t, v, IntentVectorDim)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float64{1}, []float64{1, 2}))
	assert.Zero(t, CosineSimilarity([]float64{0, 0}, []float64{1, 2}))
}
