package ensemble

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionforge/visionforge/plugin/inference"
	"github.com/visionforge/visionforge/plugin/synthesis"
	apperrors "github.com/visionforge/visionforge/internal/errors"
)

func testGraph() *synthesis.ConceptGraph {
	return synthesis.BuildConceptGraph([]synthesis.Concept{
		{ID: "a", Label: "mountain", Confidence: 0.9, Category: synthesis.CategoryObject},
		{ID: "b", Label: "mist", Confidence: 0.6, Category: synthesis.CategorySetting},
	})
}

func TestGenerate_AllModelsSucceed(t *testing.T) {
	generator := NewGenerator(inference.NewMockClient())

	candidates, err := generator.Generate(context.Background(), testGraph(), nil, "misty mountain", Config{
		EnsembleSize: 3,
		ModelRoster:  []string{"m1", "m2", "m3"},
	})
	require.NoError(t, err)
	require.Len(t, candidates, 3)

	// Roster order is preserved.
	for i, c := range candidates {
		assert.Equal(t, i, c.Index)
		assert.NotNil(t, c.Artifact)
		assert.Greater(t, c.Quality, 0.0)
	}
	assert.Equal(t, "m1", candidates[0].ModelID)
	assert.Equal(t, "m3", candidates[2].ModelID)
}

func TestGenerate_SizeBoundedByRoster(t *testing.T) {
	client := inference.NewMockClient()
	generator := NewGenerator(client)

	candidates, err := generator.Generate(context.Background(), testGraph(), nil, "x", Config{
		EnsembleSize: 5,
		ModelRoster:  []string{"m1", "m2"},
	})
	require.NoError(t, err)
	assert.Len(t, candidates, 2)
	assert.Equal(t, 2, client.SynthesizeCalls())
}

func TestGenerate_OneModelFails(t *testing.T) {
	client := inference.NewMockClient()
	client.FailingModels["m2"] = true
	generator := NewGenerator(client)

	candidates, err := generator.Generate(context.Background(), testGraph(), nil, "x", Config{
		EnsembleSize: 3,
		ModelRoster:  []string{"m1", "m2", "m3"},
	})
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	assert.Equal(t, "m1", candidates[0].ModelID)
	assert.Equal(t, "m3", candidates[1].ModelID)
}

func TestGenerate_AllModelsFail(t *testing.T) {
	client := inference.NewMockClient()
	client.FailingModels["m1"] = true
	client.FailingModels["m2"] = true
	client.FailingModels["m3"] = true
	generator := NewGenerator(client)

	_, err := generator.Generate(context.Background(), testGraph(), nil, "x", Config{
		EnsembleSize: 3,
		ModelRoster:  []string{"m1", "m2", "m3"},
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNoCandidates))
}

func TestGenerate_EmptyRoster(t *testing.T) {
	generator := NewGenerator(inference.NewMockClient())

	_, err := generator.Generate(context.Background(), testGraph(), nil, "x", Config{EnsembleSize: 3})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNoCandidates))
}

func TestGenerate_AssessmentFailureUsesNeutralScores(t *testing.T) {
	client := inference.NewMockClient()
	client.AssessQualityFunc = func(ctx context.Context, artifact *synthesis.Artifact, intent string) (*synthesis.QualityMetrics, error) {
		return nil, assert.AnError
	}
	generator := NewGenerator(client)

	candidates, err := generator.Generate(context.Background(), testGraph(), nil, "x", Config{
		EnsembleSize: 1,
		ModelRoster:  []string{"m1"},
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.InDelta(t, 0.5, candidates[0].Quality, 1e-9)
	assert.InDelta(t, 0.5, candidates[0].Coherence, 1e-9)
	assert.InDelta(t, 0.5, candidates[0].Aesthetic, 1e-9)
}

func TestBuildPrompt_DeterministicPerSlot(t *testing.T) {
	graph := testGraph()

	first := BuildPrompt(graph, nil, "misty mountain", 0)
	again := BuildPrompt(graph, nil, "misty mountain", 0)
	other := BuildPrompt(graph, nil, "misty mountain", 1)

	assert.Equal(t, first, again)
	assert.NotEqual(t, first, other)
	assert.Contains(t, first, "misty mountain")
	assert.Contains(t, first, "mountain (object)")
}

func TestBuildPrompt_TemplateRotation(t *testing.T) {
	graph := testGraph()
	// Template index wraps around the template count.
	wrapped := BuildPrompt(graph, nil, "x", len(promptTemplates))
	assert.Equal(t, BuildPrompt(graph, nil, "x", 0), wrapped)
}

func TestBuildPrompt_StyleClause(t *testing.T) {
	style := synthesis.NeutralStyleProfile("impressionist")
	style.Mood.Tone = "serene"
	style.Color.Palette = []string{"#88aacc"}

	prompt := BuildPrompt(testGraph(), []*synthesis.StyleProfile{style}, "x", 0)
	assert.Contains(t, prompt, "impressionist")
	assert.Contains(t, prompt, "serene mood")
	assert.Contains(t, prompt, "#88aacc")
}
