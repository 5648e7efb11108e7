package inference

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/visionforge/visionforge/plugin/synthesis"
)

func TestParseConcepts_Envelope(t *testing.T) {
	raw := `{"concepts": [
		{"label": "Lighthouse", "confidence": 0.9, "category": "object",
		 "emotional_weight": 0.4, "bounds": {"x": 0.1, "y": 0.2, "width": 0.3, "height": 0.4},
		 "relations": [{"target_label": "cliff", "type": "spatial", "strength": 0.8}]},
		{"label": "Cliff", "confidence": 1.4, "category": "scenery"}
	]}`

	concepts, err := parseConcepts(raw)
	require.NoError(t, err)
	require.Len(t, concepts, 2)

	lighthouse := concepts[0]
	assert.Equal(t, "Lighthouse", lighthouse.Label)
	assert.Equal(t, synthesis.CategoryObject, lighthouse.Category)
	require.NotNil(t, lighthouse.Bounds)
	assert.InDelta(t, 0.3, lighthouse.Bounds.Width, 1e-9)

	// Relations resolve case-insensitively to sibling concept ids.
	require.Len(t, lighthouse.Relationships, 1)
	assert.Equal(t, concepts[1].ID, lighthouse.Relationships[0].TargetID)
	assert.Equal(t, synthesis.RelationSpatial, lighthouse.Relationships[0].Type)

	// Out-of-range confidence is clamped; unknown categories degrade to abstract.
	assert.InDelta(t, 1.0, concepts[1].Confidence, 1e-9)
	assert.Equal(t, synthesis.CategoryAbstract, concepts[1].Category)
}

func TestParseConcepts_UnknownRelationTargetSkipped(t *testing.T) {
	raw := `{"concepts": [
		{"label": "tree", "confidence": 0.7, "category": "object",
		 "relations": [{"target_label": "ghost", "type": "spatial", "strength": 0.5}]}
	]}`

	concepts, err := parseConcepts(raw)
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	assert.Empty(t, concepts[0].Relationships)
}

func TestParseConcepts_BareArrayRejected(t *testing.T) {
	// JSON response mode yields a single object; a bare array is malformed.
	_, err := parseConcepts(`[{"label": "tree"}]`)
	require.Error(t, err)
}

func TestParseConcepts_EmptyEnvelope(t *testing.T) {
	concepts, err := parseConcepts(`{"concepts": []}`)
	require.NoError(t, err)
	assert.Empty(t, concepts)
}
