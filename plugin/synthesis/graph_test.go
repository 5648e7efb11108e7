package synthesis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conceptWithRelations(id, label string, confidence float64, rels ...Relationship) Concept {
	return Concept{
		ID:            id,
		Label:         label,
		Confidence:    confidence,
		Category:      CategoryObject,
		Relationships: rels,
	}
}

func TestBuildConceptGraph_Empty(t *testing.T) {
	graph := BuildConceptGraph(nil)
	require.NotNil(t, graph)
	assert.Empty(t, graph.Nodes)
	assert.Empty(t, graph.Edges)
	assert.Equal(t, 0, graph.Meta.ConceptCount)
}

func TestBuildConceptGraph_EdgeDeduplication(t *testing.T) {
	// a->b and b->a describe the same undirected link; only one edge survives.
	concepts := []Concept{
		conceptWithRelations("a", "tree", 0.9, Relationship{TargetID: "b", Type: RelationSpatial, Strength: 0.8}),
		conceptWithRelations("b", "hill", 0.7, Relationship{TargetID: "a", Type: RelationSpatial, Strength: 0.8}),
	}

	graph := BuildConceptGraph(concepts)
	require.Len(t, graph.Edges, 1)
	assert.Equal(t, "a", graph.Edges[0].Source)
	assert.Equal(t, "b", graph.Edges[0].Target)
}

func TestBuildConceptGraph_SkipsDanglingAndSelfRelations(t *testing.T) {
	concepts := []Concept{
		conceptWithRelations("a", "tree", 0.9,
			Relationship{TargetID: "missing", Type: RelationCausal, Strength: 0.5},
			Relationship{TargetID: "a", Type: RelationCausal, Strength: 0.5},
		),
	}

	graph := BuildConceptGraph(concepts)
	assert.Empty(t, graph.Edges)
}

func TestBuildConceptGraph_Centrality(t *testing.T) {
	// Star topology: hub connects to both leaves, so hub centrality is 1.
	concepts := []Concept{
		conceptWithRelations("hub", "subject", 0.9,
			Relationship{TargetID: "l1", Type: RelationCompositional, Strength: 0.9},
			Relationship{TargetID: "l2", Type: RelationCompositional, Strength: 0.9},
		),
		conceptWithRelations("l1", "leaf-one", 0.5),
		conceptWithRelations("l2", "leaf-two", 0.5),
	}

	graph := BuildConceptGraph(concepts)
	require.Len(t, graph.Nodes, 3)
	assert.InDelta(t, 1.0, graph.Nodes[0].Centrality, 1e-9)
	assert.InDelta(t, 0.5, graph.Nodes[1].Centrality, 1e-9)
	assert.InDelta(t, 0.5, graph.Nodes[2].Centrality, 1e-9)
}

func TestBuildConceptGraph_Clusters(t *testing.T) {
	// Two connected pairs plus an isolate: three clusters.
	concepts := []Concept{
		conceptWithRelations("a", "a", 0.9, Relationship{TargetID: "b", Type: RelationSpatial, Strength: 1}),
		conceptWithRelations("b", "b", 0.9),
		conceptWithRelations("c", "c", 0.9, Relationship{TargetID: "d", Type: RelationSpatial, Strength: 1}),
		conceptWithRelations("d", "d", 0.9),
		conceptWithRelations("e", "e", 0.9),
	}

	graph := BuildConceptGraph(concepts)
	assert.Equal(t, 3, graph.Meta.ClusterCount)

	clusters := make(map[string]int)
	for _, node := range graph.Nodes {
		clusters[node.Concept.ID] = node.Cluster
	}
	assert.Equal(t, clusters["a"], clusters["b"])
	assert.Equal(t, clusters["c"], clusters["d"])
	assert.NotEqual(t, clusters["a"], clusters["c"])
	assert.NotEqual(t, clusters["a"], clusters["e"])
}

func TestBuildConceptGraph_Meta(t *testing.T) {
	concepts := []Concept{
		{ID: "a", Label: "a", Confidence: 1.0, Category: CategoryObject, EmotionalWeight: 0.8},
		{ID: "b", Label: "b", Confidence: 0.5, Category: CategoryObject, EmotionalWeight: 0.2},
		{ID: "c", Label: "c", Confidence: 0.5, Category: CategoryEmotion, EmotionalWeight: 0.5},
	}

	graph := BuildConceptGraph(concepts)
	assert.Equal(t, 3, graph.Meta.ConceptCount)
	assert.Equal(t, CategoryObject, graph.Meta.DominantCategory)
	// Confidence-weighted tone: (0.8*1 + 0.2*0.5 + 0.5*0.5) / 2 = 0.575.
	assert.InDelta(t, 0.575, graph.Meta.EmotionalTone, 1e-9)
	// No edges: zero complexity.
	assert.Equal(t, 0.0, graph.Meta.Complexity)
}

func TestBuildConceptGraph_DuplicateLabelsStayDistinct(t *testing.T) {
	concepts := []Concept{
		conceptWithRelations("a", "tree", 0.9),
		conceptWithRelations("b", "tree", 0.4),
	}

	graph := BuildConceptGraph(concepts)
	assert.Len(t, graph.Nodes, 2)
}

func TestTopConcepts(t *testing.T) {
	concepts := []Concept{
		conceptWithRelations("low", "low", 0.3),
		conceptWithRelations("hub", "hub", 0.6,
			Relationship{TargetID: "low", Type: RelationSpatial, Strength: 1},
			Relationship{TargetID: "high", Type: RelationSpatial, Strength: 1},
		),
		conceptWithRelations("high", "high", 0.9),
	}

	graph := BuildConceptGraph(concepts)
	top := graph.TopConcepts(2)
	require.Len(t, top, 2)
	// high: 0.9 * 1.5 = 1.35 beats hub: 0.6 * (1+1) = 1.2.
	assert.Equal(t, "high", top[0].ID)
	assert.Equal(t, "hub", top[1].ID)
}

func TestTopConcepts_StableForTies(t *testing.T) {
	concepts := []Concept{
		conceptWithRelations("first", "first", 0.5),
		conceptWithRelations("second", "second", 0.5),
	}

	graph := BuildConceptGraph(concepts)
	top := graph.TopConcepts(2)
	require.Len(t, top, 2)
	assert.Equal(t, "first", top[0].ID)
	assert.Equal(t, "second", top[1].ID)
}

func TestQualityMetricsRecompute(t *testing.T) {
	m := &QualityMetrics{
		Technical:      TechnicalScores{Sharpness: 0.9, Clarity: 0.6, NoiseControl: 0.6},
		Artistic:       ArtisticScores{Composition: 0.7, ColorHarmony: 0.7, Creativity: 0.7},
		Semantic:       SemanticScores{IntentAlignment: 0.5, ConceptCoverage: 0.5, Coherence: 0.5},
		UserPreference: PreferenceScores{StyleMatch: 0.8, AestheticAppeal: 0.6},
	}
	m.Recompute()

	assert.InDelta(t, 0.7, m.Technical.Score, 1e-9)
	assert.InDelta(t, 0.7, m.Artistic.Score, 1e-9)
	assert.InDelta(t, 0.5, m.Semantic.Score, 1e-9)
	assert.InDelta(t, 0.7, m.UserPreference.Score, 1e-9)
	assert.InDelta(t, 0.65, m.Overall, 1e-9)
}

func TestCompositeProfile(t *testing.T) {
	a := NeutralStyleProfile("a")
	a.Color.Saturation = 0.2
	a.Color.Palette = []string{"#111111"}
	b := NeutralStyleProfile("b")
	b.Color.Saturation = 0.8
	b.Color.Palette = []string{"#111111", "#222222"}

	composite := CompositeProfile([]*StyleProfile{a, b})
	require.NotNil(t, composite)
	assert.InDelta(t, 0.5, composite.Color.Saturation, 1e-9)
	assert.Equal(t, []string{"#111111", "#222222"}, composite.Color.Palette)
	// Sources untouched.
	assert.InDelta(t, 0.2, a.Color.Saturation, 1e-9)
	assert.Len(t, a.Color.Palette, 1)
}

func TestMoodMatches(t *testing.T) {
	warm := NeutralStyleProfile("warm")
	warm.Mood.Valence = 0.8
	cool := NeutralStyleProfile("cool")
	cool.Mood.Valence = 0.2

	assert.True(t, MoodMatches(warm, 0.7))
	assert.False(t, MoodMatches(warm, 0.3))
	assert.True(t, MoodMatches(cool, 0.3))
	assert.False(t, MoodMatches(cool, 0.7))
}
