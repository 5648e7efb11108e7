package fusion

import (
	"github.com/visionforge/visionforge/plugin/synthesis"
)

// regionSpec is an intermediate region before style weights are assigned.
// tone carries the source concept's emotional weight so mood scoring can
// differ per region; hasTone is false for the default full-canvas region,
// which falls back to the graph-level tone.
type regionSpec struct {
	bounds  synthesis.Bounds
	tags    []string
	tone    float64
	hasTone bool
}

// decomposeRegions derives the canvas partition from the graph's spatial
// concepts. Every concept carrying bounds becomes its own region tagged with
// the concept label; when no concept has bounds the whole canvas is a single
// untagged region.
func decomposeRegions(graph *synthesis.ConceptGraph) []regionSpec {
	if graph == nil {
		return []regionSpec{{bounds: synthesis.FullCanvas()}}
	}

	spatial := graph.SpatialConcepts()
	if len(spatial) == 0 {
		return []regionSpec{{bounds: synthesis.FullCanvas()}}
	}

	regions := make([]regionSpec, 0, len(spatial))
	for _, c := range spatial {
		regions = append(regions, regionSpec{
			bounds:  *c.Bounds,
			tags:    []string{c.Label},
			tone:    c.EmotionalWeight,
			hasTone: true,
		})
	}
	return regions
}
