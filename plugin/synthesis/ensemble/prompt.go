package ensemble

import (
	"fmt"
	"strings"

	"github.com/visionforge/visionforge/plugin/synthesis"
)

// promptTemplates are rotated across the ensemble so each candidate gets a
// distinct emphasis while staying anchored to the same concepts and intent.
var promptTemplates = []promptTemplate{
	{
		name:   "intent-forward",
		format: "Create: %s. Core elements: %s.%s Emphasize fidelity to the stated goal.",
	},
	{
		name:   "composition-forward",
		format: "Compose a scene for: %s. Arrange these elements deliberately: %s.%s Emphasize balance and visual structure.",
	},
	{
		name:   "mood-forward",
		format: "Render: %s. Featuring: %s.%s Emphasize atmosphere and emotional resonance.",
	},
	{
		name:   "detail-forward",
		format: "Produce a richly detailed realization of: %s. Must include: %s.%s Emphasize texture and fine detail.",
	},
}

type promptTemplate struct {
	name   string
	format string
}

func templateName(i int) string {
	return promptTemplates[i%len(promptTemplates)].name
}

// BuildPrompt renders a deterministic enhanced prompt for candidate i. The
// concept list comes from the graph's top-ranked concepts and the style clause
// from the supplied profiles, so the same analysis always yields the same
// prompt per slot.
func BuildPrompt(graph *synthesis.ConceptGraph, styles []*synthesis.StyleProfile, intent string, i int) string {
	tmpl := promptTemplates[i%len(promptTemplates)]
	return fmt.Sprintf(tmpl.format, intent, conceptClause(graph), styleClause(styles))
}

// conceptClause lists the top concepts as "label (category)" fragments.
func conceptClause(graph *synthesis.ConceptGraph) string {
	if graph == nil {
		return "the stated subject"
	}
	top := graph.TopConcepts(5)
	if len(top) == 0 {
		return "the stated subject"
	}
	parts := make([]string, 0, len(top))
	for _, c := range top {
		parts = append(parts, fmt.Sprintf("%s (%s)", c.Label, c.Category))
	}
	return strings.Join(parts, ", ")
}

// styleClause summarizes the dominant style traits, or nothing when no style
// references were provided.
func styleClause(styles []*synthesis.StyleProfile) string {
	if len(styles) == 0 {
		return ""
	}
	profile := styles[0]
	if len(styles) > 1 {
		profile = synthesis.CompositeProfile(styles)
	}

	traits := make([]string, 0, 4)
	if profile.Mood.Tone != "" {
		traits = append(traits, profile.Mood.Tone+" mood")
	}
	if profile.Brushwork.Technique != "" {
		traits = append(traits, profile.Brushwork.Technique+" technique")
	}
	if profile.Lighting.Direction != "" {
		traits = append(traits, profile.Lighting.Direction+" lighting")
	}
	if len(profile.Color.Palette) > 0 {
		traits = append(traits, "palette of "+strings.Join(profile.Color.Palette, ", "))
	}
	if len(traits) == 0 {
		return fmt.Sprintf(" Style: %s.", profile.Name)
	}
	return fmt.Sprintf(" Style %s: %s.", profile.Name, strings.Join(traits, "; "))
}
