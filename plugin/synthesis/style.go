package synthesis

import (
	"strings"

	"github.com/google/uuid"
)

// NeutralStyleProfile returns a mid-scale profile used when style analysis
// fails and a placeholder must stand in.
func NeutralStyleProfile(name string) *StyleProfile {
	return &StyleProfile{
		ID:           uuid.New().String(),
		Name:         name,
		Color:        ColorTraits{Saturation: 0.5, Brightness: 0.5, Contrast: 0.5},
		Brushwork:    BrushworkTraits{Precision: 0.5, Texture: 0.5},
		Composition:  CompositionTraits{Balance: 0.5, Symmetry: 0.5},
		Lighting:     LightingTraits{Intensity: 0.5, Softness: 0.5},
		Mood:         MoodTraits{Valence: 0.5, Energy: 0.5, Tone: "neutral"},
		Adaptability: 0.5,
		Complexity:   0.5,
	}
}

// CompositeProfile synthesizes a new profile by averaging the numeric scores
// of the given profiles and merging their descriptors. Source profiles are
// never mutated. Returns nil for an empty input.
func CompositeProfile(profiles []*StyleProfile) *StyleProfile {
	if len(profiles) == 0 {
		return nil
	}
	if len(profiles) == 1 {
		cp := *profiles[0]
		return &cp
	}

	n := float64(len(profiles))
	composite := &StyleProfile{
		ID:   uuid.New().String(),
		Name: compositeName(profiles),
	}

	paletteSeen := make(map[string]bool)
	for _, p := range profiles {
		composite.Color.Saturation += p.Color.Saturation / n
		composite.Color.Brightness += p.Color.Brightness / n
		composite.Color.Contrast += p.Color.Contrast / n
		composite.Brushwork.Precision += p.Brushwork.Precision / n
		composite.Brushwork.Texture += p.Brushwork.Texture / n
		composite.Composition.Balance += p.Composition.Balance / n
		composite.Composition.Symmetry += p.Composition.Symmetry / n
		composite.Lighting.Intensity += p.Lighting.Intensity / n
		composite.Lighting.Softness += p.Lighting.Softness / n
		composite.Mood.Valence += p.Mood.Valence / n
		composite.Mood.Energy += p.Mood.Energy / n
		composite.Adaptability += p.Adaptability / n
		composite.Complexity += p.Complexity / n

		for _, color := range p.Color.Palette {
			if !paletteSeen[color] {
				paletteSeen[color] = true
				composite.Color.Palette = append(composite.Color.Palette, color)
			}
		}
	}

	// Categorical descriptors come from the first profile that set them.
	for _, p := range profiles {
		if composite.Brushwork.Technique == "" {
			composite.Brushwork.Technique = p.Brushwork.Technique
		}
		if composite.Composition.Structure == "" {
			composite.Composition.Structure = p.Composition.Structure
		}
		if composite.Lighting.Direction == "" {
			composite.Lighting.Direction = p.Lighting.Direction
		}
		if composite.Mood.Tone == "" {
			composite.Mood.Tone = p.Mood.Tone
		}
	}

	return composite
}

func compositeName(profiles []*StyleProfile) string {
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.Name != "" {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		return "composite"
	}
	return "composite(" + strings.Join(names, "+") + ")"
}

// MoodMatches reports whether a profile's mood tone is compatible with the
// graph's emotional tone: high-valence styles fit emotionally warm graphs,
// low-valence styles fit subdued ones.
func MoodMatches(profile *StyleProfile, emotionalTone float64) bool {
	if emotionalTone >= 0.5 {
		return profile.Mood.Valence >= 0.5
	}
	return profile.Mood.Valence < 0.5
}
