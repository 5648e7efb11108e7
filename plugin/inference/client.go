// Package inference defines the capability seam to the inference backend:
// concept extraction, style analysis, quality assessment and synthesis.
// The engine core only ever talks to the Client interface; the concrete
// provider is chosen at bootstrap.
package inference

import (
	"context"

	"github.com/visionforge/visionforge/plugin/synthesis"
)

// Client is the inference backend capability contract.
//
// Every call may fail with a transport or malformed-response error. Callers
// recover locally by substituting neutral defaults (see NeutralQuality),
// except where a failure is specified as fatal (an ensemble where every
// model fails).
type Client interface {
	// AnalyzeConcepts extracts semantic concepts from an input payload.
	// depth controls how deep the extraction goes (1..5).
	AnalyzeConcepts(ctx context.Context, payload string, depth int) ([]synthesis.Concept, error)

	// AnalyzeStyle derives a style profile from an input payload.
	AnalyzeStyle(ctx context.Context, payload string) (*synthesis.StyleProfile, error)

	// AssessQuality scores an artifact against the target intent.
	AssessQuality(ctx context.Context, artifact *synthesis.Artifact, intent string) (*synthesis.QualityMetrics, error)

	// Synthesize produces a new artifact from a prompt or refinement request.
	Synthesize(ctx context.Context, req *SynthesisRequest) (*synthesis.Artifact, error)
}

// SynthesisRequest describes one synthesis call.
type SynthesisRequest struct {
	// Prompt is the enhanced generation prompt.
	Prompt string
	// Model selects the backend model; empty means provider default.
	Model string
	// Strength scales how far the output may drift from the base artifact.
	Strength float64
	// BaseArtifact, when set, makes this a refinement of an existing output.
	BaseArtifact *synthesis.Artifact
	// Techniques names the refinement techniques being applied, if any.
	Techniques []string
}
