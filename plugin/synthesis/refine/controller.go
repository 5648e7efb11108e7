// Package refine runs the iterative quality-improvement loop over a fused
// artifact: pick the best applicable technique, apply it through the backend,
// re-assess, and repeat until converged or out of budget.
package refine

import (
	"context"
	"log/slog"
	"time"

	"github.com/visionforge/visionforge/plugin/inference"
	"github.com/visionforge/visionforge/plugin/synthesis"
	apperrors "github.com/visionforge/visionforge/internal/errors"
)

// State is the terminal condition of a refinement session.
type State string

const (
	// StateConverged means the overall score reached the quality threshold.
	StateConverged State = "converged"
	// StateExhausted means the iteration budget ran out before convergence.
	StateExhausted State = "exhausted"
	// StateNoTechnique means no registered technique was applicable.
	StateNoTechnique State = "no-technique"
)

// Config controls one refinement session.
type Config struct {
	MaxIterations    int
	QualityThreshold float64
	Strategy         Strategy
}

// DefaultConfig returns the default refinement configuration.
func DefaultConfig() Config {
	return Config{
		MaxIterations:    5,
		QualityThreshold: 0.85,
		Strategy:         StrategyBalanced,
	}
}

// Outcome is the result of one refinement session.
type Outcome struct {
	Artifact         *synthesis.Artifact        `json:"artifact"`
	Metrics          *synthesis.QualityMetrics  `json:"metrics"`
	State            State                      `json:"state"`
	Iterations       int                        `json:"iterations"`
	TotalImprovement float64                    `json:"total_improvement"`
	Steps            []synthesis.RefinementStep `json:"steps"`
	History          *synthesis.QualityHistory  `json:"-"`
}

// Controller drives refinement sessions against the inference backend.
type Controller struct {
	client   inference.Client
	registry *Registry
	logger   *slog.Logger
}

// NewController creates a controller over the given technique registry. A nil
// registry gets the default technique set.
func NewController(client inference.Client, registry *Registry) *Controller {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Controller{
		client:   client,
		registry: registry,
		logger:   slog.Default(),
	}
}

// SetLogger sets a custom logger.
func (c *Controller) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// Refine iteratively improves the artifact until the overall score reaches
// the threshold, the iteration budget is spent, or no technique applies.
// Metrics never regress: every post-step dimension is clamped to at least its
// pre-step value, so TotalImprovement is always >= 0. A nil initial
// assessment triggers one backend assessment first (neutral scores when that
// call fails).
func (c *Controller) Refine(ctx context.Context, artifact *synthesis.Artifact, initial *synthesis.QualityMetrics, intent string, cfg Config) (*Outcome, error) {
	if artifact == nil {
		return nil, apperrors.InvalidArgument("refinement requires an artifact")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}
	if cfg.QualityThreshold <= 0 {
		cfg.QualityThreshold = DefaultConfig().QualityThreshold
	}

	if initial == nil {
		assessed, err := c.client.AssessQuality(ctx, artifact, intent)
		if err != nil {
			c.logger.WarnContext(ctx, "initial assessment failed, using neutral scores", "error", err)
			assessed = inference.NeutralQuality()
		}
		initial = assessed
	}

	history := &synthesis.QualityHistory{}
	history.Append(initial)

	outcome := &Outcome{
		Artifact: artifact,
		Metrics:  initial,
		History:  history,
	}

	if initial.Overall >= cfg.QualityThreshold {
		outcome.State = StateConverged
		return outcome, nil
	}

	current := artifact
	metrics := initial

	for iteration := 1; iteration <= cfg.MaxIterations; iteration++ {
		technique := c.registry.selectTechnique(metrics, cfg.Strategy)
		if technique == nil {
			outcome.State = StateNoTechnique
			break
		}

		stepStart := time.Now()
		refined, err := c.client.Synthesize(ctx, &inference.SynthesisRequest{
			Prompt:       technique.Prompt(metrics),
			BaseArtifact: current,
			Techniques:   []string{technique.Name()},
		})
		if err != nil {
			// A failed pass keeps the current artifact; the iteration still
			// counts against the budget so a dead backend cannot loop forever.
			c.logger.WarnContext(ctx, "refinement pass failed, keeping current artifact",
				"iteration", iteration, "technique", technique.Name(), "error", err)
			outcome.Iterations = iteration
			continue
		}

		after, err := c.client.AssessQuality(ctx, refined, intent)
		if err != nil {
			c.logger.WarnContext(ctx, "post-refinement assessment failed, using neutral scores",
				"iteration", iteration, "error", err)
			after = inference.NeutralQuality()
		}
		after = clampIncrease(metrics, after)

		step := synthesis.RefinementStep{
			Iteration:        iteration,
			InputArtifactID:  current.ID,
			OutputArtifactID: refined.ID,
			Before:           metrics,
			After:            after,
			Deltas:           dimensionDeltas(metrics, after),
			Techniques:       []string{technique.Name()},
			Duration:         time.Since(stepStart),
		}
		outcome.Steps = append(outcome.Steps, step)
		history.Append(after)

		current = refined
		metrics = after
		outcome.Iterations = iteration

		c.logger.DebugContext(ctx, "refinement step completed",
			"iteration", iteration,
			"technique", technique.Name(),
			"overall", metrics.Overall,
		)

		if metrics.Overall >= cfg.QualityThreshold {
			outcome.State = StateConverged
			break
		}
	}

	if outcome.State == "" {
		outcome.State = StateExhausted
	}

	outcome.Artifact = current
	outcome.Metrics = metrics
	outcome.TotalImprovement = history.Last().Overall - history.First().Overall

	c.logger.InfoContext(ctx, "refinement session finished",
		"state", outcome.State,
		"iterations", outcome.Iterations,
		"overall", metrics.Overall,
		"improvement", outcome.TotalImprovement,
	)

	return outcome, nil
}

// clampIncrease returns a copy of after where every dimension is at least its
// value in before. Techniques only raise metrics; a noisy re-assessment must
// not make a session regress.
func clampIncrease(before, after *synthesis.QualityMetrics) *synthesis.QualityMetrics {
	clamped := after.Clone()

	clamped.Technical.Sharpness = max2(before.Technical.Sharpness, after.Technical.Sharpness)
	clamped.Technical.Clarity = max2(before.Technical.Clarity, after.Technical.Clarity)
	clamped.Technical.NoiseControl = max2(before.Technical.NoiseControl, after.Technical.NoiseControl)
	clamped.Artistic.Composition = max2(before.Artistic.Composition, after.Artistic.Composition)
	clamped.Artistic.ColorHarmony = max2(before.Artistic.ColorHarmony, after.Artistic.ColorHarmony)
	clamped.Artistic.Creativity = max2(before.Artistic.Creativity, after.Artistic.Creativity)
	clamped.Semantic.IntentAlignment = max2(before.Semantic.IntentAlignment, after.Semantic.IntentAlignment)
	clamped.Semantic.ConceptCoverage = max2(before.Semantic.ConceptCoverage, after.Semantic.ConceptCoverage)
	clamped.Semantic.Coherence = max2(before.Semantic.Coherence, after.Semantic.Coherence)
	clamped.UserPreference.StyleMatch = max2(before.UserPreference.StyleMatch, after.UserPreference.StyleMatch)
	clamped.UserPreference.AestheticAppeal = max2(before.UserPreference.AestheticAppeal, after.UserPreference.AestheticAppeal)

	clamped.Recompute()
	return clamped
}

// dimensionDeltas reports the per-dimension change of one step.
func dimensionDeltas(before, after *synthesis.QualityMetrics) map[string]float64 {
	b := before.Dimensions()
	deltas := make(map[string]float64, len(b))
	for name, value := range after.Dimensions() {
		deltas[name] = value - b[name]
	}
	return deltas
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
