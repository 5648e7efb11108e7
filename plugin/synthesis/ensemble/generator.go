// Package ensemble drives N parallel candidate syntheses against a concept
// graph, one per roster model.
package ensemble

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/visionforge/visionforge/plugin/inference"
	"github.com/visionforge/visionforge/plugin/synthesis"
	apperrors "github.com/visionforge/visionforge/internal/errors"
)

// Config controls one ensemble run.
type Config struct {
	// EnsembleSize is the requested candidate count. The effective count is
	// min(EnsembleSize, len(ModelRoster)).
	EnsembleSize int
	// ModelRoster names the backend models to draw candidates from.
	ModelRoster []string
	// Strength is forwarded to the synthesis backend.
	Strength float64
}

// Generator produces ensemble candidates through the inference backend.
type Generator struct {
	client inference.Client
	logger *slog.Logger
}

// NewGenerator creates a new ensemble generator.
func NewGenerator(client inference.Client) *Generator {
	return &Generator{
		client: client,
		logger: slog.Default(),
	}
}

// SetLogger sets a custom logger.
func (g *Generator) SetLogger(logger *slog.Logger) {
	g.logger = logger
}

// Generate synthesizes candidates concurrently, one per model. A failed
// model is logged and excluded without aborting its siblings; the returned
// ensemble may be smaller than requested but keeps roster order. When every
// model fails the whole generation is aborted with a no-candidates error.
func (g *Generator) Generate(ctx context.Context, graph *synthesis.ConceptGraph, styles []*synthesis.StyleProfile, intent string, cfg Config) ([]synthesis.Candidate, error) {
	count := cfg.EnsembleSize
	if count > len(cfg.ModelRoster) {
		count = len(cfg.ModelRoster)
	}
	if count <= 0 {
		return nil, apperrors.NoCandidates("ensemble requires at least one roster model")
	}

	type slot struct {
		candidate *synthesis.Candidate
		err       error
	}

	sem := semaphore.NewWeighted(int64(count))
	slots := make([]slot, count)
	var wg sync.WaitGroup

	for i := 0; i < count; i++ {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "acquire ensemble slot")
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)

			model := cfg.ModelRoster[i]
			prompt := BuildPrompt(graph, styles, intent, i)
			start := time.Now()

			artifact, err := g.client.Synthesize(ctx, &inference.SynthesisRequest{
				Prompt:   prompt,
				Model:    model,
				Strength: cfg.Strength,
			})
			if err != nil {
				slots[i].err = err
				return
			}

			candidate := &synthesis.Candidate{
				Index:      i,
				Artifact:   artifact,
				ModelID:    model,
				Techniques: []string{templateName(i)},
				Latency:    time.Since(start),
			}

			// Per-candidate scoring; an assessment failure degrades to
			// neutral scores rather than dropping the candidate.
			metrics, err := g.client.AssessQuality(ctx, artifact, intent)
			if err != nil {
				g.logger.WarnContext(ctx, "candidate assessment failed, using neutral scores",
					"model_id", model, "error", err)
				metrics = inference.NeutralQuality()
			}
			candidate.Quality = metrics.Overall
			candidate.Coherence = metrics.Semantic.Coherence
			candidate.Aesthetic = metrics.Artistic.Score

			slots[i].candidate = candidate
		}(i)
	}
	wg.Wait()

	candidates := make([]synthesis.Candidate, 0, count)
	for i, s := range slots {
		if s.err != nil {
			g.logger.WarnContext(ctx, "ensemble model failed, excluding candidate",
				"model_id", cfg.ModelRoster[i], "candidate_index", i, "error", s.err)
			continue
		}
		candidates = append(candidates, *s.candidate)
	}

	if len(candidates) == 0 {
		return nil, apperrors.NoCandidates("every ensemble model failed to produce a candidate")
	}

	g.logger.InfoContext(ctx, "ensemble generation completed",
		"requested", cfg.EnsembleSize,
		"produced", len(candidates),
		"failed", count-len(candidates),
	)

	return candidates, nil
}
