// Package generation is the engine service: it wires semantic analysis,
// ensemble generation, adaptive fusion and refinement into the request
// operations, owns the shared configuration and caches, and feeds the
// feedback optimizer.
package generation

import (
	"context"
	"log/slog"
	"time"

	"github.com/visionforge/visionforge/plugin/cache"
	"github.com/visionforge/visionforge/plugin/inference"
	"github.com/visionforge/visionforge/plugin/synthesis"
	"github.com/visionforge/visionforge/plugin/synthesis/ensemble"
	"github.com/visionforge/visionforge/plugin/synthesis/fusion"
	"github.com/visionforge/visionforge/plugin/synthesis/refine"
	"github.com/visionforge/visionforge/plugin/synthesis/semantic"
	"github.com/visionforge/visionforge/internal/errors"
	"github.com/visionforge/visionforge/server/internal/observability"
	"github.com/visionforge/visionforge/server/optimizer"
)

// Service is the generation engine. Construct with NewService; all state is
// explicit, there are no package-level singletons.
type Service struct {
	guard configGuard

	client     inference.Client
	analyzer   *semantic.Analyzer
	generator  *ensemble.Generator
	fuser      *fusion.Fuser
	controller *refine.Controller

	analysisCache *cache.MapStore
	fusionCache   *cache.MapStore

	collector *optimizer.Collector
	optimizer *optimizer.Optimizer

	logger *slog.Logger
}

// NewService constructs the engine over an inference client.
func NewService(client inference.Client, cfg Config, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg = defaults
	}

	analysisCache := cache.NewMapStore()
	fusionCache := cache.NewMapStore()

	s := &Service{
		client:        client,
		analyzer:      semantic.NewAnalyzer(client, analysisCache),
		generator:     ensemble.NewGenerator(client),
		fuser:         fusion.NewFuser(fusionCache),
		controller:    refine.NewController(client, refine.DefaultRegistry()),
		analysisCache: analysisCache,
		fusionCache:   fusionCache,
		logger:        logger,
	}
	s.guard.cfg = cfg

	s.analyzer.SetLogger(logger)
	s.generator.SetLogger(logger)
	s.fuser.SetLogger(logger)
	s.controller.SetLogger(logger)

	s.collector = optimizer.NewCollector(s.cacheHitRate)
	s.optimizer = optimizer.New(s.collector, s, optimizer.Config{
		Interval:                 cfg.FeedbackInterval,
		MaxOptimizationsPerCycle: cfg.MaxOptimizationsPerCycle,
		OptimizationThreshold:    cfg.OptimizationThreshold,
		AdaptiveLearning:         cfg.AdaptiveLearning,
		PredictionEnabled:        cfg.PredictionEnabled,
	})
	s.optimizer.SetLogger(logger)

	return s
}

// Optimizer exposes the feedback optimizer for host control surfaces.
func (s *Service) Optimizer() *optimizer.Optimizer {
	return s.optimizer
}

// Config returns a snapshot of the current configuration.
func (s *Service) Config() Config {
	return s.guard.snapshot()
}

// Configure applies a partial configuration update and forwards the
// optimizer-scoped fields to the optimizer.
func (s *Service) Configure(update ConfigUpdate) Config {
	cfg := s.guard.mutate(func(c *Config) {
		update.apply(c)
	})

	s.optimizer.Configure(optimizer.ConfigUpdate{
		Interval:                 update.FeedbackInterval,
		MaxOptimizationsPerCycle: update.MaxOptimizationsPerCycle,
		OptimizationThreshold:    update.OptimizationThreshold,
		AdaptiveLearning:         update.AdaptiveLearning,
		PredictionEnabled:        update.PredictionEnabled,
	})

	s.logger.Info("engine configuration updated",
		"ensemble_size", cfg.EnsembleSize,
		"quality_threshold", cfg.QualityThreshold,
		"max_iterations", cfg.MaxIterations,
	)
	return cfg
}

// GenerateRequest is one generation call.
type GenerateRequest struct {
	Inputs []semantic.Input `json:"inputs"`
	Intent string           `json:"intent"`
	// Config overrides apply to this request only; the shared configuration
	// is untouched.
	Config *ConfigUpdate `json:"config,omitempty"`
}

// Metadata carries the per-run bookkeeping of a generation result.
type Metadata struct {
	ProcessingTimeMs  int64    `json:"processingTime"`
	ModelsUsed        []string `json:"modelsUsed"`
	TechniquesApplied []string `json:"techniquesApplied"`
	RequestID         string   `json:"requestId"`
}

// GenerationResult is the outcome of one full pipeline run.
type GenerationResult struct {
	Artifact          *synthesis.Artifact       `json:"artifact"`
	Quality           *synthesis.QualityMetrics `json:"quality"`
	SemanticCoherence float64                   `json:"semanticCoherence"`
	AestheticScore    float64                   `json:"aestheticScore"`
	Converged         bool                      `json:"converged"`
	TerminalState     refine.State              `json:"terminalState"`
	Iterations        int                       `json:"iterations"`
	TotalImprovement  float64                   `json:"totalImprovement"`
	FusionMap         *synthesis.FusionMap      `json:"fusionMap"`
	Metadata          Metadata                  `json:"metadata"`
}

// Generate runs the full pipeline: analyze, ensemble, fuse, refine. Input
// validation happens before any backend call. Non-convergence is a terminal
// state on the result, never an error.
func (s *Service) Generate(ctx context.Context, req *GenerateRequest) (*GenerationResult, error) {
	if req == nil || len(req.Inputs) == 0 {
		return nil, errors.InvalidArgument("generation requires at least one input")
	}
	if req.Intent == "" {
		return nil, errors.InvalidArgument("generation requires a non-empty intent")
	}

	cfg := s.guard.snapshot()
	if req.Config != nil {
		req.Config.apply(&cfg)
	}

	rc := observability.NewRequestContext(s.logger, "generate")
	ctx = observability.WithRequestContext(ctx, rc)
	start := time.Now()

	analysis, err := s.analyzer.Analyze(ctx, req.Inputs, req.Intent, cfg.SemanticDepth)
	if err != nil {
		return nil, err
	}

	candidates, err := s.generator.Generate(ctx, analysis.Graph, analysis.Styles, req.Intent, ensemble.Config{
		EnsembleSize: cfg.EnsembleSize,
		ModelRoster:  cfg.ModelRoster,
		Strength:     cfg.StyleTransferStrength,
	})
	if err != nil {
		return nil, err
	}

	fused, err := s.fuser.Fuse(ctx, candidates, analysis.Graph, analysis.Styles, fusion.Config{
		Strength:         cfg.StyleTransferStrength,
		PreserveContent:  true,
		AdaptiveBlending: true,
	})
	if err != nil {
		return nil, err
	}

	iterations := cfg.RefinementSteps
	if cfg.MaxIterations < iterations {
		iterations = cfg.MaxIterations
	}
	outcome, err := s.controller.Refine(ctx, fused.Artifact, nil, req.Intent, refine.Config{
		MaxIterations:    iterations,
		QualityThreshold: cfg.QualityThreshold,
		Strategy:         cfg.Strategy,
	})
	if err != nil {
		return nil, err
	}

	elapsed := time.Since(start)
	converged := outcome.State == refine.StateConverged
	s.collector.RecordGeneration(elapsed, outcome.Metrics.Overall, converged)

	result := &GenerationResult{
		Artifact:          outcome.Artifact,
		Quality:           outcome.Metrics,
		SemanticCoherence: outcome.Metrics.Semantic.Coherence,
		AestheticScore:    outcome.Metrics.Artistic.Score,
		Converged:         converged,
		TerminalState:     outcome.State,
		Iterations:        outcome.Iterations,
		TotalImprovement:  outcome.TotalImprovement,
		FusionMap:         fused.Map,
		Metadata: Metadata{
			ProcessingTimeMs:  elapsed.Milliseconds(),
			ModelsUsed:        fused.Artifact.ModelIDs,
			TechniquesApplied: appliedTechniques(fused.Base, outcome.Steps),
			RequestID:         rc.RequestID,
		},
	}

	rc.Info("generation completed",
		slog.Float64("overall", result.Quality.Overall),
		slog.Bool("converged", result.Converged),
		slog.Int("iterations", result.Iterations),
		slog.Int64(observability.LogFieldDuration, result.Metadata.ProcessingTimeMs),
	)
	return result, nil
}

// Analyze runs semantic analysis only.
func (s *Service) Analyze(ctx context.Context, inputs []semantic.Input, intent string) (*semantic.Analysis, error) {
	cfg := s.guard.snapshot()

	rc := observability.NewRequestContext(s.logger, "analyze")
	ctx = observability.WithRequestContext(ctx, rc)

	return s.analyzer.Analyze(ctx, inputs, intent, cfg.SemanticDepth)
}

// TransferStyleRequest transfers a style set onto one content input.
type TransferStyleRequest struct {
	Content semantic.Input   `json:"content"`
	Styles  []semantic.Input `json:"styles"`
	// Strength overrides the configured style transfer strength when > 0.
	Strength float64 `json:"strength,omitempty"`
	Intent   string  `json:"intent,omitempty"`
}

// TransferStyle analyzes the content together with the style inputs, renders
// a single candidate from the content, and fuses it under the style set.
func (s *Service) TransferStyle(ctx context.Context, req *TransferStyleRequest) (*fusion.Result, error) {
	if req == nil || req.Content.Payload == "" {
		return nil, errors.InvalidArgument("style transfer requires a content input")
	}
	if len(req.Styles) == 0 {
		return nil, errors.InvalidArgument("style transfer requires at least one style input")
	}

	cfg := s.guard.snapshot()
	strength := cfg.StyleTransferStrength
	if req.Strength > 0 {
		strength = req.Strength
	}
	intent := req.Intent
	if intent == "" {
		intent = "style transfer"
	}

	rc := observability.NewRequestContext(s.logger, "style_transfer")
	ctx = observability.WithRequestContext(ctx, rc)

	inputs := make([]semantic.Input, 0, len(req.Styles)+1)
	content := req.Content
	content.Role = semantic.RoleSource
	inputs = append(inputs, content)
	for _, style := range req.Styles {
		style.Role = semantic.RoleStyle
		inputs = append(inputs, style)
	}

	analysis, err := s.analyzer.Analyze(ctx, inputs, intent, cfg.SemanticDepth)
	if err != nil {
		return nil, err
	}

	candidates, err := s.generator.Generate(ctx, analysis.Graph, analysis.Styles, intent, ensemble.Config{
		EnsembleSize: 1,
		ModelRoster:  cfg.ModelRoster,
		Strength:     strength,
	})
	if err != nil {
		return nil, err
	}

	return s.fuser.Fuse(ctx, candidates, analysis.Graph, analysis.Styles, fusion.Config{
		Strength:         strength,
		PreserveContent:  true,
		AdaptiveBlending: true,
	})
}

// ServiceStats is the engine's state snapshot.
type ServiceStats struct {
	Config            Config          `json:"config"`
	AnalysisCacheSize int             `json:"analysis_cache_size"`
	FusionCacheSize   int             `json:"fusion_cache_size"`
	GenerationSamples int             `json:"generation_samples"`
	Optimizer         optimizer.Stats `json:"optimizer"`
}

// Stats returns the engine's state snapshot.
func (s *Service) Stats() ServiceStats {
	return ServiceStats{
		Config:            s.guard.snapshot(),
		AnalysisCacheSize: s.analysisCache.Size(),
		FusionCacheSize:   s.fusionCache.Size(),
		GenerationSamples: s.collector.SampleCount(),
		Optimizer:         s.optimizer.Stats(),
	}
}

// ApplyOptimization implements optimizer.Applier: optimizer actions mutate
// the shared configuration or flush the caches. Bounds keep a runaway
// optimizer from configuring the engine into a corner.
func (s *Service) ApplyOptimization(ctx context.Context, action optimizer.Action) ([]string, error) {
	var sideEffects []string

	switch action.Kind {
	case optimizer.ActionReduceEnsembleSize:
		cfg := s.guard.mutate(func(c *Config) {
			if c.EnsembleSize > 1 {
				c.EnsembleSize--
			}
		})
		sideEffects = append(sideEffects, "ensemble size lowered: fewer candidates per generation")
		s.logger.InfoContext(ctx, "optimizer reduced ensemble size", "ensemble_size", cfg.EnsembleSize)

	case optimizer.ActionIncreaseEnsembleSize:
		cfg := s.guard.mutate(func(c *Config) {
			if c.EnsembleSize < len(c.ModelRoster) {
				c.EnsembleSize++
			}
		})
		sideEffects = append(sideEffects, "ensemble size raised: higher latency per generation")
		s.logger.InfoContext(ctx, "optimizer increased ensemble size", "ensemble_size", cfg.EnsembleSize)

	case optimizer.ActionReduceIterations:
		cfg := s.guard.mutate(func(c *Config) {
			if c.RefinementSteps > 1 {
				c.RefinementSteps--
			}
		})
		sideEffects = append(sideEffects, "refinement steps lowered: convergence may drop")
		s.logger.InfoContext(ctx, "optimizer reduced refinement steps", "refinement_steps", cfg.RefinementSteps)

	case optimizer.ActionIncreaseIterations:
		cfg := s.guard.mutate(func(c *Config) {
			if c.RefinementSteps < 10 {
				c.RefinementSteps++
			}
			if c.MaxIterations < c.RefinementSteps {
				c.MaxIterations = c.RefinementSteps
			}
		})
		sideEffects = append(sideEffects, "refinement steps raised: higher latency per generation")
		s.logger.InfoContext(ctx, "optimizer increased refinement steps", "refinement_steps", cfg.RefinementSteps)

	case optimizer.ActionRaiseQualityThreshold:
		step := 0.05
		if v, ok := action.Params["step"].(float64); ok && v > 0 {
			step = v
		}
		cfg := s.guard.mutate(func(c *Config) {
			c.QualityThreshold = clampThreshold(c.QualityThreshold + step)
		})
		sideEffects = append(sideEffects, "quality threshold raised: more refinement work per generation")
		s.logger.InfoContext(ctx, "optimizer raised quality threshold", "quality_threshold", cfg.QualityThreshold)

	case optimizer.ActionClearCaches:
		s.analyzer.ClearCache()
		s.fuser.ClearCache()
		sideEffects = append(sideEffects, "caches cleared: next requests pay full analysis cost")
		s.logger.InfoContext(ctx, "optimizer cleared caches")

	case optimizer.ActionReduceSemanticDepth:
		cfg := s.guard.mutate(func(c *Config) {
			if c.SemanticDepth > 1 {
				c.SemanticDepth--
			}
		})
		sideEffects = append(sideEffects, "semantic depth lowered: coarser concept extraction")
		s.logger.InfoContext(ctx, "optimizer reduced semantic depth", "semantic_depth", cfg.SemanticDepth)

	default:
		return nil, errors.Internal("unknown optimization action: "+string(action.Kind), nil)
	}

	return sideEffects, nil
}

// cacheHitRate is the combined hit rate of the engine caches, fed to the
// metrics collector.
func (s *Service) cacheHitRate() float64 {
	return (s.analysisCache.HitRate() + s.fusionCache.HitRate()) / 2
}

// appliedTechniques merges the base candidate's prompt template with the
// refinement techniques, deduplicated in application order.
func appliedTechniques(base synthesis.Candidate, steps []synthesis.RefinementStep) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(names []string) {
		for _, name := range names {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	add(base.Techniques)
	for _, step := range steps {
		add(step.Techniques)
	}
	return out
}

func clampThreshold(v float64) float64 {
	if v > 0.95 {
		return 0.95
	}
	return v
}

// Ensure Service implements the optimizer's action seam.
var _ optimizer.Applier = (*Service)(nil)
