// Package fusion blends ensemble candidates under a set of style profiles,
// producing a region-level fusion map and a single fused artifact.
package fusion

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/visionforge/visionforge/plugin/cache"
	"github.com/visionforge/visionforge/plugin/synthesis"
	apperrors "github.com/visionforge/visionforge/internal/errors"
)

// Config controls one fusion call.
type Config struct {
	// Strength scales how strongly styles are applied, in [0,1].
	Strength float64
	// PreserveContent pins semantic preservation to 1.
	PreserveContent bool
	// AdaptiveBlending enables per-region style scoring; when false every
	// region gets a uniform blend.
	AdaptiveBlending bool
}

// DefaultConfig returns the default fusion configuration.
func DefaultConfig() Config {
	return Config{
		Strength:         0.8,
		PreserveContent:  true,
		AdaptiveBlending: true,
	}
}

// Result is the output of one fusion call.
type Result struct {
	Artifact *synthesis.Artifact  `json:"artifact"`
	Map      *synthesis.FusionMap `json:"map"`
	// Base is the candidate the fused artifact was built from.
	Base synthesis.Candidate `json:"base"`
}

// Fuser performs adaptive style fusion over ensemble candidates.
type Fuser struct {
	cache  cache.Store
	logger *slog.Logger
}

// NewFuser creates a new fuser.
func NewFuser(store cache.Store) *Fuser {
	if store == nil {
		store = cache.NewMapStore()
	}
	return &Fuser{
		cache:  store,
		logger: slog.Default(),
	}
}

// SetLogger sets a custom logger.
func (f *Fuser) SetLogger(logger *slog.Logger) {
	f.logger = logger
}

// CacheSize returns the number of cached fusion results.
func (f *Fuser) CacheSize() int {
	return f.cache.Size()
}

// ClearCache drops all cached fusion results.
func (f *Fuser) ClearCache() {
	f.cache.Clear()
}

// Fuse decomposes the canvas into regions, assigns each region a normalized
// style blend, and returns the base candidate's artifact annotated with the
// union of all candidates' model ids. The base candidate is the one with the
// highest quality score; ties go to the lower index.
func (f *Fuser) Fuse(ctx context.Context, candidates []synthesis.Candidate, graph *synthesis.ConceptGraph, styles []*synthesis.StyleProfile, cfg Config) (*Result, error) {
	if len(candidates) == 0 {
		return nil, apperrors.NoCandidates("fusion requires at least one candidate")
	}
	if cfg.Strength <= 0 {
		cfg.Strength = DefaultConfig().Strength
	}
	cfg.Strength = synthesis.Clamp01(cfg.Strength)

	// Fusion is deterministic for a given candidate/style/config set, so the
	// fingerprint covers all three.
	key := fusionFingerprint(candidates, styles, cfg)
	if cached, ok := f.cache.Get(key); ok {
		if result, ok := cached.(*Result); ok {
			f.logger.DebugContext(ctx, "fusion cache hit", "fingerprint", key[:12])
			return result, nil
		}
	}

	if len(styles) == 0 {
		// A well-formed map needs at least one style to distribute weight
		// over; an unstyled run blends against a neutral placeholder.
		styles = []*synthesis.StyleProfile{synthesis.NeutralStyleProfile("default")}
	}

	specs := decomposeRegions(graph)
	styleOrder := make([]string, len(styles))
	for i, s := range styles {
		styleOrder[i] = s.ID
	}

	regions := make([]synthesis.FusionRegion, 0, len(specs))
	weightMatrix := make([][]float64, 0, len(specs))
	distribution := make(map[string]float64, len(styles))
	var totalArea float64

	for _, spec := range specs {
		weights := f.blendWeights(spec, graph, styles, cfg)

		dominant := styles[0].ID
		best := -1.0
		for _, s := range styles {
			if w := weights[s.ID]; w > best {
				best = w
				dominant = s.ID
			}
		}

		row := make([]float64, len(styles))
		for i, s := range styles {
			row[i] = weights[s.ID]
		}
		weightMatrix = append(weightMatrix, row)

		area := spec.bounds.Area()
		totalArea += area
		for id, w := range weights {
			distribution[id] += w * area
		}

		regions = append(regions, synthesis.FusionRegion{
			Bounds:          spec.bounds,
			DominantStyleID: dominant,
			BlendWeights:    weights,
			ContentTags:     spec.tags,
			AdaptationLevel: synthesis.Clamp01(cfg.Strength * adaptability(styles, dominant)),
		})
	}

	if totalArea > 0 {
		for id := range distribution {
			distribution[id] /= totalArea
		}
	}

	fusionMap := &synthesis.FusionMap{
		Regions:              regions,
		WeightMatrix:         weightMatrix,
		StyleOrder:           styleOrder,
		StyleDistribution:    distribution,
		SemanticPreservation: f.semanticPreservation(styles, cfg),
	}

	base := pickBase(candidates)
	fused := &synthesis.Artifact{
		ID:        shortuuid.New(),
		Data:      base.Artifact.Data,
		Format:    base.Artifact.Format,
		ModelIDs:  unionModelIDs(candidates),
		CreatedAt: time.Now(),
	}

	result := &Result{
		Artifact: fused,
		Map:      fusionMap,
		Base:     base,
	}

	f.logger.InfoContext(ctx, "fusion completed",
		"candidates", len(candidates),
		"regions", len(regions),
		"styles", len(styles),
		"base_model", base.ModelID,
	)

	f.cache.Set(key, result)
	return result, nil
}

// blendWeights scores each style for a region and normalizes the scores to a
// blend summing to 1. Scoring: +0.3 when the profile mood matches the
// region's emotional tone (its source concept's emotional weight, falling
// back to the graph tone for the default region), +0.2 when profile
// complexity is within 0.3 of graph complexity, plus 0.2 x adaptability.
// Strength scales the raw scores before the final normalization.
func (f *Fuser) blendWeights(spec regionSpec, graph *synthesis.ConceptGraph, styles []*synthesis.StyleProfile, cfg Config) map[string]float64 {
	weights := make(map[string]float64, len(styles))

	if !cfg.AdaptiveBlending || len(styles) == 1 {
		uniform := 1.0 / float64(len(styles))
		for _, s := range styles {
			weights[s.ID] = uniform
		}
		return weights
	}

	var tone, complexity float64
	if graph != nil {
		tone = graph.Meta.EmotionalTone
		complexity = graph.Meta.Complexity
	}
	if spec.hasTone {
		tone = spec.tone
	}

	var total float64
	for _, s := range styles {
		score := 0.0
		if synthesis.MoodMatches(s, tone) {
			score += 0.3
		}
		if diff := s.Complexity - complexity; diff > -0.3 && diff < 0.3 {
			score += 0.2
		}
		score += 0.2 * s.Adaptability
		weights[s.ID] = score
		total += score
	}

	if total == 0 {
		uniform := 1.0 / float64(len(styles))
		for _, s := range styles {
			weights[s.ID] = uniform
		}
		return weights
	}
	for id := range weights {
		weights[id] = weights[id] / total * cfg.Strength
	}
	// Re-normalize after strength scaling so blends always sum to 1.
	var scaled float64
	for _, w := range weights {
		scaled += w
	}
	for id := range weights {
		weights[id] /= scaled
	}
	return weights
}

// semanticPreservation is pinned to 1 when content preservation is requested;
// otherwise it degrades with strength, softened by how adaptable the styles
// are.
func (f *Fuser) semanticPreservation(styles []*synthesis.StyleProfile, cfg Config) float64 {
	if cfg.PreserveContent {
		return 1
	}
	var avgAdapt float64
	for _, s := range styles {
		avgAdapt += s.Adaptability
	}
	avgAdapt /= float64(len(styles))
	return synthesis.Clamp01(1 - cfg.Strength*(1-avgAdapt))
}

func adaptability(styles []*synthesis.StyleProfile, id string) float64 {
	for _, s := range styles {
		if s.ID == id {
			return s.Adaptability
		}
	}
	return 0.5
}

// pickBase returns the highest-quality candidate, ties resolved toward the
// lower index.
func pickBase(candidates []synthesis.Candidate) synthesis.Candidate {
	base := candidates[0]
	for _, c := range candidates[1:] {
		if c.Quality > base.Quality {
			base = c
		}
	}
	return base
}

// unionModelIDs collects every candidate's model ids in candidate order,
// deduplicated.
func unionModelIDs(candidates []synthesis.Candidate) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range candidates {
		for _, id := range c.Artifact.ModelIDs {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
		if c.ModelID != "" && !seen[c.ModelID] {
			seen[c.ModelID] = true
			ids = append(ids, c.ModelID)
		}
	}
	return ids
}

// fusionFingerprint keys on candidate content (model id, payload, quality)
// rather than artifact ids, which are freshly minted every run and would make
// the cache unhittable across requests.
func fusionFingerprint(candidates []synthesis.Candidate, styles []*synthesis.StyleProfile, cfg Config) string {
	h := sha256.New()
	fmt.Fprintf(h, "strength=%.3f|preserve=%t|adaptive=%t", cfg.Strength, cfg.PreserveContent, cfg.AdaptiveBlending)
	for _, c := range candidates {
		fmt.Fprintf(h, "|c:%s:%.3f:", c.ModelID, c.Quality)
		h.Write([]byte(c.Artifact.Data))
	}
	for _, s := range styles {
		fmt.Fprintf(h, "|s:%s", s.ID)
	}
	return hex.EncodeToString(h.Sum(nil))
}
