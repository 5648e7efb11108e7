// Package semantic turns raw tagged inputs plus a text intent into a concept
// graph, style profiles and an intent vector.
package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/visionforge/visionforge/plugin/cache"
	"github.com/visionforge/visionforge/plugin/inference"
	"github.com/visionforge/visionforge/plugin/synthesis"
	apperrors "github.com/visionforge/visionforge/internal/errors"
)

// InputRole tags what an input contributes to the generation.
type InputRole string

const (
	RoleSource    InputRole = "source"
	RoleStyle     InputRole = "style"
	RoleReference InputRole = "reference"
	RoleConcept   InputRole = "concept"
)

// Input is one raw analysis input.
type Input struct {
	Payload string    `json:"payload"`
	Role    InputRole `json:"role"`
	// Weight scales the confidence of extracted concepts. Zero means 1.
	Weight float64 `json:"weight,omitempty"`
}

// Analysis is the full output of one analysis run.
type Analysis struct {
	Graph        *synthesis.ConceptGraph   `json:"graph"`
	Styles       []*synthesis.StyleProfile `json:"styles"`
	IntentVector []float64                 `json:"intent_vector"`
}

// Analyzer extracts concepts and styles through the inference backend.
// Results are cached by a content+options fingerprint; the cache is an
// unbounded map cleared only explicitly.
type Analyzer struct {
	client inference.Client
	cache  cache.Store
	logger *slog.Logger
}

// NewAnalyzer creates a new semantic analyzer.
func NewAnalyzer(client inference.Client, store cache.Store) *Analyzer {
	if store == nil {
		store = cache.NewMapStore()
	}
	return &Analyzer{
		client: client,
		cache:  store,
		logger: slog.Default(),
	}
}

// SetLogger sets a custom logger.
func (a *Analyzer) SetLogger(logger *slog.Logger) {
	a.logger = logger
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	return a.cache.Size()
}

// ClearCache drops all cached analyses.
func (a *Analyzer) ClearCache() {
	a.cache.Clear()
}

// Analyze runs per-input concept extraction in parallel, builds the concept
// graph, derives style profiles for style-role inputs and computes the
// intent vector. A single input's backend failure is logged and excluded;
// sibling extractions are never cancelled.
func (a *Analyzer) Analyze(ctx context.Context, inputs []Input, intent string, depth int) (*Analysis, error) {
	if len(inputs) == 0 {
		return nil, apperrors.InvalidArgument("analysis requires at least one input")
	}
	if intent == "" {
		return nil, apperrors.InvalidArgument("analysis requires a non-empty intent")
	}
	if depth <= 0 {
		depth = 3
	}

	key := fingerprint(inputs, intent, depth)
	if cached, ok := a.cache.Get(key); ok {
		if analysis, ok := cached.(*Analysis); ok {
			a.logger.DebugContext(ctx, "analysis cache hit", "fingerprint", key[:12])
			return analysis, nil
		}
	}

	type extraction struct {
		concepts []synthesis.Concept
		style    *synthesis.StyleProfile
		err      error
	}

	// Bounded parallelism equal to input count: every extraction runs
	// concurrently, failures stay isolated per slot.
	sem := semaphore.NewWeighted(int64(len(inputs)))
	results := make([]extraction, len(inputs))
	var wg sync.WaitGroup

	for i, input := range inputs {
		if err := sem.Acquire(ctx, 1); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "acquire extraction slot")
		}
		wg.Add(1)
		go func(i int, input Input) {
			defer wg.Done()
			defer sem.Release(1)

			concepts, err := a.client.AnalyzeConcepts(ctx, input.Payload, depth)
			if err != nil {
				results[i].err = err
				return
			}

			weight := input.Weight
			if weight <= 0 {
				weight = 1
			}
			for j := range concepts {
				concepts[j].Confidence = synthesis.Clamp01(concepts[j].Confidence * weight)
			}
			results[i].concepts = concepts

			if input.Role == RoleStyle {
				style, err := a.client.AnalyzeStyle(ctx, input.Payload)
				if err != nil {
					// Style analysis failures degrade to a neutral profile
					// rather than losing the input.
					a.logger.WarnContext(ctx, "style analysis failed, using neutral profile",
						"input_index", i, "error", err)
					style = synthesis.NeutralStyleProfile(fmt.Sprintf("input-%d", i))
				}
				results[i].style = style
			}
		}(i, input)
	}
	wg.Wait()

	// Aggregate all per-input concept lists. Duplicates across inputs are
	// preserved as distinct nodes: deduplicating by label would silently
	// drop per-input confidence and spatial data.
	var concepts []synthesis.Concept
	var styles []*synthesis.StyleProfile
	failed := 0
	for i, res := range results {
		if res.err != nil {
			failed++
			a.logger.WarnContext(ctx, "concept extraction failed for input",
				"input_index", i, "error", res.err)
			continue
		}
		concepts = append(concepts, res.concepts...)
		if res.style != nil {
			styles = append(styles, res.style)
		}
	}

	analysis := &Analysis{
		Graph:        synthesis.BuildConceptGraph(concepts),
		Styles:       styles,
		IntentVector: IntentVector(intent),
	}

	a.logger.InfoContext(ctx, "semantic analysis completed",
		"inputs", len(inputs),
		"failed_inputs", failed,
		"concepts", len(concepts),
		"styles", len(styles),
		"clusters", analysis.Graph.Meta.ClusterCount,
	)

	// Degraded analyses are not cached: a transient backend outage must not
	// pin its partial result until an explicit clear.
	if failed == 0 {
		a.cache.Set(key, analysis)
	}
	return analysis, nil
}

// fingerprint hashes input payload prefixes, roles, depth and intent into a
// stable cache key.
func fingerprint(inputs []Input, intent string, depth int) string {
	h := sha256.New()
	fmt.Fprintf(h, "depth=%d|intent=%s", depth, intent)
	for _, input := range inputs {
		payload := input.Payload
		if len(payload) > 256 {
			payload = payload[:256]
		}
		fmt.Fprintf(h, "|%s:%.2f:%s", input.Role, input.Weight, payload)
	}
	return hex.EncodeToString(h.Sum(nil))
}
