package inference

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/visionforge/visionforge/plugin/synthesis"
)

// Config holds the OpenAI-compatible provider configuration.
type Config struct {
	BaseURL           string
	APIKey            string
	Model             string
	MaxRetries        int
	Timeout           time.Duration
	RequestsPerSecond float64
}

// DefaultConfig returns the default provider configuration.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:           "https://api.openai.com/v1",
		Model:             "gpt-4o-mini",
		MaxRetries:        3,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
	}
}

// Provider implements Client on top of an OpenAI-compatible chat API.
// All structured calls ask the model for JSON and parse it; a response that
// fails to parse is returned as an error for the caller to recover from.
type Provider struct {
	client  *openai.Client
	config  *Config
	limiter *rate.Limiter
}

// NewProvider creates a new OpenAI-backed provider.
func NewProvider(cfg *Config) (*Provider, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 5
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &Provider{
		client:  openai.NewClientWithConfig(clientConfig),
		config:  cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), int(math.Ceil(cfg.RequestsPerSecond))),
	}, nil
}

type conceptDTO struct {
	Label           string            `json:"label"`
	Confidence      float64           `json:"confidence"`
	Category        string            `json:"category"`
	Attributes      map[string]any    `json:"attributes"`
	EmotionalWeight float64           `json:"emotional_weight"`
	Bounds          *synthesis.Bounds `json:"bounds"`
	Relations       []relationDTO     `json:"relations"`
}

type relationDTO struct {
	TargetLabel string  `json:"target_label"`
	Type        string  `json:"type"`
	Strength    float64 `json:"strength"`
}

// AnalyzeConcepts extracts semantic concepts from the payload.
func (p *Provider) AnalyzeConcepts(ctx context.Context, payload string, depth int) ([]synthesis.Concept, error) {
	// JSON response mode constrains the model to a single object, so the
	// concept list travels inside a {"concepts": [...]} envelope.
	prompt := fmt.Sprintf(
		"Extract up to %d semantic concepts from the following content. "+
			"Respond with a JSON object {\"concepts\": [...]} where each entry has fields: label, confidence (0-1), "+
			"category (object|style|emotion|action|setting|abstract), attributes (object), "+
			"emotional_weight (0-1), bounds ({x,y,width,height} normalized, or null), "+
			"relations (array of {target_label, type (spatial|functional|emotional|causal|compositional), strength (0-1)}).\n\n%s",
		4*depth, truncatePayload(payload))

	raw, err := p.chatJSON(ctx, "You are a visual semantic analyzer. Respond only with JSON.", prompt)
	if err != nil {
		return nil, err
	}
	return parseConcepts(raw)
}

// parseConcepts decodes the {"concepts": [...]} envelope and resolves
// label-based relations into concept ids.
func parseConcepts(raw string) ([]synthesis.Concept, error) {
	var envelope struct {
		Concepts []conceptDTO `json:"concepts"`
	}
	if err := json.Unmarshal([]byte(raw), &envelope); err != nil {
		return nil, errors.Wrap(err, "malformed concept payload")
	}
	dtos := envelope.Concepts

	// Two passes: assign ids first so relations can point at sibling concepts.
	idByLabel := make(map[string]string, len(dtos))
	concepts := make([]synthesis.Concept, 0, len(dtos))
	for _, dto := range dtos {
		id := uuid.New().String()
		idByLabel[strings.ToLower(dto.Label)] = id
		concepts = append(concepts, synthesis.Concept{
			ID:              id,
			Label:           dto.Label,
			Confidence:      synthesis.Clamp01(dto.Confidence),
			Category:        parseCategory(dto.Category),
			Attributes:      dto.Attributes,
			EmotionalWeight: synthesis.Clamp01(dto.EmotionalWeight),
			Bounds:          dto.Bounds,
		})
	}
	for i, dto := range dtos {
		for _, rel := range dto.Relations {
			targetID, ok := idByLabel[strings.ToLower(rel.TargetLabel)]
			if !ok {
				continue
			}
			concepts[i].Relationships = append(concepts[i].Relationships, synthesis.Relationship{
				TargetID: targetID,
				Type:     parseRelationType(rel.Type),
				Strength: synthesis.Clamp01(rel.Strength),
			})
		}
	}

	return concepts, nil
}

// AnalyzeStyle derives a style profile from the payload.
func (p *Provider) AnalyzeStyle(ctx context.Context, payload string) (*synthesis.StyleProfile, error) {
	prompt := "Describe the artistic style of the following content as JSON with fields: " +
		"name, color {saturation, brightness, contrast, palette}, brushwork {precision, texture, technique}, " +
		"composition {balance, symmetry, structure}, lighting {intensity, softness, direction}, " +
		"mood {valence, energy, tone}, adaptability (0-1), complexity (0-1). All numeric scores in [0,1].\n\n" +
		truncatePayload(payload)

	raw, err := p.chatJSON(ctx, "You are an art style analyzer. Respond only with JSON.", prompt)
	if err != nil {
		return nil, err
	}

	var profile synthesis.StyleProfile
	if err := json.Unmarshal([]byte(raw), &profile); err != nil {
		return nil, errors.Wrap(err, "malformed style payload")
	}
	profile.ID = uuid.New().String()
	profile.Adaptability = synthesis.Clamp01(profile.Adaptability)
	profile.Complexity = synthesis.Clamp01(profile.Complexity)
	return &profile, nil
}

// AssessQuality scores an artifact against the intent.
func (p *Provider) AssessQuality(ctx context.Context, artifact *synthesis.Artifact, intent string) (*synthesis.QualityMetrics, error) {
	prompt := fmt.Sprintf(
		"Assess the following generated artifact against the intent %q. Respond with JSON: "+
			"{technical: {sharpness, clarity, noise_control}, artistic: {composition, color_harmony, creativity}, "+
			"semantic: {intent_alignment, concept_coverage, coherence}, user_preference: {style_match, aesthetic_appeal}}. "+
			"All scores in [0,1].\n\nArtifact:\n%s",
		intent, truncatePayload(artifact.Data))

	raw, err := p.chatJSON(ctx, "You are a strict image quality assessor. Respond only with JSON.", prompt)
	if err != nil {
		return nil, err
	}

	var metrics synthesis.QualityMetrics
	if err := json.Unmarshal([]byte(raw), &metrics); err != nil {
		return nil, errors.Wrap(err, "malformed quality payload")
	}
	return SanitizeQuality(&metrics), nil
}

// Synthesize produces a new artifact for the request. The chat backend
// returns a textual rendering which is wrapped as an opaque data URI; a real
// image backend slots in behind the same method.
func (p *Provider) Synthesize(ctx context.Context, req *SynthesisRequest) (*synthesis.Artifact, error) {
	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	prompt := req.Prompt
	if req.BaseArtifact != nil {
		prompt = fmt.Sprintf("Refine the following artifact (techniques: %s, strength %.2f):\n%s\n\nInstructions: %s",
			strings.Join(req.Techniques, ", "), req.Strength, truncatePayload(req.BaseArtifact.Data), req.Prompt)
	}

	var content string
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: "You are a synthesis backend. Produce the requested artifact content."},
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty synthesis response")
		}
		content = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "synthesis failed for model %s", model)
	}

	return &synthesis.Artifact{
		ID:        shortuuid.New(),
		Data:      "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte(content)),
		Format:    "data-uri",
		ModelIDs:  []string{model},
		CreatedAt: time.Now(),
	}, nil
}

// chatJSON runs one JSON-mode chat completion with retry and rate limiting.
func (p *Provider) chatJSON(ctx context.Context, system, user string) (string, error) {
	var result string
	err := p.doWithRetry(ctx, func() error {
		resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: p.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: system},
				{Role: openai.ChatMessageRoleUser, Content: user},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return errors.New("empty chat response")
		}
		result = resp.Choices[0].Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}

// doWithRetry executes a function with rate limiting and exponential backoff.
func (p *Provider) doWithRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt < p.config.MaxRetries; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}

		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < p.config.MaxRetries-1 {
			waitTime := time.Duration(math.Pow(2, float64(attempt))) * time.Second
			slog.Debug("inference request failed, retrying",
				"attempt", attempt+1,
				"wait_time", waitTime,
				"error", lastErr)
			select {
			case <-time.After(waitTime):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return lastErr
}

func parseCategory(s string) synthesis.ConceptCategory {
	switch synthesis.ConceptCategory(strings.ToLower(s)) {
	case synthesis.CategoryObject, synthesis.CategoryStyle, synthesis.CategoryEmotion,
		synthesis.CategoryAction, synthesis.CategorySetting, synthesis.CategoryAbstract:
		return synthesis.ConceptCategory(strings.ToLower(s))
	default:
		return synthesis.CategoryAbstract
	}
}

func parseRelationType(s string) synthesis.RelationType {
	switch synthesis.RelationType(strings.ToLower(s)) {
	case synthesis.RelationSpatial, synthesis.RelationFunctional, synthesis.RelationEmotional,
		synthesis.RelationCausal, synthesis.RelationCompositional:
		return synthesis.RelationType(strings.ToLower(s))
	default:
		return synthesis.RelationFunctional
	}
}

// truncatePayload caps payloads sent to the backend to keep request sizes
// bounded.
func truncatePayload(s string) string {
	const maxLen = 4000
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// Ensure Provider implements Client.
var _ Client = (*Provider)(nil)
