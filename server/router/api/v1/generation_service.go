package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/visionforge/visionforge/plugin/synthesis/semantic"
	apperrors "github.com/visionforge/visionforge/internal/errors"
	"github.com/visionforge/visionforge/server/service/generation"
)

// Generate runs the full pipeline for one request.
// POST /api/v1/generate
func (s *APIV1Service) Generate(c echo.Context) error {
	var req generation.GenerateRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, apperrors.InvalidArgument("malformed request body"))
	}

	result, err := s.engine.Generate(c.Request().Context(), &req)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// analyzeRequest is the wire shape of an analysis call.
type analyzeRequest struct {
	Inputs []analyzeInput `json:"inputs"`
	Intent string         `json:"intent"`
}

type analyzeInput struct {
	Payload string  `json:"payload"`
	Role    string  `json:"role"`
	Weight  float64 `json:"weight,omitempty"`
}

// Analyze runs semantic analysis only.
// POST /api/v1/analyze
func (s *APIV1Service) Analyze(c echo.Context) error {
	var req analyzeRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, apperrors.InvalidArgument("malformed request body"))
	}

	analysis, err := s.engine.Analyze(c.Request().Context(), toSemanticInputs(req.Inputs), req.Intent)
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, analysis)
}

// styleTransferRequest is the wire shape of a style-transfer call.
type styleTransferRequest struct {
	Content  analyzeInput   `json:"content"`
	Styles   []analyzeInput `json:"styles"`
	Strength float64        `json:"strength,omitempty"`
	Intent   string         `json:"intent,omitempty"`
}

// TransferStyle fuses one content input under a style set.
// POST /api/v1/style-transfer
func (s *APIV1Service) TransferStyle(c echo.Context) error {
	var req styleTransferRequest
	if err := c.Bind(&req); err != nil {
		return s.writeError(c, apperrors.InvalidArgument("malformed request body"))
	}

	styles := toSemanticInputs(req.Styles)
	result, err := s.engine.TransferStyle(c.Request().Context(), &generation.TransferStyleRequest{
		Content:  toSemanticInput(req.Content),
		Styles:   styles,
		Strength: req.Strength,
		Intent:   req.Intent,
	})
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

// GetStats returns the engine state snapshot.
// GET /api/v1/stats
func (s *APIV1Service) GetStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Stats())
}

func toSemanticInput(in analyzeInput) semantic.Input {
	return semantic.Input{
		Payload: in.Payload,
		Role:    semantic.InputRole(in.Role),
		Weight:  in.Weight,
	}
}

func toSemanticInputs(in []analyzeInput) []semantic.Input {
	out := make([]semantic.Input, 0, len(in))
	for _, i := range in {
		out = append(out, toSemanticInput(i))
	}
	return out
}
