// Package v1 exposes the generation engine over HTTP.
package v1

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/visionforge/visionforge/internal/errors"
	"github.com/visionforge/visionforge/server/service/generation"
)

// APIV1Service hosts the v1 request handlers over the engine service.
type APIV1Service struct {
	engine *generation.Service
	logger *slog.Logger
}

// NewAPIV1Service creates the v1 handler set.
func NewAPIV1Service(engine *generation.Service, logger *slog.Logger) *APIV1Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &APIV1Service{engine: engine, logger: logger}
}

// RegisterRoutes mounts the v1 routes on the echo instance.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")

	g.POST("/generate", s.Generate)
	g.POST("/analyze", s.Analyze)
	g.POST("/style-transfer", s.TransferStyle)
	g.GET("/stats", s.GetStats)

	opt := g.Group("/optimizer")
	opt.POST("/config", s.ConfigureOptimizer)
	opt.POST("/start", s.StartOptimizer)
	opt.POST("/stop", s.StopOptimizer)
	opt.POST("/force-cycle", s.ForceCycle)
	opt.POST("/clear-history", s.ClearHistory)
	opt.GET("/recommendations", s.GetRecommendations)
	opt.GET("/stats", s.GetOptimizerStats)
}

// errorResponse is the wire shape of every error: a machine-readable code and
// a human message, never raw backend payloads.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps engine error codes onto HTTP statuses.
func (s *APIV1Service) writeError(c echo.Context, err error) error {
	code := apperrors.GetCodeFromError(err, apperrors.ErrCodeInternal)

	status := http.StatusInternalServerError
	switch code {
	case apperrors.ErrCodeInvalidArgument:
		status = http.StatusBadRequest
	case apperrors.ErrCodeNoCandidates:
		status = http.StatusBadGateway
	case apperrors.ErrCodeNotRunning, apperrors.ErrCodeAlreadyRunning:
		status = http.StatusConflict
	}

	message := err.Error()
	if engErr, ok := err.(*apperrors.EngineError); ok {
		message = engErr.Message
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "code", code, "error", err)
	}
	return c.JSON(status, errorResponse{Code: string(code), Message: message})
}
