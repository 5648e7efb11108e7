package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apperrors "github.com/visionforge/visionforge/internal/errors"
	"github.com/visionforge/visionforge/server/service/generation"
)

// ConfigureOptimizer applies a partial engine/optimizer configuration update
// and returns the resulting configuration.
// POST /api/v1/optimizer/config
func (s *APIV1Service) ConfigureOptimizer(c echo.Context) error {
	var update generation.ConfigUpdate
	if err := c.Bind(&update); err != nil {
		return s.writeError(c, apperrors.InvalidArgument("malformed request body"))
	}

	cfg := s.engine.Configure(update)
	return c.JSON(http.StatusOK, cfg)
}

// StartOptimizer starts the periodic feedback loop.
// POST /api/v1/optimizer/start
func (s *APIV1Service) StartOptimizer(c echo.Context) error {
	if err := s.engine.Optimizer().Start(c.Request().Context()); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"running": true})
}

// StopOptimizer stops the periodic feedback loop, letting an in-flight cycle
// finish.
// POST /api/v1/optimizer/stop
func (s *APIV1Service) StopOptimizer(c echo.Context) error {
	if err := s.engine.Optimizer().Stop(); err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]bool{"running": false})
}

// ForceCycle runs one feedback cycle immediately and returns the detected
// loops.
// POST /api/v1/optimizer/force-cycle
func (s *APIV1Service) ForceCycle(c echo.Context) error {
	loops, err := s.engine.Optimizer().ForceCycle(c.Request().Context())
	if err != nil {
		return s.writeError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"detected": len(loops), "loops": loops})
}

// ClearHistory drops the optimizer's recorded feedback loops.
// POST /api/v1/optimizer/clear-history
func (s *APIV1Service) ClearHistory(c echo.Context) error {
	s.engine.Optimizer().ClearHistory()
	return c.JSON(http.StatusOK, map[string]bool{"cleared": true})
}

// GetRecommendations returns the actions the optimizer would take right now,
// without executing them.
// GET /api/v1/optimizer/recommendations
func (s *APIV1Service) GetRecommendations(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Optimizer().Recommendations())
}

// GetOptimizerStats returns the optimizer state snapshot.
// GET /api/v1/optimizer/stats
func (s *APIV1Service) GetOptimizerStats(c echo.Context) error {
	return c.JSON(http.StatusOK, s.engine.Optimizer().Stats())
}
