// Package profile holds the process-level configuration assembled at
// bootstrap. The engine core never reads the environment; everything it needs
// arrives through a validated Profile.
package profile

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev".
	Mode string `mapstructure:"mode"`
	// Addr is the binding address for the server.
	Addr string `mapstructure:"addr"`
	// Port is the binding port for the server.
	Port int `mapstructure:"port"`
	// Version is the current version of the server.
	Version string `mapstructure:"-"`

	// Backend selects the inference backend: "openai" or "mock".
	Backend string `mapstructure:"backend"`
	// BackendBaseURL overrides the backend endpoint (OpenAI-compatible).
	BackendBaseURL string `mapstructure:"backend_base_url"`
	// BackendAPIKey authenticates against the backend.
	BackendAPIKey string `mapstructure:"backend_api_key"`
	// BackendModel is the default chat model for structured analysis calls.
	BackendModel string `mapstructure:"backend_model"`
	// BackendRequestsPerSecond rate-limits backend calls.
	BackendRequestsPerSecond float64 `mapstructure:"backend_rps"`

	// ModelRoster names the synthesis models available to the ensemble,
	// comma-separated in the environment.
	ModelRoster []string `mapstructure:"model_roster"`

	// OptimizerAutostart starts the feedback loop with the server.
	OptimizerAutostart bool `mapstructure:"optimizer_autostart"`
}

const (
	BackendOpenAI = "openai"
	BackendMock   = "mock"
)

// IsDev reports whether the server runs in development mode.
func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// Validate normalizes and checks the profile.
func (p *Profile) Validate() error {
	if p.Mode != "prod" && p.Mode != "dev" {
		return errors.Errorf("invalid mode %q (valid: prod, dev)", p.Mode)
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}

	p.Backend = strings.ToLower(p.Backend)
	switch p.Backend {
	case BackendOpenAI:
		if p.BackendAPIKey == "" {
			return errors.New("openai backend requires an API key")
		}
	case BackendMock:
	default:
		return errors.Errorf("invalid backend %q (valid: openai, mock)", p.Backend)
	}

	if len(p.ModelRoster) == 0 {
		return errors.New("model roster must not be empty")
	}
	return nil
}

// ListenAddr returns the host:port the server binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}
