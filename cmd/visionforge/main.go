// visionforge is the generation-orchestration server: semantic analysis,
// ensemble synthesis, adaptive style fusion and iterative refinement behind an
// HTTP API, self-tuned by a feedback optimizer.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/visionforge/visionforge/internal/profile"
	"github.com/visionforge/visionforge/plugin/inference"
	vfmiddleware "github.com/visionforge/visionforge/server/middleware"
	apiv1 "github.com/visionforge/visionforge/server/router/api/v1"
	"github.com/visionforge/visionforge/server/service/generation"
)

var version = "0.4.0"

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "visionforge",
		Short: "Generation-orchestration engine server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			prof, err := loadProfile(configFile)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), prof)
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file (optional)")
	cmd.PersistentFlags().String("mode", "dev", `server mode: "prod" or "dev"`)
	cmd.PersistentFlags().String("addr", "", "binding address")
	cmd.PersistentFlags().Int("port", 8230, "binding port")

	return cmd
}

// loadProfile assembles the profile from flags, environment (VISIONFORGE_*)
// and the optional config file, in increasing priority of flag > env > file.
func loadProfile(configFile string) (*profile.Profile, error) {
	v := viper.New()
	v.SetEnvPrefix("visionforge")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("mode", "dev")
	v.SetDefault("addr", "")
	v.SetDefault("port", 8230)
	v.SetDefault("backend", profile.BackendMock)
	v.SetDefault("backend_model", "gpt-4o-mini")
	v.SetDefault("backend_rps", 5.0)
	v.SetDefault("model_roster", "vf-base,vf-artistic,vf-photoreal")
	v.SetDefault("optimizer_autostart", true)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	var prof profile.Profile
	if err := v.Unmarshal(&prof); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// The roster arrives comma-separated from env/flags.
	if len(prof.ModelRoster) == 1 && strings.Contains(prof.ModelRoster[0], ",") {
		prof.ModelRoster = strings.Split(prof.ModelRoster[0], ",")
		for i := range prof.ModelRoster {
			prof.ModelRoster[i] = strings.TrimSpace(prof.ModelRoster[i])
		}
	}
	prof.Version = version

	if err := prof.Validate(); err != nil {
		return nil, err
	}
	return &prof, nil
}

// serve builds the engine and runs the HTTP server until interrupted.
func serve(ctx context.Context, prof *profile.Profile) error {
	logger := newLogger(prof)
	slog.SetDefault(logger)

	client, err := newInferenceClient(prof)
	if err != nil {
		return err
	}

	cfg := generation.DefaultConfig()
	cfg.ModelRoster = prof.ModelRoster
	engine := generation.NewService(client, cfg, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if prof.OptimizerAutostart {
		if err := engine.Optimizer().Start(ctx); err != nil {
			return err
		}
		defer func() {
			_ = engine.Optimizer().Stop()
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI: true, LogStatus: true, LogLatency: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("http request",
				"uri", v.URI,
				"status", v.Status,
				"duration_ms", v.Latency.Milliseconds(),
			)
			return nil
		},
	}))
	// Generation requests are expensive backend calls; throttle per client.
	e.Use(vfmiddleware.NewRateLimiter(10, 20).Middleware())

	apiv1.NewAPIV1Service(engine, logger).RegisterRoutes(e)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown failed", "error", err)
		}
	}()

	logger.Info("visionforge server starting",
		"version", prof.Version,
		"mode", prof.Mode,
		"addr", prof.ListenAddr(),
		"backend", prof.Backend,
	)

	if err := e.Start(prof.ListenAddr()); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func newLogger(prof *profile.Profile) *slog.Logger {
	level := slog.LevelInfo
	if prof.IsDev() {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func newInferenceClient(prof *profile.Profile) (inference.Client, error) {
	if prof.Backend == profile.BackendMock {
		return inference.NewMockClient(), nil
	}
	return inference.NewProvider(&inference.Config{
		BaseURL:           prof.BackendBaseURL,
		APIKey:            prof.BackendAPIKey,
		Model:             prof.BackendModel,
		RequestsPerSecond: prof.BackendRequestsPerSecond,
	})
}
