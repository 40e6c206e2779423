package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/brandmix/internal/auth"
	"github.com/desertthunder/brandmix/internal/brands"
	"github.com/desertthunder/brandmix/internal/metrics"
	"github.com/desertthunder/brandmix/internal/recommend"
	"github.com/desertthunder/brandmix/internal/server"
	"github.com/desertthunder/brandmix/internal/services"
	"github.com/desertthunder/brandmix/internal/shared"
	"github.com/desertthunder/brandmix/internal/tasks"
)

// providerTimeout bounds a single outbound provider call.
const providerTimeout = 20 * time.Second

// Serve builds every component from config and runs the HTTP server until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return err
	}
	if v := cmd.Int("port"); v > 0 {
		config.Server.Port = int(v)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	shared.ConfigureLogger(r.logger, config.Log)

	handler, rl, states := r.buildHandler(config)

	sweepCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go rl.Run(sweepCtx)
	go sweepStates(sweepCtx, states, config.Server.StateTTL())

	srv := server.NewServer(config.Server.Addr(), handler, r.logger)
	return srv.Run(ctx)
}

func (r *Runner) buildHandler(config *shared.Config) (http.Handler, *server.RateLimiter, *auth.StateStore) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	client := &http.Client{Timeout: providerTimeout}
	spotify := services.NewSpotifyService(config.Credentials.Spotify.APIURL, client, collector)

	states := auth.NewStateStore(config.Server.StateTTL())
	metrics.RegisterPendingStates(reg, states.Len)

	tokens := auth.NewTokenService(config.Credentials.Spotify, states, spotify, client, shared.WithLogger(r.logger, "component", "auth"))
	store := brands.NewFileStore(config.Storage.BrandsDir, shared.WithLogger(r.logger, "component", "brands"))
	reconciler := tasks.NewReconciler(spotify, store, tasks.ConfigFrom(config.Reconcile), shared.WithLogger(r.logger, "component", "reconciler"), collector)

	var completer recommend.Completer
	if config.Credentials.Anthropic.Configured() {
		c, err := r.newCompleter(config.Credentials.Anthropic, &http.Client{Timeout: 2 * time.Minute})
		if err != nil {
			r.logger.Warn("language model disabled", "error", err)
		} else {
			completer = c
		}
	} else {
		r.logger.Warn("no anthropic api key configured, suggestions are disabled")
	}
	bridge := recommend.NewBridge(completer, shared.WithLogger(r.logger, "component", "recommend"), collector)

	rl := server.NewRateLimiter(config.Server.RateLimitPerMinute, config.Server.RateLimitBurst)
	handler := server.NewRouter(&server.RouterDeps{
		Logger:         shared.WithLogger(r.logger, "component", "http"),
		Metrics:        collector,
		MetricsHandler: metrics.Handler(reg),
		APIPrefix:      config.Server.APIPrefix,
		AllowedOrigins: config.Server.AllowedOrigins,
		RequestTimeout: config.Server.RequestTimeout(),
		RateLimiter:    rl,
		Tokens:         tokens,
		Search:         services.NewCatalogService(spotify),
		Playlists:      spotify,
		Tracks:         reconciler,
		Brands:         store,
		Suggester:      bridge,
		Reconciler:     reconciler,
		Health: &server.Health{
			Version:       Version,
			Started:       time.Now(),
			PendingStates: states.Len,
			LLMConfigured: bridge.Configured(),
		},
	})

	r.logger.Info("configured",
		"addr", config.Server.Addr(),
		"prefix", config.Server.APIPrefix,
		"brands_dir", config.Storage.BrandsDir,
		"llm", bridge.Configured(),
	)
	return handler, rl, states
}

// sweepStates drops expired OAuth states so the pending gauge reflects live logins.
func sweepStates(ctx context.Context, states *auth.StateStore, ttl time.Duration) {
	ticker := time.NewTicker(max(ttl/2, time.Second))
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			states.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	path := cmd.String("config")
	if path == "" || path == r.configPath {
		return r.config, nil
	}
	config, err := shared.ResolveConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}
	return config, nil
}
