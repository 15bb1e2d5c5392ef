package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/calorielens-backend/api/routes"
	"github.com/angelmondragon/calorielens-backend/internal/analysis"
	"github.com/angelmondragon/calorielens-backend/internal/identity"
	"github.com/angelmondragon/calorielens-backend/internal/nutritionlogs"
	"github.com/angelmondragon/calorielens-backend/pkg/auth/session"
	"github.com/angelmondragon/calorielens-backend/pkg/config"
	"github.com/angelmondragon/calorielens-backend/pkg/db"
	"github.com/angelmondragon/calorielens-backend/pkg/db/models"
	"github.com/angelmondragon/calorielens-backend/pkg/gemini"
	"github.com/angelmondragon/calorielens-backend/pkg/instance"
	"github.com/angelmondragon/calorielens-backend/pkg/logger"
	"github.com/angelmondragon/calorielens-backend/pkg/metrics"
	"github.com/angelmondragon/calorielens-backend/pkg/migrate"
	"github.com/angelmondragon/calorielens-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	loc, err := cfg.App.Location()
	if err != nil {
		logg.Error(context.Background(), "invalid timezone", err)
		os.Exit(1)
	}

	dbOpts := db.Options{UseSQLite: cfg.FeatureFlags.UseSQLite}
	if cfg.FeatureFlags.UseSQLite {
		dbOpts.AutoMigrateModels = []any{&models.NutritionLog{}}
	}
	dbClient, err := db.New(context.Background(), cfg.DB, dbOpts, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := multierr.Combine(redisClient.Close(), dbClient.Close()); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	identityProvider, err := identity.NewTokenProvider(cfg.JWT, cfg.Identity, sessionManager)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity provider", err)
		os.Exit(1)
	}

	m := metrics.NewAnalysisMetrics(prometheus.DefaultRegisterer)

	analysisService, err := buildAnalysis(cfg, logg, redisClient, m)
	if err != nil {
		logg.Error(context.Background(), "failed to create analysis service", err)
		os.Exit(1)
	}

	logsService, err := nutritionlogs.NewService(nutritionlogs.NewRepository(dbClient.DB()), logg, m, loc)
	if err != nil {
		logg.Error(context.Background(), "failed to create nutrition logs service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID(),
		"timezone": loc.String(),
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Dependencies{
			DB:            dbClient,
			Redis:         redisClient,
			Identity:      identityProvider,
			Analysis:      analysisService,
			NutritionLogs: logsService,
			Gatherer:      prometheus.DefaultGatherer,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

// buildAnalysis wires the Gemini-backed service. Without an API key the API
// still starts and analysis requests fail with a configuration error.
func buildAnalysis(cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, m *metrics.AnalysisMetrics) (analysis.Service, error) {
	if !cfg.Gemini.Configured() {
		logg.Warn(context.Background(), "gemini api key missing; photo analysis disabled")
		return analysis.Unconfigured(), nil
	}

	client, err := gemini.NewClient(cfg.Gemini.APIKey,
		gemini.WithBaseURL(cfg.Gemini.BaseURL),
		gemini.WithModel(cfg.Gemini.Model),
		gemini.WithTimeout(cfg.Gemini.Timeout),
	)
	if err != nil {
		return nil, err
	}

	slot, err := analysis.NewResultSlot(redisClient, redisClient, cfg.Analysis.ResultTTL, redis.IsNil)
	if err != nil {
		return nil, err
	}

	return analysis.NewService(client, slot, analysis.Options{
		Temperature:     &cfg.Gemini.Temperature,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		Timeout:         cfg.Gemini.Timeout,
	}, logg, m)
}
