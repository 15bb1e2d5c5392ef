package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/calorielens-backend/api/controllers"
	"github.com/angelmondragon/calorielens-backend/api/middleware"
	"github.com/angelmondragon/calorielens-backend/internal/analysis"
	"github.com/angelmondragon/calorielens-backend/internal/identity"
	"github.com/angelmondragon/calorielens-backend/internal/nutritionlogs"
	"github.com/angelmondragon/calorielens-backend/pkg/config"
	"github.com/angelmondragon/calorielens-backend/pkg/logger"
	"github.com/angelmondragon/calorielens-backend/pkg/redis"
)

type identityProvider interface {
	identity.Provider
	MintDevToken(userID, email, name string) (string, error)
}

// Dependencies are the services the router mounts. Nil pingers are skipped
// by the readiness probe.
type Dependencies struct {
	DB            controllers.Pinger
	Redis         *redis.Client
	Identity      identityProvider
	Analysis      analysis.Service
	NutritionLogs nutritionlogs.Service
	// Gatherer backs /metrics; nil means the default registry.
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	ready := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		ready["redis"] = deps.Redis
	}
	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, ready, logg))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
	})

	if cfg.FeatureFlags.DevTokens && !cfg.App.IsProd() && deps.Identity != nil {
		r.Post("/api/dev/token", controllers.DevToken(deps.Identity, logg))
	}

	defaultLoc, err := cfg.App.Location()
	if err != nil {
		defaultLoc = time.UTC
	}

	// Middleware that needs the final route pattern is attached per route
	// with With, after chi has matched it.
	var (
		idempotency = middleware.Idempotency(nil, logg)
		analysisRL  = middleware.RateLimit(middleware.RateLimitPolicy{}, nil, logg)
	)
	if deps.Redis != nil {
		idempotency = middleware.Idempotency(deps.Redis, logg)
		analysisRL = middleware.RateLimit(
			middleware.NewRateLimitPolicy("analysis", cfg.RateLimit.AnalysisWindow, cfg.RateLimit.AnalysisLimit),
			deps.Redis,
			logg,
		)
	}

	r.Get("/api/v1/auth/signin/{provider}", controllers.AuthSignIn(deps.Identity, logg))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(deps.Identity, logg))

		r.Get("/ping", controllers.PrivatePing())
		r.Get("/auth/me", controllers.AuthMe(logg))
		r.Post("/auth/logout", controllers.AuthLogout(deps.Identity, logg))

		r.With(analysisRL).Post("/analyses", controllers.AnalyzePhoto(deps.Analysis, cfg.App.MaxUploadBytes(), logg))
		r.Get("/analyses/latest", controllers.LatestAnalysis(deps.Analysis, logg))

		r.With(idempotency).Post("/nutrition/logs", controllers.SaveNutritionLog(deps.NutritionLogs, logg))
		r.Get("/nutrition/logs", controllers.ListNutritionLogs(deps.NutritionLogs, logg))
		r.Get("/nutrition/daily", controllers.DailyTotals(deps.NutritionLogs, defaultLoc, logg))
	})

	return r
}
