package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/user-management/api/controllers"
	"github.com/angelmondragon/user-management/api/middleware"
	"github.com/angelmondragon/user-management/api/responses"
	"github.com/angelmondragon/user-management/internal/health"
	"github.com/angelmondragon/user-management/internal/users"
	"github.com/angelmondragon/user-management/pkg/config"
	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
	"github.com/angelmondragon/user-management/pkg/logger"
	"github.com/angelmondragon/user-management/pkg/metrics"
)

// HealthChecker is satisfied by *health.Service.
type HealthChecker interface {
	Check(ctx context.Context) (health.Report, error)
}

// Dependencies are the services the router dispatches to. RateStore,
// HTTPMetrics and Gatherer are optional; leave RateStore unset rather than
// assigning a nil *redis.Client.
type Dependencies struct {
	Users       users.Service
	Health      HealthChecker
	RateStore   middleware.RateLimitStore
	HTTPMetrics *metrics.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)
	if deps.HTTPMetrics != nil {
		r.Use(middleware.Metrics(deps.HTTPMetrics))
	}
	r.Use(middleware.CORS(cfg.App.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeNotFound, "route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		err := pkgerrors.Newf(pkgerrors.CodeMethodNotAllowed, "Method %s not allowed on %s", r.Method, r.URL.Path)
		responses.WriteError(r.Context(), nil, w, err)
	})

	r.Get("/ping", controllers.Ping())

	if deps.Health != nil {
		ready := controllers.HealthReady(cfg.App.Env, deps.Health, logg)
		r.Route("/health", func(r chi.Router) {
			r.Get("/live", controllers.HealthLive(cfg.App.Env))
			r.Get("/ready", ready)
		})
		r.Get("/status", ready)
	}

	if cfg.Metrics.Enabled && deps.Gatherer != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, metrics.Handler(deps.Gatherer))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit.Enabled {
			r.Use(middleware.RateLimit(middleware.RateLimitPolicy{
				Name:     "api",
				Requests: cfg.RateLimit.Requests,
				Window:   cfg.RateLimit.Window,
				Burst:    cfg.RateLimit.Burst,
			}, deps.RateStore, logg))
		}

		r.Route("/users", func(r chi.Router) {
			r.Get("/", controllers.UserList(deps.Users, logg))
			r.Post("/", controllers.UserCreate(deps.Users, logg))
			r.Get("/{id}", controllers.UserGet(deps.Users, logg))
			r.Put("/{id}", controllers.UserUpdate(deps.Users, logg))
			r.Delete("/{id}", controllers.UserDelete(deps.Users, logg))
		})
	})

	return r
}
