package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/user-management/api/responses"
	"github.com/angelmondragon/user-management/internal/health"
	"github.com/angelmondragon/user-management/pkg/logger"
)

const envHeader = "X-UserMgmt-Env"

type readinessChecker interface {
	Check(ctx context.Context) (health.Report, error)
}

// Ping answers without touching any dependency.
func Ping() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		responses.WriteSuccess(w, "pong")
	}
}

func HealthLive(env string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports dependency status. It answers 503 only when the
// record store is unreachable; a failing Redis is reported but tolerated.
func HealthReady(env string, checker readinessChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, env)
		report, err := checker.Check(r.Context())
		if err != nil && logg != nil {
			logg.Warn(logg.WithField(r.Context(), "error", err.Error()), "health.ready.degraded")
		}
		status := http.StatusOK
		if !report.Ready() {
			status = http.StatusServiceUnavailable
		}
		responses.WriteSuccessStatus(w, status, report)
	}
}
