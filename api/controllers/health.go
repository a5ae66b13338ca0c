package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/mvalverde/agrolink-backend/api/responses"
	"github.com/mvalverde/agrolink-backend/pkg/config"
	"github.com/mvalverde/agrolink-backend/pkg/logger"
)

const readyCheckTimeout = 3 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AgroLink-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every hard dependency. A nil pinger is reported as
// skipped so local setups without the full stack still come up ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, db, redis, pubsub, gcs pinger) http.HandlerFunc {
	checks := []struct {
		name   string
		pinger pinger
	}{
		{name: "db", pinger: db},
		{name: "redis", pinger: redis},
		{name: "pubsub", pinger: pubsub},
		{name: "gcs", pinger: gcs},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-AgroLink-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyCheckTimeout)
		defer cancel()

		statuses := make(map[string]string, len(checks))
		ready := true
		for _, check := range checks {
			if check.pinger == nil {
				statuses[check.name] = "skipped"
				continue
			}
			if err := check.pinger.Ping(ctx); err != nil {
				statuses[check.name] = "down"
				ready = false
				if logg != nil {
					logg.Error(logg.WithField(ctx, "dependency", check.name), "readiness check failed", err)
				}
				continue
			}
			statuses[check.name] = "ok"
		}

		payload := map[string]any{"status": "ready", "checks": statuses}
		if !ready {
			payload["status"] = "degraded"
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, payload)
			return
		}
		responses.WriteSuccess(w, payload)
	}
}
