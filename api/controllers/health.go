package controllers

import (
	"net/http"

	"github.com/quickmart-dev/quickmart-backend/api/responses"
	"github.com/quickmart-dev/quickmart-backend/pkg/db"
	pkgerrors "github.com/quickmart-dev/quickmart-backend/pkg/errors"
	"github.com/quickmart-dev/quickmart-backend/pkg/logger"
	"github.com/quickmart-dev/quickmart-backend/pkg/redis"
)

// HealthLive reports process liveness.
func HealthLive() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, "ok", map[string]string{"status": "live"})
	}
}

// HealthReady reports readiness by pinging the datasources.
func HealthReady(database db.Pinger, cache redis.Pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if database != nil {
			if err := database.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unavailable"))
				return
			}
		}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, "ok", map[string]string{"status": "ready"})
	}
}
