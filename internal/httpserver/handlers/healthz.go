package handlers

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/canon/internal/version"
)

type healthzResponse struct {
	Status        string       `json:"status"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	Build         version.Info `json:"build"`
}

// Healthz is liveness only; dependency checks live in Readyz.
func Healthz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, d.Logger, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: int64(time.Since(d.StartTime).Seconds()),
			Build:         d.Build,
		})
	}
}
