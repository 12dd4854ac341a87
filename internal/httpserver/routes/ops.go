package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/canon/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/canon/internal/httpserver/mw"
)

func init() { Register("ops", registerOps) }

func registerOps(r chi.Router, d deps.Deps) {
	r.Get("/healthz", handlers.Healthz(d))

	restricted := r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))
	restricted.Post("/staging/import", handlers.TriggerImport(d))
	if d.Metrics != nil {
		restricted.Method(http.MethodGet, "/metrics", d.Metrics.Handler())
	}
}
