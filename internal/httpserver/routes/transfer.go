package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/canon/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/canon/internal/httpserver/mw"
)

func init() { Register("transfer", registerTransfer, mw.RequireUser) }

func registerTransfer(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:        d.TransferLimit.Burst,
		RefillPerMin: d.TransferLimit.RefillPerMin,
		MaxEntries:   10000,
		TrustProxy:   d.TrustProxy,
		Key:          mw.UserKey,
	})

	r = r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	r.With(limit).Post("/bookmarks/transfer", handlers.Transfer(d))
	r.Get("/bookmarks/transfer/last", handlers.LastTransfer(d))
}
