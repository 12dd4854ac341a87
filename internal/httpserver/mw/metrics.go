package mw

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RequestObserver records one observation per served request.
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int)
}

// Metrics labels requests by their chi route pattern, so path parameters do not
// explode label cardinality. Unmatched requests are labelled "unmatched".
func Metrics(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if obs == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := &statusWriter{ResponseWriter: w}
			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.status
			if status == 0 {
				status = http.StatusOK
			}
			obs.ObserveHTTPRequest(r.Method, route, status)
		})
	}
}
