package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

// group is one route file: its registrar plus the middlewares shared by its routes.
type group struct {
	name string
	reg  Registrar
	mws  []Middleware
}

var groups []group

// Register adds a named route group. Called from init in each route file.
func Register(name string, reg Registrar, mws ...Middleware) {
	groups = append(groups, group{name: name, reg: reg, mws: mws})
}

// RegisterAll mounts every group in its own chi group so middlewares never leak
// between groups. Called once from httpserver.NewRouter.
func RegisterAll(r chi.Router, d deps.Deps) {
	for _, g := range groups {
		r.Group(func(gr chi.Router) {
			gr.Use(g.mws...)
			g.reg(gr, d)
		})
		d.Logger.Debugf("routes: mounted %s (%d middlewares)", g.name, len(g.mws))
	}
}
