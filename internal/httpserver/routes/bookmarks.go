package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/canon/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/canon/internal/httpserver/mw"
)

func init() { Register("bookmarks", registerBookmarks, mw.RequireUser) }

func registerBookmarks(r chi.Router, d deps.Deps) {
	r = r.With(mw.EnforceHost(d.AllowedHosts, d.Logger))
	r.Get("/bookmarks", handlers.ListBookmarks(d))
	r.Post("/bookmarks", handlers.AddBookmark(d))
	r.Get("/bookmarks/{id}", handlers.GetBookmark(d))
	r.Patch("/bookmarks/{id}", handlers.PatchBookmark(d))
	r.Post("/bookmarks/{id}/confidence", handlers.Rescore(d))
}
