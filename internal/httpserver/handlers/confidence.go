package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/canon/internal/confidence"
	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/canon/internal/httpserver/mw"
)

// Rescore recomputes the confidence of a bookmark. The body is an optional
// scoring context; an empty body scores with defaults.
func Rescore(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sc confidence.Context
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&sc); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, d.Logger, http.StatusBadRequest, "invalid scoring context")
			return
		}

		b, err := d.Confidence.Rescore(r.Context(), mw.UserID(r.Context()), chi.URLParam(r, "id"), sc)
		if err != nil {
			writeServiceError(w, d.Logger, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, b)
	}
}
