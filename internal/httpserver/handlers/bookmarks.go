package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/canon/internal/httpserver/mw"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

// ListBookmarks returns the user's canonical bookmarks, promoting pending staging
// rows first when the canonical set is empty.
func ListBookmarks(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mw.UserID(r.Context())

		resp, err := d.Gate.GetCanonicalBookmarksWithAutoTransfer(r.Context(), userID)
		if err != nil {
			d.Logger.Error("failed to read canonical bookmarks",
				logger.String("user_id", userID),
				logger.Error(err))
			writeError(w, d.Logger, http.StatusInternalServerError, "failed to load bookmarks")
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, resp)
	}
}

// GetBookmark returns one canonical bookmark of the user.
func GetBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := d.Reader.GetByID(r.Context(), mw.UserID(r.Context()), chi.URLParam(r, "id"))
		if err != nil {
			writeServiceError(w, d.Logger, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, b)
	}
}

// AddBookmark validates and upserts a bookmark sent directly by a client. It answers
// 201 for a new row and 200 when an existing row was updated.
func AddBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, d.Logger, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		b, created, err := d.Bookmarks.Add(r.Context(), mw.UserID(r.Context()), body)
		if err != nil {
			writeServiceError(w, d.Logger, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		writeJSON(w, d.Logger, status, b)
	}
}

// PatchBookmark applies an insight update to an existing bookmark.
func PatchBookmark(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in domain.Insights
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			writeError(w, d.Logger, http.StatusBadRequest, "invalid JSON body")
			return
		}

		b, err := d.Bookmarks.ApplyInsights(r.Context(), mw.UserID(r.Context()), chi.URLParam(r, "id"), &in)
		if err != nil {
			writeServiceError(w, d.Logger, err)
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, b)
	}
}
