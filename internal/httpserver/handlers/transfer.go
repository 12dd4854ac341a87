package handlers

import (
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/canon/internal/domain"
	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/canon/internal/httpserver/mw"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

// Transfer promotes the user's unorganized staging bookmarks. Per-record failures
// are part of the 200 summary; only a run that could not start is an error.
func Transfer(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mw.UserID(r.Context())

		res, err := d.Transfer.TransferUnorganizedBookmarks(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrTransferInProgress) {
				writeError(w, d.Logger, http.StatusConflict, err.Error())
				return
			}
			d.Logger.Error("transfer failed",
				logger.String("user_id", userID),
				logger.Error(err))
			writeError(w, d.Logger, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, res)
	}
}

// LastTransfer returns the summary of the user's last finished run.
func LastTransfer(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.LastRuns == nil {
			writeError(w, d.Logger, http.StatusNotFound, "no transfer history available")
			return
		}

		summary, err := d.LastRuns.GetLastRun(r.Context(), mw.UserID(r.Context()))
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, d.Logger, http.StatusNotFound, "no transfer recorded")
				return
			}
			d.Logger.Error("failed to read last transfer", logger.Error(err))
			writeError(w, d.Logger, http.StatusInternalServerError, "failed to read last transfer")
			return
		}
		writeJSON(w, d.Logger, http.StatusOK, summary)
	}
}
