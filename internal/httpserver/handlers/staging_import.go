package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
	"github.com/MrSnakeDoc/canon/internal/logger"
)

type importResponse struct {
	Status string `json:"status"`
}

// TriggerImport asks the staging importer to reload the export now.
func TriggerImport(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.ImportTrigger == nil {
			writeError(w, d.Logger, http.StatusNotFound, "staging import is not configured")
			return
		}

		select {
		case d.ImportTrigger <- struct{}{}:
			d.Logger.Info("manual staging import triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, d.Logger, http.StatusAccepted, importResponse{Status: "import triggered"})
		default:
			d.Logger.Warn("staging import already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			writeJSON(w, d.Logger, http.StatusTooManyRequests, importResponse{Status: "import already in progress"})
		}
	}
}
