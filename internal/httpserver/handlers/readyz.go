package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/canon/internal/httpserver/deps"
)

const checkTimeout = 2 * time.Second

type componentStatus struct {
	OK       bool   `json:"ok"`
	Critical bool   `json:"critical"`
	Error    string `json:"error,omitempty"`
}

type readyzResponse struct {
	Ready      bool                       `json:"ready"`
	Mode       string                     `json:"mode"`
	Components map[string]componentStatus `json:"components"`
}

// Readyz probes every configured dependency. A failing critical one answers 503;
// failing optional ones only switch the mode to "degraded".
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := readyzResponse{Ready: true, Mode: "optimal", Components: make(map[string]componentStatus, len(d.Checks))}

		for _, c := range d.Checks {
			status := componentStatus{OK: true, Critical: c.Critical}

			ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
			err := c.Ping(ctx)
			cancel()

			if err != nil {
				status.OK = false
				status.Error = err.Error()
				if c.Critical {
					resp.Ready = false
					resp.Mode = "critical"
				} else if resp.Mode == "optimal" {
					resp.Mode = "degraded"
				}
			}
			resp.Components[c.Name] = status
		}

		code := http.StatusOK
		if !resp.Ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, d.Logger, code, resp)
	}
}
