package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()

	m.ObserveRun("ok", 2*time.Second)
	m.ObserveRun("ok", time.Second)
	m.ObserveRun("locked", 0)
	m.ObserveRecord("promoted")
	m.ObserveEnrichment("skipped")
	m.ObserveEnrichmentCache("hit")
	m.ObserveAutoTransfer()
	m.ObserveStagingImport(3)
	m.ObserveHTTPRequest("GET", "/bookmarks", 503)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"runs ok", testutil.ToFloat64(m.transferRuns.WithLabelValues("ok")), 2},
		{"runs locked", testutil.ToFloat64(m.transferRuns.WithLabelValues("locked")), 1},
		{"records", testutil.ToFloat64(m.transferRecords.WithLabelValues("promoted")), 1},
		{"enrichment", testutil.ToFloat64(m.enrichment.WithLabelValues("skipped")), 1},
		{"cache", testutil.ToFloat64(m.enrichmentCache.WithLabelValues("hit")), 1},
		{"auto transfers", testutil.ToFloat64(m.autoTransfers), 1},
		{"staging imported", testutil.ToFloat64(m.stagingImported), 3},
		{"http", testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/bookmarks", "5xx")), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestHandlerExposesNamespace(t *testing.T) {
	m := New()
	m.ObserveAutoTransfer()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "canon_gate_auto_transfers_total 1") {
		t.Errorf("expected gate counter in exposition, got:\n%s", body)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := map[int]string{200: "2xx", 204: "2xx", 302: "3xx", 404: "4xx", 429: "4xx", 500: "5xx"}
	for status, want := range tests {
		if got := statusLabel(status); got != want {
			t.Errorf("statusLabel(%d) = %q, want %q", status, got, want)
		}
	}
}
