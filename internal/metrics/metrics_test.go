package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func findFamily(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	t.Fatalf("%s metric not found", name)
	return nil
}

func TestCollector(t *testing.T) {
	t.Run("HTTP Requests", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := NewCollector(reg)

		c.RecordHTTPRequest("/health", "GET", 200, 5*time.Millisecond)
		c.RecordHTTPRequest("/health", "GET", 200, 5*time.Millisecond)
		c.RecordHTTPRequest("/brands", "POST", 409, time.Millisecond)

		mf := findFamily(t, reg, "brandmix_http_requests_total")
		if len(mf.GetMetric()) != 2 {
			t.Fatalf("expected 2 label sets, got %d", len(mf.GetMetric()))
		}

		var total float64
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		if total != 3 {
			t.Errorf("http_requests_total = %v, want 3", total)
		}
	})

	t.Run("Provider Calls", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := NewCollector(reg)

		c.RecordProviderCall("spotify", "/search", 429, 10*time.Millisecond)

		mf := findFamily(t, reg, "brandmix_provider_calls_total")
		labels := mf.GetMetric()[0].GetLabel()
		got := map[string]string{}
		for _, l := range labels {
			got[l.GetName()] = l.GetValue()
		}
		if got["status_code"] != "429" || got["endpoint"] != "/search" {
			t.Errorf("unexpected labels %v", got)
		}

		hist := findFamily(t, reg, "brandmix_provider_call_duration_seconds")
		if n := hist.GetMetric()[0].GetHistogram().GetSampleCount(); n != 1 {
			t.Errorf("expected 1 latency sample, got %d", n)
		}
	})

	t.Run("Reconciles And Suggestions", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := NewCollector(reg)

		c.RecordReconcile("created")
		c.RecordSuggestions(7)
		c.RecordSuggestions(3)

		if v := findFamily(t, reg, "brandmix_reconciliations_total").GetMetric()[0].GetCounter().GetValue(); v != 1 {
			t.Errorf("reconciliations_total = %v, want 1", v)
		}
		if v := findFamily(t, reg, "brandmix_suggestions_parsed_total").GetMetric()[0].GetCounter().GetValue(); v != 10 {
			t.Errorf("suggestions_parsed_total = %v, want 10", v)
		}
	})

	t.Run("Pending States Gauge", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		pending := 4
		RegisterPendingStates(reg, func() int { return pending })

		if v := findFamily(t, reg, "brandmix_oauth_pending_states").GetMetric()[0].GetGauge().GetValue(); v != 4 {
			t.Errorf("pending states = %v, want 4", v)
		}

		pending = 1
		if v := findFamily(t, reg, "brandmix_oauth_pending_states").GetMetric()[0].GetGauge().GetValue(); v != 1 {
			t.Errorf("pending states = %v, want 1", v)
		}
	})

	t.Run("Handler", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		c := NewCollector(reg)
		c.RecordReconcile("updated")

		rec := httptest.NewRecorder()
		Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body, _ := io.ReadAll(rec.Body)
		if !strings.Contains(string(body), `brandmix_reconciliations_total{outcome="updated"} 1`) {
			t.Errorf("expected reconciliation sample in output, got:\n%s", body)
		}
	})
}
