package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(body)
}

func TestMetrics_Record(t *testing.T) {
	m := NewNop()

	m.RecordFieldUpdates(3, 1)
	m.RecordNextStage("TRIP_INFO")
	m.RecordNextStage("TRIP_INFO")
	m.RecordInsurerRequest("price", "success", time.Second)
	m.RecordCacheHit()

	out := scrape(t, m)
	for _, want := range []string{
		`travel_bot_profile_field_updates_total{outcome="applied"} 3`,
		`travel_bot_profile_field_updates_total{outcome="rejected"} 1`,
		`travel_bot_profile_next_stage_total{stage="TRIP_INFO"} 2`,
		`travel_bot_insurer_requests_total{operation="price",status="success"} 1`,
		`travel_bot_cache_hits_total 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	m.RecordRequest("message", "ok", time.Millisecond)
	m.RecordFieldUpdates(1, 1)
	m.RecordNextStage("DONE")
	m.RecordProfileOp("apply", time.Millisecond)
	m.RecordLLMRequest("fields", "ok", time.Millisecond)
	m.RecordInsurerRequest("purchase", "error", time.Millisecond)
	m.RecordCacheMiss()
	m.RecordRateLimitHit("telegram")
	m.IncRequestsInFlight()
	m.DecRequestsInFlight()
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	a := NewNop()
	b := NewNop()

	a.RecordRequest("http", "200", 10*time.Millisecond)

	if !strings.Contains(scrape(t, a), "travel_bot_requests_total") {
		t.Error("registry a should expose requests_total")
	}
	if strings.Contains(scrape(t, b), `travel_bot_requests_total{`) {
		t.Error("registry b should not see samples from a")
	}
}
