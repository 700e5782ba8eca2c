package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/metrics"
	"github.com/kitbuilder587/travel-insurance-bot/internal/repository"
	"github.com/kitbuilder587/travel-insurance-bot/internal/service"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func newTestServer(t *testing.T, cfg Config) (http.Handler, *repository.MockProfileRepository) {
	t.Helper()
	repo := repository.NewMockProfileRepository()
	m := metrics.NewNop()
	engine := service.NewProfileEngine(repo, zap.NewNop(), m)
	srv := NewServer(engine, fakePinger{}, cfg, zap.NewNop(), m)
	t.Cleanup(srv.Close)
	return srv.Routes(), repo
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

const tripPatch = `{"updates": {
	"tripType": "SINGLE",
	"departureDate": "2026-03-01",
	"returnDate": "2026-03-08",
	"departureCountry": "SG",
	"arrivalCountry": "jp",
	"adultsCount": 2,
	"childrenCount": 0
}}`

func TestPatchProfile(t *testing.T) {
	h, _ := newTestServer(t, Config{})

	rec := do(t, h, http.MethodPatch, "/profiles/u1", tripPatch)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}

	res := decode[applyResponse](t, rec)
	if len(res.Applied) != 7 || len(res.Rejected) != 0 || !res.Changed {
		t.Errorf("response = %+v", res)
	}
	if res.NextStage != domain.StageNeedsAnalysis {
		t.Errorf("NextStage = %s", res.NextStage)
	}
	if res.Profile.ArrivalCountry != "JP" || *res.Profile.AdultsCount != 2 {
		t.Errorf("profile = %+v", res.Profile)
	}
}

func TestPatchProfile_PartialReject(t *testing.T) {
	h, _ := newTestServer(t, Config{})

	rec := do(t, h, http.MethodPatch, "/profiles/u1",
		`{"updates": {"arrivalCountry": "Narnia", "adultsCount": 1, "bogus": 1}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	res := decode[applyResponse](t, rec)
	if len(res.Applied) != 1 || res.Applied[0] != "adultsCount" {
		t.Errorf("Applied = %v", res.Applied)
	}
	if len(res.Rejected) != 2 {
		t.Fatalf("Rejected = %+v", res.Rejected)
	}
	for _, r := range res.Rejected {
		if r.Reason == "" {
			t.Errorf("rejected %s has no reason", r.Path)
		}
	}
}

func TestPatchProfile_BadRequests(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
	}{
		{"not json", "/profiles/u1", "nope", http.StatusBadRequest},
		{"no updates", "/profiles/u1", `{"foo": 1}`, http.StatusBadRequest},
		{"blank id", "/profiles/%20", `{"updates": {"adultsCount": 1}}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestServer(t, Config{})
			rec := do(t, h, http.MethodPatch, tt.path, tt.body)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d, body = %s", rec.Code, tt.wantCode, rec.Body)
			}
			errBody := decode[errorResponse](t, rec)
			if errBody.Error.Code == "" {
				t.Error("error code should be set")
			}
		})
	}
}

func TestPatchProfile_BodyTooLarge(t *testing.T) {
	h, _ := newTestServer(t, Config{MaxBodyBytes: 32})

	rec := do(t, h, http.MethodPatch, "/profiles/u1", tripPatch)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestPatchProfile_StorageError(t *testing.T) {
	h, repo := newTestServer(t, Config{})
	repo.SaveErr = errors.New("disk full")

	rec := do(t, h, http.MethodPatch, "/profiles/u1", tripPatch)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk full") {
		t.Error("internal error details must not leak")
	}
}

func TestGetProfile_Unknown(t *testing.T) {
	h, _ := newTestServer(t, Config{})

	rec := do(t, h, http.MethodGet, "/profiles/ghost", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	p := decode[domain.TripProfile](t, rec)
	if p.ID != "ghost" || len(p.Needs) != len(domain.NeedTags) {
		t.Errorf("profile = %+v", p)
	}
}

func TestStageEndpoints(t *testing.T) {
	h, _ := newTestServer(t, Config{})
	do(t, h, http.MethodPatch, "/profiles/u1", tripPatch)

	t.Run("next stage", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/profiles/u1/next-stage", "")
		res := decode[nextStageResponse](t, rec)
		if res.NextStage != domain.StageNeedsAnalysis {
			t.Errorf("NextStage = %s", res.NextStage)
		}
		if len(res.Missing) != 1 || res.Missing[0].Path != domain.FieldNeedsAnalyzed {
			t.Errorf("Missing = %+v", res.Missing)
		}
	})

	t.Run("missing for stage", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/profiles/u1/missing?stage=contact_info", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		res := decode[missingResponse](t, rec)
		if res.Stage != domain.StageContactInfo || len(res.Missing) == 0 {
			t.Errorf("response = %+v", res)
		}
	})

	t.Run("missing unknown stage", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/profiles/u1/missing?stage=COVERAGE", "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("stages", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/profiles/u1/stages", "")
		report := decode[[]domain.StageStatus](t, rec)
		if len(report) != len(domain.Stages) || !report[0].Complete {
			t.Errorf("report = %+v", report)
		}
	})
}

func TestSetupTravelers(t *testing.T) {
	h, _ := newTestServer(t, Config{})

	rec := do(t, h, http.MethodPost, "/profiles/u1/travelers", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("without counts status = %d, want 422", rec.Code)
	}

	do(t, h, http.MethodPatch, "/profiles/u1", tripPatch)
	rec = do(t, h, http.MethodPost, "/profiles/u1/travelers", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body)
	}
	p := decode[domain.TripProfile](t, rec)
	if len(p.Travelers) != 2 || p.Travelers[0].Relationship != domain.RelationshipMain {
		t.Errorf("Travelers = %+v", p.Travelers)
	}
}

func TestDeleteAndList(t *testing.T) {
	h, _ := newTestServer(t, Config{})
	do(t, h, http.MethodPatch, "/profiles/u1", tripPatch)
	do(t, h, http.MethodPatch, "/profiles/u2", `{"updates": {"adultsCount": 1}}`)

	list := decode[[]summaryResponse](t, do(t, h, http.MethodGet, "/profiles?limit=10", ""))
	if len(list) != 2 {
		t.Fatalf("list = %+v", list)
	}

	rec := do(t, h, http.MethodDelete, "/profiles/u1", "")
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	list = decode[[]summaryResponse](t, do(t, h, http.MethodGet, "/profiles", ""))
	if len(list) != 1 || list[0].ID != "u2" {
		t.Errorf("list after delete = %+v", list)
	}

	if rec := do(t, h, http.MethodGet, "/profiles?limit=-1", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h, _ := newTestServer(t, Config{})
	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}

	srv := NewServer(nil, fakePinger{err: errors.New("down")}, Config{}, nil, nil)
	if rec := do(t, srv.Routes(), http.MethodGet, "/healthz", ""); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("healthz with dead storage = %d, want 503", rec.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h, _ := newTestServer(t, Config{})
	do(t, h, http.MethodPatch, "/profiles/u1", tripPatch)

	rec := do(t, h, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "travel_bot_profile_field_updates_total") {
		t.Error("metrics should include field updates")
	}
}

func TestRateLimit(t *testing.T) {
	h, _ := newTestServer(t, Config{RequestsPerMinute: 2})

	for i := 0; i < 2; i++ {
		if rec := do(t, h, http.MethodGet, "/profiles/u1", ""); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d", i+1, rec.Code)
		}
	}
	rec := do(t, h, http.MethodGet, "/profiles/u1", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After should be set")
	}

	// health и метрики лимит не трогает
	if rec := do(t, h, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
}

func TestZapLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	h := NewZapLogger(zap.New(core), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("log entries = %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/healthz" || fields["status"] != int64(http.StatusTeapot) {
		t.Errorf("fields = %v", fields)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"192.0.2.1:1234", "192.0.2.1"},
		{"[::1]:80", "::1"},
		{"10.0.0.7", "10.0.0.7"},
	}
	for _, tt := range tests {
		if got := clientIP(tt.addr); got != tt.want {
			t.Errorf("clientIP(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}
