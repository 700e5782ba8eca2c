package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/service"
)

type patchRequest struct {
	Updates map[string]any `json:"updates"`
}

type rejectedField struct {
	Path   string `json:"path"`
	Value  any    `json:"value,omitempty"`
	Reason string `json:"reason"`
}

type applyResponse struct {
	Profile   *domain.TripProfile `json:"profile"`
	Applied   []string            `json:"applied"`
	Rejected  []rejectedField     `json:"rejected"`
	Changed   bool                `json:"changed"`
	NextStage domain.Stage        `json:"nextStage"`
}

type missingResponse struct {
	Stage   domain.Stage             `json:"stage"`
	Missing []domain.FieldDescriptor `json:"missing"`
}

type nextStageResponse struct {
	NextStage domain.Stage             `json:"nextStage"`
	Missing   []domain.FieldDescriptor `json:"missing"`
}

type summaryResponse struct {
	ID        string       `json:"id"`
	NextStage domain.Stage `json:"nextStage"`
	UpdatedAt string       `json:"updatedAt"`
}

func toApplyResponse(res *service.ApplyResult) applyResponse {
	out := applyResponse{
		Profile:   res.Profile,
		Applied:   res.Applied,
		Rejected:  make([]rejectedField, 0, len(res.Rejected)),
		Changed:   res.Changed,
		NextStage: res.NextStage,
	}
	if out.Applied == nil {
		out.Applied = []string{}
	}
	for _, fe := range res.Rejected {
		out.Rejected = append(out.Rejected, rejectedField{Path: fe.Path, Value: fe.Value, Reason: fe.Err.Error()})
	}
	return out
}

// GET /profiles?limit=N
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "validation_error", "limit must be a positive number")
			return
		}
		limit = min(n, 500)
	}

	list, err := s.profiles.List(r.Context(), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	out := make([]summaryResponse, 0, len(list))
	for _, p := range list {
		out = append(out, summaryResponse{
			ID:        p.ID,
			NextStage: p.NextStage,
			UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// GET /profiles/{id}
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// PATCH /profiles/{id}, тело {"updates": {"path": value}}.
// Отказы по полям - это 200 с rejected, а не ошибка запроса.
func (s *Server) handlePatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxBody)

	var req patchRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "validation_error", "body must be {\"updates\": {...}}")
		return
	}
	if req.Updates == nil {
		writeError(w, http.StatusBadRequest, "validation_error", "updates is required")
		return
	}

	res, err := s.profiles.ApplyUpdates(r.Context(), chi.URLParam(r, "id"), normalizeNumbers(req.Updates))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toApplyResponse(res))
}

// DELETE /profiles/{id}
func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.profiles.Reset(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /profiles/{id}/missing?stage=PERSONAL_INFO, без stage - следующий этап
func (s *Server) handleMissing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var stage domain.Stage
	if v := r.URL.Query().Get("stage"); v != "" {
		parsed, err := domain.ParseStage(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "unknown stage "+strconv.Quote(v))
			return
		}
		stage = parsed
	} else {
		next, err := s.profiles.NextStage(r.Context(), id)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		stage = next
	}

	missing, err := s.profiles.MissingFields(r.Context(), id, stage)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, missingResponse{Stage: stage, Missing: nonNil(missing)})
}

// GET /profiles/{id}/next-stage
func (s *Server) handleNextStage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := s.profiles.Get(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	next := p.NextStage()
	var missing []domain.FieldDescriptor
	if next != domain.StageDone {
		missing = p.MissingFields(next)
	}
	writeJSON(w, http.StatusOK, nextStageResponse{NextStage: next, Missing: nonNil(missing)})
}

// GET /profiles/{id}/stages
func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	report, err := s.profiles.StageReport(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// POST /profiles/{id}/travelers - пересобрать список по счетчикам
func (s *Server) handleTravelers(w http.ResponseWriter, r *http.Request) {
	p, err := s.profiles.SetupTravelersFromCounts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func nonNil(f []domain.FieldDescriptor) []domain.FieldDescriptor {
	if f == nil {
		return []domain.FieldDescriptor{}
	}
	return f
}

// normalizeNumbers - json.Number в int или float64, как их ждет движок
func normalizeNumbers(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalizeValue(v)
	}
	return m
}

func normalizeValue(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return int(i)
		}
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		return normalizeNumbers(val)
	case []any:
		for i := range val {
			val[i] = normalizeValue(val[i])
		}
		return val
	}
	return v
}
