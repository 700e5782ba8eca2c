package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/metrics"
	"github.com/kitbuilder587/travel-insurance-bot/internal/ratelimit"
	"github.com/kitbuilder587/travel-insurance-bot/internal/repository"
	"github.com/kitbuilder587/travel-insurance-bot/internal/service"
)

// ProfileService - операции движка, которые API отдает наружу
type ProfileService interface {
	Get(ctx context.Context, id string) (*domain.TripProfile, error)
	ApplyUpdates(ctx context.Context, id string, updates map[string]any) (*service.ApplyResult, error)
	MissingFields(ctx context.Context, id string, stage domain.Stage) ([]domain.FieldDescriptor, error)
	NextStage(ctx context.Context, id string) (domain.Stage, error)
	StageReport(ctx context.Context, id string) ([]domain.StageStatus, error)
	SetupTravelersFromCounts(ctx context.Context, id string) (*domain.TripProfile, error)
	Reset(ctx context.Context, id string) error
	List(ctx context.Context, limit int) ([]repository.ProfileSummary, error)
}

// Pinger - проверка хранилища для /healthz, может быть nil
type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	RequestsPerMinute int
	// лимит тела PATCH
	MaxBodyBytes int64
}

type Server struct {
	profiles ProfileService
	health   Pinger
	logger   *zap.Logger
	metrics  *metrics.Metrics
	limiter  *ratelimit.Limiter
	maxBody  int64
}

func NewServer(profiles ProfileService, health Pinger, cfg Config, logger *zap.Logger, m *metrics.Metrics) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	s := &Server{
		profiles: profiles,
		health:   health,
		logger:   logger,
		metrics:  m,
		maxBody:  cfg.MaxBodyBytes,
	}
	if cfg.RequestsPerMinute > 0 {
		s.limiter = ratelimit.New(ratelimit.Config{
			RequestsPerMinute: cfg.RequestsPerMinute,
			Source:            "http",
			Metrics:           m,
		})
	}
	return s
}

// Routes собирает роутер. Порядок middleware: RequestID, RealIP, лог, Recoverer.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(NewZapLogger(s.logger, s.metrics))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/profiles", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(RateLimit(s.limiter))
		}
		r.Get("/", s.handleList)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Patch("/", s.handlePatch)
			r.Delete("/", s.handleDelete)
			r.Get("/missing", s.handleMissing)
			r.Get("/next-stage", s.handleNextStage)
			r.Get("/stages", s.handleStages)
			r.Post("/travelers", s.handleTravelers)
		})
	})

	return r
}

func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Stop()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.health.Ping(ctx); err != nil {
			s.logger.Warn("health check failed", zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "unavailable", "storage is not reachable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
