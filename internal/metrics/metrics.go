package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "travel_bot"

// Metrics - все метрики бота. Методы можно звать на nil.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	FieldUpdatesTotal *prometheus.CounterVec
	NextStageTotal    *prometheus.CounterVec
	ProfileOpDuration *prometheus.HistogramVec

	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec

	InsurerRequestsTotal   *prometheus.CounterVec
	InsurerRequestDuration *prometheus.HistogramVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter

	RateLimitHitsTotal *prometheus.CounterVec

	registry prometheus.Gatherer
}

// New регистрирует метрики в reg. nil - дефолтный регистр prometheus.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	m := &Metrics{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of requests processed",
			},
			[]string{"type", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Request duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"type"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "requests_in_flight",
				Help:      "Number of requests currently being processed",
			},
		),

		FieldUpdatesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profile_field_updates_total",
				Help:      "Profile field updates by outcome",
			},
			[]string{"outcome"},
		),
		NextStageTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "profile_next_stage_total",
				Help:      "Next stage decisions by stage",
			},
			[]string{"stage"},
		),
		ProfileOpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "profile_operation_duration_seconds",
				Help:      "Profile engine operation duration including storage",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"operation"},
		),

		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "llm_requests_total",
				Help:      "Total number of LLM API requests",
			},
			[]string{"agent", "status"},
		),
		LLMRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "LLM request duration in seconds",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"agent"},
		),

		InsurerRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "insurer_requests_total",
				Help:      "Total number of insurer API requests",
			},
			[]string{"operation", "status"},
		),
		InsurerRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "insurer_request_duration_seconds",
				Help:      "Insurer request duration in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"operation"},
		),

		CacheHitsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of profile cache hits",
			},
		),
		CacheMissesTotal: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of profile cache misses",
			},
		),

		RateLimitHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rate_limit_hits_total",
				Help:      "Total number of rate limit hits",
			},
			[]string{"source"},
		),
	}

	if g, ok := reg.(prometheus.Gatherer); ok {
		m.registry = g
	}
	return m
}

// NewNop - метрики в отдельном регистре, для тестов
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}

// Handler отдает метрики того регистра, в котором они созданы
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordRequest(reqType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(reqType, status).Inc()
	m.RequestDuration.WithLabelValues(reqType).Observe(duration.Seconds())
}

func (m *Metrics) RecordFieldUpdates(applied, rejected int) {
	if m == nil {
		return
	}
	m.FieldUpdatesTotal.WithLabelValues("applied").Add(float64(applied))
	m.FieldUpdatesTotal.WithLabelValues("rejected").Add(float64(rejected))
}

func (m *Metrics) RecordNextStage(stage string) {
	if m == nil {
		return
	}
	m.NextStageTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordProfileOp(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.ProfileOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *Metrics) RecordLLMRequest(agent, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LLMRequestsTotal.WithLabelValues(agent, status).Inc()
	m.LLMRequestDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

func (m *Metrics) RecordInsurerRequest(op, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.InsurerRequestsTotal.WithLabelValues(op, status).Inc()
	m.InsurerRequestDuration.WithLabelValues(op).Observe(duration.Seconds())
}

func (m *Metrics) RecordCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	if m == nil {
		return
	}
	m.CacheMissesTotal.Inc()
}

func (m *Metrics) RecordRateLimitHit(source string) {
	if m == nil {
		return
	}
	m.RateLimitHitsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) IncRequestsInFlight() {
	if m == nil {
		return
	}
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	if m == nil {
		return
	}
	m.RequestsInFlight.Dec()
}
