package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/coverage"
	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/insurer"
	"github.com/kitbuilder587/travel-insurance-bot/internal/metrics"
)

// SubmitFunc - через нее агенты сдают свои обновления в движок
type SubmitFunc func(ctx context.Context, agentName string, updates map[string]any) error

type AgentCoordinatorRequest struct {
	Text     string
	Profile  *domain.TripProfile
	Stage    domain.Stage
	Missing  []domain.FieldDescriptor
	Document bool
}

type CoordinatorResponse struct {
	AgentsUsed []string
	Failed     []string
}

type AgentCoordinator interface {
	Process(ctx context.Context, req AgentCoordinatorRequest, submit SubmitFunc) (*CoordinatorResponse, error)
}

type NeedsAnalyzer interface {
	AnalyzeNeeds(ctx context.Context, p *domain.TripProfile, text string) (map[string]any, error)
}

type Event string

const (
	EventNeedsAnalyzed    Event = "needs_analyzed"
	EventTravelersReady   Event = "travelers_ready"
	EventQuoted           Event = "quoted"
	EventQuoteCleared     Event = "quote_cleared"
	EventPaymentCompleted Event = "payment_completed"
	EventPaymentFailed    Event = "payment_failed"
	EventPurchased        Event = "purchased"
)

// Reply - итог одного хода диалога: что применили, что отклонили, куда дальше
type Reply struct {
	Profile    *domain.TripProfile
	Applied    []string
	Rejected   []*domain.FieldError
	NextStage  domain.Stage
	Missing    []domain.FieldDescriptor
	Report     []domain.StageStatus
	Events     []Event
	Failures   []string
	AgentsUsed []string
}

func (r *Reply) absorb(res *ApplyResult) {
	r.Applied = append(r.Applied, res.Applied...)
	r.Rejected = append(r.Rejected, res.Rejected...)
}

type ConversationConfig struct {
	TurnTimeout      time.Duration
	MaxPipelineSteps int
}

type ConversationDeps struct {
	Engine      *ProfileEngine
	Coordinator AgentCoordinator
	Logger      *zap.Logger
	Metrics     *metrics.Metrics
	Config      ConversationConfig

	// опциональные компоненты
	Needs    NeedsAnalyzer
	Insurer  insurer.Client
	Payments insurer.PaymentGateway
}

// ConversationService ведет пользователя по этапам: разбирает сообщения
// агентами и запускает шаги конвейера, как только этап разблокирован.
type ConversationService struct {
	engine      *ProfileEngine
	coordinator AgentCoordinator
	needs       NeedsAnalyzer
	insurer     insurer.Client
	payments    insurer.PaymentGateway
	turns       *keyedLocks
	logger      *zap.Logger
	metrics     *metrics.Metrics
	config      ConversationConfig
}

// платежи по одной котировке получают один и тот же ключ идемпотентности
var paymentNamespace = uuid.MustParse("6f1c6f0e-3d1a-4e8b-9a57-2f5d1c0b7e21")

func NewConversationService(deps ConversationDeps) *ConversationService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Config.TurnTimeout == 0 {
		deps.Config.TurnTimeout = 2 * time.Minute
	}
	if deps.Config.MaxPipelineSteps == 0 {
		deps.Config.MaxPipelineSteps = 6
	}

	return &ConversationService{
		engine:      deps.Engine,
		coordinator: deps.Coordinator,
		needs:       deps.Needs,
		insurer:     deps.Insurer,
		payments:    deps.Payments,
		turns:       newKeyedLocks(),
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		config:      deps.Config,
	}
}

// HandleMessage - свободный текст пользователя
func (s *ConversationService) HandleMessage(ctx context.Context, id, text string) (*Reply, error) {
	return s.turn(ctx, "message", id, func(ctx context.Context, r *Reply) error {
		return s.extract(ctx, id, text, false, r)
	}, text)
}

// HandleDocument - текст паспорта, билета или брони
func (s *ConversationService) HandleDocument(ctx context.Context, id, text string) (*Reply, error) {
	return s.turn(ctx, "document", id, func(ctx context.Context, r *Reply) error {
		return s.extract(ctx, id, text, true, r)
	}, "")
}

// SetupTravelers - явный запрос пересобрать список по счетчикам
func (s *ConversationService) SetupTravelers(ctx context.Context, id string) (*Reply, error) {
	return s.turn(ctx, "travelers", id, func(ctx context.Context, r *Reply) error {
		if _, err := s.engine.SetupTravelersFromCounts(ctx, id); err != nil {
			return err
		}
		r.Events = append(r.Events, EventTravelersReady)
		return nil
	}, "")
}

// Pay списывает оплату по текущей котировке
func (s *ConversationService) Pay(ctx context.Context, id string) (*Reply, error) {
	return s.turn(ctx, "payment", id, func(ctx context.Context, r *Reply) error {
		return s.pay(ctx, id, r)
	}, "")
}

func (s *ConversationService) Status(ctx context.Context, id string) (*Reply, error) {
	r := &Reply{}
	if err := s.finish(ctx, id, r); err != nil {
		return nil, err
	}
	r.Report = r.Profile.StageReport()
	return r, nil
}

func (s *ConversationService) Reset(ctx context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	unlock := s.turns.Lock(id)
	defer unlock()
	return s.engine.Reset(ctx, id)
}

func (s *ConversationService) turn(ctx context.Context, kind, id string, body func(ctx context.Context, r *Reply) error, needsText string) (*Reply, error) {
	start := time.Now()
	s.metrics.IncRequestsInFlight()
	defer s.metrics.DecRequestsInFlight()

	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.TurnTimeout)
	defer cancel()

	// один ход на пользователя за раз, иначе два сообщения подряд запросят две котировки
	unlock := s.turns.Lock(id)
	defer unlock()

	r := &Reply{}
	if err := body(ctx, r); err != nil {
		s.metrics.RecordRequest(kind, "error", time.Since(start))
		return nil, err
	}
	if err := s.advance(ctx, id, needsText, r); err != nil {
		s.metrics.RecordRequest(kind, "error", time.Since(start))
		return nil, err
	}
	if err := s.finish(ctx, id, r); err != nil {
		s.metrics.RecordRequest(kind, "error", time.Since(start))
		return nil, err
	}

	s.metrics.RecordRequest(kind, "ok", time.Since(start))
	s.logger.Info("turn processed",
		zap.String("profile_id", id),
		zap.String("kind", kind),
		zap.Int("applied", len(r.Applied)),
		zap.Int("rejected", len(r.Rejected)),
		zap.String("stage", r.NextStage.String()),
	)
	return r, nil
}

func (s *ConversationService) extract(ctx context.Context, id, text string, document bool, r *Reply) error {
	if s.coordinator == nil {
		return nil
	}

	p, err := s.engine.Get(ctx, id)
	if err != nil {
		return err
	}
	stage := p.NextStage()

	var (
		mu        sync.Mutex
		submitErr error
	)
	submit := func(ctx context.Context, agentName string, updates map[string]any) error {
		res, err := s.engine.ApplyUpdates(ctx, id, updates)
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			submitErr = err
			return err
		}
		r.absorb(res)
		return nil
	}

	resp, err := s.coordinator.Process(ctx, AgentCoordinatorRequest{
		Text:     text,
		Profile:  p,
		Stage:    stage,
		Missing:  p.MissingFields(stage),
		Document: document,
	}, submit)
	if submitErr != nil {
		return submitErr
	}
	if resp != nil {
		r.AgentsUsed = resp.AgentsUsed
		for _, name := range resp.Failed {
			r.Failures = append(r.Failures, "agent "+name+" failed")
		}
	}
	if err != nil {
		s.logger.Warn("extraction failed", zap.String("profile_id", id), zap.Error(err))
		r.Failures = append(r.Failures, "could not read the message")
	}
	return nil
}

// advance крутит конвейер, пока очередной шаг что-то меняет
func (s *ConversationService) advance(ctx context.Context, id, text string, r *Reply) error {
	for i := 0; i < s.config.MaxPipelineSteps; i++ {
		p, err := s.engine.Get(ctx, id)
		if err != nil {
			return err
		}
		progressed, err := s.step(ctx, p, text, r)
		if err != nil {
			return err
		}
		if !progressed {
			return nil
		}
	}
	return nil
}

func (s *ConversationService) step(ctx context.Context, p *domain.TripProfile, text string, r *Reply) (bool, error) {
	if p.Quote != nil && p.PaymentStatus != domain.PaymentCompleted && quoteStale(p) {
		return s.apply(ctx, p.ID, map[string]any{domain.FieldQuote: nil}, EventQuoteCleared, r)
	}

	if travelersNeedSetup(p) {
		before := len(p.Travelers)
		next, err := s.engine.SetupTravelersFromCounts(ctx, p.ID)
		if err != nil {
			return false, err
		}
		if len(next.Travelers) > before {
			r.Events = append(r.Events, EventTravelersReady)
		}
		return true, nil
	}

	switch stage := p.NextStage(); stage {
	case domain.StageNeedsAnalysis:
		if s.needs == nil || !p.StageUnlocked(stage) {
			return false, nil
		}
		updates, err := s.needs.AnalyzeNeeds(ctx, p, text)
		if err != nil {
			s.logger.Warn("needs analysis failed", zap.String("profile_id", p.ID), zap.Error(err))
			r.Failures = append(r.Failures, "needs analysis is unavailable right now")
			return false, nil
		}
		return s.apply(ctx, p.ID, updates, EventNeedsAnalyzed, r)

	case domain.StageQuoteReady:
		if s.insurer == nil || !p.StageUnlocked(stage) {
			return false, nil
		}
		start := time.Now()
		q, err := s.insurer.Price(ctx, p)
		s.metrics.RecordInsurerRequest("price", status(err), time.Since(start))
		if err != nil {
			s.logger.Warn("pricing failed", zap.String("profile_id", p.ID), zap.Error(err))
			r.Failures = append(r.Failures, "could not get a quote right now")
			return false, nil
		}
		// суммы и план считаются по потребностям, даже если страховщик их не вернул
		if q.Recommendation == nil {
			q.Recommendation = coverage.Advise(p)
		}
		s.logger.Info("quote priced",
			zap.String("profile_id", p.ID),
			zap.String("plan", q.Recommendation.Plan),
			zap.String("category", q.Recommendation.Category),
			zap.String("offer_id", q.OfferID),
		)
		return s.apply(ctx, p.ID, map[string]any{domain.FieldQuote: q}, EventQuoted, r)

	case domain.StagePurchaseReady:
		if s.insurer == nil || !p.StageUnlocked(stage) {
			return false, nil
		}
		start := time.Now()
		res, err := s.insurer.Purchase(ctx, p)
		s.metrics.RecordInsurerRequest("purchase", status(err), time.Since(start))
		if err != nil {
			s.logger.Error("purchase failed", zap.String("profile_id", p.ID), zap.Error(err))
			r.Failures = append(r.Failures, "purchase failed, payment is kept and will be retried")
			return false, nil
		}
		return s.apply(ctx, p.ID, map[string]any{domain.FieldPurchaseResult: res}, EventPurchased, r)
	}
	return false, nil
}

func (s *ConversationService) pay(ctx context.Context, id string, r *Reply) error {
	p, err := s.engine.Get(ctx, id)
	if err != nil {
		return err
	}
	if p.Quote == nil {
		return domain.ErrNoQuote
	}
	if p.PaymentStatus == domain.PaymentCompleted {
		return nil
	}
	if s.payments == nil {
		return fmt.Errorf("%w: no payment gateway configured", insurer.ErrPaymentFailed)
	}

	key := uuid.NewSHA1(paymentNamespace, []byte(id+":"+p.Quote.QuoteID)).String()
	req, err := insurer.NewChargeRequest(p, key)
	if err != nil {
		return err
	}

	if _, err := s.apply(ctx, id, map[string]any{domain.FieldPaymentStatus: domain.PaymentPending}, "", r); err != nil {
		return err
	}

	start := time.Now()
	res, err := s.payments.Charge(ctx, req)
	s.metrics.RecordInsurerRequest("charge", status(err), time.Since(start))
	if err != nil {
		s.logger.Error("payment failed", zap.String("profile_id", id), zap.Error(err))
		r.Failures = append(r.Failures, "payment could not be processed")
		_, applyErr := s.apply(ctx, id, map[string]any{domain.FieldPaymentStatus: domain.PaymentFailed}, EventPaymentFailed, r)
		return applyErr
	}

	event := EventPaymentCompleted
	if res.Status != domain.PaymentCompleted {
		event = EventPaymentFailed
	}
	s.logger.Info("payment processed",
		zap.String("profile_id", id),
		zap.String("payment_id", res.PaymentID),
		zap.String("status", res.Status.String()),
	)
	_, err = s.apply(ctx, id, map[string]any{domain.FieldPaymentStatus: res.Status}, event, r)
	return err
}

func (s *ConversationService) apply(ctx context.Context, id string, updates map[string]any, event Event, r *Reply) (bool, error) {
	res, err := s.engine.ApplyUpdates(ctx, id, updates)
	if err != nil {
		return false, err
	}
	r.absorb(res)
	if res.Changed && event != "" {
		r.Events = append(r.Events, event)
	}
	return res.Changed, nil
}

func (s *ConversationService) finish(ctx context.Context, id string, r *Reply) error {
	p, err := s.engine.Get(ctx, id)
	if err != nil {
		return err
	}
	r.Profile = p
	r.NextStage = p.NextStage()
	if r.NextStage != domain.StageDone {
		r.Missing = p.MissingFields(r.NextStage)
	}
	s.metrics.RecordNextStage(r.NextStage.String())
	return nil
}

// travelersNeedSetup - счетчики выросли или mainContact может дозаполнить первого.
// Укорачивать список автоматически не будем, только по явной команде.
func travelersNeedSetup(p *domain.TripProfile) bool {
	next, changed, err := domain.SetupTravelers(p, time.Now())
	if err != nil || !changed {
		return false
	}
	return len(next.Travelers) >= len(p.Travelers)
}

// quoteStale - котировка выписана на другие даты
func quoteStale(p *domain.TripProfile) bool {
	q := p.Quote
	if q.CoverFrom != nil && (p.DepartureDate == nil || *q.CoverFrom != *p.DepartureDate) {
		return true
	}
	if q.CoverTo != nil && (p.ReturnDate == nil || *q.CoverTo != *p.ReturnDate) {
		return true
	}
	return false
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
