package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/llm"
	"github.com/kitbuilder587/travel-insurance-bot/internal/metrics"
)

var (
	ErrEmptyMessage = errors.New("message cannot be empty")
	ErrNoProfile    = errors.New("profile snapshot is required")
)

type AgentType string

const (
	AgentFields   AgentType = "fields"
	AgentDocument AgentType = "document"
	AgentNeeds    AgentType = "needs"
)

func (t AgentType) IsValid() bool {
	switch t {
	case AgentFields, AgentDocument, AgentNeeds:
		return true
	}
	return false
}

func (t AgentType) String() string { return string(t) }

// Extractor превращает текст пользователя в обновления полей профиля.
// Сам профиль не трогает: обновления уходят в ProfileEngine.
type Extractor interface {
	Name() string
	CanHandle(text string) float64
	Extract(ctx context.Context, req ExtractRequest) (*Extraction, error)
}

type ExtractRequest struct {
	Text    string
	Profile *domain.TripProfile
	Stage   domain.Stage
	Missing []domain.FieldDescriptor
	Today   time.Time
	// если не пусто - запускаем только этих агентов
	Agents []string
}

func (r ExtractRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyMessage
	}
	if r.Profile == nil {
		return ErrNoProfile
	}
	return nil
}

type Extraction struct {
	AgentName string
	Updates   map[string]any
}

type BaseAgent struct {
	name         string
	keywords     []string
	baseScore    float64
	systemPrompt string
	llmClient    llm.Client
	logger       *zap.Logger
	metrics      *metrics.Metrics
}

func NewBaseAgent(name string, keywords []string, baseScore float64, systemPrompt string, llmClient llm.Client, logger *zap.Logger, m *metrics.Metrics) *BaseAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BaseAgent{
		name:         name,
		keywords:     keywords,
		baseScore:    baseScore,
		systemPrompt: systemPrompt,
		llmClient:    llmClient,
		logger:       logger,
		metrics:      m,
	}
}

func (b *BaseAgent) Name() string { return b.name }

// CanHandle - уверенность по ключевым словам, не ниже baseScore
func (b *BaseAgent) CanHandle(text string) float64 {
	if len(b.keywords) == 0 {
		return b.baseScore
	}

	t := strings.ToLower(text)
	matches := 0
	for _, kw := range b.keywords {
		if strings.Contains(t, strings.ToLower(kw)) {
			matches++
		}
	}

	if matches == 0 {
		return b.baseScore
	}

	// минимум 0.5 если хоть что-то совпало
	conf := float64(matches) / float64(len(b.keywords))
	if conf < 0.5 {
		conf = 0.5
	}
	if conf < b.baseScore {
		conf = b.baseScore
	}
	return conf
}

func (b *BaseAgent) Extract(ctx context.Context, req ExtractRequest) (*Extraction, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	raw, err := b.complete(ctx, buildUserPrompt(req))
	if err != nil {
		return nil, err
	}

	var payload map[string]any
	if err := llm.DecodeJSON(raw, &payload); err != nil {
		b.logger.Warn("agent returned malformed json", zap.String("agent", b.name), zap.Error(err))
		return nil, err
	}

	return &Extraction{
		AgentName: b.name,
		Updates:   sanitizeUpdates(payload),
	}, nil
}

func (b *BaseAgent) complete(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	content, err := b.llmClient.CompleteWithSystem(ctx, b.systemPrompt, prompt)
	status := "ok"
	if err != nil {
		status = "error"
	}
	b.metrics.RecordLLMRequest(b.name, status, time.Since(start))

	if err != nil {
		b.logger.Error("LLM call failed", zap.String("agent", b.name), zap.Error(err))
		return "", fmt.Errorf("llm call failed: %w", err)
	}
	return content, nil
}

func buildUserPrompt(req ExtractRequest) string {
	var sb strings.Builder

	today := req.Today
	if today.IsZero() {
		today = time.Now()
	}
	fmt.Fprintf(&sb, "Today: %s\n", today.Format(domain.DateLayout))

	if req.Stage != "" {
		fmt.Fprintf(&sb, "Current stage: %s\n", req.Stage)
	}
	if len(req.Missing) > 0 {
		sb.WriteString("Still missing:\n")
		for _, f := range req.Missing {
			fmt.Fprintf(&sb, "- %s (%s)\n", f.Path, f.Label)
		}
	}

	sb.WriteString("\nKnown profile:\n")
	sb.WriteString(profileSummary(req.Profile))

	sb.WriteString("\nUser message:\n")
	sb.WriteString(req.Text)
	sb.WriteString("\n")

	return sb.String()
}

// profileSummary - короткая выжимка известных полей, чтобы модель не переспрашивала
func profileSummary(p *domain.TripProfile) string {
	var sb strings.Builder
	line := func(k, v string) {
		if v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", k, v)
		}
	}

	line(domain.FieldTripType, string(p.TripType))
	if p.DepartureDate != nil {
		line(domain.FieldDepartureDate, p.DepartureDate.String())
	}
	if p.ReturnDate != nil {
		line(domain.FieldReturnDate, p.ReturnDate.String())
	}
	line(domain.FieldDepartureCountry, p.DepartureCountry)
	line(domain.FieldArrivalCountry, p.ArrivalCountry)
	if p.AdultsCount != nil {
		line(domain.FieldAdultsCount, fmt.Sprint(*p.AdultsCount))
	}
	if p.ChildrenCount != nil {
		line(domain.FieldChildrenCount, fmt.Sprint(*p.ChildrenCount))
	}
	for i, t := range p.Travelers {
		name := strings.TrimSpace(t.FirstName + " " + t.LastName)
		if name != "" {
			line(fmt.Sprintf("travelers[%d]", i), name)
		}
	}
	if sb.Len() == 0 {
		return "(empty)\n"
	}
	return sb.String()
}
