package agent

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/llm"
	"github.com/kitbuilder587/travel-insurance-bot/internal/metrics"
)

const needsAgentName = "needs-analyst"

// NeedsAgent по описанию поездки отмечает теги покрытия из таксономии.
// Теги только ставятся в true, снять их агент не может.
type NeedsAgent struct {
	base *BaseAgent
}

func NewNeedsAgent(llmClient llm.Client, logger *zap.Logger, m *metrics.Metrics) *NeedsAgent {
	prompt := `You are a travel insurance needs analyst. From the trip details and the
traveller's own words decide which coverage needs apply.

Pick tags ONLY from this list:
` + strings.Join(domain.NeedTags, ", ") + `

Rules:
1. Output {"needs": ["tag", ...]} and nothing else.
2. Add a tag only when the trip or the message gives a concrete reason (a cruise, skiing, a rental car, elderly parents, a pricey camera).
3. Basic medical cover for an overseas trip is always relevant: include emergency_medical_expenses.
4. Never invent tags outside the list.`

	return &NeedsAgent{base: NewBaseAgent(needsAgentName, nil, 0, prompt, llmClient, logger, m)}
}

func (a *NeedsAgent) Name() string { return needsAgentName }

func (a *NeedsAgent) CanHandle(text string) float64 { return 0 }

func (a *NeedsAgent) Extract(ctx context.Context, req ExtractRequest) (*Extraction, error) {
	if req.Profile == nil {
		return nil, ErrNoProfile
	}

	raw, err := a.base.complete(ctx, buildNeedsPrompt(req))
	if err != nil {
		return nil, err
	}

	var payload struct {
		Needs []string `json:"needs"`
	}
	if err := llm.DecodeJSON(raw, &payload); err != nil {
		a.base.logger.Warn("needs agent returned malformed json", zap.Error(err))
		return nil, err
	}

	updates := map[string]any{domain.FieldNeedsAnalyzed: true}
	var unknown []string
	for _, tag := range payload.Needs {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if !domain.IsNeedTag(tag) {
			unknown = append(unknown, tag)
			continue
		}
		updates["needs."+tag] = true
	}
	if len(unknown) > 0 {
		a.base.logger.Debug("needs agent dropped unknown tags", zap.Strings("tags", unknown))
	}

	return &Extraction{AgentName: needsAgentName, Updates: updates}, nil
}

func buildNeedsPrompt(req ExtractRequest) string {
	p := req.Profile
	var sb strings.Builder

	sb.WriteString("Trip:\n")
	sb.WriteString(profileSummary(p))

	if p.DepartureDate != nil && p.ReturnDate != nil {
		days := int(p.ReturnDate.Time().Sub(p.DepartureDate.Time()).Hours()/24) + 1
		fmt.Fprintf(&sb, "duration_days: %d\n", days)
	}

	if strings.TrimSpace(req.Text) != "" {
		sb.WriteString("\nTraveller said:\n")
		sb.WriteString(req.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

var _ Extractor = (*NeedsAgent)(nil)
