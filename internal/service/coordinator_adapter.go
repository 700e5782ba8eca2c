package service

import (
	"context"
	"time"

	"github.com/kitbuilder587/travel-insurance-bot/internal/agent"
	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
)

type CoordinatorAdapter struct {
	coordinator *agent.Coordinator
	now         func() time.Time
}

func NewCoordinatorAdapter(coordinator *agent.Coordinator) *CoordinatorAdapter {
	return &CoordinatorAdapter{
		coordinator: coordinator,
		now:         time.Now,
	}
}

func (a *CoordinatorAdapter) Process(ctx context.Context, req AgentCoordinatorRequest, submit SubmitFunc) (*CoordinatorResponse, error) {
	agentReq := agent.ExtractRequest{
		Text:    req.Text,
		Profile: req.Profile,
		Stage:   req.Stage,
		Missing: req.Missing,
		Today:   a.now(),
	}
	if req.Document {
		agentReq.Agents = []string{agent.DocumentAgentName}
	}

	resp, err := a.coordinator.Process(ctx, agentReq, agent.SubmitFunc(submit))
	if resp == nil {
		return nil, err
	}

	out := &CoordinatorResponse{AgentsUsed: resp.AgentsUsed}
	for _, o := range resp.Outcomes {
		if o.Err != nil {
			out.Failed = append(out.Failed, o.AgentName)
		}
	}
	return out, err
}

// NeedsAdapter отдает NeedsAgent как NeedsAnalyzer
type NeedsAdapter struct {
	agent *agent.NeedsAgent
	now   func() time.Time
}

func NewNeedsAdapter(a *agent.NeedsAgent) *NeedsAdapter {
	return &NeedsAdapter{agent: a, now: time.Now}
}

func (a *NeedsAdapter) AnalyzeNeeds(ctx context.Context, p *domain.TripProfile, text string) (map[string]any, error) {
	ext, err := a.agent.Extract(ctx, agent.ExtractRequest{
		Text:    text,
		Profile: p,
		Stage:   domain.StageNeedsAnalysis,
		Today:   a.now(),
	})
	if err != nil {
		return nil, err
	}
	return ext.Updates, nil
}
