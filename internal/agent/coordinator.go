package agent

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNoAgentResponses = errors.New("no agent responses received")

// SubmitFunc отправляет обновления одного агента в движок профиля.
// Ошибка submit - это ошибка хранилища, она прерывает обработку.
type SubmitFunc func(ctx context.Context, agentName string, updates map[string]any) error

type Outcome struct {
	AgentName string
	Updates   map[string]any
	Err       error
}

type CoordinatorResponse struct {
	Outcomes       []Outcome
	AgentsUsed     []string
	ProcessingTime time.Duration
}

// Coordinator выбирает экстракторов под сообщение и запускает их параллельно.
// Каждый агент сдает свои обновления сам, через submit.
type Coordinator struct {
	agents        []Extractor
	logger        *zap.Logger
	minConfidence float64
	agentTimeout  time.Duration
}

func NewCoordinator(agents []Extractor, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		agents:        agents,
		logger:        logger,
		minConfidence: 0.3,
		agentTimeout:  45 * time.Second,
	}
}

// WithAgentTimeout - таймаут на одного агента, 0 отключает
func (c *Coordinator) WithAgentTimeout(d time.Duration) *Coordinator {
	c.agentTimeout = d
	return c
}

func (c *Coordinator) Process(ctx context.Context, req ExtractRequest, submit SubmitFunc) (*CoordinatorResponse, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	selected := c.selectAgents(req)
	c.logger.Info("Selected agents",
		zap.Int("count", len(selected)),
		zap.String("stage", req.Stage.String()),
	)
	if len(selected) == 0 {
		return nil, ErrNoAgentResponses
	}

	outcomes, err := c.runParallel(ctx, selected, req, submit)
	if err != nil {
		return nil, err
	}

	var used []string
	for _, o := range outcomes {
		if o.Err == nil {
			used = append(used, o.AgentName)
		}
	}

	resp := &CoordinatorResponse{
		Outcomes:       outcomes,
		AgentsUsed:     used,
		ProcessingTime: time.Since(start),
	}
	if len(used) == 0 {
		return resp, ErrNoAgentResponses
	}
	return resp, nil
}

// selectAgents выбирает агентов по релевантности сообщению
func (c *Coordinator) selectAgents(req ExtractRequest) []Extractor {
	if len(c.agents) == 0 {
		return nil
	}

	if len(req.Agents) > 0 {
		want := make(map[string]bool, len(req.Agents))
		for _, n := range req.Agents {
			want[n] = true
		}
		var result []Extractor
		for _, a := range c.agents {
			if want[a.Name()] {
				result = append(result, a)
			}
		}
		return result
	}

	type scored struct {
		a     Extractor
		score float64
	}
	scores := make([]scored, 0, len(c.agents))
	for _, a := range c.agents {
		scores = append(scores, scored{a, a.CanHandle(req.Text)})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].score > scores[j].score
	})

	var result []Extractor
	for _, s := range scores {
		if s.score >= c.minConfidence {
			result = append(result, s.a)
		}
	}

	// если никто не прошел порог - берем самого уверенного
	if len(result) == 0 {
		result = append(result, scores[0].a)
	}
	return result
}

// runParallel запускает агентов параллельно, у каждого свой таймаут
func (c *Coordinator) runParallel(ctx context.Context, agents []Extractor, req ExtractRequest, submit SubmitFunc) ([]Outcome, error) {
	outcomes := make([]Outcome, len(agents))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, a := range agents {
		i, a := i, a
		g.Go(func() error {
			actx := gctx
			if c.agentTimeout > 0 {
				var cancel context.CancelFunc
				actx, cancel = context.WithTimeout(gctx, c.agentTimeout)
				defer cancel()
			}

			ext, err := a.Extract(actx, req)
			if err != nil {
				c.logger.Warn("agent failed", zap.String("agent", a.Name()), zap.Error(err))
				mu.Lock()
				outcomes[i] = Outcome{AgentName: a.Name(), Err: err}
				mu.Unlock()
				return nil
			}

			mu.Lock()
			outcomes[i] = Outcome{AgentName: a.Name(), Updates: ext.Updates}
			mu.Unlock()

			if len(ext.Updates) == 0 || submit == nil {
				return nil
			}
			return submit(gctx, a.Name(), ext.Updates)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outcomes, nil
}
