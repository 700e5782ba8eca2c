package agent

import (
	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/llm"
	"github.com/kitbuilder587/travel-insurance-bot/internal/metrics"
)

// NewAllAgents собирает экстракторов, которые разбирают сообщения пользователя
func NewAllAgents(llmClient llm.Client, logger *zap.Logger, m *metrics.Metrics) []Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}

	return []Extractor{
		NewFieldExtractor(llmClient, logger, m),
		NewDocumentExtractor(llmClient, logger, m),
	}
}
