package agent

// Конфиги агентов-экстракторов

import (
	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/llm"
	"github.com/kitbuilder587/travel-insurance-bot/internal/metrics"
)

const (
	FieldAgentName    = "field-extractor"
	DocumentAgentName = "document-extractor"
)

type agentSpec struct {
	name      string
	keywords  []string
	baseScore float64
	prompt    string
}

const fieldCatalog = `Allowed keys:
- tripType: "SINGLE" or "ANNUAL"
- departureDate, returnDate: YYYY-MM-DD
- departureCountry, arrivalCountry: ISO 3166 alpha-2 code
- adultsCount, childrenCount: integers
- travelers[i].title, firstName, lastName, nationality (alpha-2), dateOfBirth (YYYY-MM-DD),
  passportNumber, email, phoneNumber, phoneType ("mobile", "home" or "work"),
  relationship ("spouse", "child", "parent", "sibling", "friend", "other"; travelers[0] is always the user)
- mainContact.address, city, zipCode, countryCode (alpha-2)`

var specs = map[AgentType]agentSpec{
	AgentFields: {
		name: FieldAgentName,
		// отвечает на любое сообщение, ключевые слова только поднимают приоритет
		keywords: []string{
			"travel", "trip", "fly", "flying", "going to", "visit", "return", "depart",
			"adult", "child", "kids", "wife", "husband", "email", "phone", "address", "live",
		},
		baseScore: 0.5,
		prompt: `You extract travel insurance profile fields from a chat message.

` + fieldCatalog + `

Rules:
1. Output one JSON object whose keys are the allowed keys and values are what the user stated.
2. Only include facts the user actually stated. Never guess, never copy the known profile back.
3. Resolve relative dates ("next Friday", "for two weeks") against today's date.
4. Country names become alpha-2 codes (France -> FR, Singapore -> SG).
5. "Me and my wife" means adultsCount 2. If the user travels alone, adultsCount is 1 and childrenCount is 0.
6. If nothing can be extracted, output {}.`,
	},

	AgentDocument: {
		name: DocumentAgentName,
		keywords: []string{
			"passport", "booking", "itinerary", "confirmation", "flight", "pnr",
			"date of birth", "nationality", "surname", "given name", "e-ticket",
		},
		baseScore: 0,
		prompt: `You read text copied from a passport, ID card, e-ticket or booking confirmation
and extract travel insurance profile fields.

` + fieldCatalog + `

Rules:
1. Output one JSON object whose keys are the allowed keys.
2. Passport data belongs to travelers[0] unless the document clearly names someone else.
3. Passengers listed on a booking become travelers[0], travelers[1], ... in order, and set adultsCount/childrenCount.
4. The first outbound flight date is departureDate, the last inbound flight date is returnDate.
5. Passport MRZ dates are YYMMDD, convert them to YYYY-MM-DD.
6. If nothing can be extracted, output {}.`,
	},
}

func newSpecAgent(t AgentType, llmClient llm.Client, logger *zap.Logger, m *metrics.Metrics) *BaseAgent {
	s := specs[t]
	return NewBaseAgent(s.name, s.keywords, s.baseScore, s.prompt, llmClient, logger, m)
}

func NewFieldExtractor(llmClient llm.Client, logger *zap.Logger, m *metrics.Metrics) *BaseAgent {
	return newSpecAgent(AgentFields, llmClient, logger, m)
}

func NewDocumentExtractor(llmClient llm.Client, logger *zap.Logger, m *metrics.Metrics) *BaseAgent {
	return newSpecAgent(AgentDocument, llmClient, logger, m)
}
