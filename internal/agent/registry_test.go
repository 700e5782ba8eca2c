package agent

import (
	"testing"

	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/llm/mock"
)

func TestNewAllAgents(t *testing.T) {
	agents := NewAllAgents(mock.New(), zap.NewNop(), nil)

	if len(agents) != 2 {
		t.Errorf("NewAllAgents() returned %d agents, expected 2", len(agents))
	}

	expectedNames := map[string]bool{
		"field-extractor":    false,
		"document-extractor": false,
	}

	for _, agent := range agents {
		name := agent.Name()
		if _, exists := expectedNames[name]; !exists {
			t.Errorf("Unexpected agent name: %s", name)
		}
		expectedNames[name] = true
	}

	for name, found := range expectedNames {
		if !found {
			t.Errorf("Missing agent: %s", name)
		}
	}
}

func TestNewAllAgents_NilLogger(t *testing.T) {
	agents := NewAllAgents(mock.New(), nil, nil)
	for _, a := range agents {
		score := a.CanHandle("test message")
		if score < 0 || score > 1 {
			t.Errorf("Agent %s CanHandle() = %v, expected 0..1", a.Name(), score)
		}
	}
}

func TestSpecs_AllAgentsHavePrompts(t *testing.T) {
	for typ, s := range specs {
		if !typ.IsValid() {
			t.Errorf("spec for invalid agent type %q", typ)
		}
		if s.name == "" || s.prompt == "" {
			t.Errorf("spec %s is incomplete", typ)
		}
	}
}
