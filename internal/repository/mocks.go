package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
)

// MockProfileRepository хранит профили как JSON, так же как постгрес.
// Потерянные при сериализации поля тесты увидят сразу.
type MockProfileRepository struct {
	mu       sync.RWMutex
	profiles map[string][]byte

	// для тестов: принудительная ошибка и счетчики вызовов
	SaveErr   error
	LoadErr   error
	LoadCalls int
	SaveCalls int
}

func NewMockProfileRepository() *MockProfileRepository {
	return &MockProfileRepository{
		profiles: make(map[string][]byte),
	}
}

func (m *MockProfileRepository) Load(ctx context.Context, id string) (*domain.TripProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LoadCalls++
	if m.LoadErr != nil {
		return nil, m.LoadErr
	}

	data, exists := m.profiles[id]
	if !exists {
		return nil, domain.ErrProfileNotFound
	}

	var p domain.TripProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	p.Normalize()
	return &p, nil
}

func (m *MockProfileRepository) Save(ctx context.Context, profile *domain.TripProfile) error {
	if profile.ID == "" {
		return domain.ErrEmptyProfileID
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.SaveCalls++
	if m.SaveErr != nil {
		return m.SaveErr
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	m.profiles[profile.ID] = data
	return nil
}

func (m *MockProfileRepository) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[id]; !exists {
		return domain.ErrProfileNotFound
	}
	delete(m.profiles, id)
	return nil
}

func (m *MockProfileRepository) List(ctx context.Context, limit int) ([]ProfileSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]ProfileSummary, 0, len(m.profiles))
	for _, data := range m.profiles {
		var p domain.TripProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("decode profile: %w", err)
		}
		p.Normalize()
		result = append(result, ProfileSummary{
			ID:        p.ID,
			NextStage: p.NextStage(),
			UpdatedAt: p.UpdatedAt,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// Raw - сохраненный JSON как есть, для тестов формата хранения
func (m *MockProfileRepository) Raw(id string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.profiles[id]
	return data, ok
}
