package repository

import (
	"context"
	"time"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
)

// ProfileRepository - хранилище профилей поездки, одна запись на пользователя.
// Load возвращает domain.ErrProfileNotFound для неизвестного id.
type ProfileRepository interface {
	Load(ctx context.Context, id string) (*domain.TripProfile, error)
	Save(ctx context.Context, profile *domain.TripProfile) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit int) ([]ProfileSummary, error)
}

// ProfileSummary - строка для списка профилей в profilectl
type ProfileSummary struct {
	ID        string
	NextStage domain.Stage
	UpdatedAt time.Time
}
