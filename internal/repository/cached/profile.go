package cached

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kitbuilder587/travel-insurance-bot/internal/cache/memory"
	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/metrics"
	"github.com/kitbuilder587/travel-insurance-bot/internal/repository"
)

const (
	DefaultTTL = 10 * time.Minute
	// активных диалогов больше этого не ждем, остальные читаются из базы
	MaxCachedProfiles = 10000
)

// ProfileRepo - кеш снапшотов поверх любого ProfileRepository.
// Наружу всегда отдается копия, кеш никто не может испортить.
// Одновременные промахи по одному id схлопываются в один Load.
type ProfileRepo struct {
	next    repository.ProfileRepository
	cache   *memory.Cache[*domain.TripProfile]
	group   singleflight.Group
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewProfileRepo(next repository.ProfileRepository, ttl time.Duration, logger *zap.Logger, m *metrics.Metrics) *ProfileRepo {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileRepo{
		next:    next,
		cache:   memory.New[*domain.TripProfile](ttl).WithMaxEntries(MaxCachedProfiles),
		logger:  logger,
		metrics: m,
	}
}

func (r *ProfileRepo) Load(ctx context.Context, id string) (*domain.TripProfile, error) {
	if p, ok := r.cache.Get(id); ok {
		r.metrics.RecordCacheHit()
		return p.Clone(), nil
	}
	r.metrics.RecordCacheMiss()

	v, err, shared := r.group.Do(id, func() (interface{}, error) {
		p, err := r.next.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		r.cache.Set(id, p.Clone())
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		r.logger.Debug("profile load shared", zap.String("profile_id", id))
	}
	return v.(*domain.TripProfile).Clone(), nil
}

func (r *ProfileRepo) Save(ctx context.Context, profile *domain.TripProfile) error {
	if err := r.next.Save(ctx, profile); err != nil {
		r.cache.Delete(profile.ID)
		return err
	}
	r.cache.Set(profile.ID, profile.Clone())
	return nil
}

func (r *ProfileRepo) Delete(ctx context.Context, id string) error {
	r.cache.Delete(id)
	r.group.Forget(id)
	return r.next.Delete(ctx, id)
}

func (r *ProfileRepo) List(ctx context.Context, limit int) ([]repository.ProfileSummary, error) {
	return r.next.List(ctx, limit)
}

func (r *ProfileRepo) Close() {
	r.cache.Stop()
}
