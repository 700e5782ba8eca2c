package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/metrics"
	"github.com/kitbuilder587/travel-insurance-bot/internal/repository"
)

// ApplyResult - что из пачки обновлений применилось, а что нет
type ApplyResult struct {
	Profile   *domain.TripProfile
	Applied   []string
	Rejected  []*domain.FieldError
	Changed   bool
	NextStage domain.Stage
}

// ProfileEngine - единственный, кто меняет TripProfile. Мутации по одному
// профилю сериализуются, чтения идут под shared-блокировкой.
type ProfileEngine struct {
	repo    repository.ProfileRepository
	locks   *keyedLocks
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewProfileEngine(repo repository.ProfileRepository, logger *zap.Logger, m *metrics.Metrics) *ProfileEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileEngine{
		repo:    repo,
		locks:   newKeyedLocks(),
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// Get - снапшот профиля. Для неизвестного id - пустой профиль, не ошибка.
func (e *ProfileEngine) Get(ctx context.Context, id string) (*domain.TripProfile, error) {
	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.RLock(id)
	defer unlock()

	return e.load(ctx, id)
}

func (e *ProfileEngine) ApplyUpdates(ctx context.Context, id string, updates map[string]any) (*ApplyResult, error) {
	start := e.now()
	defer func() { e.metrics.RecordProfileOp("apply", time.Since(start)) }()

	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(id)
	defer unlock()

	current, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	batch := domain.ApplyBatch(current, updates, e.now())
	if batch.Changed {
		if err := e.repo.Save(ctx, batch.Profile); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}
	}

	e.metrics.RecordFieldUpdates(len(batch.Applied), len(batch.Rejected))

	res := &ApplyResult{
		Profile:   batch.Profile,
		Applied:   batch.Applied,
		Rejected:  batch.Rejected,
		Changed:   batch.Changed,
		NextStage: batch.Profile.NextStage(),
	}

	if len(res.Rejected) > 0 {
		fields := make([]string, 0, len(res.Rejected))
		for _, fe := range res.Rejected {
			fields = append(fields, fe.Error())
		}
		e.logger.Info("profile updates rejected",
			zap.String("profile_id", id),
			zap.Strings("rejected", fields),
		)
	}
	e.logger.Debug("profile updated",
		zap.String("profile_id", id),
		zap.Strings("applied", res.Applied),
		zap.Bool("changed", res.Changed),
		zap.String("stage", res.NextStage.String()),
	)

	return res, nil
}

func (e *ProfileEngine) MissingFields(ctx context.Context, id string, stage domain.Stage) ([]domain.FieldDescriptor, error) {
	p, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.MissingFields(stage), nil
}

func (e *ProfileEngine) NextStage(ctx context.Context, id string) (domain.Stage, error) {
	p, err := e.Get(ctx, id)
	if err != nil {
		return "", err
	}
	stage := p.NextStage()
	e.metrics.RecordNextStage(stage.String())
	return stage, nil
}

func (e *ProfileEngine) StageUnlocked(ctx context.Context, id string, stage domain.Stage) (bool, error) {
	p, err := e.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return p.StageUnlocked(stage), nil
}

func (e *ProfileEngine) StageReport(ctx context.Context, id string) ([]domain.StageStatus, error) {
	p, err := e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return p.StageReport(), nil
}

// SetupTravelersFromCounts пересобирает travelers по adultsCount + childrenCount
func (e *ProfileEngine) SetupTravelersFromCounts(ctx context.Context, id string) (*domain.TripProfile, error) {
	start := e.now()
	defer func() { e.metrics.RecordProfileOp("setup_travelers", time.Since(start)) }()

	id, err := normalizeID(id)
	if err != nil {
		return nil, err
	}
	unlock := e.locks.Lock(id)
	defer unlock()

	current, err := e.load(ctx, id)
	if err != nil {
		return nil, err
	}

	next, changed, err := domain.SetupTravelers(current, e.now())
	if err != nil {
		return nil, err
	}
	if changed {
		if err := e.repo.Save(ctx, next); err != nil {
			return nil, fmt.Errorf("save profile: %w", err)
		}
	}

	e.logger.Debug("travelers set up",
		zap.String("profile_id", id),
		zap.Int("travelers", len(next.Travelers)),
	)
	return next, nil
}

// Reset - единственный способ удалить профиль
func (e *ProfileEngine) Reset(ctx context.Context, id string) error {
	id, err := normalizeID(id)
	if err != nil {
		return err
	}
	unlock := e.locks.Lock(id)
	defer unlock()

	err = e.repo.Delete(ctx, id)
	if err != nil && !errors.Is(err, domain.ErrProfileNotFound) {
		return fmt.Errorf("delete profile: %w", err)
	}

	e.logger.Info("profile reset", zap.String("profile_id", id))
	return nil
}

func (e *ProfileEngine) List(ctx context.Context, limit int) ([]repository.ProfileSummary, error) {
	return e.repo.List(ctx, limit)
}

func (e *ProfileEngine) load(ctx context.Context, id string) (*domain.TripProfile, error) {
	p, err := e.repo.Load(ctx, id)
	if errors.Is(err, domain.ErrProfileNotFound) {
		return domain.NewTripProfile(id), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	p.Normalize()
	return p, nil
}

func normalizeID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", domain.ErrEmptyProfileID
	}
	return id, nil
}
