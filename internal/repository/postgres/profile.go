package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/repository"
)

// ProfileRepo хранит профиль целиком в JSONB, next_stage дублируется
// в отдельной колонке для выборок из profilectl
type ProfileRepo struct {
	db *DB
}

func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

func (r *ProfileRepo) Load(ctx context.Context, id string) (*domain.TripProfile, error) {
	query := `SELECT data FROM trip_profiles WHERE id = $1`

	var data []byte
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrProfileNotFound
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	var p domain.TripProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode profile %s: %w", id, err)
	}
	p.Normalize()
	return &p, nil
}

func (r *ProfileRepo) Save(ctx context.Context, profile *domain.TripProfile) error {
	if profile.ID == "" {
		return domain.ErrEmptyProfileID
	}

	data, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}

	query := `
        INSERT INTO trip_profiles (id, data, next_stage, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (id) DO UPDATE SET
            data = EXCLUDED.data,
            next_stage = EXCLUDED.next_stage,
            updated_at = EXCLUDED.updated_at
    `

	_, err = r.db.Pool.Exec(ctx, query,
		profile.ID,
		data,
		profile.NextStage().String(),
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

func (r *ProfileRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.Pool.Exec(ctx, `DELETE FROM trip_profiles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrProfileNotFound
	}
	return nil
}

func (r *ProfileRepo) List(ctx context.Context, limit int) ([]repository.ProfileSummary, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
        SELECT id, next_stage, updated_at
        FROM trip_profiles
        ORDER BY updated_at DESC
        LIMIT $1
    `

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var result []repository.ProfileSummary
	for rows.Next() {
		var (
			s     repository.ProfileSummary
			stage string
		)
		if err := rows.Scan(&s.ID, &stage, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		s.NextStage = domain.Stage(stage)
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	return result, nil
}
