package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
)

func TestMockProfileRepository_LoadSave(t *testing.T) {
	repo := NewMockProfileRepository()
	ctx := context.Background()

	if _, err := repo.Load(ctx, "u1"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Fatalf("Load() error = %v, want ErrProfileNotFound", err)
	}

	p := domain.NewTripProfile("u1")
	p.ArrivalCountry = "FR"
	p.Needs["cruise_cover"] = true
	if err := repo.Save(ctx, p); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.ArrivalCountry != "FR" || !got.Needs["cruise_cover"] {
		t.Errorf("Load() = %+v", got)
	}
	if got == p {
		t.Error("Load() returned the saved pointer")
	}
}

func TestMockProfileRepository_SaveEmptyID(t *testing.T) {
	repo := NewMockProfileRepository()
	if err := repo.Save(context.Background(), &domain.TripProfile{}); !errors.Is(err, domain.ErrEmptyProfileID) {
		t.Errorf("Save() error = %v, want ErrEmptyProfileID", err)
	}
}

func TestMockProfileRepository_Delete(t *testing.T) {
	repo := NewMockProfileRepository()
	ctx := context.Background()

	if err := repo.Delete(ctx, "u1"); !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("Delete() error = %v, want ErrProfileNotFound", err)
	}

	repo.Save(ctx, domain.NewTripProfile("u1"))
	if err := repo.Delete(ctx, "u1"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
	if _, ok := repo.Raw("u1"); ok {
		t.Error("profile still present after Delete()")
	}
}

func TestMockProfileRepository_List(t *testing.T) {
	repo := NewMockProfileRepository()
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		p := domain.NewTripProfile(id)
		p.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
		repo.Save(ctx, p)
	}

	tests := []struct {
		name  string
		limit int
		want  []string
	}{
		{name: "all newest first", limit: 0, want: []string{"new", "mid", "old"}},
		{name: "limited", limit: 2, want: []string{"new", "mid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.List(ctx, tt.limit)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("List() returned %d, want %d", len(got), len(tt.want))
			}
			for i := range tt.want {
				if got[i].ID != tt.want[i] {
					t.Errorf("List()[%d].ID = %s, want %s", i, got[i].ID, tt.want[i])
				}
				if got[i].NextStage != domain.StageTripInfo {
					t.Errorf("List()[%d].NextStage = %s", i, got[i].NextStage)
				}
			}
		})
	}
}

func TestMockProfileRepository_NormalizesOnLoad(t *testing.T) {
	repo := NewMockProfileRepository()
	repo.profiles["legacy"] = []byte(`{"id":"legacy","needs":{"pet_care":true},"travelers":[{"firstName":"Ann"}]}`)

	p, err := repo.Load(context.Background(), "legacy")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(p.Needs) != len(domain.NeedTags) || !p.Needs["pet_care"] {
		t.Errorf("needs not normalized: %d tags", len(p.Needs))
	}
	if p.Travelers[0].Relationship != domain.RelationshipMain {
		t.Errorf("Travelers[0].Relationship = %q, want main", p.Travelers[0].Relationship)
	}
	if p.PaymentStatus != domain.PaymentNone {
		t.Errorf("PaymentStatus = %q", p.PaymentStatus)
	}
}
