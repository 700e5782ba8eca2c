package insurer

import (
	"errors"
	"testing"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
)

func TestNewChargeRequest(t *testing.T) {
	p := domain.NewTripProfile("u1")
	if _, err := NewChargeRequest(p, "k"); !errors.Is(err, domain.ErrNoQuote) {
		t.Errorf("NewChargeRequest() without quote error = %v", err)
	}

	p.Quote = &domain.Quote{QuoteID: "q1", Price: 17.6}
	req, err := NewChargeRequest(p, "k")
	if err != nil {
		t.Fatalf("NewChargeRequest() error = %v", err)
	}
	if req.AmountCents != 1760 {
		t.Errorf("AmountCents = %d, want 1760", req.AmountCents)
	}
	if req.Currency != DefaultCurrency || req.QuoteID != "q1" || req.IdempotencyKey != "k" {
		t.Errorf("NewChargeRequest() = %+v", req)
	}
}

func TestCheckPurchasable(t *testing.T) {
	tests := []struct {
		name    string
		profile func() *domain.TripProfile
		wantErr error
	}{
		{
			name:    "no quote",
			profile: func() *domain.TripProfile { return domain.NewTripProfile("u1") },
			wantErr: domain.ErrNoQuote,
		},
		{
			name: "payment pending",
			profile: func() *domain.TripProfile {
				p := domain.NewTripProfile("u1")
				p.Quote = &domain.Quote{QuoteID: "q"}
				p.PaymentStatus = domain.PaymentPending
				return p
			},
			wantErr: domain.ErrPaymentNotCompleted,
		},
		{
			name: "no travelers",
			profile: func() *domain.TripProfile {
				p := domain.NewTripProfile("u1")
				p.Quote = &domain.Quote{QuoteID: "q"}
				p.PaymentStatus = domain.PaymentCompleted
				return p
			},
			wantErr: domain.ErrStageLocked,
		},
		{
			name: "ok",
			profile: func() *domain.TripProfile {
				p := domain.NewTripProfile("u1")
				p.Quote = &domain.Quote{QuoteID: "q"}
				p.PaymentStatus = domain.PaymentCompleted
				p.Travelers = []domain.TravelerRecord{{ID: "1"}}
				p.MainContact.Email = "a@b.co"
				return p
			},
		},
		{
			name: "email from first traveler",
			profile: func() *domain.TripProfile {
				p := domain.NewTripProfile("u1")
				p.Quote = &domain.Quote{QuoteID: "q"}
				p.PaymentStatus = domain.PaymentCompleted
				p.Travelers = []domain.TravelerRecord{{ID: "1", Email: "t@b.co"}}
				return p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckPurchasable(tt.profile())
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("CheckPurchasable() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckPurchasable() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestContactOf(t *testing.T) {
	p := domain.NewTripProfile("u1")
	p.Travelers = []domain.TravelerRecord{{FirstName: "Wei", Email: "wei@example.com"}}
	p.MainContact.FirstName = "Mei"
	p.MainContact.City = "Singapore"

	mc := ContactOf(p)
	if mc.FirstName != "Mei" || mc.Email != "wei@example.com" || mc.City != "Singapore" {
		t.Errorf("ContactOf() = %+v", mc)
	}
	if p.MainContact.Email != "" {
		t.Error("ContactOf() must not modify the profile")
	}
}
