package insurer

import (
	"context"
	"errors"
	"fmt"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
)

var (
	ErrUnauthorized   = errors.New("invalid API key")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrRequestFailed  = errors.New("insurer request failed")
	ErrNoOffers       = errors.New("no offers returned")
	ErrPaymentFailed  = errors.New("payment failed")
)

// Client - страховщик: расчет цены и оформление полиса
type Client interface {
	Price(ctx context.Context, p *domain.TripProfile) (*domain.Quote, error)
	Purchase(ctx context.Context, p *domain.TripProfile) (*domain.PurchaseResult, error)
}

// PaymentGateway списывает деньги за котировку
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

type ChargeRequest struct {
	ProfileID      string
	QuoteID        string
	AmountCents    int64
	Currency       string
	IdempotencyKey string
}

type ChargeResult struct {
	PaymentID string
	Status    domain.PaymentStatus
}

// NewChargeRequest - запрос на оплату по текущей котировке профиля
func NewChargeRequest(p *domain.TripProfile, key string) (ChargeRequest, error) {
	if p.Quote == nil {
		return ChargeRequest{}, domain.ErrNoQuote
	}
	currency := p.Quote.Currency
	if currency == "" {
		currency = DefaultCurrency
	}
	return ChargeRequest{
		ProfileID:      p.ID,
		QuoteID:        p.Quote.QuoteID,
		AmountCents:    int64(p.Quote.Price*100 + 0.5),
		Currency:       currency,
		IdempotencyKey: key,
	}, nil
}

const DefaultCurrency = "SGD"

// CheckPriceable - для расчета нужны поля этапа TRIP_INFO
func CheckPriceable(p *domain.TripProfile) error {
	if !p.StageComplete(domain.StageTripInfo) {
		return fmt.Errorf("%w: %s incomplete", domain.ErrStageLocked, domain.StageTripInfo)
	}
	return nil
}

// CheckPurchasable - без котировки и завершенной оплаты полис не оформляем
func CheckPurchasable(p *domain.TripProfile) error {
	if p.Quote == nil {
		return domain.ErrNoQuote
	}
	if p.PaymentStatus != domain.PaymentCompleted {
		return domain.ErrPaymentNotCompleted
	}
	if len(p.Travelers) == 0 || ContactOf(p).Email == "" {
		return fmt.Errorf("%w: travelers or contact email missing", domain.ErrStageLocked)
	}
	return nil
}

// FilledTravelers - путешественники без пустых слотов, которые оставляет
// SetupTravelers для второго и следующих
func FilledTravelers(p *domain.TripProfile) []domain.TravelerRecord {
	out := make([]domain.TravelerRecord, 0, len(p.Travelers))
	for i, t := range p.Travelers {
		if i > 0 && t.FirstName == "" && t.LastName == "" && t.PassportNumber == "" {
			continue
		}
		out = append(out, t)
	}
	return out
}

// ContactOf - mainContact, где пустые личные поля взяты у первого путешественника
func ContactOf(p *domain.TripProfile) domain.MainContact {
	mc := p.MainContact
	if len(p.Travelers) > 0 {
		mc.TravelerRecord = domain.FillEmpty(mc.TravelerRecord, p.Travelers[0])
	}
	return mc
}
