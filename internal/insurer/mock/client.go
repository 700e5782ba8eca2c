package mock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kitbuilder587/travel-insurance-bot/internal/coverage"
	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/insurer"
)

// Client - страховщик без сети. Отдает фиксированную цену, правила те же, что у настоящего.
type Client struct {
	UnitPrice float64
	Currency  string
	Error     error
	Delay     time.Duration

	PriceCalls    int
	PurchaseCalls int

	mu sync.Mutex
}

func New() *Client {
	return &Client{
		UnitPrice: 17.6,
		Currency:  insurer.DefaultCurrency,
	}
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) Price(ctx context.Context, p *domain.TripProfile) (*domain.Quote, error) {
	c.mu.Lock()
	c.PriceCalls++
	failErr, delay := c.Error, c.Delay
	c.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		return nil, err
	}
	if failErr != nil {
		return nil, failErr
	}
	if err := insurer.CheckPriceable(p); err != nil {
		return nil, err
	}

	return &domain.Quote{
		QuoteID:        uuid.NewString(),
		OfferID:        uuid.NewString(),
		ProductCode:    "SG_AXA_SCOOT_COMP",
		ProductName:    "Scootsurance - Travel Insurance",
		Price:          c.UnitPrice,
		Currency:       c.Currency,
		CoverFrom:      domain.DatePtr(*p.DepartureDate),
		CoverTo:        domain.DatePtr(*p.ReturnDate),
		QuotedAt:       time.Now().UTC(),
		Recommendation: coverage.Advise(p),
	}, nil
}

func (c *Client) Purchase(ctx context.Context, p *domain.TripProfile) (*domain.PurchaseResult, error) {
	c.mu.Lock()
	c.PurchaseCalls++
	n, failErr, delay := c.PurchaseCalls, c.Error, c.Delay
	c.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		return nil, err
	}
	if failErr != nil {
		return nil, failErr
	}
	if err := insurer.CheckPurchasable(p); err != nil {
		return nil, err
	}

	return &domain.PurchaseResult{
		PolicyNumber:      fmt.Sprintf("POL-%d-%06d", time.Now().Year(), n),
		Status:            "success",
		ConfirmationEmail: insurer.ContactOf(p).Email,
		PurchasedAt:       time.Now().UTC(),
	}, nil
}

// PaymentGateway - платежка, которая принимает все, кроме Decline
type PaymentGateway struct {
	Decline bool
	Error   error

	mu       sync.Mutex
	charges  map[string]*insurer.ChargeResult
	Requests []insurer.ChargeRequest
}

func NewPaymentGateway() *PaymentGateway {
	return &PaymentGateway{charges: make(map[string]*insurer.ChargeResult)}
}

func (g *PaymentGateway) Charge(ctx context.Context, req insurer.ChargeRequest) (*insurer.ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.Requests = append(g.Requests, req)
	if g.Error != nil {
		return nil, g.Error
	}
	if req.AmountCents <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", insurer.ErrPaymentFailed)
	}

	// повтор с тем же ключом не списывает второй раз, отказ можно повторить
	if req.IdempotencyKey != "" {
		if res, ok := g.charges[req.IdempotencyKey]; ok {
			return res, nil
		}
	}

	status := domain.PaymentCompleted
	if g.Decline {
		status = domain.PaymentFailed
	}
	res := &insurer.ChargeResult{PaymentID: uuid.NewString(), Status: status}
	if req.IdempotencyKey != "" && status == domain.PaymentCompleted {
		g.charges[req.IdempotencyKey] = res
	}
	return res, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

var (
	_ insurer.Client         = (*Client)(nil)
	_ insurer.PaymentGateway = (*PaymentGateway)(nil)
)
