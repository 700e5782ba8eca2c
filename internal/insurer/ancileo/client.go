package ancileo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/travel-insurance-bot/internal/coverage"
	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/insurer"
)

const (
	pricingPath  = "/v1/travel/front/pricing"
	purchasePath = "/v1/travel/front/purchase"
)

var purchaseNamespace = uuid.MustParse("0b3e2a4c-8f61-4d0e-b7a2-5c9d1e6f3a80")

type Config struct {
	APIKey  string
	BaseURL string
	Market  string
	Timeout time.Duration
	// паузы между повторами на 5xx и сетевых ошибках
	Backoff []time.Duration
}

type Client struct {
	apiKey  string
	baseURL string
	market  string
	backoff []time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://dev.api.ancileo.com"
	}
	if cfg.Market == "" {
		cfg.Market = "SG"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		market:  cfg.Market,
		backoff: cfg.Backoff,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type pricingRequest struct {
	Market       string         `json:"market"`
	LanguageCode string         `json:"languageCode"`
	Channel      string         `json:"channel"`
	DeviceType   string         `json:"deviceType"`
	Context      pricingContext `json:"context"`
}

type pricingContext struct {
	TripType         string `json:"tripType"`
	DepartureDate    string `json:"departureDate"`
	ReturnDate       string `json:"returnDate"`
	DepartureCountry string `json:"departureCountry"`
	ArrivalCountry   string `json:"arrivalCountry"`
	AdultsCount      int    `json:"adultsCount"`
	ChildrenCount    int    `json:"childrenCount"`
}

type pricingResponse struct {
	ID      string  `json:"id"`
	QuoteID string  `json:"quoteId"`
	Offers  []offer `json:"offers"`
}

type offer struct {
	ID          string  `json:"id"`
	OfferID     string  `json:"offerId"`
	ProductCode string  `json:"productCode"`
	ProductName string  `json:"productName"`
	UnitPrice   float64 `json:"unitPrice"`
	Currency    string  `json:"currency"`
	CoverDates  struct {
		From string `json:"from"`
		To   string `json:"to"`
	} `json:"coverDates"`
}

type purchaseRequest struct {
	Market         string          `json:"market"`
	LanguageCode   string          `json:"languageCode"`
	Channel        string          `json:"channel"`
	QuoteID        string          `json:"quoteId"`
	PurchaseOffers []purchaseOffer `json:"purchaseOffers"`
	Insureds       []insured       `json:"insureds"`
	MainContact    contact         `json:"mainContact"`
}

type purchaseOffer struct {
	ProductType string  `json:"productType"`
	OfferID     string  `json:"offerId"`
	ProductCode string  `json:"productCode"`
	UnitPrice   float64 `json:"unitPrice"`
	Currency    string  `json:"currency"`
	Quantity    int     `json:"quantity"`
	TotalPrice  float64 `json:"totalPrice"`
	IsSendEmail bool    `json:"isSendEmail"`
}

type insured struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Nationality  string `json:"nationality"`
	DateOfBirth  string `json:"dateOfBirth"`
	Passport     string `json:"passport"`
	Email        string `json:"email"`
	PhoneType    string `json:"phoneType"`
	PhoneNumber  string `json:"phoneNumber"`
	Relationship string `json:"relationship,omitempty"`
}

type contact struct {
	insured
	Address     string `json:"address"`
	City        string `json:"city"`
	ZipCode     string `json:"zipCode"`
	CountryCode string `json:"countryCode"`
}

type purchaseResponse struct {
	Status            string `json:"status"`
	PolicyNumber      string `json:"policyNumber"`
	ConfirmationEmail string `json:"confirmationEmail"`
	Message           string `json:"message"`
}

func (c *Client) Price(ctx context.Context, p *domain.TripProfile) (*domain.Quote, error) {
	if err := insurer.CheckPriceable(p); err != nil {
		return nil, err
	}

	req := pricingRequest{
		Market:       c.market,
		LanguageCode: "en",
		Channel:      "white-label",
		DeviceType:   "DESKTOP",
		Context: pricingContext{
			TripType:         p.TripType.InsurerCode(),
			DepartureDate:    p.DepartureDate.String(),
			ReturnDate:       p.ReturnDate.String(),
			DepartureCountry: p.DepartureCountry,
			ArrivalCountry:   p.ArrivalCountry,
			AdultsCount:      *p.AdultsCount,
			ChildrenCount:    *p.ChildrenCount,
		},
	}

	var resp pricingResponse
	if err := c.post(ctx, pricingPath, req, "", &resp); err != nil {
		return nil, fmt.Errorf("price trip: %w", err)
	}
	if len(resp.Offers) == 0 {
		return nil, insurer.ErrNoOffers
	}

	rec := coverage.Advise(p)
	prices := make([]float64, len(resp.Offers))
	for i, o := range resp.Offers {
		prices[i] = o.UnitPrice
	}
	o := resp.Offers[coverage.PickOffer(coverage.Plan(rec.Plan), prices)]

	q := &domain.Quote{
		QuoteID:        resp.QuoteID,
		OfferID:        o.OfferID,
		ProductCode:    o.ProductCode,
		ProductName:    o.ProductName,
		Price:          o.UnitPrice,
		Currency:       o.Currency,
		QuotedAt:       time.Now().UTC(),
		Recommendation: rec,
	}
	if q.Currency == "" {
		q.Currency = insurer.DefaultCurrency
	}
	if d, err := domain.ParseDate(o.CoverDates.From); err == nil {
		q.CoverFrom = &d
	}
	if d, err := domain.ParseDate(o.CoverDates.To); err == nil {
		q.CoverTo = &d
	}
	return q, nil
}

func (c *Client) Purchase(ctx context.Context, p *domain.TripProfile) (*domain.PurchaseResult, error) {
	if err := insurer.CheckPurchasable(p); err != nil {
		return nil, err
	}

	q := p.Quote
	currency := q.Currency
	if currency == "" {
		currency = insurer.DefaultCurrency
	}

	req := purchaseRequest{
		Market:       c.market,
		LanguageCode: "en",
		Channel:      "white-label",
		QuoteID:      q.QuoteID,
		PurchaseOffers: []purchaseOffer{{
			ProductType: "travel-insurance",
			OfferID:     q.OfferID,
			ProductCode: q.ProductCode,
			UnitPrice:   q.Price,
			Currency:    currency,
			Quantity:    1,
			TotalPrice:  q.Price,
			IsSendEmail: true,
		}},
		Insureds:    make([]insured, 0, len(p.Travelers)),
		MainContact: toContact(insurer.ContactOf(p)),
	}
	for _, t := range insurer.FilledTravelers(p) {
		in := toInsured(t)
		if in.ID == "" {
			in.ID = strconv.Itoa(len(req.Insureds) + 1)
		}
		req.Insureds = append(req.Insureds, in)
	}

	// ключ зависит только от профиля и котировки, повтор на следующем ходу
	// придет с тем же ключом и страховщик не оформит второй полис
	key := PurchaseKey(p)

	var resp purchaseResponse
	if err := c.post(ctx, purchasePath, req, key, &resp); err != nil {
		return nil, fmt.Errorf("purchase policy: %w", err)
	}
	if resp.PolicyNumber == "" {
		return nil, fmt.Errorf("%w: %s", insurer.ErrRequestFailed, resp.Message)
	}

	return &domain.PurchaseResult{
		PolicyNumber:      resp.PolicyNumber,
		Status:            resp.Status,
		ConfirmationEmail: resp.ConfirmationEmail,
		PurchasedAt:       time.Now().UTC(),
	}, nil
}

// PurchaseKey - ключ идемпотентности оформления полиса по котировке профиля
func PurchaseKey(p *domain.TripProfile) string {
	return uuid.NewSHA1(purchaseNamespace, []byte(p.ID+":"+p.Quote.QuoteID)).String()
}

func (c *Client) post(ctx context.Context, path string, payload any, idempotencyKey string, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.backoff); attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff[attempt-1]):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("x-api-key", c.apiKey)
		if idempotencyKey != "" {
			httpReq.Header.Set("X-Idempotency-Key", idempotencyKey)
		}

		resp, err := c.client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = fmt.Errorf("do request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK, http.StatusCreated:
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("unmarshal response: %w", err)
			}
			return nil

		case http.StatusUnauthorized, http.StatusForbidden:
			return insurer.ErrUnauthorized

		case http.StatusTooManyRequests:
			return insurer.ErrRateLimit

		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			c.logger.Warn("ancileo rejected request",
				zap.String("path", path),
				zap.String("body", string(respBody)),
			)
			return insurer.ErrInvalidRequest

		default:
			if resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
				c.logger.Warn("ancileo server error, retrying",
					zap.String("path", path),
					zap.Int("status", resp.StatusCode),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			return fmt.Errorf("%w: status %d", insurer.ErrRequestFailed, resp.StatusCode)
		}
	}

	if lastErr != nil {
		return fmt.Errorf("%w: %v", insurer.ErrRequestFailed, lastErr)
	}
	return insurer.ErrRequestFailed
}

func toInsured(t domain.TravelerRecord) insured {
	in := insured{
		ID:           t.ID,
		Title:        t.Title,
		FirstName:    t.FirstName,
		LastName:     t.LastName,
		Nationality:  t.Nationality,
		Passport:     t.PassportNumber,
		Email:        t.Email,
		PhoneType:    t.PhoneType,
		PhoneNumber:  t.PhoneNumber,
		Relationship: t.Relationship,
	}
	if t.DateOfBirth != nil {
		in.DateOfBirth = t.DateOfBirth.String()
	}
	return in
}

func toContact(mc domain.MainContact) contact {
	c := contact{
		insured:     toInsured(mc.TravelerRecord),
		Address:     mc.Address,
		City:        mc.City,
		ZipCode:     mc.ZipCode,
		CountryCode: mc.CountryCode,
	}
	if c.ID == "" {
		c.ID = "1"
	}
	c.Relationship = ""
	return c
}

var _ insurer.Client = (*Client)(nil)
