package domain

import (
	"strings"
	"time"
)

type TripType string

const (
	TripSingle TripType = "SINGLE"
	TripAnnual TripType = "ANNUAL"
)

// ParseTripType принимает и наши значения, и коды страховщика (ST/AN)
func ParseTripType(s string) (TripType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SINGLE", "ST", "SINGLE_TRIP":
		return TripSingle, nil
	case "ANNUAL", "AN", "ANNUAL_TRIP":
		return TripAnnual, nil
	}
	return "", ErrInvalidValue
}

func (t TripType) IsValid() bool {
	return t == TripSingle || t == TripAnnual
}

// InsurerCode - код для API страховщика
func (t TripType) InsurerCode() string {
	if t == TripAnnual {
		return "AN"
	}
	return "ST"
}

func (t TripType) String() string { return string(t) }

type PaymentStatus string

const (
	PaymentNone      PaymentStatus = "NONE"
	PaymentPending   PaymentStatus = "PENDING"
	PaymentCompleted PaymentStatus = "COMPLETED"
	PaymentFailed    PaymentStatus = "FAILED"
)

func ParsePaymentStatus(s string) (PaymentStatus, error) {
	switch p := PaymentStatus(strings.ToUpper(strings.TrimSpace(s))); p {
	case PaymentNone, PaymentPending, PaymentCompleted, PaymentFailed:
		return p, nil
	case "":
		return PaymentNone, nil
	}
	return "", ErrInvalidValue
}

func (p PaymentStatus) String() string { return string(p) }

const RelationshipMain = "main"

type TravelerRecord struct {
	ID             string `json:"id,omitempty"`
	Title          string `json:"title,omitempty"`
	FirstName      string `json:"firstName,omitempty"`
	LastName       string `json:"lastName,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	DateOfBirth    *Date  `json:"dateOfBirth,omitempty"`
	PassportNumber string `json:"passportNumber,omitempty"`
	Email          string `json:"email,omitempty"`
	PhoneNumber    string `json:"phoneNumber,omitempty"`
	PhoneType      string `json:"phoneType,omitempty"`
	Relationship   string `json:"relationship,omitempty"`
}

func (r TravelerRecord) IsEmpty() bool {
	return r == TravelerRecord{}
}

// MainContact - владелец аккаунта: личные поля + адрес
type MainContact struct {
	TravelerRecord
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	ZipCode     string `json:"zipCode,omitempty"`
	CountryCode string `json:"countryCode,omitempty"`
}

type Quote struct {
	QuoteID     string    `json:"quoteId"`
	OfferID     string    `json:"offerId"`
	ProductCode string    `json:"productCode,omitempty"`
	ProductName string    `json:"productName,omitempty"`
	Price       float64   `json:"price"`
	Currency    string    `json:"currency,omitempty"`
	CoverFrom   *Date     `json:"coverFrom,omitempty"`
	CoverTo     *Date     `json:"coverTo,omitempty"`
	QuotedAt    time.Time `json:"quotedAt,omitempty"`

	Recommendation *Recommendation `json:"recommendation,omitempty"`
}

// Recommendation - рекомендованные суммы покрытия и план, по которому выбрана оферта
type Recommendation struct {
	Category            string   `json:"category"`
	Plan                string   `json:"plan"`
	MedicalExpenses     int      `json:"medicalExpenses"`
	EmergencyEvacuation int      `json:"emergencyEvacuation"`
	PersonalEffects     int      `json:"personalEffects"`
	TripCancellation    int      `json:"tripCancellation"`
	Reasons             []string `json:"reasons,omitempty"`
}

type PurchaseResult struct {
	PolicyNumber      string    `json:"policyNumber"`
	Status            string    `json:"status,omitempty"`
	ConfirmationEmail string    `json:"confirmationEmail,omitempty"`
	PurchasedAt       time.Time `json:"purchasedAt,omitempty"`
}

// TripProfile - каноническая запись о поездке одного пользователя.
// Мутирует только ProfileEngine, остальные присылают обновления.
type TripProfile struct {
	ID               string           `json:"id"`
	TripType         TripType         `json:"tripType,omitempty"`
	DepartureDate    *Date            `json:"departureDate,omitempty"`
	ReturnDate       *Date            `json:"returnDate,omitempty"`
	DepartureCountry string           `json:"departureCountry,omitempty"`
	ArrivalCountry   string           `json:"arrivalCountry,omitempty"`
	AdultsCount      *int             `json:"adultsCount,omitempty"`
	ChildrenCount    *int             `json:"childrenCount,omitempty"`
	Travelers        []TravelerRecord `json:"travelers"`
	MainContact      MainContact      `json:"mainContact"`
	Needs            map[string]bool  `json:"needs"`
	NeedsAnalyzed    bool             `json:"needsAnalyzed"`
	Quote            *Quote           `json:"quote,omitempty"`
	PaymentStatus    PaymentStatus    `json:"paymentStatus"`
	PurchaseResult   *PurchaseResult  `json:"purchaseResult,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// NewTripProfile - пустой профиль для нового пользователя
func NewTripProfile(id string) *TripProfile {
	now := time.Now().UTC()
	return &TripProfile{
		ID:            id,
		Travelers:     []TravelerRecord{},
		Needs:         NewNeeds(),
		PaymentStatus: PaymentNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Clone - глубокая копия, снапшоты наружу отдаем только так
func (p *TripProfile) Clone() *TripProfile {
	if p == nil {
		return nil
	}
	c := *p
	c.DepartureDate = cloneDate(p.DepartureDate)
	c.ReturnDate = cloneDate(p.ReturnDate)
	c.AdultsCount = cloneInt(p.AdultsCount)
	c.ChildrenCount = cloneInt(p.ChildrenCount)

	c.Travelers = make([]TravelerRecord, len(p.Travelers))
	for i, t := range p.Travelers {
		c.Travelers[i] = t.clone()
	}
	c.MainContact.TravelerRecord = p.MainContact.TravelerRecord.clone()

	c.Needs = make(map[string]bool, len(p.Needs))
	for k, v := range p.Needs {
		c.Needs[k] = v
	}

	if p.Quote != nil {
		q := *p.Quote
		q.CoverFrom = cloneDate(p.Quote.CoverFrom)
		q.CoverTo = cloneDate(p.Quote.CoverTo)
		if r := p.Quote.Recommendation; r != nil {
			rc := *r
			rc.Reasons = append([]string(nil), r.Reasons...)
			q.Recommendation = &rc
		}
		c.Quote = &q
	}
	if p.PurchaseResult != nil {
		r := *p.PurchaseResult
		c.PurchaseResult = &r
	}
	return &c
}

// Normalize чинит то, что могло прийти из хранилища в неполном виде
func (p *TripProfile) Normalize() {
	p.Needs = NormalizeNeeds(p.Needs)
	if p.Travelers == nil {
		p.Travelers = []TravelerRecord{}
	}
	if p.PaymentStatus == "" {
		p.PaymentStatus = PaymentNone
	}
	if len(p.Travelers) > 0 {
		p.Travelers[0].Relationship = RelationshipMain
		if p.Travelers[0].ID == "" {
			p.Travelers[0].ID = "1"
		}
	}
}

func (p *TripProfile) TravelerCount() int {
	n := 0
	if p.AdultsCount != nil {
		n += *p.AdultsCount
	}
	if p.ChildrenCount != nil {
		n += *p.ChildrenCount
	}
	return n
}

func (r TravelerRecord) clone() TravelerRecord {
	c := r
	c.DateOfBirth = cloneDate(r.DateOfBirth)
	return c
}

func cloneDate(d *Date) *Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func IntPtr(i int) *int { return &i }

func DatePtr(d Date) *Date { return &d }
