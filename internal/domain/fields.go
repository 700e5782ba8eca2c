package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"net/mail"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const MaxTravelers = 9

type FieldScope int

const (
	ScopeTrip FieldScope = iota
	ScopeTraveler
	ScopeContact
	ScopeNeeds
)

// FieldPath - разобранный адрес поля: "arrivalCountry", "travelers[0].firstName",
// "mainContact.city", "needs.cruise_cover"
type FieldPath struct {
	Scope FieldScope
	Index int
	Name  string
}

func (f FieldPath) String() string {
	switch f.Scope {
	case ScopeTraveler:
		return fmt.Sprintf("travelers[%d].%s", f.Index, f.Name)
	case ScopeContact:
		return "mainContact." + f.Name
	case ScopeNeeds:
		return "needs." + f.Name
	}
	return f.Name
}

// FieldDescriptor - то, что отдаем наружу в списках недостающих полей
type FieldDescriptor struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

const (
	FieldTripType         = "tripType"
	FieldDepartureDate    = "departureDate"
	FieldReturnDate       = "returnDate"
	FieldDepartureCountry = "departureCountry"
	FieldArrivalCountry   = "arrivalCountry"
	FieldAdultsCount      = "adultsCount"
	FieldChildrenCount    = "childrenCount"
	FieldNeedsAnalyzed    = "needsAnalyzed"
	FieldQuote            = "quote"
	FieldPaymentStatus    = "paymentStatus"
	FieldPurchaseResult   = "purchaseResult"
)

var tripFieldLabels = map[string]string{
	FieldTripType:         "Trip type (single or annual)",
	FieldDepartureDate:    "Departure date",
	FieldReturnDate:       "Return date",
	FieldDepartureCountry: "Departure country",
	FieldArrivalCountry:   "Destination country",
	FieldAdultsCount:      "Number of adults",
	FieldChildrenCount:    "Number of children (can be 0)",
	FieldNeedsAnalyzed:    "Coverage needs analysis",
	FieldQuote:            "Insurance quote",
	FieldPaymentStatus:    "Payment",
	FieldPurchaseResult:   "Policy purchase",
}

var travelerFieldLabels = map[string]string{
	"id":             "ID",
	"title":          "Title (Mr/Ms/Mrs)",
	"firstName":      "First name",
	"lastName":       "Last name",
	"nationality":    "Nationality",
	"dateOfBirth":    "Date of birth",
	"passportNumber": "Passport number",
	"email":          "Email",
	"phoneNumber":    "Phone number",
	"phoneType":      "Phone type (mobile/home)",
	"relationship":   "Relationship to main traveler",
}

var contactFieldLabels = map[string]string{
	"address":     "Address",
	"city":        "City",
	"zipCode":     "Zip / postal code",
	"countryCode": "Country of residence",
}

// старые имена из прототипа и из ответов LLM
var fieldAliases = map[string]string{
	"passport": "passportNumber",
	"zip":      "zipCode",
	"postcode": "zipCode",
}

var (
	travelerPathRe = regexp.MustCompile(`^(?:travelers|insureds)\[(\d+)\]\.(\w+)$`)
	validPhoneType = map[string]bool{"mobile": true, "home": true, "work": true}
	validRelation  = map[string]bool{
		"main": true, "spouse": true, "child": true, "parent": true,
		"sibling": true, "friend": true, "other": true,
	}
)

func ParseFieldPath(path string) (FieldPath, error) {
	path = strings.TrimSpace(path)

	if m := travelerPathRe.FindStringSubmatch(path); m != nil {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx >= MaxTravelers {
			return FieldPath{}, ErrTooManyTravelers
		}
		name := canonicalName(m[2])
		if _, ok := travelerFieldLabels[name]; !ok {
			return FieldPath{}, ErrUnknownField
		}
		return FieldPath{Scope: ScopeTraveler, Index: idx, Name: name}, nil
	}

	if rest, ok := strings.CutPrefix(path, "mainContact."); ok {
		name := canonicalName(rest)
		_, personal := travelerFieldLabels[name]
		_, address := contactFieldLabels[name]
		if !personal && !address {
			return FieldPath{}, ErrUnknownField
		}
		return FieldPath{Scope: ScopeContact, Name: name}, nil
	}

	if tag, ok := strings.CutPrefix(path, "needs."); ok {
		if !IsNeedTag(tag) {
			return FieldPath{}, ErrUnknownField
		}
		return FieldPath{Scope: ScopeNeeds, Name: tag}, nil
	}

	if _, ok := tripFieldLabels[path]; ok {
		return FieldPath{Scope: ScopeTrip, Name: path}, nil
	}
	return FieldPath{}, ErrUnknownField
}

func canonicalName(name string) string {
	if alias, ok := fieldAliases[name]; ok {
		return alias
	}
	return name
}

// Descriptor - путь + человекочитаемое название
func (f FieldPath) Descriptor() FieldDescriptor {
	var label string
	switch f.Scope {
	case ScopeTraveler:
		label = travelerFieldLabels[f.Name]
		if f.Index == 0 {
			label = "Main traveler: " + label
		} else {
			label = fmt.Sprintf("Traveler %d: %s", f.Index+1, label)
		}
	case ScopeContact:
		label = contactFieldLabels[f.Name]
		if label == "" {
			label = "Contact: " + travelerFieldLabels[f.Name]
		}
	case ScopeNeeds:
		label = "Coverage need: " + f.Name
	default:
		label = tripFieldLabels[f.Name]
	}
	return FieldDescriptor{Path: f.String(), Label: label}
}

// mutation - проверенное значение, готовое к записи в профиль
type mutation func(p *TripProfile)

// compile валидирует значение и возвращает мутацию. Профиль не трогает.
func (f FieldPath) compile(value any) (mutation, error) {
	switch f.Scope {
	case ScopeNeeds:
		return compileNeed(f.Name, value)
	case ScopeTraveler:
		return compileTraveler(f.Index, f.Name, value)
	case ScopeContact:
		return compileContact(f.Name, value)
	}
	return compileTrip(f.Name, value)
}

func compileTrip(name string, value any) (mutation, error) {
	switch name {
	case FieldTripType:
		s, err := asString(value)
		if err != nil {
			return nil, err
		}
		if s == "" {
			return func(p *TripProfile) { p.TripType = "" }, nil
		}
		t, err := ParseTripType(s)
		if err != nil {
			return nil, err
		}
		return func(p *TripProfile) { p.TripType = t }, nil

	case FieldDepartureDate, FieldReturnDate:
		d, err := asDate(value)
		if err != nil {
			return nil, err
		}
		if name == FieldDepartureDate {
			return func(p *TripProfile) { p.DepartureDate = d }, nil
		}
		return func(p *TripProfile) { p.ReturnDate = d }, nil

	case FieldDepartureCountry, FieldArrivalCountry:
		c, err := asCountry(value)
		if err != nil {
			return nil, err
		}
		if name == FieldDepartureCountry {
			return func(p *TripProfile) { p.DepartureCountry = c }, nil
		}
		return func(p *TripProfile) { p.ArrivalCountry = c }, nil

	case FieldAdultsCount, FieldChildrenCount:
		n, err := asCount(value)
		if err != nil {
			return nil, err
		}
		if name == FieldAdultsCount {
			return func(p *TripProfile) { p.AdultsCount = n }, nil
		}
		return func(p *TripProfile) { p.ChildrenCount = n }, nil

	case FieldNeedsAnalyzed:
		b, err := asBool(value)
		if err != nil {
			return nil, err
		}
		return func(p *TripProfile) { p.NeedsAnalyzed = b }, nil

	case FieldPaymentStatus:
		s, err := asString(value)
		if err != nil {
			return nil, err
		}
		st, err := ParsePaymentStatus(s)
		if err != nil {
			return nil, err
		}
		return func(p *TripProfile) { p.PaymentStatus = st }, nil

	case FieldQuote:
		if value == nil {
			return func(p *TripProfile) { p.Quote = nil }, nil
		}
		var q Quote
		if err := decodeRecord(value, &q); err != nil {
			return nil, err
		}
		if q.QuoteID == "" {
			return nil, fmt.Errorf("%w: quoteId is required", ErrInvalidValue)
		}
		return func(p *TripProfile) { qq := q; p.Quote = &qq }, nil

	case FieldPurchaseResult:
		if value == nil {
			return func(p *TripProfile) { p.PurchaseResult = nil }, nil
		}
		var r PurchaseResult
		if err := decodeRecord(value, &r); err != nil {
			return nil, err
		}
		if r.PolicyNumber == "" {
			return nil, fmt.Errorf("%w: policyNumber is required", ErrInvalidValue)
		}
		return func(p *TripProfile) { rr := r; p.PurchaseResult = &rr }, nil
	}
	return nil, ErrUnknownField
}

// потребности только выставляются, false - это no-op
func compileNeed(tag string, value any) (mutation, error) {
	if value == nil {
		return func(*TripProfile) {}, nil
	}
	b, err := asBool(value)
	if err != nil {
		return nil, err
	}
	if !b {
		return func(*TripProfile) {}, nil
	}
	return func(p *TripProfile) {
		if p.Needs == nil {
			p.Needs = NewNeeds()
		}
		p.Needs[tag] = true
		p.NeedsAnalyzed = true
	}, nil
}

func compileTraveler(idx int, name string, value any) (mutation, error) {
	set, err := compilePersonal(name, value)
	if err != nil {
		return nil, err
	}

	if name == "relationship" {
		rel := ""
		if r, ok := value.(string); ok {
			rel = strings.ToLower(strings.TrimSpace(r))
		}
		if idx == 0 && rel != "" && rel != RelationshipMain {
			return nil, fmt.Errorf("%w: first traveler is always %q", ErrInvalidValue, RelationshipMain)
		}
		if idx > 0 && rel == RelationshipMain {
			return nil, fmt.Errorf("%w: only the first traveler can be %q", ErrInvalidValue, RelationshipMain)
		}
	}

	clearing := isClear(value)
	return func(p *TripProfile) {
		if idx >= len(p.Travelers) {
			if clearing {
				return
			}
			growTravelers(p, idx+1)
		}
		set(&p.Travelers[idx])
		if idx == 0 {
			p.Travelers[0].Relationship = RelationshipMain
			if p.Travelers[0].ID == "" {
				p.Travelers[0].ID = "1"
			}
		}
	}, nil
}

func compileContact(name string, value any) (mutation, error) {
	if _, personal := travelerFieldLabels[name]; personal {
		if name == "relationship" {
			return nil, ErrUnknownField
		}
		set, err := compilePersonal(name, value)
		if err != nil {
			return nil, err
		}
		return func(p *TripProfile) { set(&p.MainContact.TravelerRecord) }, nil
	}

	if name == "countryCode" {
		c, err := asCountry(value)
		if err != nil {
			return nil, err
		}
		return func(p *TripProfile) { p.MainContact.CountryCode = c }, nil
	}

	s, err := asString(value)
	if err != nil {
		return nil, err
	}
	switch name {
	case "address":
		return func(p *TripProfile) { p.MainContact.Address = s }, nil
	case "city":
		return func(p *TripProfile) { p.MainContact.City = s }, nil
	case "zipCode":
		return func(p *TripProfile) { p.MainContact.ZipCode = s }, nil
	}
	return nil, ErrUnknownField
}

func compilePersonal(name string, value any) (func(r *TravelerRecord), error) {
	switch name {
	case "nationality":
		c, err := asCountry(value)
		if err != nil {
			return nil, err
		}
		return func(r *TravelerRecord) { r.Nationality = c }, nil

	case "dateOfBirth":
		d, err := asDate(value)
		if err != nil {
			return nil, err
		}
		if d != nil && d.After(DateOf(time.Now())) {
			return nil, fmt.Errorf("%w: date of birth is in the future", ErrInvalidDate)
		}
		return func(r *TravelerRecord) { r.DateOfBirth = d }, nil
	}

	s, err := asString(value)
	if err != nil {
		return nil, err
	}

	switch name {
	case "id":
		return func(r *TravelerRecord) { r.ID = s }, nil
	case "title":
		return func(r *TravelerRecord) { r.Title = s }, nil
	case "firstName":
		return func(r *TravelerRecord) { r.FirstName = s }, nil
	case "lastName":
		return func(r *TravelerRecord) { r.LastName = s }, nil
	case "passportNumber":
		s = strings.ToUpper(strings.ReplaceAll(s, " ", ""))
		return func(r *TravelerRecord) { r.PassportNumber = s }, nil
	case "email":
		if s != "" {
			addr, err := mail.ParseAddress(s)
			if err != nil {
				return nil, fmt.Errorf("%w: email %q", ErrInvalidValue, s)
			}
			s = addr.Address
		}
		return func(r *TravelerRecord) { r.Email = s }, nil
	case "phoneNumber":
		return func(r *TravelerRecord) { r.PhoneNumber = s }, nil
	case "phoneType":
		s = strings.ToLower(s)
		if s != "" && !validPhoneType[s] {
			return nil, fmt.Errorf("%w: phone type %q", ErrInvalidValue, s)
		}
		return func(r *TravelerRecord) { r.PhoneType = s }, nil
	case "relationship":
		s = strings.ToLower(s)
		if s != "" && !validRelation[s] {
			return nil, fmt.Errorf("%w: relationship %q", ErrInvalidValue, s)
		}
		return func(r *TravelerRecord) { r.Relationship = s }, nil
	}
	return nil, ErrUnknownField
}

func growTravelers(p *TripProfile, n int) {
	for len(p.Travelers) < n {
		p.Travelers = append(p.Travelers, TravelerRecord{})
	}
}

func isClear(value any) bool {
	if value == nil {
		return true
	}
	s, ok := value.(string)
	return ok && strings.TrimSpace(s) == ""
}

func asString(value any) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(v), nil
	case PaymentStatus:
		return string(v), nil
	case TripType:
		return string(v), nil
	case json.Number:
		return v.String(), nil
	case float64:
		if v == math.Trunc(v) {
			return strconv.FormatInt(int64(v), 10), nil
		}
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	}
	return "", fmt.Errorf("%w: expected string, got %T", ErrInvalidValue, value)
}

func asDate(value any) (*Date, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case Date:
		return &v, nil
	case *Date:
		return cloneDate(v), nil
	case time.Time:
		d := DateOf(v)
		return &d, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		d, err := ParseDate(v)
		if err != nil {
			return nil, err
		}
		return &d, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrInvalidDate, value)
}

func asCountry(value any) (string, error) {
	s, err := asString(value)
	if err != nil {
		return "", ErrInvalidCountryCode
	}
	if s == "" {
		return "", nil
	}
	c, err := NormalizeCountryCode(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidCountryCode, s)
	}
	return c, nil
}

func asCount(value any) (*int, error) {
	var n int64
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int:
		n = int64(v)
	case int64:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return nil, fmt.Errorf("%w: %v is not a whole number", ErrInvalidValue, v)
		}
		n = int64(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidValue, v)
		}
		n = i
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return nil, nil
		}
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, v)
		}
		n = i
	default:
		return nil, fmt.Errorf("%w: expected number, got %T", ErrInvalidValue, value)
	}
	if n < 0 || n > MaxTravelers {
		return nil, fmt.Errorf("%w: count %d out of range", ErrInvalidValue, n)
	}
	i := int(n)
	return &i, nil
}

func asBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, v)
		}
		return b, nil
	}
	return false, fmt.Errorf("%w: expected boolean, got %T", ErrInvalidValue, value)
}

// decodeRecord принимает типизированную запись или JSON-объект
func decodeRecord(value any, out any) error {
	switch v := value.(type) {
	case *Quote:
		if q, ok := out.(*Quote); ok && v != nil {
			*q = *v
			return nil
		}
	case Quote:
		if q, ok := out.(*Quote); ok {
			*q = v
			return nil
		}
	case *PurchaseResult:
		if r, ok := out.(*PurchaseResult); ok && v != nil {
			*r = *v
			return nil
		}
	case PurchaseResult:
		if r, ok := out.(*PurchaseResult); ok {
			*r = v
			return nil
		}
	case map[string]any, json.RawMessage:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidValue, err)
		}
		return nil
	}
	return fmt.Errorf("%w: unexpected %T", ErrInvalidValue, value)
}
