package domain

import (
	"fmt"
	"strings"
)

type Stage string

const (
	StageTripInfo      Stage = "TRIP_INFO"
	StageNeedsAnalysis Stage = "NEEDS_ANALYSIS"
	StagePersonalInfo  Stage = "PERSONAL_INFO"
	StageContactInfo   Stage = "CONTACT_INFO"
	StageQuoteReady    Stage = "QUOTE_READY"
	StagePurchaseReady Stage = "PURCHASE_READY"
	StageDone          Stage = "DONE"
)

// Stages - порядок пайплайна, DONE сюда не входит
var Stages = []Stage{
	StageTripInfo,
	StageNeedsAnalysis,
	StagePersonalInfo,
	StageContactInfo,
	StageQuoteReady,
	StagePurchaseReady,
}

func ParseStage(s string) (Stage, error) {
	st := Stage(strings.ToUpper(strings.TrimSpace(s)))
	if st == StageDone {
		return st, nil
	}
	for _, known := range Stages {
		if st == known {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: stage %q", ErrInvalidValue, s)
}

func (s Stage) String() string { return string(s) }

// таблица обязательных полей, порядок = канонический порядок вывода
var (
	tripRequired = []FieldPath{
		{Name: FieldTripType},
		{Name: FieldDepartureDate},
		{Name: FieldReturnDate},
		{Name: FieldDepartureCountry},
		{Name: FieldArrivalCountry},
		{Name: FieldAdultsCount},
		{Name: FieldChildrenCount},
	}

	travelerRequired = []FieldPath{
		{Scope: ScopeTraveler, Name: "title"},
		{Scope: ScopeTraveler, Name: "firstName"},
		{Scope: ScopeTraveler, Name: "lastName"},
		{Scope: ScopeTraveler, Name: "nationality"},
		{Scope: ScopeTraveler, Name: "dateOfBirth"},
		{Scope: ScopeTraveler, Name: "passportNumber"},
		{Scope: ScopeTraveler, Name: "email"},
		{Scope: ScopeTraveler, Name: "phoneNumber"},
		{Scope: ScopeTraveler, Name: "phoneType"},
	}

	contactRequired = []FieldPath{
		{Scope: ScopeContact, Name: "address"},
		{Scope: ScopeContact, Name: "city"},
		{Scope: ScopeContact, Name: "zipCode"},
		{Scope: ScopeContact, Name: "countryCode"},
	}

	needsRequired = FieldPath{Name: FieldNeedsAnalyzed}
	quoteRequired = FieldPath{Name: FieldQuote}
	payRequired   = FieldPath{Name: FieldPaymentStatus}
	buyRequired   = FieldPath{Name: FieldPurchaseResult}
)

// isMissing - пусто, nil или (для взрослых) меньше единицы
func (p *TripProfile) isMissing(f FieldPath) bool {
	switch f.Scope {
	case ScopeTraveler:
		if f.Index >= len(p.Travelers) {
			return true
		}
		return personalMissing(&p.Travelers[f.Index], f.Name)
	case ScopeContact:
		switch f.Name {
		case "address":
			return p.MainContact.Address == ""
		case "city":
			return p.MainContact.City == ""
		case "zipCode":
			return p.MainContact.ZipCode == ""
		case "countryCode":
			return p.MainContact.CountryCode == ""
		}
		return personalMissing(&p.MainContact.TravelerRecord, f.Name)
	case ScopeNeeds:
		return !p.Needs[f.Name]
	}

	switch f.Name {
	case FieldTripType:
		return !p.TripType.IsValid()
	case FieldDepartureDate:
		return p.DepartureDate == nil
	case FieldReturnDate:
		return p.ReturnDate == nil
	case FieldDepartureCountry:
		return p.DepartureCountry == ""
	case FieldArrivalCountry:
		return p.ArrivalCountry == ""
	case FieldAdultsCount:
		return p.AdultsCount == nil || *p.AdultsCount < 1
	case FieldChildrenCount:
		return p.ChildrenCount == nil
	case FieldNeedsAnalyzed:
		return !p.NeedsAnalyzed && len(ActiveNeeds(p.Needs)) == 0
	case FieldQuote:
		return p.Quote == nil
	case FieldPaymentStatus:
		return p.PaymentStatus != PaymentCompleted
	case FieldPurchaseResult:
		return p.PurchaseResult == nil
	}
	return true
}

func personalMissing(r *TravelerRecord, name string) bool {
	switch name {
	case "id":
		return r.ID == ""
	case "title":
		return r.Title == ""
	case "firstName":
		return r.FirstName == ""
	case "lastName":
		return r.LastName == ""
	case "nationality":
		return r.Nationality == ""
	case "dateOfBirth":
		return r.DateOfBirth == nil
	case "passportNumber":
		return r.PassportNumber == ""
	case "email":
		return r.Email == ""
	case "phoneNumber":
		return r.PhoneNumber == ""
	case "phoneType":
		return r.PhoneType == ""
	case "relationship":
		return r.Relationship == ""
	}
	return true
}

func (p *TripProfile) missingOf(fields []FieldPath) []FieldDescriptor {
	var out []FieldDescriptor
	for _, f := range fields {
		if p.isMissing(f) {
			out = append(out, f.Descriptor())
		}
	}
	return out
}

func (p *TripProfile) allPresent(fields []FieldPath) bool {
	for _, f := range fields {
		if p.isMissing(f) {
			return false
		}
	}
	return true
}

func (p *TripProfile) tripComplete() bool     { return p.allPresent(tripRequired) }
func (p *TripProfile) personalComplete() bool { return p.allPresent(travelerRequired) }
func (p *TripProfile) contactComplete() bool  { return p.allPresent(contactRequired) }

func (p *TripProfile) needsUnlocked() bool {
	return p.ArrivalCountry != "" && (p.DepartureDate != nil || p.ReturnDate != nil)
}

// анализ потребностей можно пропустить, если пользователь уже заполнил личные данные.
// Завершенность от разблокировки не зависит: тег, выставленный до дат поездки,
// закрывает этап, пока он еще заблокирован, и сразу открывает PERSONAL_INFO.
func (p *TripProfile) needsComplete() bool {
	return !p.isMissing(needsRequired) || p.personalComplete()
}

// StageUnlocked - можно ли запускать этап на текущем снапшоте
func (p *TripProfile) StageUnlocked(s Stage) bool {
	switch s {
	case StageTripInfo:
		return true
	case StageNeedsAnalysis:
		return p.needsUnlocked()
	case StagePersonalInfo:
		return p.needsComplete()
	case StageContactInfo:
		return p.personalComplete()
	case StageQuoteReady:
		return p.tripComplete() && p.personalComplete() && p.contactComplete()
	case StagePurchaseReady:
		return p.Quote != nil && p.PaymentStatus == PaymentCompleted
	case StageDone:
		return p.StageComplete(StagePurchaseReady)
	}
	return false
}

// StageComplete - выдал ли этап свой результат
func (p *TripProfile) StageComplete(s Stage) bool {
	switch s {
	case StageTripInfo:
		return p.tripComplete()
	case StageNeedsAnalysis:
		return p.needsComplete()
	case StagePersonalInfo:
		return p.personalComplete()
	case StageContactInfo:
		return p.contactComplete()
	case StageQuoteReady:
		return p.Quote != nil
	case StagePurchaseReady:
		return p.PurchaseResult != nil
	case StageDone:
		return p.PurchaseResult != nil
	}
	return false
}

// NextStage - первый по порядку незавершенный этап, каждый раз считается заново
func (p *TripProfile) NextStage() Stage {
	for _, s := range Stages {
		if !p.StageComplete(s) {
			return s
		}
	}
	return StageDone
}

// MissingFields - чего не хватает, чтобы этап был и открыт, и завершен
func (p *TripProfile) MissingFields(s Stage) []FieldDescriptor {
	switch s {
	case StageTripInfo:
		return p.missingOf(tripRequired)
	case StageNeedsAnalysis:
		var fields []FieldPath
		if p.ArrivalCountry == "" {
			fields = append(fields, FieldPath{Name: FieldArrivalCountry})
		}
		if p.DepartureDate == nil && p.ReturnDate == nil {
			fields = append(fields, FieldPath{Name: FieldDepartureDate}, FieldPath{Name: FieldReturnDate})
		}
		if !p.needsComplete() {
			fields = append(fields, needsRequired)
		}
		out := make([]FieldDescriptor, 0, len(fields))
		for _, f := range fields {
			out = append(out, f.Descriptor())
		}
		return out
	case StagePersonalInfo:
		return p.missingOf(travelerRequired)
	case StageContactInfo:
		return p.missingOf(contactRequired)
	case StageQuoteReady:
		fields := make([]FieldPath, 0, len(tripRequired)+len(travelerRequired)+len(contactRequired)+1)
		fields = append(fields, tripRequired...)
		fields = append(fields, travelerRequired...)
		fields = append(fields, contactRequired...)
		fields = append(fields, quoteRequired)
		return p.missingOf(fields)
	case StagePurchaseReady:
		return p.missingOf([]FieldPath{quoteRequired, payRequired, buyRequired})
	}
	return nil
}

// StageStatus - срез по одному этапу для /status и HTTP API
type StageStatus struct {
	Stage    Stage             `json:"stage"`
	Unlocked bool              `json:"unlocked"`
	Complete bool              `json:"complete"`
	Missing  []FieldDescriptor `json:"missing,omitempty"`
}

func (p *TripProfile) StageReport() []StageStatus {
	out := make([]StageStatus, 0, len(Stages))
	for _, s := range Stages {
		out = append(out, StageStatus{
			Stage:    s,
			Unlocked: p.StageUnlocked(s),
			Complete: p.StageComplete(s),
			Missing:  p.MissingFields(s),
		})
	}
	return out
}
