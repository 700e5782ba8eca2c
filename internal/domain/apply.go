package domain

import (
	"reflect"
	"sort"
	"time"
)

// BatchResult - итог применения пачки обновлений к профилю
type BatchResult struct {
	Profile  *TripProfile
	Applied  []string
	Rejected []*FieldError
	Changed  bool
}

type compiledUpdate struct {
	path   string
	isDate bool
	apply  mutation
}

// ApplyBatch валидирует каждое поле отдельно и применяет все валидные разом
// к копии профиля. Исходный профиль не меняется.
func ApplyBatch(p *TripProfile, updates map[string]any, now time.Time) BatchResult {
	res := BatchResult{}

	paths := make([]string, 0, len(updates))
	for path := range updates {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var ops []compiledUpdate
	for _, path := range paths {
		value := updates[path]
		fp, err := ParseFieldPath(path)
		if err != nil {
			res.Rejected = append(res.Rejected, newFieldError(path, value, err))
			continue
		}
		m, err := fp.compile(value)
		if err != nil {
			res.Rejected = append(res.Rejected, newFieldError(path, value, err))
			continue
		}
		isDate := fp.Scope == ScopeTrip && (fp.Name == FieldDepartureDate || fp.Name == FieldReturnDate)
		ops = append(ops, compiledUpdate{path: path, isDate: isDate, apply: m})
	}

	next := run(p, ops)
	if !datesOrdered(next) {
		// откатываем только даты этой пачки
		kept := ops[:0:0]
		for _, op := range ops {
			if op.isDate {
				res.Rejected = append(res.Rejected, newFieldError(op.path, updates[op.path], ErrInvalidDateRange))
				continue
			}
			kept = append(kept, op)
		}
		ops = kept
		next = run(p, ops)
	}

	for _, op := range ops {
		res.Applied = append(res.Applied, op.path)
	}
	sort.Slice(res.Rejected, func(i, j int) bool { return res.Rejected[i].Path < res.Rejected[j].Path })

	res.Changed = !reflect.DeepEqual(p, next)
	if res.Changed {
		next.UpdatedAt = now.UTC()
	}
	res.Profile = next
	return res
}

func run(p *TripProfile, ops []compiledUpdate) *TripProfile {
	next := p.Clone()
	next.Normalize()
	for _, op := range ops {
		op.apply(next)
	}
	next.Normalize()
	return next
}

func datesOrdered(p *TripProfile) bool {
	if p.DepartureDate == nil || p.ReturnDate == nil {
		return true
	}
	return !p.DepartureDate.After(*p.ReturnDate)
}

// SetupTravelers пересобирает список путешественников по счетчикам.
// Уже заполненные поля не затираются пустыми значениями из mainContact.
// Второй результат - изменился ли профиль.
func SetupTravelers(p *TripProfile, now time.Time) (*TripProfile, bool, error) {
	n := p.TravelerCount()
	if n < 1 {
		return nil, false, ErrNoTravelerCount
	}
	if n > MaxTravelers {
		return nil, false, ErrTooManyTravelers
	}

	next := p.Clone()
	next.Normalize()

	travelers := make([]TravelerRecord, n)
	copy(travelers, next.Travelers)
	travelers[0] = FillEmpty(travelers[0], next.MainContact.TravelerRecord)
	travelers[0].Relationship = RelationshipMain
	if travelers[0].ID == "" {
		travelers[0].ID = "1"
	}
	next.Travelers = travelers

	changed := !reflect.DeepEqual(p, next)
	if changed {
		next.UpdatedAt = now.UTC()
	}
	return next, changed, nil
}

// FillEmpty дозаполняет пустые поля dst из src, заполненное не трогает
func FillEmpty(dst, src TravelerRecord) TravelerRecord {
	pick := func(d *string, s string) {
		if *d == "" && s != "" {
			*d = s
		}
	}
	pick(&dst.Title, src.Title)
	pick(&dst.FirstName, src.FirstName)
	pick(&dst.LastName, src.LastName)
	pick(&dst.Nationality, src.Nationality)
	pick(&dst.PassportNumber, src.PassportNumber)
	pick(&dst.Email, src.Email)
	pick(&dst.PhoneNumber, src.PhoneNumber)
	pick(&dst.PhoneType, src.PhoneType)
	if dst.DateOfBirth == nil && src.DateOfBirth != nil {
		dst.DateOfBirth = cloneDate(src.DateOfBirth)
	}
	return dst
}
