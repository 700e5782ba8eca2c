package domain

import (
	"errors"
	"testing"
)

func TestParseFieldPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		want    FieldPath
		wantErr error
	}{
		{name: "top level", path: "arrivalCountry", want: FieldPath{Scope: ScopeTrip, Name: "arrivalCountry"}},
		{name: "traveler", path: "travelers[2].firstName", want: FieldPath{Scope: ScopeTraveler, Index: 2, Name: "firstName"}},
		{name: "insureds alias", path: "insureds[0].passport", want: FieldPath{Scope: ScopeTraveler, Index: 0, Name: "passportNumber"}},
		{name: "contact address", path: "mainContact.zipCode", want: FieldPath{Scope: ScopeContact, Name: "zipCode"}},
		{name: "contact personal", path: "mainContact.firstName", want: FieldPath{Scope: ScopeContact, Name: "firstName"}},
		{name: "needs tag", path: "needs.cruise_cover", want: FieldPath{Scope: ScopeNeeds, Name: "cruise_cover"}},
		{name: "unknown top level", path: "favouriteColour", wantErr: ErrUnknownField},
		{name: "unknown traveler field", path: "travelers[0].shoeSize", wantErr: ErrUnknownField},
		{name: "unknown need", path: "needs.free_pizza", wantErr: ErrUnknownField},
		{name: "traveler index too big", path: "travelers[9].firstName", wantErr: ErrTooManyTravelers},
		{name: "two levels of nesting", path: "mainContact.address.street", wantErr: ErrUnknownField},
		{name: "empty", path: "", wantErr: ErrUnknownField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFieldPath(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ParseFieldPath(%q) error = %v, want %v", tt.path, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFieldPath(%q) unexpected error: %v", tt.path, err)
			}
			if got != tt.want {
				t.Errorf("ParseFieldPath(%q) = %+v, want %+v", tt.path, got, tt.want)
			}
		})
	}
}

func TestFieldPath_String(t *testing.T) {
	for _, path := range []string{"tripType", "travelers[1].email", "mainContact.city", "needs.pet_care"} {
		fp, err := ParseFieldPath(path)
		if err != nil {
			t.Fatalf("ParseFieldPath(%q): %v", path, err)
		}
		if fp.String() != path {
			t.Errorf("String() = %q, want %q", fp.String(), path)
		}
	}
}

func TestFieldPath_Descriptor(t *testing.T) {
	fp := FieldPath{Scope: ScopeTraveler, Index: 0, Name: "firstName"}
	d := fp.Descriptor()
	if d.Path != "travelers[0].firstName" {
		t.Errorf("Path = %q", d.Path)
	}
	if d.Label != "Main traveler: First name" {
		t.Errorf("Label = %q", d.Label)
	}

	d = FieldPath{Scope: ScopeTraveler, Index: 2, Name: "lastName"}.Descriptor()
	if d.Label != "Traveler 3: Last name" {
		t.Errorf("Label = %q", d.Label)
	}
}

func TestAsCount(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantNil bool
		wantErr bool
	}{
		{name: "int", value: 2, want: 2},
		{name: "json float", value: float64(3), want: 3},
		{name: "numeric string", value: " 1 ", want: 1},
		{name: "zero", value: 0, want: 0},
		{name: "nil clears", value: nil, wantNil: true},
		{name: "empty string clears", value: "", wantNil: true},
		{name: "negative", value: -1, wantErr: true},
		{name: "fraction", value: 1.5, wantErr: true},
		{name: "words", value: "two", wantErr: true},
		{name: "bool", value: true, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := asCount(tt.value)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidValue) {
					t.Fatalf("asCount(%v) error = %v, want ErrInvalidValue", tt.value, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("asCount(%v) unexpected error: %v", tt.value, err)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("asCount(%v) = %d, want nil", tt.value, *got)
				}
				return
			}
			if got == nil || *got != tt.want {
				t.Errorf("asCount(%v) = %v, want %d", tt.value, got, tt.want)
			}
		})
	}
}

func TestAsCountry(t *testing.T) {
	tests := []struct {
		value   any
		want    string
		wantErr bool
	}{
		{value: "fr", want: "FR"},
		{value: " sg ", want: "SG"},
		{value: "", want: ""},
		{value: nil, want: ""},
		{value: "XX", wantErr: true},
		{value: "France", wantErr: true},
		{value: 42, wantErr: true},
	}

	for _, tt := range tests {
		got, err := asCountry(tt.value)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidCountryCode) {
				t.Errorf("asCountry(%v) error = %v, want ErrInvalidCountryCode", tt.value, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("asCountry(%v) = %q, %v, want %q", tt.value, got, err, tt.want)
		}
	}
}

func TestDecodeRecord_Quote(t *testing.T) {
	var q Quote
	err := decodeRecord(map[string]any{
		"quoteId":  "q-1",
		"offerId":  "o-7",
		"price":    123.5,
		"currency": "SGD",
	}, &q)
	if err != nil {
		t.Fatalf("decodeRecord() error: %v", err)
	}
	if q.QuoteID != "q-1" || q.OfferID != "o-7" || q.Price != 123.5 {
		t.Errorf("decodeRecord() = %+v", q)
	}

	if err := decodeRecord("q-1", &q); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("decodeRecord(string) error = %v, want ErrInvalidValue", err)
	}
}
