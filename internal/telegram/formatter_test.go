package telegram

import (
	"strings"
	"testing"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/service"
)

func TestFormatReply(t *testing.T) {
	from := domain.NewDate(2026, 3, 1)
	to := domain.NewDate(2026, 3, 8)
	quoted := domain.NewTripProfile("tg:1")
	quoted.Quote = &domain.Quote{QuoteID: "q", Price: 17.6, Currency: "SGD", ProductName: "Scootsurance", CoverFrom: &from, CoverTo: &to}
	quoted.Quote.Recommendation = &domain.Recommendation{Category: "cruise", Plan: "C", MedicalExpenses: 24000}

	purchased := domain.NewTripProfile("tg:1")
	purchased.PurchaseResult = &domain.PurchaseResult{PolicyNumber: "POL-2026-000001", ConfirmationEmail: "wei@example.com"}

	tests := []struct {
		name  string
		reply *service.Reply
		want  []string
		not   []string
	}{
		{
			name: "rejected field with reason",
			reply: &service.Reply{
				Profile:   domain.NewTripProfile("tg:1"),
				Rejected:  []*domain.FieldError{{Path: "arrivalCountry", Value: "Narnia", Err: domain.ErrInvalidCountryCode}},
				NextStage: domain.StageTripInfo,
				Missing:   []domain.FieldDescriptor{{Path: "arrivalCountry", Label: "Destination country"}},
			},
			want: []string{"I could not use", "Destination country: unknown country", "Next: Trip details", "• Destination country"},
		},
		{
			name: "quote event",
			reply: &service.Reply{
				Profile:   quoted,
				Events:    []service.Event{service.EventQuoted},
				NextStage: domain.StagePurchaseReady,
				Missing:   []domain.FieldDescriptor{{Path: domain.FieldPaymentStatus, Label: "Payment"}},
			},
			want: []string{"SGD 17.60", "Scootsurance", "2026-03-01 to 2026-03-08", "Plan C for a cruise trip", "SGD 24000", "/pay"},
			not:  []string{"I could not use"},
		},
		{
			name: "purchase done",
			reply: &service.Reply{
				Profile:   purchased,
				Events:    []service.Event{service.EventPaymentCompleted, service.EventPurchased},
				NextStage: domain.StageDone,
			},
			want: []string{"Payment received", "POL-2026-000001", "wei@example.com", "All done"},
		},
		{
			name: "failures are shown",
			reply: &service.Reply{
				Profile:   domain.NewTripProfile("tg:1"),
				Failures:  []string{"could not get a quote right now"},
				NextStage: domain.StageQuoteReady,
			},
			want: []string{"<i>could not get a quote right now</i>"},
		},
		{
			name: "personal info hints doc command",
			reply: &service.Reply{
				Profile:   domain.NewTripProfile("tg:1"),
				NextStage: domain.StagePersonalInfo,
				Missing:   []domain.FieldDescriptor{{Path: "travelers[0].firstName", Label: "Main traveler: First name"}},
			},
			want: []string{"Traveler details", "Main traveler: First name", "/doc"},
		},
		{
			name: "user input is escaped",
			reply: &service.Reply{
				Profile:   domain.NewTripProfile("tg:1"),
				Rejected:  []*domain.FieldError{{Path: "<b>", Err: domain.ErrUnknownField}},
				NextStage: domain.StageTripInfo,
			},
			want: []string{"&lt;b&gt;: not something I track"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatReply(tt.reply)
			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("FormatReply() missing %q in:\n%s", w, got)
				}
			}
			for _, n := range tt.not {
				if strings.Contains(got, n) {
					t.Errorf("FormatReply() should not contain %q", n)
				}
			}
		})
	}
}

func TestFormatStatus(t *testing.T) {
	locked := domain.NewTripProfile("tg:1")
	locked.ArrivalCountry = "JP"

	// тег потребности закрывает анализ и открывает личные данные
	tagged := domain.NewTripProfile("tg:1")
	tagged.ArrivalCountry = "JP"
	tagged.Needs["cruise_cover"] = true

	tests := []struct {
		name    string
		profile *domain.TripProfile
		want    []string
		not     []string
	}{
		{
			name:    "locked stages hide their fields",
			profile: locked,
			want:    []string{"Your application", "○ Coverage needs", "○ Traveler details", "◐ Trip details", "· Departure date"},
			not:     []string{"First name", "Coverage needs:</b>"},
		},
		{
			name:    "need tag completes analysis",
			profile: tagged,
			want:    []string{"● Coverage needs", "◐ Traveler details", "First name", "◐ Trip details", "cruise_cover"},
			not:     []string{"Address"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &service.Reply{Profile: tt.profile, Report: tt.profile.StageReport()}
			got := FormatStatus(r)

			for _, w := range tt.want {
				if !strings.Contains(got, w) {
					t.Errorf("FormatStatus() missing %q in:\n%s", w, got)
				}
			}
			for _, n := range tt.not {
				if strings.Contains(got, n) {
					t.Errorf("FormatStatus() should not contain %q in:\n%s", n, got)
				}
			}
		})
	}
}

func TestFieldLabel(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"arrivalCountry", "Destination country"},
		{"travelers[1].firstName", "Traveler 2: First name"},
		{"nonsense", "nonsense"},
	}
	for _, tt := range tests {
		if got := fieldLabel(tt.path); got != tt.want {
			t.Errorf("fieldLabel(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   int // number of parts
	}{
		{"short message", "Hello", 100, 1},
		{"exact length", "Hello", 5, 1},
		{"split needed", "Hello World Test", 7, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitMessage(tt.text, tt.maxLen)
			if len(got) != tt.want {
				t.Errorf("SplitMessage() parts = %v, want %v", len(got), tt.want)
			}
		})
	}
}

func TestSplitMessage_HTMLTags(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{
			name: "link tag",
			text: `Text before <a href="https://example.com/very/long/url">link text</a> text after`,
		},
		{
			name: "bold tag",
			text: `Some text <b>bold text here</b> more text`,
		},
		{
			name: "multiple tags",
			text: `<b>Title</b>\n<a href="https://example.com">Link</a>\nMore text here`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parts := SplitMessage(tt.text, 30)

			for i, part := range parts {
				openCount := strings.Count(part, "<")
				closeCount := strings.Count(part, ">")

				if openCount != closeCount {
					t.Errorf("Part %d has unbalanced tags (open=%d, close=%d): %q",
						i, openCount, closeCount, part)
				}
			}
		})
	}
}

func TestIsInsideHTMLTag(t *testing.T) {
	tests := []struct {
		text string
		pos  int
		want bool
	}{
		{`<a href="url">text</a>`, 5, true},   // inside <a href="...">
		{`<a href="url">text</a>`, 15, false}, // in "text"
		{`text <b>bold</b>`, 0, false},        // before any tag
		{`text <b>bold</b>`, 6, true},         // inside <b>
		{`text <b>bold</b>`, 9, false},        // in "bold"
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := isInsideHTMLTag(tt.text, tt.pos)
			if got != tt.want {
				t.Errorf("isInsideHTMLTag(%q, %d) = %v, want %v", tt.text, tt.pos, got, tt.want)
			}
		})
	}
}
