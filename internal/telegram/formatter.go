package telegram

import (
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
	"github.com/kitbuilder587/travel-insurance-bot/internal/service"
)

var stageTitles = map[domain.Stage]string{
	domain.StageTripInfo:      "Trip details",
	domain.StageNeedsAnalysis: "Coverage needs",
	domain.StagePersonalInfo:  "Traveler details",
	domain.StageContactInfo:   "Contact address",
	domain.StageQuoteReady:    "Quote",
	domain.StagePurchaseReady: "Payment and purchase",
	domain.StageDone:          "Done",
}

func stageTitle(s domain.Stage) string {
	if t, ok := stageTitles[s]; ok {
		return t
	}
	return s.String()
}

// FormatReply - ответ на ход диалога: что не приняли, что произошло, что спросить дальше
func FormatReply(r *service.Reply) string {
	var sb strings.Builder

	if len(r.Rejected) > 0 {
		sb.WriteString("<b>I could not use:</b>\n")
		for _, fe := range r.Rejected {
			sb.WriteString(fmt.Sprintf("• %s: %s\n", html.EscapeString(fieldLabel(fe.Path)), rejectReason(fe.Err)))
		}
		sb.WriteString("\n")
	}

	for _, e := range r.Events {
		if line := formatEvent(e, r.Profile); line != "" {
			sb.WriteString(line)
			sb.WriteString("\n")
		}
	}
	if len(r.Events) > 0 {
		sb.WriteString("\n")
	}

	for _, f := range r.Failures {
		sb.WriteString("<i>" + html.EscapeString(f) + "</i>\n")
	}
	if len(r.Failures) > 0 {
		sb.WriteString("\n")
	}

	sb.WriteString(formatNext(r.NextStage, r.Missing))
	return strings.TrimSpace(sb.String())
}

// FormatStatus - все этапы с отметками и недостающими полями
func FormatStatus(r *service.Reply) string {
	var sb strings.Builder
	sb.WriteString("<b>Your application:</b>\n\n")

	for _, st := range r.Report {
		sb.WriteString(fmt.Sprintf("%s %s\n", stageIcon(st), stageTitle(st.Stage)))
		if st.Unlocked && !st.Complete {
			for _, f := range st.Missing {
				sb.WriteString("   · " + html.EscapeString(f.Label) + "\n")
			}
		}
	}

	if p := r.Profile; p != nil {
		if needs := domain.ActiveNeeds(p.Needs); len(needs) > 0 {
			sb.WriteString("\n<b>Coverage needs:</b> " + html.EscapeString(strings.Join(needs, ", ")) + "\n")
		}
		if p.Quote != nil {
			sb.WriteString("\n" + formatQuote(p.Quote) + "\n")
		}
		if p.PurchaseResult != nil {
			sb.WriteString(fmt.Sprintf("\nPolicy: <b>%s</b>\n", html.EscapeString(p.PurchaseResult.PolicyNumber)))
		}
	}

	return strings.TrimSpace(sb.String())
}

func stageIcon(st domain.StageStatus) string {
	switch {
	case st.Complete:
		return "●"
	case st.Unlocked:
		return "◐"
	default:
		return "○"
	}
}

func formatEvent(e service.Event, p *domain.TripProfile) string {
	switch e {
	case service.EventTravelersReady:
		if p != nil {
			return fmt.Sprintf("Traveler list is ready: %d.", len(p.Travelers))
		}
		return "Traveler list is ready."
	case service.EventNeedsAnalyzed:
		if p != nil {
			if needs := domain.ActiveNeeds(p.Needs); len(needs) > 0 {
				return "Noted coverage needs: " + html.EscapeString(strings.Join(needs, ", ")) + "."
			}
		}
		return "Noted your coverage needs."
	case service.EventQuoted:
		if p != nil && p.Quote != nil {
			return formatQuote(p.Quote) + "\nSend /pay to buy it."
		}
	case service.EventQuoteCleared:
		return "Trip dates changed, the previous quote is cancelled."
	case service.EventPaymentCompleted:
		return "Payment received."
	case service.EventPaymentFailed:
		return "Payment was declined. You can try /pay again."
	case service.EventPurchased:
		if p != nil && p.PurchaseResult != nil {
			res := p.PurchaseResult
			line := fmt.Sprintf("Your policy <b>%s</b> is issued.", html.EscapeString(res.PolicyNumber))
			if res.ConfirmationEmail != "" {
				line += " Confirmation goes to " + html.EscapeString(res.ConfirmationEmail) + "."
			}
			return line
		}
	}
	return ""
}

func formatQuote(q *domain.Quote) string {
	currency := q.Currency
	if currency == "" {
		currency = "SGD"
	}
	name := q.ProductName
	if name == "" {
		name = q.ProductCode
	}
	line := fmt.Sprintf("Quote: <b>%s %.2f</b>", html.EscapeString(currency), q.Price)
	if name != "" {
		line += " for " + html.EscapeString(name)
	}
	if q.CoverFrom != nil && q.CoverTo != nil {
		line += fmt.Sprintf(" (%s to %s)", q.CoverFrom, q.CoverTo)
	}
	if r := q.Recommendation; r != nil {
		line += fmt.Sprintf("\nPlan %s for a %s trip, medical cover from %s %d",
			html.EscapeString(r.Plan), html.EscapeString(r.Category), html.EscapeString(currency), r.MedicalExpenses)
	}
	return line
}

func formatNext(stage domain.Stage, missing []domain.FieldDescriptor) string {
	switch stage {
	case domain.StageDone:
		return "All done. Safe travels!"
	case domain.StageNeedsAnalysis:
		return "<b>Next: " + stageTitle(stage) + "</b>\nTell me about your plans: activities, cruises, anything you want covered."
	case domain.StageQuoteReady:
		return "<b>Next: " + stageTitle(stage) + "</b>\nI am preparing your quote."
	case domain.StagePurchaseReady:
		for _, f := range missing {
			if f.Path == domain.FieldPaymentStatus {
				return "<b>Next: " + stageTitle(stage) + "</b>\nSend /pay to pay for the quote."
			}
		}
		return "<b>Next: " + stageTitle(stage) + "</b>\nFinishing your purchase."
	}

	var sb strings.Builder
	sb.WriteString("<b>Next: " + stageTitle(stage) + "</b>\n")
	if len(missing) > 0 {
		sb.WriteString("Still needed:\n")
		for _, f := range missing {
			sb.WriteString("• " + html.EscapeString(f.Label) + "\n")
		}
	}
	if stage == domain.StagePersonalInfo {
		sb.WriteString("\nYou can paste passport text with /doc.")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func fieldLabel(path string) string {
	fp, err := domain.ParseFieldPath(path)
	if err != nil {
		return path
	}
	if label := fp.Descriptor().Label; label != "" {
		return label
	}
	return path
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidDateRange):
		return "departure must be before return"
	case errors.Is(err, domain.ErrInvalidDate):
		return "not a valid date"
	case errors.Is(err, domain.ErrInvalidCountryCode):
		return "unknown country"
	case errors.Is(err, domain.ErrUnknownField):
		return "not something I track"
	case errors.Is(err, domain.ErrTooManyTravelers):
		return "too many travelers"
	default:
		return "invalid value"
	}
}

func SplitMessage(text string, maxLen int) []string {
	if len(text) <= maxLen {
		return []string{text}
	}

	var messages []string
	for len(text) > 0 {
		if len(text) <= maxLen {
			messages = append(messages, text)
			break
		}

		splitPoint := findSafeSplitPoint(text, maxLen)
		if splitPoint <= 0 || splitPoint > len(text) {
			splitPoint = maxLen
		}

		messages = append(messages, text[:splitPoint])
		text = text[splitPoint:]
	}

	return messages
}

func findSafeSplitPoint(text string, maxLen int) int {
	// перевод строки или пробел вне HTML-тега
	for i := maxLen - 1; i > maxLen/2; i-- {
		if i >= len(text) || isInsideHTMLTag(text, i) {
			continue
		}
		if text[i] == '\n' || text[i] == ' ' {
			return i + 1
		}
	}

	// граница внутри тега - режем после его конца
	if maxLen < len(text) && isInsideHTMLTag(text, maxLen) {
		for i := maxLen; i < len(text); i++ {
			if text[i] == '>' {
				for j := i + 1; j < len(text) && j < i+50; j++ {
					if text[j] == '\n' || text[j] == ' ' {
						return j + 1
					}
				}
				return i + 1
			}
		}
	}

	for i := maxLen - 1; i > 0; i-- {
		if text[i] == ' ' || text[i] == '\n' {
			return i + 1
		}
	}

	return maxLen
}

func isInsideHTMLTag(text string, pos int) bool {
	if pos >= len(text) || pos < 0 {
		return false
	}
	for i := pos; i >= 0; i-- {
		if text[i] == '>' {
			return false
		}
		if text[i] == '<' {
			return true
		}
	}
	return false
}
