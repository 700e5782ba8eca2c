package agent

import (
	"fmt"
	"strings"

	"github.com/kitbuilder587/travel-insurance-bot/internal/domain"
)

// поля, которые пишет только конвейер (расчет, оплата, покупка), не экстракторы
var pipelineFields = map[string]bool{
	domain.FieldQuote:          true,
	domain.FieldPaymentStatus:  true,
	domain.FieldPurchaseResult: true,
	domain.FieldNeedsAnalyzed:  true,
}

// sanitizeUpdates разворачивает вложенные объекты в пути вида
// mainContact.city и travelers[0].email, выкидывает пустые значения и
// поля конвейера. Модель не должна стирать то, что уже известно.
func sanitizeUpdates(payload map[string]any) map[string]any {
	if inner, ok := payload["updates"].(map[string]any); ok {
		payload = inner
	}

	out := make(map[string]any, len(payload))
	for key, value := range payload {
		flatten(out, key, value)
	}

	for key := range out {
		if pipelineFields[key] || strings.HasPrefix(key, "needs.") {
			delete(out, key)
		}
	}
	return out
}

func flatten(out map[string]any, key string, value any) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		if strings.TrimSpace(v) == "" {
			return
		}
		out[key] = v
	case map[string]any:
		if key == domain.FieldQuote || key == domain.FieldPurchaseResult {
			out[key] = v
			return
		}
		for k, inner := range v {
			flatten(out, key+"."+k, inner)
		}
	case []any:
		if key != "travelers" && key != "insureds" {
			out[key] = v
			return
		}
		for i, inner := range v {
			flatten(out, fmt.Sprintf("travelers[%d]", i), inner)
		}
	default:
		out[key] = v
	}
}
