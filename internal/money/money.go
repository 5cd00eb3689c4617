package money

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var signReplacer = strings.NewReplacer("+", "", "-", "", ",", "")

// Parse приводит сумму к float64. Числа возвращаются как есть, строки
// очищаются от валютных символов и разделителей тысяч.
func Parse(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return finite(v)
	case float32:
		return finite(float64(v))
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		parsed, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return finite(parsed)
	case string:
		return ParseString(v)
	default:
		return 0, false
	}
}

// ParseString разбирает строковую сумму вида "-$1,234.50".
func ParseString(value string) (float64, bool) {
	var cleaned strings.Builder
	for _, r := range value {
		if (r >= '0' && r <= '9') || r == '+' || r == '-' || r == '.' || r == ',' {
			cleaned.WriteRune(r)
		}
	}

	s := cleaned.String()
	if s == "" {
		return 0, false
	}

	negative := strings.HasPrefix(s, "-")
	magnitude := leadingDecimal(signReplacer.Replace(s))
	if magnitude == "" {
		return 0, false
	}

	parsed, err := decimal.NewFromString(magnitude)
	if err != nil {
		return 0, false
	}

	result := parsed.InexactFloat64()
	if negative {
		result = -result
	}

	return finite(result)
}

// Round2 округляет значение до центов (половина от нуля).
func Round2(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}

	return decimal.NewFromFloat(value).Round(2).InexactFloat64()
}

// FormatFixed печатает сумму с двумя знаками после точки, без валютного символа.
func FormatFixed(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "0.00"
	}

	return decimal.NewFromFloat(value).StringFixed(2)
}

// leadingDecimal returns the longest "digits[.digits]" prefix, normalized so
// decimal can parse it. Empty when the prefix has no digits.
func leadingDecimal(s string) string {
	end := 0
	digits := 0
	seenDot := false

	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			digits++
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}

	if digits == 0 {
		return ""
	}

	prefix := strings.TrimSuffix(s[:end], ".")
	if strings.HasPrefix(prefix, ".") {
		prefix = "0" + prefix
	}

	return prefix
}

func finite(value float64) (float64, bool) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}

	return value, true
}
