package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	reEmail   = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)
	reQ       = regexp.MustCompile(`^[A-Za-z0-9 _'.\\-]{1,50}$`)
	reID      = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
	reMoney   = regexp.MustCompile(`^[0-9]{1,9}(\.[0-9]{1,2})?$`)
	reUrgency = regexp.MustCompile(`^(low|medium|high)$`)
)

// MaxQty caps every quantity a form can submit.
const MaxQty = 100000

func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 50 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Q validates a search query: trims, enforces allowed characters and max length
func Q(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if len(s) > 50 {
		s = s[:50]
	}
	return s, reQ.MatchString(s)
}

// Qty parses a stock count (zero allowed).
func Qty(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 || n > MaxQty {
		return 0, false
	}
	return n, true
}

// PositiveQty parses a requested or quoted quantity.
func PositiveQty(s string) (int, bool) {
	n, ok := Qty(s)
	return n, ok && n > 0
}

// ID validates a simple resource identifier (part/request/quote ids).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Urgency validates allowed urgency enums.
func Urgency(s string) (string, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	return s, reUrgency.MatchString(s)
}

// Name validates a displayable name with a reasonable max length.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 80 {
		return "", false
	}
	return s, true
}

// Text trims free text and clips it to max bytes.
func Text(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) > max {
		s = s[:max]
	}
	return s
}

// Money parses a non-negative amount with at most two decimals.
func Money(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if !reMoney.MatchString(s) {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// OptionalMoney treats a blank field as absent.
func OptionalMoney(s string) (decimal.NullDecimal, bool) {
	if strings.TrimSpace(s) == "" {
		return decimal.NullDecimal{}, true
	}
	d, ok := Money(s)
	if !ok {
		return decimal.NullDecimal{}, false
	}
	return decimal.NewNullDecimal(d), true
}

// Date parses a date-picker value (YYYY-MM-DD) as midnight UTC.
func Date(s string) (time.Time, bool) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Password enforces a simple length window for login checks.
func Password(s string) bool {
	l := len(s)
	if l < 8 || l > 20 {
		return false
	}
	var hasLower, hasUpper, hasDigit, hasSymbol bool
	for _, r := range s {
		switch {
		case 'a' <= r && r <= 'z':
			hasLower = true
		case 'A' <= r && r <= 'Z':
			hasUpper = true
		case '0' <= r && r <= '9':
			hasDigit = true
		default:
			hasSymbol = true
		}
	}
	return hasLower && hasUpper && hasDigit && hasSymbol
}
