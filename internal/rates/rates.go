package rates

import (
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits carried by a canonical rate.
const Places = 5

// DefaultMonthlyUsageKWh is the assumed consumption used for savings
// estimates when no override is configured.
const DefaultMonthlyUsageKWh = 750

// Validation failures for user-entered rates. The wording is what the bot
// sends back to the subscriber, so keep it user-facing.
var (
	ErrNegative     = errors.New("rate cannot be negative")
	ErrBadFormat    = errors.New("formatting should be 0.xxxxx (must start with 0. and use digits)")
	ErrTooFewDigits = errors.New("formatting should be 0.xxxxx (needs at least 5 digits after the decimal)")
	ErrOutOfRange   = errors.New("rate must be less than 1.00000 (prices should start with 0.xxxxx)")
)

var userRatePattern = regexp.MustCompile(`^0\.(\d+)$`)

var one = decimal.NewFromInt(1)

// IsValidationError reports whether err is a user-input problem that should
// be echoed back to the caller rather than logged as an internal failure.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrNegative) ||
		errors.Is(err, ErrBadFormat) ||
		errors.Is(err, ErrTooFewDigits) ||
		errors.Is(err, ErrOutOfRange)
}

// ParseUserRate validates a user-entered rate and returns it rounded to the
// canonical five fractional digits. The input must look like 0.xxxxx with at
// least five digits after the decimal point in the text itself; 0.1 is
// rejected even though it is numerically fine.
func ParseUserRate(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "-") {
		return decimal.Decimal{}, ErrNegative
	}

	m := userRatePattern.FindStringSubmatch(s)
	if m == nil {
		return decimal.Decimal{}, ErrBadFormat
	}
	if len(m[1]) < Places {
		return decimal.Decimal{}, ErrTooFewDigits
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, ErrBadFormat
	}
	// Unreachable while the shape rule pins the integer part to 0, but the
	// bound is part of the contract, not an artifact of the regexp.
	if d.GreaterThanOrEqual(one) {
		return decimal.Decimal{}, ErrOutOfRange
	}

	return d.Round(Places), nil
}

// ParseOfferRate leniently reads a rate out of a raw feed value, which may be
// a string, a JSON number, or absent. Anything unparseable or outside [0, 1)
// yields ok=false; callers skip the offer, it is never a fatal condition.
func ParseOfferRate(value any) (decimal.Decimal, bool) {
	var (
		d   decimal.Decimal
		err error
	)

	switch v := value.(type) {
	case nil:
		return decimal.Decimal{}, false
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case float64:
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	default:
		return decimal.Decimal{}, false
	}
	if err != nil {
		return decimal.Decimal{}, false
	}

	if d.IsNegative() || d.GreaterThanOrEqual(one) {
		return decimal.Decimal{}, false
	}

	return d.Round(Places), true
}

// Display renders a canonical rate with all five fractional digits.
func Display(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// MonthlySavings estimates the dollar amount saved per month by switching
// from userRate to offerRate at the given usage. A non-cheaper offer yields
// exactly zero, never a negative amount.
func MonthlySavings(userRate, offerRate decimal.Decimal, monthlyUsageKWh int64) decimal.Decimal {
	diff := userRate.Sub(offerRate)
	if diff.Sign() <= 0 {
		return decimal.Zero
	}
	return diff.Mul(decimal.NewFromInt(monthlyUsageKWh)).Round(2)
}
