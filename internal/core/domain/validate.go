package domain

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	currencyRegex = regexp.MustCompile(`^[A-Z]{3}$`)
	accountRegex  = regexp.MustCompile(`^[A-Z0-9]{6,20}$`)

	// BIC: 6 letters (bank + country), 2 alphanumeric (location),
	// optional 3 alphanumeric (branch). 8 or 11 chars total.
	swiftRegex = regexp.MustCompile(`^[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?$`)

	payeeNameRegex = regexp.MustCompile(`^[A-Za-z ]{2,100}$`)
)

var minAmount = decimal.NewFromFloat(0.01)

// ValidatedPayment holds the normalized creation fields after validation:
// currency, account and SWIFT code upper-cased, name trimmed, amount parsed.
type ValidatedPayment struct {
	Amount       decimal.Decimal
	Currency     string
	PayeeAccount string
	SwiftCode    string
	PayeeName    string
}

// ValidateNewTransaction checks every field of a creation request and
// collects all failures into a single ValidationError rather than stopping
// at the first one. Ceiling is the configured per-payment maximum, inclusive.
func ValidateNewTransaction(in NewTransactionInput, ceiling decimal.Decimal) (ValidatedPayment, error) {
	fields := map[string]string{}

	out := ValidatedPayment{
		Currency:     strings.ToUpper(strings.TrimSpace(in.Currency)),
		PayeeAccount: strings.ToUpper(strings.TrimSpace(in.PayeeAccount)),
		SwiftCode:    strings.ToUpper(strings.TrimSpace(in.SwiftCode)),
		PayeeName:    strings.TrimSpace(in.PayeeName),
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(in.Amount))
	switch {
	case err != nil:
		fields["amount"] = "must be a decimal number"
	case amount.Exponent() < -2:
		fields["amount"] = "must have at most 2 decimal places"
	case amount.LessThan(minAmount):
		fields["amount"] = "must be at least 0.01"
	case amount.GreaterThan(ceiling):
		fields["amount"] = "exceeds the maximum of " + ceiling.StringFixed(2)
	default:
		out.Amount = amount
	}

	if !currencyRegex.MatchString(out.Currency) {
		fields["currency"] = "must be a 3-letter ISO code"
	}
	if !accountRegex.MatchString(out.PayeeAccount) {
		fields["payee_account"] = "must be 6-20 alphanumeric characters"
	}
	if !swiftRegex.MatchString(out.SwiftCode) {
		fields["swift_code"] = "must be a valid 8 or 11 character BIC"
	}
	if !payeeNameRegex.MatchString(out.PayeeName) {
		fields["payee_name"] = "must be 2-100 letters and spaces"
	}

	if len(fields) > 0 {
		return ValidatedPayment{}, &ValidationError{Fields: fields}
	}
	return out, nil
}
