package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// Validate is a singleton validator instance, reused across requests.
	Validate *validator.Validate

	currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)
	amountRe   = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
)

func init() {
	Validate = validator.New()

	_ = Validate.RegisterValidation("currency", validateCurrency)
	_ = Validate.RegisterValidation("amount", validateAmount)
}

// validateCurrency accepts ISO 4217 style three-letter uppercase codes.
func validateCurrency(fl validator.FieldLevel) bool {
	return currencyRe.MatchString(fl.Field().String())
}

// validateAmount accepts positive decimal strings with at most two fraction
// digits, the same shape AmountFromString parses.
func validateAmount(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" || s == "0" || s == "0.0" || s == "0.00" {
		return false
	}
	return amountRe.MatchString(s)
}
