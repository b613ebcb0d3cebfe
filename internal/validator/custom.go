package validator

import (
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
)

var cardIDPattern = regexp.MustCompile(`^[A-Za-z0-9_:\-]+$`)

// Card identifiers are what readers emit: letters, digits and a few separators.
func validateCardID(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return cardIDPattern.MatchString(s)
}

func validateISODate(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}
