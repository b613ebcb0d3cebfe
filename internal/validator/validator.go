package validator

import (
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/leebenson/conform"
)

var (
	valid *Validator
	once  sync.Once
)

// Validator wraps go-playground/validator with the project's custom tags.
type Validator struct {
	validator *validator.Validate
}

// New builds a validator and registers custom validations.
func New() *Validator {
	v := &Validator{validator: validator.New()}
	if err := v.validator.RegisterValidation("cardid", validateCardID); err != nil {
		panic(err)
	}
	if err := v.validator.RegisterValidation("isodate", validateISODate); err != nil {
		panic(err)
	}
	return v
}

// Validate trims and normalizes tagged string fields, then validates the struct.
// i must be a pointer to a struct.
func (m *Validator) Validate(i interface{}) error {
	if err := conform.Strings(i); err != nil {
		return err
	}
	return m.validator.Struct(i)
}

// Struct validates without touching field values.
func (m *Validator) Struct(i interface{}) error {
	return m.validator.Struct(i)
}

// Var validates a single value against a tag string.
func (m *Validator) Var(field interface{}, tag string) error {
	return m.validator.Var(field, tag)
}

// Get returns the process-wide validator.
func Get() *Validator {
	once.Do(func() {
		valid = New()
	})
	return valid
}
