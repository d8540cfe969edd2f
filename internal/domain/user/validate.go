package user

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// FieldError names the first input field that failed validation.
type FieldError struct {
	Field string
	Rule  string
}

func (e *FieldError) Error() string {
	return e.Field + " failed " + e.Rule + " validation"
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// report json names so errors line up with the API argument names
		validate.RegisterTagNameFunc(func(sf reflect.StructField) string {
			name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
			if name == "" || name == "-" {
				return sf.Name
			}
			return name
		})
	})

	return validate
}

// Validate checks a registration or book payload and returns a *FieldError
// for the first violation.
func Validate(v any) error {
	err := validatorInstance().Struct(v)

	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors

	if errors.As(err, &verrs) && len(verrs) > 0 {
		return &FieldError{Field: verrs[0].Field(), Rule: verrs[0].Tag()}
	}

	return err
}
