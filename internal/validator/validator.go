package validator

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
	ierr "github.com/wealthhorizon/paybridge/internal/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

var indianPhone = regexp.MustCompile(`^(\+91)?[6-9][0-9]{9}$`)

// NewValidator returns the shared validator, building it on first use
func NewValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// Cashfree rejects customer phones that are not 10 digit Indian numbers
		_ = validate.RegisterValidation("inphone", func(fl validator.FieldLevel) bool {
			return indianPhone.MatchString(fl.Field().String())
		})
	})
	return validate
}

func GetValidator() *validator.Validate {
	return NewValidator()
}

func ValidateRequest(req interface{}) error {
	if err := GetValidator().Struct(req); err != nil {
		details := make(map[string]any)
		var validateErrs validator.ValidationErrors
		if ierr.As(err, &validateErrs) {
			for _, err := range validateErrs {
				details[err.Field()] = err.Error()
			}
		}
		return ierr.WithError(err).
			WithHint("Request validation failed").
			WithReportableDetails(details).
			Mark(ierr.ErrValidation)
	}
	return nil
}
