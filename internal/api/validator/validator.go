package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"marketplace/internal/models"

	playgroundvalidator "github.com/go-playground/validator/v10"
)

// ValidationErrors wraps the validator's ValidationErrors
type ValidationErrors []playgroundvalidator.FieldError

// CustomValidator wraps go-playground/validator
type CustomValidator struct {
	validator *playgroundvalidator.Validate
}

// NewValidator creates a validator that reports fields by their json name and
// knows the marketplace vocabularies.
func NewValidator() *CustomValidator {
	v := playgroundvalidator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		}
		return name
	})

	for tag, values := range map[string][]string{
		"proposal_unit":  models.ProposalUnits,
		"currency":       models.ProposalCurrencies,
		"payment_method": models.PaymentMethods,
	} {
		// The tags are static; a registration failure is a programming error.
		if err := v.RegisterValidation(tag, oneOf(values)); err != nil {
			panic(err)
		}
	}

	return &CustomValidator{validator: v}
}

func oneOf(values []string) playgroundvalidator.Func {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return func(fl playgroundvalidator.FieldLevel) bool {
		_, ok := set[fl.Field().String()]
		return ok
	}
}

// Validate implements echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		var validationErrors playgroundvalidator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationErrors(validationErrors)
		}
		return err
	}
	return nil
}

// Error implements the error interface for ValidationErrors
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	var fields []string
	for _, err := range ve {
		fields = append(fields, err.Field())
	}
	return fmt.Sprintf("validation failed on fields: %s", strings.Join(fields, ", "))
}

// Fields renders one human readable message per failing field.
func (ve ValidationErrors) Fields() map[string]string {
	errMap := make(map[string]string, len(ve))
	for _, err := range ve {
		field := err.Field()
		param := err.Param()

		switch err.Tag() {
		case "required":
			errMap[field] = fmt.Sprintf("The %s field is required.", field)
		case "email":
			errMap[field] = fmt.Sprintf("The %s must be a valid email address.", field)
		case "min":
			errMap[field] = fmt.Sprintf("The %s must be at least %s.", field, param)
		case "max":
			errMap[field] = fmt.Sprintf("The %s may not be greater than %s.", field, param)
		case "uuid":
			errMap[field] = fmt.Sprintf("The %s must be a valid UUID.", field)
		case "oneof":
			errMap[field] = fmt.Sprintf("The %s must be one of [%s].", field, param)
		case "eqfield":
			errMap[field] = fmt.Sprintf("The %s confirmation does not match.", strings.TrimSuffix(field, "_confirmation"))
		case "proposal_unit":
			errMap[field] = fmt.Sprintf("The %s must be one of: %s.", field, strings.Join(models.ProposalUnits, ", "))
		case "currency":
			errMap[field] = fmt.Sprintf("The %s must be one of: %s.", field, strings.Join(models.ProposalCurrencies, ", "))
		case "payment_method":
			errMap[field] = fmt.Sprintf("The selected %s is invalid.", field)
		default:
			errMap[field] = fmt.Sprintf("The %s is invalid (%s).", field, err.Tag())
		}
	}
	return errMap
}
