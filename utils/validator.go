package utils

import (
	"errors"
	"strings"

	"github.com/badoux/checkmail"
	"github.com/go-playground/validator/v10"

	"smartcrm/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("lead_status", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseLeadStatus(fl.Field().String())
		return ok
	})
	return v
}

func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	// Format validation errors
	var messages []string
	for _, err := range validationErrs {
		field := strings.ToLower(err.Field())
		tag := err.Tag()
		param := err.Param()

		switch tag {
		case "required":
			messages = append(messages, field+" is required")
		case "min":
			messages = append(messages, field+" must be at least "+param+" characters")
		case "max":
			messages = append(messages, field+" must be at most "+param+" characters")
		case "email":
			messages = append(messages, field+" must be a valid email")
		case "len":
			messages = append(messages, field+" must be exactly "+param+" characters")
		case "lead_status":
			messages = append(messages, field+" must be one of new, contacted, qualified, lost, won")
		default:
			messages = append(messages, field+" is invalid")
		}
	}

	return errors.New(strings.Join(messages, ", "))
}

// ValidateEmailFormat applies checkmail's syntax check. No DNS lookups.
func ValidateEmailFormat(email string) error {
	if err := checkmail.ValidateFormat(email); err != nil {
		return errors.New("email must be a valid email")
	}
	return nil
}
