package validator

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// PhonePattern accepts the two Ethiopian mobile formats used at sign-up.
var PhonePattern = regexp.MustCompile(`^(?:\+2519\d{8}|09\d{8})$`)

var (
	instance *validator.Validate
	once     sync.Once
)

// Instance returns the shared validator configured with json field names and
// the custom tags used by the portal forms.
func Instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return fld.Name
			}
			return name
		})
		_ = v.RegisterValidation("et_phone", func(fl validator.FieldLevel) bool {
			return PhonePattern.MatchString(fl.Field().String())
		})
		instance = v
	})
	return instance
}

// Struct validates s and returns one human readable message per failing
// field. A nil map means s is valid.
func Struct(s any) map[string]string {
	err := Instance().Struct(s)
	if err == nil {
		return nil
	}
	return FieldErrors(err)
}

// FieldErrors converts a validator error into field -> message. Only the
// first failing rule of each field is reported.
func FieldErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return map[string]string{"_": err.Error()}
	}

	out := make(map[string]string, len(validationErrors))
	for _, fe := range validationErrors {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = getFieldErrorMessage(fe)
	}
	return out
}

// FormatValidationError flattens a validator error into a single line, used
// for request binding failures.
func FormatValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, fieldError := range validationErrors {
			messages = append(messages, getFieldErrorMessage(fieldError))
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

var tagMessages = map[string]map[string]string{
	"phone_number": {
		"required": "Phone number is required",
		"et_phone": "Invalid phone number format",
	},
}

var fieldMessages = map[string]string{
	"email":            "Invalid email address",
	"password":         "Password must be at least 6 characters",
	"confirm_password": "Repeat the password",
	"full_name":        "Full Name must at least be 2 characters",
	"account_type":     "Required",
	"languages":        "You have to select at least one language.",
	"specialties":      "You have to select at least one specialty.",
	"courts":           "You have to select at least one court.",
	"id":               "Identification card is required",
	"qualification":    "Qualification is required",
	"cv":               "CV is required",
	"resume":           "Resume is required",
	"photo":            "Photo is required",
}

var fieldLabels = map[string]string{
	"id":            "Identification card",
	"qualification": "Qualification",
	"cv":            "CV",
	"resume":        "Resume",
	"photo":         "Photo",
	"description":   "Description",
	"question":      "Question",
	"value":         "Value",
}

func getFieldErrorMessage(fe validator.FieldError) string {
	if fe.Tag() == "url" {
		return fmt.Sprintf("%s must be a valid URL", getFieldName(fe.Field()))
	}
	if byTag, ok := tagMessages[fe.Field()]; ok {
		if msg, ok := byTag[fe.Tag()]; ok {
			return msg
		}
	}
	if msg, ok := fieldMessages[fe.Field()]; ok {
		return msg
	}

	field := getFieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return "Invalid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must contain at least %s items", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
		}
		return fmt.Sprintf("%s must contain at most %s items", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func getFieldName(field string) string {
	if name, ok := fieldLabels[field]; ok {
		return name
	}
	return field
}
