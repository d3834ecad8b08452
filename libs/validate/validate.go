// Package validate wraps go-playground/validator with the salonqueue tags and
// turns field errors into messages that can be shown to a caller verbatim.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/salonqueue/libs/tenant"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
			return slugPattern.MatchString(fl.Field().String())
		})
		_ = v.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			_, ok := tenant.ParseClock(fl.Field().String())
			return ok
		})
		_ = v.RegisterValidation("date", func(fl validator.FieldLevel) bool {
			_, err := time.Parse(time.DateOnly, fl.Field().String())
			return err == nil
		})
		instance = v
	})
	return instance
}

// Error is a validation failure safe to return to the caller.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Struct validates s and reports the first failing field.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return &Error{Field: fe.Field(), Message: message(fe)}
}

// Fail builds an Error for checks done outside struct tags.
func Fail(field, format string, args ...any) error {
	return &Error{Field: field, Message: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var ve *Error
	return errors.As(err, &ve)
}

func message(fe validator.FieldError) string {
	f := fe.Field()
	switch fe.Tag() {
	case "required":
		return f + " is required"
	case "required_without":
		return fmt.Sprintf("%s or %s is required", f, strings.ToLower(fe.Param()))
	case "email":
		return f + " must be a valid email address"
	case "uuid", "uuid4":
		return f + " must be a valid id"
	case "slug":
		return f + " may only contain lowercase letters, digits and single hyphens"
	case "clock":
		return f + " must be a time of day as HH:MM"
	case "date":
		return f + " must be a date as YYYY-MM-DD"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", f, fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", f, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", f, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", f, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be %s or more", f, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", f, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid (%s)", f, fe.Tag())
	}
}
