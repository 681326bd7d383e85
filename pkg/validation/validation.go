// Package validation owns the process-wide validator engine and the custom
// rules shared by request decoding and the service layer.
package validation

import (
	stdErrors "errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	pkgerrors "github.com/angelmondragon/user-management/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// TagAlphaNumUnicodeSpaces accepts Unicode letters and digits, spaces and
// the punctuation , . : ; & #
const TagAlphaNumUnicodeSpaces = "alphanumunicode_spaces"

var alphaNumUnicodeSpaces = regexp.MustCompile(`^[\p{L}\p{N},.:;&# ]+$`)

var engine = newEngine()

func newEngine() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	if err := v.RegisterValidation(TagAlphaNumUnicodeSpaces, isAlphaNumUnicodeSpaces); err != nil {
		panic(fmt.Sprintf("registering %s: %v", TagAlphaNumUnicodeSpaces, err))
	}
	return v
}

func isAlphaNumUnicodeSpaces(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if strings.TrimSpace(value) == "" {
		return false
	}
	return alphaNumUnicodeSpaces.MatchString(value)
}

// Struct validates v and returns a VALIDATION_ERROR whose details map each
// failing field (by JSON name) to a message.
func Struct(v any) error {
	if err := engine.Struct(v); err != nil {
		return FormatErrors(err)
	}
	return nil
}

func FormatErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if stdErrors.As(err, &errs) {
		details := make(map[string]string, len(errs))
		for _, fieldErr := range errs {
			details[fieldErr.Field()] = Message(fieldErr)
		}
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func Message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "alphanum":
		return "must contain only ASCII letters and digits"
	case "alphanumunicode":
		return "must contain only letters and digits"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case TagAlphaNumUnicodeSpaces:
		return "must contain only letters, digits, spaces and , . : ; & #"
	}
	return "is invalid"
}
