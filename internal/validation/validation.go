// Package validation checks request bodies and cleans user-written text.
package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("trimmed_min", trimmedMin); err != nil {
		panic(err)
	}
	return v
}

// trimmedMin requires at least param runes after trimming spaces.
func trimmedMin(fl validator.FieldLevel) bool {
	min, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) >= min
}

// Error is the first failed field of a validated struct.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Struct validates s and reports the first failing field. The message comes
// from the field's msg tag.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	return &Error{Field: fe.Field(), Message: messageFor(s, fe)}
}

// Email checks a single address.
func Email(email string) error {
	if err := validate.Var(strings.TrimSpace(email), "required,email"); err != nil {
		return &Error{Field: "email", Message: "올바른 이메일 주소를 입력해주세요."}
	}
	return nil
}

func messageFor(s any, fe validator.FieldError) string {
	t := reflect.TypeOf(s)
	// Namespace is Type.Field[.Nested...]; skip the type name.
	parts := strings.Split(fe.StructNamespace(), ".")
	for i, name := range parts {
		if i == 0 {
			continue
		}
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		if t.Kind() != reflect.Struct {
			break
		}
		field, ok := t.FieldByName(name)
		if !ok {
			break
		}
		if i == len(parts)-1 {
			if msg := field.Tag.Get("msg"); msg != "" {
				return msg
			}
			break
		}
		t = field.Type
	}
	return fe.Field() + " 값이 올바르지 않습니다."
}
