// Package validation validates request payloads with go-playground/validator
// and reports failures as apperrors.ValidationError keyed by JSON field name.
package validation

import (
	"errors"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/tracked/backend/internal/apperrors"
	"github.com/tracked/backend/internal/models"
)

// custom validation tags
const (
	categoryTag = "category"
	maxBytesTag = "maxbytes"
	notBlankTag = "notblank"
	roleTag     = "role"
)

var customMessages = map[string]string{
	categoryTag: "must be one of Staff, Facilities, Extracurricular, Resources, Curriculum, Policies, Others",
	maxBytesTag: "must not exceed %s bytes",
	notBlankTag: "this field cannot be blank",
	roleTag:     "invalid role",
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	// English error messages
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ = uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, translator)

	// Report JSON tag names instead of Go struct field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(categoryTag, categoryValidation)
	_ = validate.RegisterValidation(maxBytesTag, maxBytesValidation)
	_ = validate.RegisterValidation(notBlankTag, notBlankValidation)
	_ = validate.RegisterValidation(roleTag, roleValidation)

	// The default translation for these tags is already registered, so a noop register func is enough.
	registerFn := func(ut.Translator) error { return nil }
	for tag := range customMessages {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translateCustom)
	}
}

// Struct validates v and returns an *apperrors.ValidationError describing every failing field
func Struct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperrors.NewValidationError(map[string]string{"body": err.Error()})
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Translate(translator)
	}
	return apperrors.NewValidationError(fields)
}

func translateCustom(_ ut.Translator, fe validator.FieldError) string {
	if msg, ok := customMessages[fe.Tag()]; ok {
		if strings.Contains(msg, "%s") {
			msg = strings.Replace(msg, "%s", fe.Param(), 1)
		}
		return fe.Field() + " " + msg
	}
	return fe.Error()
}

func categoryValidation(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := models.ParseCategory(strings.TrimSpace(s))
	return err == nil
}

// maxBytesValidation bounds the encoded length of a string, e.g. bcrypt input
func maxBytesValidation(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	s, ok := fl.Field().Interface().(string)
	return ok && len(s) <= limit
}

func notBlankValidation(fl validator.FieldLevel) bool {
	if s, ok := fl.Field().Interface().(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return false
}

func roleValidation(fl validator.FieldLevel) bool {
	s, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	_, err := models.ParseRole(s)
	return err == nil
}
