package core

import (
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"
)

var courseCodeRegex = regexp.MustCompile(`^[A-Z]{2,4}[0-9]{3}[A-Z]?$`)

// customValidations are the tags every package may use.
var customValidations = []struct {
	tag  string
	text string
	fn   validator.Func // nil: only the message is replaced
}{
	{
		tag:  "coursecode",
		text: "must look like CS101: 2 to 4 letters, 3 digits and an optional suffix letter",
		// expects a code normalized by CourseCode
		fn: func(fl validator.FieldLevel) bool { return courseCodeRegex.MatchString(fl.Field().String()) },
	},
	{
		tag:  "notblank",
		text: "this field cannot be blank",
		fn: func(fl validator.FieldLevel) bool {
			s, ok := fl.Field().Interface().(string)
			return ok && strings.TrimSpace(s) != ""
		},
	},
	{tag: "required", text: "this field is required"},
	{tag: "required_with", text: "this field is required"},
}

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// errors name fields after their JSON keys
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	for _, cv := range customValidations {
		if cv.fn != nil {
			_ = validate.RegisterValidation(cv.tag, cv.fn)
		}
		RegisterCustomTranslation(validate, translator, cv.tag, cv.text, cv.fn == nil)
	}
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	ovrd := len(override) > 0 && override[0]
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// RegisterOneOf registers `tag` as a validation that only accepts the given string values.
func RegisterOneOf(validate *validator.Validate, translator ut.Translator, tag, text string, values ...string) {
	allowed := make(map[string]struct{}, len(values))
	for _, v := range values {
		allowed[v] = struct{}{}
	}
	_ = validate.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		_, ok := allowed[fl.Field().String()]
		return ok
	})
	RegisterCustomTranslation(validate, translator, tag, text)
}

// ValidationMessages translates the field errors within err, keyed by field.
// It returns nil when err carries none.
func ValidationMessages(err error, translator ut.Translator) map[string]string {
	switch e := errors.Cause(err).(type) {
	case validator.ValidationErrors:
		msgs := make(map[string]string, len(e))
		for _, fe := range e {
			msgs[fe.Field()] = fe.Translate(translator)
		}
		return msgs
	case *ValidationError:
		return e.FieldMap()
	}
	return nil
}

// DescribeValidation renders ValidationMessages on one line, sorted by field, e.g. for the CLI.
func DescribeValidation(err error, translator ut.Translator) string {
	msgs := ValidationMessages(err, translator)
	fields := make([]string, 0, len(msgs))
	for f := range msgs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + msgs[f]
	}
	return strings.Join(parts, "; ")
}
