package user

import (
	"strings"
	"unicode"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
)

const (
	roleTag     = "role"
	roleText    = "unknown role"
	subjectTag  = "subject"
	subjectText = "must be a provider subject of at most 128 visible characters"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, roleTag, roleText, AllRoles...)

	_ = validate.RegisterValidation(subjectTag, subjectValidation)
	core.RegisterCustomTranslation(validate, translator, subjectTag, subjectText)
}

// subjectValidation accepts the opaque subjects providers issue, which become user IDs.
func subjectValidation(fl validator.FieldLevel) bool {
	sub := fl.Field().String()
	return len(sub) <= 128 && strings.IndexFunc(sub, func(r rune) bool {
		return unicode.IsSpace(r) || !unicode.IsPrint(r)
	}) < 0
}
