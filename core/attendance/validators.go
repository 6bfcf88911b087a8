package attendance

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, "attendancestatus", "must be one of present, absent, medical or od", AllStatuses...)
	core.RegisterOneOf(validate, translator, "claimstatus", "must be one of medical or od", ClaimStatuses...)
	core.RegisterOneOf(validate, translator, "verdict", "must be one of approved or rejected", VerdictStatuses...)
}
