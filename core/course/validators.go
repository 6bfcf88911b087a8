package course

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
)

var (
	courseTypeTag  = "coursetype"
	courseTypeText = "must be one of Core, Elective, Lab or Project"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	core.RegisterOneOf(validate, translator, courseTypeTag, courseTypeText, AllTypes...)
}
