// Package shared wires the storage, validation and services the binaries have in common.
package shared

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/attendance"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/dating"
	"github.com/trezcool/kampus/core/prefs"
	"github.com/trezcool/kampus/core/user"
)

// NewValidator returns a validator knowing every custom tag of the core packages,
// along with the translator of its error messages.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()

	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	course.InitValidators(validate, translator)
	attendance.InitValidators(validate, translator)
	dating.InitValidators(validate, translator)
	prefs.InitValidators(validate, translator)
	return validate, translator
}

// ArgumentError reports a missing or malformed command line argument.
type ArgumentError struct {
	Arg string
	msg string
}

func NewArgumentError(arg, msg string) *ArgumentError {
	return &ArgumentError{Arg: arg, msg: msg}
}

func (err *ArgumentError) Error() string {
	return "-" + err.Arg + ": " + err.msg
}
