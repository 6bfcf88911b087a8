package core_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kampus/core"
)

type sqlStateErr string

func (e sqlStateErr) Error() string    { return "pq: " + string(e) }
func (e sqlStateErr) SQLState() string { return string(e) }

func TestIsTxConflict(t *testing.T) {
	assert.True(t, core.IsTxConflict(sqlStateErr("40001")))
	assert.True(t, core.IsTxConflict(errors.Wrap(sqlStateErr("40P01"), "enrolling")))
	assert.False(t, core.IsTxConflict(sqlStateErr("23505")))
	assert.False(t, core.IsTxConflict(errors.New("boom")))
	assert.False(t, core.IsTxConflict(nil))
}

func TestRunInTx_memory(t *testing.T) {
	calls := 0
	err := core.RunInTx(context.Background(), nil, func(exec core.DBExecutor) error {
		calls++
		assert.Nil(t, exec)
		return sqlStateErr("40001")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestAllowedOrderings(t *testing.T) {
	fields := map[string]string{"code": "code", "credits": "credits"}
	got := core.AllowedOrderings([]core.DBOrdering{
		{Field: "credits"},
		{Field: "seats", Ascending: true},
		{Field: "code", Ascending: true},
		{Field: "credits", Ascending: true},
	}, fields)
	assert.Equal(t, []core.DBOrdering{{Field: "credits"}, {Field: "code", Ascending: true}}, got)
	assert.Equal(t, "credits DESC", got[0].String())
}

func TestErrorReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"conflict", errors.Wrap(core.NewConflictError("no_seats", "no seats available"), "enrolling"), "no_seats"},
		{"not found", core.NewNotFoundError("course"), "not_found"},
		{"forbidden", core.NewForbiddenError("nope"), "forbidden"},
		{"validation", core.NewValidationError(nil, core.FieldError{Field: "code", Error: "required"}), "invalid"},
		{"other", errors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.ErrorReason(tt.err))
		})
	}
}

func TestValidationError(t *testing.T) {
	err := core.NewValidationError(nil,
		core.FieldError{Field: "splits", Error: "must add up to the amount"},
		core.FieldError{Field: "splits", Error: "unknown member"},
	)
	assert.Equal(t, "splits: must add up to the amount", err.Error())

	var verr *core.ValidationError
	if assert.True(t, errors.As(err, &verr)) {
		assert.Equal(t, map[string]string{"splits": "must add up to the amount"}, verr.FieldMap())
	}
}

func TestCleaning(t *testing.T) {
	assert.Equal(t, "CS101", core.CourseCode(" cs 101 "))
	assert.Equal(t, "CS205L", core.CourseCode("cs-205l"))
	assert.Equal(t, "Dr. Asha  Rao", core.CleanString("  Dr. Asha  Rao\n"))
	assert.Equal(t, "Dr. Asha Rao", core.CleanName("  Dr. Asha \t Rao\n"))
	assert.Equal(t, "asha@kampus.test", core.CleanLower(" Asha@Kampus.test "))
}

func TestInitValidators(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	type newCourse struct {
		Code string `json:"code" validate:"required,coursecode"`
		Name string `json:"name" validate:"required,notblank"`
	}
	tests := []struct {
		name       string
		in         newCourse
		wantFields map[string]string
	}{
		{name: "valid", in: newCourse{Code: "CS101", Name: "Data Structures"}},
		{name: "lab suffix", in: newCourse{Code: "CS205L", Name: "Lab"}},
		{
			name: "lowercase code",
			in:   newCourse{Code: "cs101", Name: "Data Structures"},
			wantFields: map[string]string{
				"code": "must look like CS101: 2 to 4 letters, 3 digits and an optional suffix letter",
			},
		},
		{
			name:       "blank name",
			in:         newCourse{Code: "MA201", Name: "   "},
			wantFields: map[string]string{"name": "this field cannot be blank"},
		},
		{
			name:       "missing",
			in:         newCourse{},
			wantFields: map[string]string{"code": "this field is required", "name": "this field is required"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.in)
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantFields, core.ValidationMessages(errors.Wrap(err, "importing"), translator))
		})
	}
}

func TestDescribeValidation(t *testing.T) {
	translator := core.NewTranslator()
	err := core.NewValidationError(nil,
		core.FieldError{Field: "splits", Error: "must add up to the amount"},
		core.FieldError{Field: "amount", Error: "must be positive"},
	)
	assert.Equal(t, "amount: must be positive; splits: must add up to the amount",
		core.DescribeValidation(errors.Wrap(err, "adding expense"), translator))
	assert.Empty(t, core.DescribeValidation(errors.New("boom"), translator))
	assert.Nil(t, core.ValidationMessages(nil, translator))
}
