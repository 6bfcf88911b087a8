package user

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/kampus/core"
)

func newValidate() *validator.Validate {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)
	return validate
}

func TestUser_Roles(t *testing.T) {
	student := User{Roles: []string{RoleStudent}}
	head := User{Roles: []string{RoleFacultyHead}}
	admin := User{Roles: []string{RoleAdmin, RoleStudent}}

	assert.True(t, student.IsStudent())
	assert.False(t, student.IsStaff())
	assert.True(t, head.IsFaculty())
	assert.True(t, head.IsStaff())
	assert.True(t, admin.IsAdmin())
	assert.Equal(t, 21, MaxRolePriority(admin.Roles))
	assert.Equal(t, 0, MaxRolePriority(nil))
}

func TestIdentity_Validate(t *testing.T) {
	validate := newValidate()

	tests := []struct {
		name      string
		id        Identity
		wantErr   bool
		wantRoles []string
	}{
		{name: "valid", id: Identity{Subject: "u1", Name: " Asha ", Email: "ASHA@uni.edu"}, wantRoles: []string{RoleStudent}},
		{name: "faculty", id: Identity{Subject: "u2", Name: "Prof", Roles: []string{RoleFaculty}}, wantRoles: []string{RoleFaculty}},
		{name: "missing subject", id: Identity{Name: "Asha"}, wantErr: true},
		{name: "blank name", id: Identity{Subject: "u1", Name: "   "}, wantErr: true},
		{name: "bad email", id: Identity{Subject: "u1", Name: "Asha", Email: "nope"}, wantErr: true},
		{name: "unknown role", id: Identity{Subject: "u1", Name: "Asha", Roles: []string{"wizard:"}}, wantErr: true},
		{name: "spaces in subject", id: Identity{Subject: "u 1", Name: "Asha"}, wantErr: true},
		{name: "provider subject", id: Identity{Subject: "google-oauth2|1093", Name: "Asha"}, wantRoles: []string{RoleStudent}},
		{name: "too many roles", id: Identity{Subject: "u1", Name: "Asha", Roles: []string{RoleStudent, RoleStudent, RoleFaculty, RoleFaculty, RoleAdmin}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.id
			err := id.Validate(validate)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantRoles, id.Roles)
		})
	}

	id := Identity{Subject: "u1", Name: " Asha \t Rao ", Email: " ASHA@uni.edu"}
	require.NoError(t, id.Validate(validate))
	assert.Equal(t, "Asha Rao", id.Name)
	assert.Equal(t, "asha@uni.edu", id.Email)
}

func TestQueryFilter_Match(t *testing.T) {
	asha := User{ID: "1", Name: "Asha Rao", Email: "asha@uni.edu", Roles: []string{RoleStudent}}
	prof := User{ID: "2", Name: "Dr. Iyer", Email: "iyer@uni.edu", Roles: []string{RoleFacultyHead}}

	tests := []struct {
		name   string
		filter QueryFilter
		usr    User
		want   bool
	}{
		{name: "empty", usr: asha, want: true},
		{name: "search name", filter: QueryFilter{Search: "RAO"}, usr: asha, want: true},
		{name: "search email", filter: QueryFilter{Search: "iyer@"}, usr: prof, want: true},
		{name: "search miss", filter: QueryFilter{Search: "zzz"}, usr: asha},
		{name: "role prefix", filter: QueryFilter{Roles: []string{RoleFaculty}}, usr: prof, want: true},
		{name: "role miss", filter: QueryFilter{Roles: []string{RoleFaculty}}, usr: asha},
		{name: "ids", filter: QueryFilter{IDs: []string{"2"}}, usr: asha},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Match(tt.usr))
		})
	}
}
