package user

import (
	"net/mail"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
)

// Roles
const (
	// Admin
	RoleAdmin = "admin:"

	// Faculty
	RoleFaculty     = "faculty:"
	RoleFacultyHead = "faculty:head"

	// Student
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin}
	FacultyRoles = []string{RoleFaculty, RoleFacultyHead}
	StudentRoles = []string{RoleStudent}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdmin: 21,

		// Faculty: 20 - 11
		RoleFacultyHead: 12,
		RoleFaculty:     11,

		// Students: 10 - 1
		RoleStudent: 1,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Faculty", Value: RoleFaculty},
		{Name: "Head of Department", Value: RoleFacultyHead},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 4)
	all = append(all, AdminRoles...)
	all = append(all, FacultyRoles...)
	all = append(all, StudentRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is a campus member as known from the identity provider.
// ID is the provider's subject.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	AvatarURL string    `json:"avatar_url"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
	LastSeen  time.Time `json:"last_seen"`  // UTC
}

func (u User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u User) IsFaculty() bool {
	return u.RoleStartsWith(RoleFaculty)
}

func (u User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

// IsStaff reports whether the user may manage academic records.
func (u User) IsStaff() bool {
	return u.IsAdmin() || u.IsFaculty()
}

func (u User) MailAddress() mail.Address {
	return mail.Address{Name: u.Name, Address: u.Email}
}

// Identity is the profile the identity provider vouches for.
type Identity struct {
	Subject   string   `json:"sub" validate:"required,subject"`
	Name      string   `json:"name" validate:"required,notblank"`
	Email     string   `json:"email" validate:"omitempty,email"`
	AvatarURL string   `json:"picture" validate:"omitempty,url"`
	Roles     []string `json:"roles" validate:"omitempty,max=4,dive,role"`
}

func (id *Identity) Validate(validate *validator.Validate) error {
	id.Name = core.CleanName(id.Name)
	id.Email = core.CleanLower(id.Email)
	if len(id.Roles) == 0 {
		id.Roles = []string{RoleStudent}
	}
	return validate.Struct(id)
}

type QueryFilter struct {
	Search string   `query:"search"`
	Roles  []string `query:"role"`
	IDs    []string `query:"-"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IDs == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Match reports whether usr satisfies the filter.
// Search does a case-insensitive match on one of User.Name or User.Email.
func (qf *QueryFilter) Match(usr User) bool {
	if qf.Search != "" && !(core.ContainsFold(usr.Name, qf.Search) || core.ContainsFold(usr.Email, qf.Search)) {
		return false
	}
	if len(qf.IDs) > 0 && !containsString(qf.IDs, usr.ID) {
		return false
	}
	if len(qf.Roles) > 0 {
		for _, role := range qf.Roles {
			if usr.RoleStartsWith(role) {
				return true
			}
		}
		return false
	}
	return true
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
