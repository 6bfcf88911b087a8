package course

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/trezcool/kampus/core"
)

var (
	// errors
	ErrNotFound            = core.NewNotFoundError("course")
	ErrCodeExists          = core.NewConflictError("course_code_taken", "a course with this code already exists")
	ErrCreditLimitExceeded = core.NewConflictError("credit_limit_exceeded", "credit limit exceeded")
	ErrAlreadyEnrolled     = core.NewConflictError("already_enrolled", "already enrolled in this course")
	ErrNotEnrolled         = core.NewConflictError("not_enrolled", "not enrolled in this course")
	ErrNoSeats             = core.NewConflictError("no_seats", "no seats available")
)

// Registration holds a student's enrolled courses for the current term.
// The summed credits of its courses never exceed Limit.
type Registration struct {
	StudentID string
	Limit     int

	credits int
	courses []EnrolledCourse
}

// NewRegistration restores a registration from already enrolled courses.
func NewRegistration(studentID string, limit int, enrolled ...EnrolledCourse) *Registration {
	reg := &Registration{StudentID: studentID, Limit: limit}
	for _, ec := range enrolled {
		reg.courses = append(reg.courses, ec)
		reg.credits += ec.Credits
	}
	reg.sort()
	return reg
}

func (reg *Registration) sort() {
	sort.SliceStable(reg.courses, func(i, j int) bool { return reg.courses[i].Code < reg.courses[j].Code })
}

func (reg *Registration) CurrentCredits() int { return reg.credits }

func (reg *Registration) RemainingCredits() int { return reg.Limit - reg.credits }

func (reg *Registration) Courses() []EnrolledCourse {
	courses := make([]EnrolledCourse, len(reg.courses))
	copy(courses, reg.courses)
	return courses
}

func (reg *Registration) index(courseID string) int {
	for i, ec := range reg.courses {
		if ec.ID == courseID {
			return i
		}
	}
	return -1
}

func (reg *Registration) IsEnrolled(courseID string) bool {
	return reg.index(courseID) >= 0
}

// CanEnroll reports why c cannot be added, if it cannot.
func (reg *Registration) CanEnroll(c Course) error {
	if reg.IsEnrolled(c.ID) {
		return ErrAlreadyEnrolled
	}
	if reg.credits+c.Credits > reg.Limit {
		return ErrCreditLimitExceeded
	}
	return nil
}

// Enroll adds c, leaving the registration untouched on error.
func (reg *Registration) Enroll(c Course, at time.Time) (EnrolledCourse, error) {
	if err := reg.CanEnroll(c); err != nil {
		return EnrolledCourse{}, err
	}
	ec := EnrolledCourse{Course: c, EnrolledAt: at}
	reg.courses = append(reg.courses, ec)
	reg.credits += c.Credits
	reg.sort()
	return ec, nil
}

// Drop removes an enrolled course and releases its credits.
func (reg *Registration) Drop(courseID string) (EnrolledCourse, error) {
	i := reg.index(courseID)
	if i < 0 {
		return EnrolledCourse{}, ErrNotEnrolled
	}
	ec := reg.courses[i]
	reg.courses = append(reg.courses[:i], reg.courses[i+1:]...)
	reg.credits -= ec.Credits
	if reg.credits < 0 {
		reg.credits = 0
	}
	return ec, nil
}

func (reg *Registration) MarshalJSON() ([]byte, error) {
	courses := reg.courses
	if courses == nil {
		courses = []EnrolledCourse{}
	}
	return json.Marshal(struct {
		StudentID      string           `json:"student_id"`
		CreditLimit    int              `json:"credit_limit"`
		CurrentCredits int              `json:"current_credits"`
		Courses        []EnrolledCourse `json:"courses"`
	}{reg.StudentID, reg.Limit, reg.credits, courses})
}
