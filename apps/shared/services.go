package shared

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/attendance"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/dating"
	"github.com/trezcool/kampus/core/expense"
	"github.com/trezcool/kampus/core/grade"
	"github.com/trezcool/kampus/core/user"
)

type Services struct {
	Users      *user.Service
	Courses    *course.Service
	Grades     *grade.Service
	Attendance *attendance.Service
	Dating     *dating.Service
	Expenses   *expense.Service
}

// NewServices builds the domain services over st. notifier may be nil.
func NewServices(
	st *Storage,
	mailSvc core.EmailService,
	notifier dating.Notifier,
	logger core.Logger,
	validate *validator.Validate,
	conf *core.Config,
) *Services {
	usrSvc := user.NewService(st.Users, validate)
	courseSvc := course.NewService(st.DB, st.Courses, validate, conf)
	return &Services{
		Users:      usrSvc,
		Courses:    courseSvc,
		Grades:     grade.NewService(st.Grades, validate),
		Attendance: attendance.NewService(st.DB, st.Attendance, courseSvc, usrSvc, mailSvc, validate, conf),
		Dating:     dating.NewService(st.Dating, usrSvc, mailSvc, notifier, logger, validate, conf),
		Expenses:   expense.NewService(st.DB, st.Expenses, usrSvc, validate, conf),
	}
}
