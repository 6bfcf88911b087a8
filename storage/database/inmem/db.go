package inmemdb

import (
	"sync"

	"github.com/trezcool/kampus/core/attendance"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/dating"
	"github.com/trezcool/kampus/core/expense"
	"github.com/trezcool/kampus/core/grade"
	"github.com/trezcool/kampus/core/user"
)

type (
	// DB keeps every table in memory. Each table is guarded by its own mutex.
	DB struct {
		user       *userTable
		course     *courseTable
		grade      *gradeTable
		attendance *attendanceTable
		dating     *datingTables
		expense    *expenseTables
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	courseTable struct {
		sync.RWMutex
		table       map[string]*course.Course
		enrollments map[string]map[string]enrollment // {studentID: {courseID: enrollment}}
	}

	gradeTable struct {
		sync.RWMutex
		table map[string]*grade.CourseResult
	}

	attendanceTable struct {
		sync.RWMutex
		table map[string]*attendance.Record
	}

	datingTables struct {
		sync.RWMutex
		profiles map[string]*dating.Profile
		swipes   []dating.Swipe
		matches  map[string]*dating.Match
		messages map[string][]dating.Message // {matchID: messages}
	}

	expenseTables struct {
		sync.RWMutex
		groups   map[string]*expense.Group
		expenses map[string]*expense.Expense
	}
)

func Open() *DB {
	return &DB{
		user: &userTable{table: make(map[string]*user.User)},
		course: &courseTable{
			table:       make(map[string]*course.Course),
			enrollments: make(map[string]map[string]enrollment),
		},
		grade:      &gradeTable{table: make(map[string]*grade.CourseResult)},
		attendance: &attendanceTable{table: make(map[string]*attendance.Record)},
		dating: &datingTables{
			profiles: make(map[string]*dating.Profile),
			matches:  make(map[string]*dating.Match),
			messages: make(map[string][]dating.Message),
		},
		expense: &expenseTables{
			groups:   make(map[string]*expense.Group),
			expenses: make(map[string]*expense.Expense),
		},
	}
}

func copyStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return append([]string{}, s...)
}
