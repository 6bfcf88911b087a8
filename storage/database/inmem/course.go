package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/course"
)

type enrollment struct {
	courseID   string
	enrolledAt time.Time
}

type courseRepository struct {
	db *courseTable
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *DB) *courseRepository {
	return &courseRepository{db: db.course}
}

func copyCourse(c course.Course) course.Course {
	c.Schedule = append([]course.Slot{}, c.Schedule...)
	c.Prerequisites = copyStrings(c.Prerequisites)
	return c
}

func (repo *courseRepository) codeTaken(code, excludedID string) bool {
	for _, c := range repo.db.table {
		if c.ID != excludedID && strings.EqualFold(c.Code, code) {
			return true
		}
	}
	return false
}

func (repo *courseRepository) CreateCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.codeTaken(c.Code, "") {
		return course.Course{}, course.ErrCodeExists
	}
	stored := copyCourse(c)
	repo.db.table[c.ID] = &stored
	return copyCourse(c), nil
}

func (repo *courseRepository) SaveCourse(_ context.Context, c course.Course, _ ...core.DBExecutor) (course.Course, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, orig := range repo.db.table {
		if !strings.EqualFold(orig.Code, c.Code) {
			continue
		}
		taken := orig.Seats.Total - orig.Seats.Available
		c.ID = orig.ID
		c.CreatedAt = orig.CreatedAt
		c.Seats.Available = c.Seats.Total - taken
		if c.Seats.Available < 0 {
			c.Seats.Available = 0
		}
		stored := copyCourse(c)
		repo.db.table[c.ID] = &stored
		return copyCourse(c), false, nil
	}

	stored := copyCourse(c)
	repo.db.table[c.ID] = &stored
	return copyCourse(c), true, nil
}

func (repo *courseRepository) QueryCourses(_ context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]course.Course, error) {
	repo.db.RLock()
	courses := make([]course.Course, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		courses = append(courses, copyCourse(*c))
	}
	repo.db.RUnlock()

	courses = course.Filter(courses, filter)
	sortCourses(courses, ordering)
	return courses, nil
}

func sortCourses(courses []course.Course, ordering []core.DBOrdering) {
	if len(ordering) == 0 {
		return // course.Filter already sorts by code
	}
	sort.SliceStable(courses, func(i, j int) bool {
		for _, ord := range ordering {
			var cmp int
			switch ord.Field {
			case "code":
				cmp = strings.Compare(courses[i].Code, courses[j].Code)
			case "name":
				cmp = strings.Compare(courses[i].Name, courses[j].Name)
			case "credits":
				cmp = courses[i].Credits - courses[j].Credits
			case "type":
				cmp = strings.Compare(string(courses[i].Type), string(courses[j].Type))
			}
			if cmp != 0 {
				return (cmp < 0) == ord.Ascending
			}
		}
		return false
	})
}

func (repo *courseRepository) GetCourse(_ context.Context, id string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return copyCourse(*c), nil
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) GetCourseByCode(_ context.Context, code string, _ ...core.DBExecutor) (course.Course, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.db.table {
		if strings.EqualFold(c.Code, code) {
			return copyCourse(*c), nil
		}
	}
	return course.Course{}, course.ErrNotFound
}

func (repo *courseRepository) QueryEnrollments(_ context.Context, studentID string, _ ...core.DBExecutor) ([]course.EnrolledCourse, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	enrolled := make([]course.EnrolledCourse, 0, len(repo.db.enrollments[studentID]))
	for _, e := range repo.db.enrollments[studentID] {
		if c, ok := repo.db.table[e.courseID]; ok {
			enrolled = append(enrolled, course.EnrolledCourse{Course: copyCourse(*c), EnrolledAt: e.enrolledAt})
		}
	}
	sort.Slice(enrolled, func(i, j int) bool { return enrolled[i].Code < enrolled[j].Code })
	return enrolled, nil
}

func (repo *courseRepository) CreateEnrollment(_ context.Context, studentID, courseID string, at time.Time, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[courseID]; !ok {
		return course.ErrNotFound
	}
	enrollments, ok := repo.db.enrollments[studentID]
	if !ok {
		enrollments = make(map[string]enrollment)
		repo.db.enrollments[studentID] = enrollments
	}
	if _, ok = enrollments[courseID]; ok {
		return course.ErrAlreadyEnrolled
	}
	enrollments[courseID] = enrollment{courseID: courseID, enrolledAt: at.UTC()}
	return nil
}

func (repo *courseRepository) DeleteEnrollment(_ context.Context, studentID, courseID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.enrollments[studentID][courseID]; !ok {
		return course.ErrNotEnrolled
	}
	delete(repo.db.enrollments[studentID], courseID)
	return nil
}

func (repo *courseRepository) ReserveSeat(_ context.Context, courseID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	if c.Seats.Available <= 0 {
		return course.ErrNoSeats
	}
	c.Seats.Available--
	return nil
}

func (repo *courseRepository) ReleaseSeat(_ context.Context, courseID string, _ ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	c, ok := repo.db.table[courseID]
	if !ok {
		return course.ErrNotFound
	}
	if c.Seats.Available < c.Seats.Total {
		c.Seats.Available++
	}
	return nil
}
