package course

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		CreateCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, error)
		// SaveCourse creates the course or updates the course with the same code.
		SaveCourse(ctx context.Context, c Course, exec ...core.DBExecutor) (Course, bool, error)
		QueryCourses(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (Course, error)
		GetCourseByCode(ctx context.Context, code string, exec ...core.DBExecutor) (Course, error)

		QueryEnrollments(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]EnrolledCourse, error)
		CreateEnrollment(ctx context.Context, studentID, courseID string, at time.Time, exec ...core.DBExecutor) error
		DeleteEnrollment(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) error
		// ReserveSeat takes one available seat or fails with ErrNoSeats.
		ReserveSeat(ctx context.Context, courseID string, exec ...core.DBExecutor) error
		ReleaseSeat(ctx context.Context, courseID string, exec ...core.DBExecutor) error
	}

	Service struct {
		db          core.DB
		repo        Repository
		validate    *validator.Validate
		creditLimit int
		locks       *keyedMutex
	}
)

// OrderingFields maps the orderable API fields to their columns.
var OrderingFields = map[string]string{
	"code":    "code",
	"name":    "name",
	"credits": "credits",
	"type":    "type",
}

func NewService(db core.DB, repo Repository, validate *validator.Validate, conf *core.Config) *Service {
	return &Service{
		db:          db,
		repo:        repo,
		validate:    validate,
		creditLimit: conf.Registration.CreditLimit,
		locks:       newKeyedMutex(),
	}
}

func (nc NewCourse) toCourse() Course {
	schedule := nc.Schedule
	if schedule == nil {
		schedule = []Slot{}
	}
	prereqs := nc.Prerequisites
	if prereqs == nil {
		prereqs = []string{}
	}
	return Course{
		ID:            uuid.New().String(),
		Code:          nc.Code,
		Name:          nc.Name,
		Credits:       nc.Credits,
		Type:          Type(nc.Type),
		Seats:         Seats{Total: nc.Seats, Available: nc.Seats},
		Schedule:      schedule,
		Prerequisites: prereqs,
		Faculty:       nc.Faculty,
		CreatedAt:     NowFunc().UTC(),
	}
}

func (svc *Service) Create(ctx context.Context, nc NewCourse) (Course, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Course{}, err
	}
	return svc.repo.CreateCourse(ctx, nc.toCourse())
}

// Import saves every course by code. Invalid rows are reported with their index.
func (svc *Service) Import(ctx context.Context, courses []NewCourse) (created, updated int, err error) {
	for i := range courses {
		if err = courses[i].Validate(svc.validate); err != nil {
			return 0, 0, errors.Wrapf(err, "validating course #%d", i+1)
		}
	}
	err = core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		for _, nc := range courses {
			_, isNew, err := svc.repo.SaveCourse(ctx, nc.toCourse(), exec)
			if err != nil {
				return errors.Wrapf(err, "saving course %s", nc.Code)
			}
			if isNew {
				created++
			} else {
				updated++
			}
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Course, error) {
	return svc.repo.GetCourse(ctx, id)
}

func (svc *Service) GetByCode(ctx context.Context, code string) (Course, error) {
	return svc.repo.GetCourseByCode(ctx, core.CourseCode(code))
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Course, error) {
	if filter != nil {
		filter.Clean()
	}
	return svc.repo.QueryCourses(ctx, filter, core.AllowedOrderings(ordering, OrderingFields))
}

// Catalog lists the courses matching filter that the student has not enrolled in.
func (svc *Service) Catalog(ctx context.Context, studentID string, filter *QueryFilter, ordering []core.DBOrdering) ([]AvailableCourse, error) {
	courses, err := svc.Query(ctx, filter, ordering)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	enrolled, err := svc.repo.QueryEnrollments(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	reg := NewRegistration(studentID, svc.creditLimit, enrolled...)

	catalog := make([]AvailableCourse, 0, len(courses))
	for _, c := range courses {
		if !reg.IsEnrolled(c.ID) {
			catalog = append(catalog, NewAvailableCourse(c))
		}
	}
	return catalog, nil
}

func (svc *Service) Suggest(ctx context.Context, query string) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx, nil, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return Suggest(courses, query), nil
}

func (svc *Service) Registration(ctx context.Context, studentID string) (*Registration, error) {
	enrolled, err := svc.repo.QueryEnrollments(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	return NewRegistration(studentID, svc.creditLimit, enrolled...), nil
}

// Enroll takes a seat in the course for the student, within the credit limit.
// Registration changes of one student are serialised.
func (svc *Service) Enroll(ctx context.Context, studentID, courseID string) (*Registration, error) {
	unlock := svc.locks.lock(studentID)
	defer unlock()

	var reg *Registration
	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		c, err := svc.repo.GetCourse(ctx, courseID, exec)
		if err != nil {
			return err
		}
		enrolled, err := svc.repo.QueryEnrollments(ctx, studentID, exec)
		if err != nil {
			return errors.Wrap(err, "querying enrollments")
		}
		reg = NewRegistration(studentID, svc.creditLimit, enrolled...)

		ec, err := reg.Enroll(c, NowFunc().UTC())
		if err != nil {
			return err
		}
		if err = svc.repo.ReserveSeat(ctx, c.ID, exec); err != nil {
			return err
		}
		return svc.repo.CreateEnrollment(ctx, studentID, c.ID, ec.EnrolledAt, exec)
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// Drop releases the student's seat in the course.
func (svc *Service) Drop(ctx context.Context, studentID, courseID string) (*Registration, error) {
	unlock := svc.locks.lock(studentID)
	defer unlock()

	var reg *Registration
	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		enrolled, err := svc.repo.QueryEnrollments(ctx, studentID, exec)
		if err != nil {
			return errors.Wrap(err, "querying enrollments")
		}
		reg = NewRegistration(studentID, svc.creditLimit, enrolled...)

		if _, err = reg.Drop(courseID); err != nil {
			return err
		}
		if err = svc.repo.DeleteEnrollment(ctx, studentID, courseID, exec); err != nil {
			return err
		}
		return svc.repo.ReleaseSeat(ctx, courseID, exec)
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

// keyedMutex hands out one mutex per key, dropped once nobody holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (km *keyedMutex) lock(key string) (unlock func()) {
	km.mu.Lock()
	m, ok := km.locks[key]
	if !ok {
		m = new(refMutex)
		km.locks[key] = m
	}
	m.refs++
	km.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		km.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}
