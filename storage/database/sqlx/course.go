package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/course"
)

type courseRow struct {
	ID             string         `db:"id"`
	Code           string         `db:"code"`
	Name           string         `db:"name"`
	Credits        int            `db:"credits"`
	Type           string         `db:"type"`
	SeatsTotal     int            `db:"seats_total"`
	SeatsAvailable int            `db:"seats_available"`
	Schedule       types.JSONText `db:"schedule"`
	Prerequisites  pq.StringArray `db:"prerequisites"`
	Faculty        string         `db:"faculty"`
	CreatedAt      time.Time      `db:"created_at"`
}

func (r courseRow) course() (course.Course, error) {
	schedule := make([]course.Slot, 0)
	if len(r.Schedule) > 0 {
		if err := r.Schedule.Unmarshal(&schedule); err != nil {
			return course.Course{}, errors.Wrapf(err, "decoding schedule of %s", r.Code)
		}
	}
	return course.Course{
		ID:            r.ID,
		Code:          r.Code,
		Name:          r.Name,
		Credits:       r.Credits,
		Type:          course.Type(r.Type),
		Seats:         course.Seats{Total: r.SeatsTotal, Available: r.SeatsAvailable},
		Schedule:      schedule,
		Prerequisites: fromTextArray(r.Prerequisites),
		Faculty:       r.Faculty,
		CreatedAt:     r.CreatedAt.UTC(),
	}, nil
}

type enrolledRow struct {
	courseRow
	EnrolledAt time.Time `db:"enrolled_at"`
}

const courseColumns = "id, code, name, credits, type, seats_total, seats_available, schedule, prerequisites, faculty, created_at"

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(exec core.DBExecutor) *courseRepository {
	return &courseRepository{repository{exec: exec}}
}

// trapNoRowsErr maps psql "no rows" err to course.ErrNotFound
func (repo courseRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return course.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

// scheduleJSON encodes the schedule as text; pq sends []byte params as bytea.
func scheduleJSON(c course.Course) (string, error) {
	schedule := c.Schedule
	if schedule == nil {
		schedule = []course.Slot{}
	}
	data, err := json.Marshal(schedule)
	return string(data), err
}

func (repo courseRepository) queryCourses(ctx context.Context, exec core.DBExecutor, q string, args ...interface{}) ([]course.Course, error) {
	var rows []courseRow
	if err := query(ctx, exec, &rows, q, args...); err != nil {
		return nil, err
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		c, err := r.course()
		if err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func (repo courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	db := repo.getExec(exec)
	if _, err := repo.GetCourseByCode(ctx, c.Code, db); err == nil {
		return course.Course{}, course.ErrCodeExists
	} else if errors.Cause(err) != course.ErrNotFound {
		return course.Course{}, err
	}

	schedule, err := scheduleJSON(c)
	if err != nil {
		return course.Course{}, errors.Wrap(err, "encoding schedule")
	}
	courses, err := repo.queryCourses(ctx, db, `
		INSERT INTO courses (`+courseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?::jsonb, ?, ?, ?)
		RETURNING `+courseColumns,
		c.ID, c.Code, c.Name, c.Credits, string(c.Type), c.Seats.Total, c.Seats.Available,
		schedule, textArray(c.Prerequisites), c.Faculty, c.CreatedAt.UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return course.Course{}, course.ErrCodeExists
		}
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return courses[0], nil
}

func (repo courseRepository) SaveCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, bool, error) {
	db := repo.getExec(exec)
	orig, err := repo.GetCourseByCode(ctx, c.Code, db)
	switch {
	case errors.Cause(err) == course.ErrNotFound:
		saved, err := repo.CreateCourse(ctx, c, db)
		return saved, true, err
	case err != nil:
		return course.Course{}, false, err
	}

	schedule, err := scheduleJSON(c)
	if err != nil {
		return course.Course{}, false, errors.Wrap(err, "encoding schedule")
	}
	// seats already taken stay taken
	courses, err := repo.queryCourses(ctx, db, `
		UPDATE courses SET
			name = ?, credits = ?, type = ?,
			seats_available = GREATEST(? - (seats_total - seats_available), 0),
			seats_total = ?,
			schedule = ?::jsonb, prerequisites = ?, faculty = ?
		WHERE id = ?
		RETURNING `+courseColumns,
		c.Name, c.Credits, string(c.Type), c.Seats.Total, c.Seats.Total,
		schedule, textArray(c.Prerequisites), c.Faculty, orig.ID,
	)
	if err != nil {
		return course.Course{}, false, errors.Wrap(err, "updating course")
	}
	return courses[0], false, nil
}

func (repo courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			pattern := likePattern(filter.Search)
			w.add("(code ILIKE ? OR name ILIKE ? OR faculty ILIKE ?)", pattern, pattern, pattern)
		}
		if len(filter.Types) > 0 {
			w.add("LOWER(type) = ANY(?)", pq.Array(lowerAll(filter.Types)))
		}
		if filter.Day != "" {
			day, err := json.Marshal([]map[string]string{{"day": filter.Day}})
			if err != nil {
				return nil, errors.Wrap(err, "encoding day filter")
			}
			w.add("schedule @> ?::jsonb", string(day))
		}
		if filter.OnlyOpen {
			w.add("seats_available > 0")
		}
	}

	q := "SELECT " + courseColumns + " FROM courses" + w.String() + orderBy(ordering, "code ASC, id ASC")
	courses, err := repo.queryCourses(ctx, repo.getExec(exec), q, w.args...)
	if err != nil {
		return nil, errors.Wrap(err, "querying courses")
	}
	return courses, nil
}

func (repo courseRepository) GetCourse(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	courses, err := repo.queryCourses(ctx, repo.getExec(exec), "SELECT "+courseColumns+" FROM courses WHERE id = ?", id)
	if err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course")
	}
	if len(courses) == 0 {
		return course.Course{}, repo.trapNoRowsErr(sql.ErrNoRows, "getting course")
	}
	return courses[0], nil
}

func (repo courseRepository) GetCourseByCode(ctx context.Context, code string, exec ...core.DBExecutor) (course.Course, error) {
	courses, err := repo.queryCourses(ctx, repo.getExec(exec), "SELECT "+courseColumns+" FROM courses WHERE LOWER(code) = LOWER(?)", code)
	if err != nil {
		return course.Course{}, repo.trapNoRowsErr(err, "getting course by code")
	}
	if len(courses) == 0 {
		return course.Course{}, repo.trapNoRowsErr(sql.ErrNoRows, "getting course by code")
	}
	return courses[0], nil
}

func (repo courseRepository) QueryEnrollments(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]course.EnrolledCourse, error) {
	var rows []enrolledRow
	err := query(ctx, repo.getExec(exec), &rows, `
		SELECT c.id, c.code, c.name, c.credits, c.type, c.seats_total, c.seats_available,
			c.schedule, c.prerequisites, c.faculty, c.created_at, e.enrolled_at
		FROM enrollments e JOIN courses c ON c.id = e.course_id
		WHERE e.student_id = ?
		ORDER BY c.code ASC`,
		studentID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "querying enrollments")
	}
	enrolled := make([]course.EnrolledCourse, 0, len(rows))
	for _, r := range rows {
		c, err := r.course()
		if err != nil {
			return nil, err
		}
		enrolled = append(enrolled, course.EnrolledCourse{Course: c, EnrolledAt: r.EnrolledAt.UTC()})
	}
	return enrolled, nil
}

func (repo courseRepository) CreateEnrollment(ctx context.Context, studentID, courseID string, at time.Time, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx, `
		INSERT INTO enrollments (student_id, course_id, enrolled_at) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		studentID, courseID, at.UTC(),
	)
	if err != nil {
		return errors.Wrap(err, "inserting enrollment")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "inserting enrollment")
	} else if n == 0 {
		return course.ErrAlreadyEnrolled
	}
	return nil
}

func (repo courseRepository) DeleteEnrollment(ctx context.Context, studentID, courseID string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"DELETE FROM enrollments WHERE student_id = $1 AND course_id = $2", studentID, courseID)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "deleting enrollment")
	} else if n == 0 {
		return course.ErrNotEnrolled
	}
	return nil
}

func (repo courseRepository) ReserveSeat(ctx context.Context, courseID string, exec ...core.DBExecutor) error {
	res, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE courses SET seats_available = seats_available - 1 WHERE id = $1 AND seats_available > 0", courseID)
	if err != nil {
		return errors.Wrap(err, "reserving seat")
	}
	if n, err := res.RowsAffected(); err != nil {
		return errors.Wrap(err, "reserving seat")
	} else if n == 0 {
		if _, err = repo.GetCourse(ctx, courseID, exec...); err != nil {
			return err
		}
		return course.ErrNoSeats
	}
	return nil
}

func (repo courseRepository) ReleaseSeat(ctx context.Context, courseID string, exec ...core.DBExecutor) error {
	_, err := repo.getExec(exec).ExecContext(ctx,
		"UPDATE courses SET seats_available = seats_available + 1 WHERE id = $1 AND seats_available < seats_total", courseID)
	return errors.Wrap(err, "releasing seat")
}

func lowerAll(s []string) []string {
	lowered := make([]string, len(s))
	for i, v := range s {
		lowered[i] = core.CleanLower(v)
	}
	return lowered
}
