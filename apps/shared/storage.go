package shared

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/attendance"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/dating"
	"github.com/trezcool/kampus/core/expense"
	"github.com/trezcool/kampus/core/grade"
	"github.com/trezcool/kampus/core/user"
	"github.com/trezcool/kampus/storage/database"
	"github.com/trezcool/kampus/storage/database/inmem"
	"github.com/trezcool/kampus/storage/database/seed"
	"github.com/trezcool/kampus/storage/database/sqlx"
)

// Database engines
const (
	EnginePostgres = "postgres"
	EngineMemory   = "memory"
)

// Storage holds the repositories of one database engine.
// DB is nil for the memory engine.
type Storage struct {
	DB         core.DB
	Users      user.Repository
	Courses    course.Repository
	Grades     grade.Repository
	Attendance attendance.Repository
	Dating     dating.Repository
	Expenses   expense.Repository
}

// OpenStorage connects to the configured database. PostgreSQL databases are created and migrated
// when migrate is set; the memory engine is always seeded.
func OpenStorage(ctx context.Context, conf *core.Config, migrate bool) (*Storage, error) {
	if conf.Database.Engine == EngineMemory {
		return NewMemoryStorage(ctx)
	}

	if migrate {
		if err := database.CreateIfNotExist(ctx, conf); err != nil {
			return nil, err
		}
	}
	db, err := database.Open(conf)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "pinging database")
	}
	if migrate {
		if err = database.Migrate(ctx, db.DB); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return &Storage{
		DB:         db,
		Users:      sqlxrepos.NewUserRepository(db),
		Courses:    sqlxrepos.NewCourseRepository(db),
		Grades:     sqlxrepos.NewGradeRepository(db),
		Attendance: sqlxrepos.NewAttendanceRepository(db),
		Dating:     sqlxrepos.NewDatingRepository(db),
		Expenses:   sqlxrepos.NewExpenseRepository(db),
	}, nil
}

// NewMemoryStorage returns seeded in-memory repositories.
func NewMemoryStorage(ctx context.Context) (*Storage, error) {
	db := inmemdb.Open()
	if err := inmemdb.Seed(ctx, db); err != nil {
		return nil, errors.Wrap(err, "seeding memory database")
	}
	return &Storage{
		Users:      inmemdb.NewUserRepository(db),
		Courses:    inmemdb.NewCourseRepository(db),
		Grades:     inmemdb.NewGradeRepository(db),
		Attendance: inmemdb.NewAttendanceRepository(db),
		Dating:     inmemdb.NewDatingRepository(db),
		Expenses:   inmemdb.NewExpenseRepository(db),
	}, nil
}

// Seed loads the demo records.
func (s *Storage) Seed(ctx context.Context) error {
	return seed.Run(ctx, s.DB, seed.Repositories{Courses: s.Courses, Grades: s.Grades, Dating: s.Dating})
}

func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
