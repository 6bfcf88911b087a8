package inmemdb

import (
	"context"

	"github.com/trezcool/kampus/storage/database/seed"
)

// Seed loads the demo records into db.
func Seed(ctx context.Context, db *DB) error {
	return seed.Run(ctx, nil, seed.Repositories{
		Courses: NewCourseRepository(db),
		Grades:  NewGradeRepository(db),
		Dating:  NewDatingRepository(db),
	})
}
