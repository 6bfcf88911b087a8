package inmemdb

import (
	"context"
	"sort"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/grade"
)

type gradeRepository struct {
	db *gradeTable
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(db *DB) *gradeRepository {
	return &gradeRepository{db: db.grade}
}

func (repo *gradeRepository) SaveResult(_ context.Context, r grade.CourseResult, _ ...core.DBExecutor) (grade.CourseResult, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for id, orig := range repo.db.table {
		if orig.StudentID == r.StudentID && orig.Semester == r.Semester && orig.CourseCode == r.CourseCode {
			r.ID = id
			break
		}
	}
	stored := r
	repo.db.table[r.ID] = &stored
	return r, nil
}

func (repo *gradeRepository) QueryResults(_ context.Context, studentID string, _ ...core.DBExecutor) ([]grade.CourseResult, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	results := make([]grade.CourseResult, 0)
	for _, r := range repo.db.table {
		if r.StudentID == studentID {
			results = append(results, *r)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Semester != results[j].Semester {
			return results[i].Semester < results[j].Semester
		}
		return results[i].CourseCode < results[j].CourseCode
	})
	return results, nil
}
