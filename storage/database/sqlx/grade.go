package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/grade"
)

type resultRow struct {
	ID         string    `db:"id"`
	StudentID  string    `db:"student_id"`
	Semester   int       `db:"semester"`
	CourseCode string    `db:"course_code"`
	CourseName string    `db:"course_name"`
	Credits    int       `db:"credits"`
	Marks      float64   `db:"marks"`
	Grade      string    `db:"grade"`
	GradePoint int       `db:"grade_point"`
	RecordedAt time.Time `db:"recorded_at"`
}

func (r resultRow) result() grade.CourseResult {
	return grade.CourseResult{
		ID:         r.ID,
		StudentID:  r.StudentID,
		Semester:   r.Semester,
		CourseCode: r.CourseCode,
		CourseName: r.CourseName,
		Credits:    r.Credits,
		Marks:      r.Marks,
		Grade:      r.Grade,
		GradePoint: r.GradePoint,
		RecordedAt: r.RecordedAt.UTC(),
	}
}

const resultColumns = "id, student_id, semester, course_code, course_name, credits, marks, grade, grade_point, recorded_at"

type gradeRepository struct {
	repository
}

var _ grade.Repository = (*gradeRepository)(nil) // interface compliance check

func NewGradeRepository(exec core.DBExecutor) *gradeRepository {
	return &gradeRepository{repository{exec: exec}}
}

func (repo gradeRepository) SaveResult(ctx context.Context, r grade.CourseResult, exec ...core.DBExecutor) (grade.CourseResult, error) {
	var rows []resultRow
	err := query(ctx, repo.getExec(exec), &rows, `
		INSERT INTO results (`+resultColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (student_id, semester, course_code) DO UPDATE SET
			course_name = EXCLUDED.course_name,
			credits = EXCLUDED.credits,
			marks = EXCLUDED.marks,
			grade = EXCLUDED.grade,
			grade_point = EXCLUDED.grade_point,
			recorded_at = EXCLUDED.recorded_at
		RETURNING `+resultColumns,
		r.ID, r.StudentID, r.Semester, r.CourseCode, r.CourseName, r.Credits,
		r.Marks, r.Grade, r.GradePoint, r.RecordedAt.UTC(),
	)
	if err != nil {
		return grade.CourseResult{}, errors.Wrap(err, "saving result")
	}
	if len(rows) == 0 {
		return grade.CourseResult{}, errors.New("saving result: no row returned")
	}
	return rows[0].result(), nil
}

func (repo gradeRepository) QueryResults(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]grade.CourseResult, error) {
	var rows []resultRow
	err := query(ctx, repo.getExec(exec), &rows,
		"SELECT "+resultColumns+" FROM results WHERE student_id = ? ORDER BY semester ASC, course_code ASC", studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	results := make([]grade.CourseResult, 0, len(rows))
	for _, r := range rows {
		results = append(results, r.result())
	}
	return results, nil
}
