package grade

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
)

var NowFunc = time.Now // mockable

type (
	Repository interface {
		// SaveResult creates the result or replaces the one of the same student, semester and course.
		SaveResult(ctx context.Context, r CourseResult, exec ...core.DBExecutor) (CourseResult, error)
		QueryResults(ctx context.Context, studentID string, exec ...core.DBExecutor) ([]CourseResult, error)
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// Record grades the marks and saves the result.
func (svc *Service) Record(ctx context.Context, nr NewResult) (CourseResult, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return CourseResult{}, err
	}
	letter, point := For(nr.Marks)
	r := CourseResult{
		ID:         uuid.New().String(),
		StudentID:  nr.StudentID,
		Semester:   nr.Semester,
		CourseCode: nr.CourseCode,
		CourseName: nr.CourseName,
		Credits:    nr.Credits,
		Marks:      nr.Marks,
		Grade:      letter,
		GradePoint: point,
		RecordedAt: NowFunc().UTC(),
	}
	return svc.repo.SaveResult(ctx, r)
}

func (svc *Service) Results(ctx context.Context, studentID string) ([]SemesterResult, error) {
	results, err := svc.repo.QueryResults(ctx, studentID)
	if err != nil {
		return nil, errors.Wrap(err, "querying results")
	}
	return GroupBySemester(results), nil
}

func (svc *Service) Transcript(ctx context.Context, studentID string) (Transcript, error) {
	results, err := svc.repo.QueryResults(ctx, studentID)
	if err != nil {
		return Transcript{}, errors.Wrap(err, "querying results")
	}
	return BuildTranscript(studentID, results), nil
}
