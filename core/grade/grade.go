package grade

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
)

// Letter grades on the 10-point scale.
const (
	LetterO     = "O"
	LetterAPlus = "A+"
	LetterA     = "A"
	LetterBPlus = "B+"
	LetterB     = "B"
	LetterC     = "C"
	LetterP     = "P"
	LetterF     = "F"
)

var scale = []struct {
	minMarks float64
	letter   string
	point    int
}{
	{90, LetterO, 10},
	{80, LetterAPlus, 9},
	{70, LetterA, 8},
	{60, LetterBPlus, 7},
	{50, LetterB, 6},
	{45, LetterC, 5},
	{40, LetterP, 4},
}

// For maps marks out of 100 to a letter grade and its grade point.
func For(marks float64) (letter string, point int) {
	for _, step := range scale {
		if marks >= step.minMarks {
			return step.letter, step.point
		}
	}
	return LetterF, 0
}

type (
	// CourseResult is one graded course of a semester.
	CourseResult struct {
		ID         string    `json:"id"`
		StudentID  string    `json:"student_id"`
		Semester   int       `json:"semester"`
		CourseCode string    `json:"course_code"`
		CourseName string    `json:"course_name"`
		Credits    int       `json:"credits"`
		Marks      float64   `json:"marks"`
		Grade      string    `json:"grade"`
		GradePoint int       `json:"grade_point"`
		RecordedAt time.Time `json:"recorded_at"` // UTC
	}

	SemesterResult struct {
		Semester int            `json:"semester"`
		Courses  []CourseResult `json:"courses"`
	}

	NewResult struct {
		StudentID  string  `json:"student_id" validate:"required"`
		Semester   int     `json:"semester" validate:"required,min=1,max=16"`
		CourseCode string  `json:"course_code" validate:"required,coursecode"`
		CourseName string  `json:"course_name" validate:"required,notblank"`
		Credits    int     `json:"credits" validate:"required,min=1,max=12"`
		Marks      float64 `json:"marks" validate:"min=0,max=100"`
	}
)

func (nr *NewResult) Validate(validate *validator.Validate) error {
	nr.CourseCode = core.CourseCode(nr.CourseCode)
	nr.CourseName = core.CleanName(nr.CourseName)
	return validate.Struct(nr)
}

func (r CourseResult) Passed() bool {
	return r.GradePoint > 0
}

// SGPA is the credit-weighted mean of grade points, at full precision.
// A semester without credits has an SGPA of 0.
func SGPA(results []CourseResult) float64 {
	var points, credits int
	for _, r := range results {
		points += r.Credits * r.GradePoint
		credits += r.Credits
	}
	if credits == 0 {
		return 0
	}
	return float64(points) / float64(credits)
}

// CGPA is the credit-weighted mean over every course of semesters up to and including upTo.
func CGPA(semesters []SemesterResult, upTo int) float64 {
	var results []CourseResult
	for _, sem := range semesters {
		if sem.Semester <= upTo {
			results = append(results, sem.Courses...)
		}
	}
	return SGPA(results)
}

// GroupBySemester groups results by semester, in semester order.
func GroupBySemester(results []CourseResult) []SemesterResult {
	bySem := make(map[int][]CourseResult)
	for _, r := range results {
		bySem[r.Semester] = append(bySem[r.Semester], r)
	}
	semesters := make([]SemesterResult, 0, len(bySem))
	for sem, courses := range bySem {
		sort.SliceStable(courses, func(i, j int) bool { return courses[i].CourseCode < courses[j].CourseCode })
		semesters = append(semesters, SemesterResult{Semester: sem, Courses: courses})
	}
	sort.Slice(semesters, func(i, j int) bool { return semesters[i].Semester < semesters[j].Semester })
	return semesters
}

type (
	TranscriptSemester struct {
		SemesterResult
		SGPA          float64
		CGPA          float64
		Credits       int
		CreditsEarned int
	}

	Transcript struct {
		StudentID     string               `json:"student_id"`
		Semesters     []TranscriptSemester `json:"semesters"`
		CGPA          float64              `json:"-"`
		CreditsEarned int                  `json:"credits_earned"`
	}
)

// BuildTranscript computes SGPA and running CGPA of every semester.
// Failed courses count towards the averages but not towards earned credits.
func BuildTranscript(studentID string, results []CourseResult) Transcript {
	semesters := GroupBySemester(results)
	tr := Transcript{StudentID: studentID, Semesters: make([]TranscriptSemester, 0, len(semesters))}
	for _, sem := range semesters {
		ts := TranscriptSemester{
			SemesterResult: sem,
			SGPA:           SGPA(sem.Courses),
			CGPA:           CGPA(semesters, sem.Semester),
		}
		for _, r := range sem.Courses {
			ts.Credits += r.Credits
			if r.Passed() {
				ts.CreditsEarned += r.Credits
			}
		}
		tr.CreditsEarned += ts.CreditsEarned
		tr.CGPA = ts.CGPA
		tr.Semesters = append(tr.Semesters, ts)
	}
	return tr
}

func (ts TranscriptSemester) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Semester      int            `json:"semester"`
		Courses       []CourseResult `json:"courses"`
		SGPA          float64        `json:"sgpa"`
		CGPA          float64        `json:"cgpa"`
		Credits       int            `json:"credits"`
		CreditsEarned int            `json:"credits_earned"`
	}{ts.Semester, ts.Courses, core.Round2(ts.SGPA), core.Round2(ts.CGPA), ts.Credits, ts.CreditsEarned})
}

func (tr Transcript) MarshalJSON() ([]byte, error) {
	type alias Transcript
	return json.Marshal(struct {
		alias
		CGPA float64 `json:"cgpa"`
	}{alias(tr), core.Round2(tr.CGPA)})
}
