package attendance

import (
	"math"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kampus/core"
)

type (
	Status       string
	Verification string
	Standing     string
)

// Statuses
const (
	StatusPresent Status = "present"
	StatusAbsent  Status = "absent"
	StatusMedical Status = "medical"
	StatusOD      Status = "od" // on duty
)

// Verifications
const (
	VerificationPending  Verification = "pending"
	VerificationApproved Verification = "approved"
	VerificationRejected Verification = "rejected"
)

// Standings
const (
	StandingGood       Standing = "Good"
	StandingBorderline Standing = "Borderline"
	StandingShortage   Standing = "Shortage"
)

var (
	AllStatuses      = []string{string(StatusPresent), string(StatusAbsent), string(StatusMedical), string(StatusOD)}
	ClaimStatuses    = []string{string(StatusMedical), string(StatusOD)}
	VerdictStatuses  = []string{string(VerificationApproved), string(VerificationRejected)}
	maxCatchUpSearch = 10000
)

type Record struct {
	ID           string       `json:"id"`
	StudentID    string       `json:"student_id"`
	CourseID     string       `json:"course_id"`
	CourseCode   string       `json:"course_code"`
	Date         time.Time    `json:"date"` // UTC, truncated to the day
	Status       Status       `json:"status"`
	Verification Verification `json:"verification"`
	Reason       string       `json:"reason"`
	MarkedBy     string       `json:"marked_by"`
	UpdatedAt    time.Time    `json:"updated_at"` // UTC
}

// Attended reports whether the class counts as attended.
// Medical and on-duty leave only count once approved.
func (r Record) Attended() bool {
	switch r.Status {
	case StatusPresent:
		return true
	case StatusMedical, StatusOD:
		return r.Verification == VerificationApproved
	default:
		return false
	}
}

// Percentage is round(attended/total*100). No classes held counts as 100.
func Percentage(attended, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(attended) / float64(total) * 100))
}

type Thresholds struct {
	Shortage int // below: Shortage
	Good     int // at or above: Good
}

func NewThresholds(conf *core.Config) Thresholds {
	return Thresholds{Shortage: conf.Attendance.ShortageThreshold, Good: conf.Attendance.GoodThreshold}
}

func (th Thresholds) Standing(percentage int) Standing {
	switch {
	case percentage >= th.Good:
		return StandingGood
	case percentage >= th.Shortage:
		return StandingBorderline
	default:
		return StandingShortage
	}
}

// ClassesNeeded is the number of consecutive classes to attend for the percentage to reach threshold.
// It is -1 when the threshold cannot be reached.
func ClassesNeeded(attended, total, threshold int) int {
	for n := 0; n <= maxCatchUpSearch; n++ {
		if Percentage(attended+n, total+n) >= threshold {
			return n
		}
	}
	return -1
}

// CanMiss is the number of classes that can be missed while staying at or above threshold.
func CanMiss(attended, total, threshold int) int {
	if Percentage(attended, total) < threshold {
		return 0
	}
	m := 0
	for m < maxCatchUpSearch && Percentage(attended, total+m+1) >= threshold {
		m++
	}
	return m
}

type CourseSummary struct {
	CourseID      string   `json:"course_id"`
	CourseCode    string   `json:"course_code"`
	Attended      int      `json:"attended"`
	Total         int      `json:"total"`
	Percentage    int      `json:"percentage"`
	Standing      Standing `json:"standing"`
	ClassesNeeded int      `json:"classes_needed"`
	CanMiss       int      `json:"can_miss"`
	PendingClaims int      `json:"pending_claims"`
}

// Summarize computes per-course attendance of one student's records, ordered by course code.
func Summarize(records []Record, th Thresholds) []CourseSummary {
	byCourse := make(map[string]*CourseSummary)
	for _, r := range records {
		s, ok := byCourse[r.CourseID]
		if !ok {
			s = &CourseSummary{CourseID: r.CourseID, CourseCode: r.CourseCode}
			byCourse[r.CourseID] = s
		}
		s.Total++
		if r.Attended() {
			s.Attended++
		}
		if r.Verification == VerificationPending {
			s.PendingClaims++
		}
	}

	summaries := make([]CourseSummary, 0, len(byCourse))
	for _, s := range byCourse {
		s.Percentage = Percentage(s.Attended, s.Total)
		s.Standing = th.Standing(s.Percentage)
		s.ClassesNeeded = ClassesNeeded(s.Attended, s.Total, th.Shortage)
		s.CanMiss = CanMiss(s.Attended, s.Total, th.Shortage)
		summaries = append(summaries, *s)
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CourseCode == summaries[j].CourseCode {
			return summaries[i].CourseID < summaries[j].CourseID
		}
		return summaries[i].CourseCode < summaries[j].CourseCode
	})
	return summaries
}

type (
	Entry struct {
		StudentID string `json:"student_id" validate:"required"`
		Status    string `json:"status" validate:"required,attendancestatus"`
	}

	// NewMarking marks one class of a course for many students.
	NewMarking struct {
		CourseID string  `json:"course_id" validate:"required"`
		Date     string  `json:"date" validate:"required,datetime=2006-01-02"`
		Entries  []Entry `json:"entries" validate:"required,min=1,dive"`
	}

	NewClaim struct {
		RecordID string `json:"record_id" validate:"required"`
		Status   string `json:"status" validate:"required,claimstatus"`
		Reason   string `json:"reason" validate:"required,notblank,max=500"`
	}

	Verdict struct {
		Verification string `json:"verification" validate:"required,verdict"`
	}

	QueryFilter struct {
		StudentID string `query:"-"`
		CourseID  string `query:"course_id"`
		Pending   bool   `query:"pending"`
	}
)

func (nm *NewMarking) Validate(validate *validator.Validate) error {
	nm.CourseID = core.CleanString(nm.CourseID)
	return validate.Struct(nm)
}

func (nc *NewClaim) Validate(validate *validator.Validate) error {
	nc.Reason = core.CleanString(nc.Reason)
	return validate.Struct(nc)
}

func (v *Verdict) Validate(validate *validator.Validate) error {
	return validate.Struct(v)
}

func (qf *QueryFilter) Match(r Record) bool {
	if qf.StudentID != "" && r.StudentID != qf.StudentID {
		return false
	}
	if qf.CourseID != "" && r.CourseID != qf.CourseID {
		return false
	}
	if qf.Pending && r.Verification != VerificationPending {
		return false
	}
	return true
}

// Day truncates t to its UTC day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
