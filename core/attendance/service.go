package attendance

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/kampus/core"
	"github.com/trezcool/kampus/core/course"
	"github.com/trezcool/kampus/core/user"
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrNotFound     = core.NewNotFoundError("attendance record")
	ErrNotClaimable = core.NewConflictError("not_claimable", "only absences can be claimed")
	ErrNotPending   = core.NewConflictError("claim_not_pending", "record has no pending claim")
)

type (
	Repository interface {
		// SaveRecords creates the records or replaces those of the same student, course and date.
		SaveRecords(ctx context.Context, records []Record, exec ...core.DBExecutor) ([]Record, error)
		GetRecord(ctx context.Context, id string, exec ...core.DBExecutor) (Record, error)
		UpdateRecord(ctx context.Context, r Record, exec ...core.DBExecutor) (Record, error)
		QueryRecords(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) ([]Record, error)
	}

	CourseFinder interface {
		GetByID(ctx context.Context, id string) (course.Course, error)
		GetByCode(ctx context.Context, code string) (course.Course, error)
	}

	UserFinder interface {
		GetByIDs(ctx context.Context, ids ...string) (map[string]user.User, error)
	}

	Service struct {
		db         core.DB
		repo       Repository
		courses    CourseFinder
		users      UserFinder
		mailSvc    core.EmailService
		validate   *validator.Validate
		thresholds Thresholds
	}

	// ImportRow is one attendance line of a spreadsheet.
	ImportRow struct {
		StudentID  string
		CourseCode string
		Date       string
		Status     string
	}

	StudentShortage struct {
		StudentID string
		Courses   []CourseSummary
	}
)

func NewService(
	db core.DB,
	repo Repository,
	courses CourseFinder,
	users UserFinder,
	mailSvc core.EmailService,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{
		db:         db,
		repo:       repo,
		courses:    courses,
		users:      users,
		mailSvc:    mailSvc,
		validate:   validate,
		thresholds: NewThresholds(conf),
	}
}

func (svc *Service) Thresholds() Thresholds { return svc.thresholds }

// Mark records one class of a course. Marks by faculty need no verification.
func (svc *Service) Mark(ctx context.Context, markedBy string, nm NewMarking) ([]Record, error) {
	if err := nm.Validate(svc.validate); err != nil {
		return nil, err
	}
	c, err := svc.courses.GetByID(ctx, nm.CourseID)
	if err != nil {
		return nil, err
	}
	date, _ := time.Parse("2006-01-02", nm.Date) // validated

	now := NowFunc().UTC()
	records := make([]Record, 0, len(nm.Entries))
	for _, e := range nm.Entries {
		records = append(records, Record{
			ID:           uuid.New().String(),
			StudentID:    e.StudentID,
			CourseID:     c.ID,
			CourseCode:   c.Code,
			Date:         Day(date),
			Status:       Status(e.Status),
			Verification: VerificationApproved,
			MarkedBy:     markedBy,
			UpdatedAt:    now,
		})
	}
	return svc.repo.SaveRecords(ctx, records)
}

// Import records spreadsheet rows in a single transaction.
func (svc *Service) Import(ctx context.Context, markedBy string, rows []ImportRow) (int, error) {
	now := NowFunc().UTC()
	courses := make(map[string]course.Course)
	records := make([]Record, 0, len(rows))
	for i, row := range rows {
		fieldErr := func(field, msg string) error {
			return core.NewValidationError(
				fmt.Errorf("row %d: invalid %s", i+1, field),
				core.FieldError{Field: fmt.Sprintf("rows[%d].%s", i, field), Error: msg},
			)
		}
		if row.StudentID == "" {
			return 0, fieldErr("student_id", "this field is required")
		}
		status := Status(core.CleanLower(row.Status))
		if !containsString(AllStatuses, string(status)) {
			return 0, fieldErr("status", "must be one of present, absent, medical or od")
		}
		date, err := time.Parse("2006-01-02", core.CleanString(row.Date))
		if err != nil {
			return 0, fieldErr("date", "must be a date formatted as YYYY-MM-DD")
		}
		c, ok := courses[row.CourseCode]
		if !ok {
			if c, err = svc.courses.GetByCode(ctx, row.CourseCode); err != nil {
				if errors.Cause(err) == course.ErrNotFound {
					return 0, fieldErr("course_code", "unknown course")
				}
				return 0, errors.Wrap(err, "finding course by code")
			}
			courses[row.CourseCode] = c
		}
		records = append(records, Record{
			ID:           uuid.New().String(),
			StudentID:    row.StudentID,
			CourseID:     c.ID,
			CourseCode:   c.Code,
			Date:         Day(date),
			Status:       status,
			Verification: VerificationApproved,
			MarkedBy:     markedBy,
			UpdatedAt:    now,
		})
	}

	err := core.RunInTx(ctx, svc.db, func(exec core.DBExecutor) error {
		_, err := svc.repo.SaveRecords(ctx, records, exec)
		return err
	})
	if err != nil {
		return 0, errors.Wrap(err, "saving records")
	}
	return len(records), nil
}

// Claim files a medical or on-duty claim against one of the student's absences.
func (svc *Service) Claim(ctx context.Context, studentID string, nc NewClaim) (Record, error) {
	if err := nc.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	r, err := svc.repo.GetRecord(ctx, nc.RecordID)
	if err != nil {
		return Record{}, err
	}
	if r.StudentID != studentID {
		return Record{}, ErrNotFound
	}
	claimable := r.Status == StatusAbsent ||
		(r.Verification == VerificationRejected && (r.Status == StatusMedical || r.Status == StatusOD))
	if !claimable {
		return Record{}, ErrNotClaimable
	}
	r.Status = Status(nc.Status)
	r.Verification = VerificationPending
	r.Reason = nc.Reason
	r.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateRecord(ctx, r)
}

// Verify approves or rejects a pending claim.
func (svc *Service) Verify(ctx context.Context, recordID, verifiedBy string, v Verdict) (Record, error) {
	if err := v.Validate(svc.validate); err != nil {
		return Record{}, err
	}
	r, err := svc.repo.GetRecord(ctx, recordID)
	if err != nil {
		return Record{}, err
	}
	if r.Verification != VerificationPending {
		return Record{}, ErrNotPending
	}
	r.Verification = Verification(v.Verification)
	r.MarkedBy = verifiedBy
	r.UpdatedAt = NowFunc().UTC()
	return svc.repo.UpdateRecord(ctx, r)
}

func (svc *Service) Records(ctx context.Context, filter *QueryFilter) ([]Record, error) {
	return svc.repo.QueryRecords(ctx, filter)
}

func (svc *Service) Summary(ctx context.Context, studentID string) ([]CourseSummary, error) {
	records, err := svc.repo.QueryRecords(ctx, &QueryFilter{StudentID: studentID})
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	return Summarize(records, svc.thresholds), nil
}

// Shortages lists the students below the shortage threshold in at least one course.
func (svc *Service) Shortages(ctx context.Context) ([]StudentShortage, error) {
	records, err := svc.repo.QueryRecords(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying records")
	}
	byStudent := make(map[string][]Record)
	for _, r := range records {
		byStudent[r.StudentID] = append(byStudent[r.StudentID], r)
	}

	var shortages []StudentShortage
	for studentID, recs := range byStudent {
		var short []CourseSummary
		for _, s := range Summarize(recs, svc.thresholds) {
			if s.Standing == StandingShortage {
				short = append(short, s)
			}
		}
		if len(short) > 0 {
			shortages = append(shortages, StudentShortage{StudentID: studentID, Courses: short})
		}
	}
	sort.Slice(shortages, func(i, j int) bool { return shortages[i].StudentID < shortages[j].StudentID })
	return shortages, nil
}

type shortageMailData struct {
	Name      string
	Threshold int
	Courses   []CourseSummary
}

// RemindShortages emails every student in shortage who has an email address.
func (svc *Service) RemindShortages(ctx context.Context) (int, error) {
	shortages, err := svc.Shortages(ctx)
	if err != nil {
		return 0, err
	}
	if len(shortages) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(shortages))
	for _, s := range shortages {
		ids = append(ids, s.StudentID)
	}
	users, err := svc.users.GetByIDs(ctx, ids...)
	if err != nil {
		return 0, errors.Wrap(err, "finding students")
	}

	messages := make([]*core.EmailMessage, 0, len(shortages))
	for _, s := range shortages {
		usr, ok := users[s.StudentID]
		if !ok || usr.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:       []mail.Address{usr.MailAddress()},
			Subject:  "Attendance shortage",
			Template: core.TemplateAttendanceShortage,
			Data:     shortageMailData{Name: usr.Name, Threshold: svc.thresholds.Shortage, Courses: s.Courses},
		})
	}
	svc.mailSvc.SendMessages(messages...)
	return len(messages), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
